package main

import (
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/unchained-app/unchained/library/fs"
	"github.com/unchained-app/unchained/store"
)

func viewCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name:      "view",
		Usage:     "Show the library view modes or switch to one",
		ArgsUsage: "[MODE]",
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.BoolFlag{Name: "toggle-sidebar", Usage: "Show or hide the sidebar"},
		},
		Action: action(func(cliCtx *cli.Context, e *env) error {
			stateDir := fs.From(e.cfg.StateDir)
			if err := stateDir.Ensure(); nil != err {
				return err
			}
			app := store.LoadApp(stateDir.UI(), e.logger)

			if arg := cliCtx.Args().First(); arg != "" {
				v, err := store.ParseViewMode(arg)
				if nil != err {
					return err
				}
				app.SetView(v)
				e.logger.Debug().Str("view", string(v)).Msg("View switched")
			}
			if cliCtx.Bool("toggle-sidebar") {
				app.ToggleSidebar()
			}

			st := app.Get()
			return e.out.table(fs.UIPrefs{View: string(st.View), SidebarOpen: st.SidebarOpen}, []string{"", "VIEW"}, viewRows(st))
		}),
	}
}

func viewRows(st store.AppState) [][]string {
	return lo.Map(store.ViewModes, func(v store.ViewMode, _ int) []string {
		return []string{lo.Ternary(v == st.View, "*", ""), string(v)}
	})
}
