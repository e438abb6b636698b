package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/unchained-app/unchained/library"
)

func parseTrackIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		for _, s := range strings.Split(arg, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			id, err := strconv.Atoi(s)
			if nil != err {
				return nil, fmt.Errorf("invalid track id %q", s)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func clusterRows(assignments []library.ClusterAssignment) [][]string {
	return lo.Map(assignments, func(a library.ClusterAssignment, _ int) []string {
		return []string{strconv.Itoa(a.TrackID), strconv.Itoa(a.ClusterID), a.Algorithm, formatFloat(a.DistanceToCentroid)}
	})
}

type overview struct {
	Embeddings int           `json:"embeddings"`
	Clusters   map[int]int   `json:"clusters"`
	Stats      library.Stats `json:"stats"`
}

func analyticsCommand() *cli.Command {
	algorithmFlag := &cli.StringFlag{Name: "algorithm", Value: library.ClusterKMeans, Usage: "kmeans or dbscan"} //nolint:exhaustruct

	//nolint:exhaustruct
	return &cli.Command{
		Name:  "analytics",
		Usage: "Compute and inspect library embeddings, clusters and statistics",
		Subcommands: []*cli.Command{
			{
				Name:  "overview",
				Usage: "Summarize embeddings, clusters and the latest statistics",
				Flags: []cli.Flag{algorithmFlag},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					var (
						embeddings []library.Embedding
						clusters   []library.ClusterAssignment
						stats      library.Stats
					)
					g, ctx := errgroup.WithContext(e.ctx)
					g.Go(func() (err error) {
						embeddings, err = fetch(ctx, "get embeddings", func(ctx context.Context) ([]library.Embedding, error) {
							return e.client.Embeddings(ctx, nil)
						})
						return err
					})
					g.Go(func() (err error) {
						clusters, err = fetch(ctx, "get clusters", func(ctx context.Context) ([]library.ClusterAssignment, error) {
							return e.client.Clusters(ctx, cliCtx.String("algorithm"))
						})
						return err
					})
					g.Go(func() (err error) {
						stats, err = fetch(ctx, "get stats", func(ctx context.Context) (library.Stats, error) {
							return e.client.Stats(ctx, true)
						})
						return err
					})
					if err := g.Wait(); nil != err {
						return err
					}

					o := overview{
						Embeddings: len(embeddings),
						Clusters:   lo.CountValuesBy(clusters, func(a library.ClusterAssignment) int { return a.ClusterID }),
						Stats:      stats,
					}
					if e.out.json {
						return e.out.writeJSON(o)
					}
					fmt.Fprintf(e.out.w, "embeddings: %d\nclusters: %d\n", o.Embeddings, len(o.Clusters))
					ids := lo.Keys(o.Clusters)
					slices.Sort(ids)
					for _, id := range ids {
						fmt.Fprintf(e.out.w, "  cluster %d: %d tracks\n", id, o.Clusters[id])
					}
					if len(stats) == 0 {
						return nil
					}
					return e.out.raw(stats)
				}),
			},
			{
				Name:      "compute-embeddings",
				Usage:     "Compute embeddings for the given tracks, or every track missing one",
				ArgsUsage: "[TRACK_ID...]",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.BoolFlag{Name: "force", Usage: "Recompute existing embeddings"},
					//nolint:exhaustruct
					&cli.StringFlag{Name: "model-version", Value: "v1"},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					ids, err := parseTrackIDs(cliCtx.Args().Slice())
					if nil != err {
						return err
					}
					if len(ids) == 0 {
						ids = nil
					}
					n, err := e.client.ComputeEmbeddings(e.ctx, ids, cliCtx.Bool("force"), cliCtx.String("model-version"))
					if nil != err {
						return err
					}
					return e.out.value(map[string]int{"computed": n}, fmt.Sprintf("%d embeddings computed", n))
				}),
			},
			{
				Name:      "embeddings",
				Usage:     "List stored embeddings",
				ArgsUsage: "[TRACK_ID...]",
				Action: action(func(cliCtx *cli.Context, e *env) error {
					ids, err := parseTrackIDs(cliCtx.Args().Slice())
					if nil != err {
						return err
					}
					embeddings, err := fetch(e.ctx, "get embeddings", func(ctx context.Context) ([]library.Embedding, error) {
						return e.client.Embeddings(ctx, ids)
					})
					if nil != err {
						return err
					}
					rows := lo.Map(embeddings, func(em library.Embedding, _ int) []string {
						return []string{strconv.Itoa(em.TrackID), em.ModelVersion, strconv.Itoa(em.Dimensionality), orDash(em.ComputedAt)}
					})
					return e.out.table(embeddings, []string{"TRACK", "MODEL", "DIMENSIONS", "COMPUTED_AT"}, rows)
				}),
			},
			{
				Name:  "reduce",
				Usage: "Project embeddings to 2 or 3 dimensions",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.IntFlag{Name: "components", Value: 2},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					points, err := fetch(e.ctx, "reduce embeddings", func(ctx context.Context) ([]library.ReducedEmbedding, error) {
						return e.client.ReduceEmbeddings(ctx, cliCtx.Int("components"))
					})
					if nil != err {
						return err
					}
					rows := lo.Map(points, func(p library.ReducedEmbedding, _ int) []string {
						return []string{
							strconv.Itoa(p.TrackID),
							strconv.FormatFloat(p.X, 'f', 4, 64),
							strconv.FormatFloat(p.Y, 'f', 4, 64),
							lo.Ternary(nil == p.Z, "-", strconv.FormatFloat(lo.FromPtr(p.Z), 'f', 4, 64)),
						}
					})
					return e.out.table(points, []string{"TRACK", "X", "Y", "Z"}, rows)
				}),
			},
			{
				Name:  "compute-clusters",
				Usage: "Cluster tracks by their embeddings",
				Flags: []cli.Flag{
					algorithmFlag,
					//nolint:exhaustruct
					&cli.IntFlag{Name: "clusters", Value: 8, Usage: "Number of clusters for kmeans"},
					//nolint:exhaustruct
					&cli.BoolFlag{Name: "force", Usage: "Recompute existing clusters"},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					res, err := e.client.ComputeClusters(e.ctx, cliCtx.String("algorithm"), cliCtx.Int("clusters"), cliCtx.Bool("force"))
					if nil != err {
						return err
					}
					return e.out.value(res, fmt.Sprintf("%s: %d tracks in %d clusters", res.Algorithm, res.TracksClustered, res.NClusters))
				}),
			},
			{
				Name:  "clusters",
				Usage: "List cluster assignments",
				Flags: []cli.Flag{algorithmFlag},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					assignments, err := fetch(e.ctx, "get clusters", func(ctx context.Context) ([]library.ClusterAssignment, error) {
						return e.client.Clusters(ctx, cliCtx.String("algorithm"))
					})
					if nil != err {
						return err
					}
					return e.out.table(assignments, []string{"TRACK", "CLUSTER", "ALGORITHM", "DISTANCE"}, clusterRows(assignments))
				}),
			},
			{
				Name:      "similar",
				Usage:     "List the tracks most similar to a track",
				ArgsUsage: "TRACK_ID",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.IntFlag{Name: "top", Value: 10},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					id, err := intArg(cliCtx, 0, "track id")
					if nil != err {
						return err
					}
					similar, err := fetch(e.ctx, "get similar tracks", func(ctx context.Context) ([]library.SimilarTrack, error) {
						return e.client.Similar(ctx, id, cliCtx.Int("top"))
					})
					if nil != err {
						return err
					}
					rows := lo.Map(similar, func(s library.SimilarTrack, _ int) []string {
						return []string{strconv.Itoa(s.TrackID), strconv.FormatFloat(s.SimilarityScore, 'f', 4, 64)}
					})
					return e.out.table(similar, []string{"TRACK", "SCORE"}, rows)
				}),
			},
			{
				Name:  "stats",
				Usage: "Show library statistics",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.BoolFlag{Name: "compute", Usage: "Recompute statistics first"},
					//nolint:exhaustruct
					&cli.BoolFlag{Name: "history", Usage: "Include previous snapshots"},
				},
				Action: action(func(cliCtx *cli.Context, e *env) error {
					if cliCtx.Bool("compute") {
						stats, err := e.client.ComputeStats(e.ctx)
						if nil != err {
							return err
						}
						return e.out.raw(stats)
					}
					stats, err := fetch(e.ctx, "get stats", func(ctx context.Context) (library.Stats, error) {
						return e.client.Stats(ctx, !cliCtx.Bool("history"))
					})
					if nil != err {
						return err
					}
					return e.out.raw(stats)
				}),
			},
		},
	}
}
