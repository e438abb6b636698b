package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"gopkg.in/matryer/try.v1"

	"github.com/unchained-app/unchained/cache"
	"github.com/unchained-app/unchained/config"
	"github.com/unchained-app/unchained/errutil"
	"github.com/unchained-app/unchained/library/api"
	"github.com/unchained-app/unchained/log"
	"github.com/unchained-app/unchained/must"
	"github.com/unchained-app/unchained/ratelimit"
)

type env struct {
	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc
	cfg    *config.Config
	cache  *cache.Cache
	client *api.Client
	logger zerolog.Logger
	out    *output
}

func (e *env) close() {
	e.cache.Stop()
	e.cancel()
}

func loadConfig(cliCtx *cli.Context, logger zerolog.Logger) (*config.Config, error) {
	cfgEnv := os.Getenv("CONFIG")
	cfgFilePath := cliCtx.String(flagConfigFilePath)

	var cfg *config.Config
	switch {
	case cfgFilePath != "" && cfgEnv != "":
		return nil, errors.New("config file path and config environment variable are both set. specify only one")
	case cfgFilePath != "":
		logger.Debug().Str("config_file_path", cfgFilePath).Msg("Loading config from file")
		c, err := config.FromFile(cfgFilePath)
		if nil != err {
			return nil, fmt.Errorf("failed to load config file: %v", err)
		}
		cfg = c
	case cfgEnv != "":
		logger.Debug().Msg("Loading config from environment variable")
		c, err := config.FromString(cfgEnv)
		if nil != err {
			return nil, fmt.Errorf("failed to load config from environment variable: %v", err)
		}
		cfg = c
	default:
		logger.Debug().Msg("No config given, using defaults")
		cfg = config.Default()
	}

	if err := cfg.WithAPIBaseURL(os.Getenv("UNCHAINED_API_BASE")); nil != err {
		return nil, fmt.Errorf("invalid UNCHAINED_API_BASE environment variable: %v", err)
	}
	return cfg, nil
}

func setup(cliCtx *cli.Context) (*env, error) {
	ctx, cancel := signal.NotifyContext(cliCtx.Context, syscall.SIGINT, syscall.SIGTERM)

	baseLogger, err := log.New(os.Stderr, cliCtx.String(flagLogFormat))
	if nil != err {
		cancel()
		return nil, err
	}
	cfg, err := loadConfig(cliCtx, baseLogger.Level(log.ParseLevel(cliCtx.String(flagLogLevel))))
	if nil != err {
		cancel()
		return nil, err
	}

	level := cfg.LogLevel
	if l := cliCtx.String(flagLogLevel); l != "" {
		level = l
	}
	logger := baseLogger.Level(log.ParseLevel(level))

	c := cache.New()
	client, err := api.New(cfg.APIBaseURL, c)
	if nil != err {
		c.Stop()
		cancel()
		return nil, err
	}
	logger.Debug().Str("api_base_url", client.BaseURL()).Msg("API client initialized")

	return &env{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		cache:  c,
		client: client,
		logger: logger,
		out:    newOutput(os.Stdout, cliCtx.Bool(flagJSON)),
	}, nil
}

// action wraps a command body with environment setup and teardown.
func action(fn func(cliCtx *cli.Context, e *env) error) cli.ActionFunc {
	return func(cliCtx *cli.Context) error {
		e, err := setup(cliCtx)
		if nil != err {
			return err
		}
		defer e.close()
		return fn(cliCtx, e)
	}
}

// fetch retries idempotent backend reads on rate limiting and timeouts.
func fetch[T any](ctx context.Context, name string, fn func(ctx context.Context) (T, error)) (out T, err error) {
	err = try.Do(func(attempt int) (retry bool, err error) {
		const maxAttempts = 3
		attemptRemained := attempt < maxAttempts
		if err := ratelimit.Wait(ctx, attempt); nil != err {
			return false, err
		}
		v, err := fn(ctx)
		if nil != err {
			if errutil.IsContext(ctx) {
				return false, ctx.Err()
			}
			if retryable, ok := errutil.IsAny(err, context.DeadlineExceeded, api.ErrTooManyRequests); ok {
				return attemptRemained, retryable
			}
			switch {
			case errors.Is(err, api.ErrNotFound):
				return false, fmt.Errorf("%s: %w", name, api.ErrNotFound)
			case errutil.IsFlaw(err):
				return false, must.BeFlaw(err)
			default:
				return false, fmt.Errorf("%s: %v", name, err)
			}
		}
		out = v
		return false, nil
	})
	return out, err
}
