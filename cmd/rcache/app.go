package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-redis-cache/cache"
)

// EnvNamespace sets the default for --namespace.
const EnvNamespace = "REDIS_CACHE_NAMESPACE"

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "rcache",
		Usage: "inspect and invalidate cached function results",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "store URL (redis://, rediss://, unix://, memory://)",
				Sources: cli.EnvVars(cache.EnvCacheURL, cache.EnvRedisURL),
			},
			&cli.StringFlag{
				Name:    "namespace",
				Aliases: []string{"n"},
				Usage:   "key namespace",
				Value:   cache.DefaultNamespace,
				Sources: cli.EnvVars(EnvNamespace),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log cache events to stderr",
			},
		},
		Commands: []*cli.Command{
			keysCommand(),
			invalidateCommand(),
		},
	}
}

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "list keys in the namespace, optionally filtered by tag or function",
		MutuallyExclusiveFlags: []cli.MutuallyExclusiveFlags{{
			Flags: [][]cli.Flag{
				{&cli.StringFlag{Name: "tag", Usage: "only keys carrying this tag"}},
				{&cli.StringFlag{Name: "func", Usage: "only keys produced by this function; a bare name matches any package"}},
			},
		}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			controller, err := openController(ctx, cmd)
			if err != nil {
				return err
			}
			defer controller.Close()

			var keys []string
			switch {
			case cmd.String("tag") != "":
				keys, err = controller.FindByTag(ctx, cmd.String("tag"))
			case cmd.String("func") != "":
				keys, err = controller.FindByFunction(ctx, cmd.String("func"))
			default:
				keys, err = controller.FindAll(ctx)
			}
			if err != nil {
				return err
			}

			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintln(cmd.Root().Writer, key)
			}
			return nil
		},
	}
}

func invalidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "invalidate",
		Usage: "delete keys by tag, by function or the whole namespace",
		MutuallyExclusiveFlags: []cli.MutuallyExclusiveFlags{{
			Required: true,
			Flags: [][]cli.Flag{
				{&cli.StringFlag{Name: "tag", Usage: "delete keys carrying this tag"}},
				{&cli.StringFlag{Name: "func", Usage: "delete keys produced by this function"}},
				{&cli.BoolFlag{Name: "all", Usage: "delete every key in the namespace"}},
			},
		}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			controller, err := openController(ctx, cmd)
			if err != nil {
				return err
			}
			defer controller.Close()

			var deleted int
			switch {
			case cmd.String("tag") != "":
				deleted, err = controller.InvalidateByTag(ctx, cmd.String("tag"))
			case cmd.String("func") != "":
				deleted, err = controller.InvalidateByFunction(ctx, cmd.String("func"))
			default:
				deleted, err = controller.Clear(ctx)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.Root().Writer, "deleted %d key(s)\n", deleted)
			return nil
		},
	}
}

func openController(ctx context.Context, cmd *cli.Command) (*cache.Controller, error) {
	cfg := cache.DefaultConfig()
	cfg.URL = cmd.String("url")
	cfg.Namespace = cmd.String("namespace")
	cfg.Verbose = cmd.Bool("verbose")

	logger := logrus.New()
	logger.SetOutput(cmd.Root().ErrWriter)

	return cache.Open(ctx, cfg, cache.WithLogger(logger))
}
