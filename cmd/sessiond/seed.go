package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/campuscode/sessiond/internal/contest"
	"github.com/campuscode/sessiond/internal/environment"
	"github.com/campuscode/sessiond/internal/localstore"
)

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "validate contest seed files and snapshot them to the local store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "directory with contest seed TOML files",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := environment.ReadEnvConfig()
			dir := cmd.String("dir")
			if dir == "" {
				dir = cfg.SeedDir
			}

			reg := contest.NewInMemRegistry()
			n, err := contest.LoadSeedDir(reg, dir)
			if err != nil {
				return fmt.Errorf("failed to load seeds: %w", err)
			}

			for _, c := range reg.All() {
				slog.Info("contest",
					"id", c.ID, "title", c.Title, "status", c.Status,
					"duration_sec", c.DurationSec, "questions", len(c.Questions))
			}

			store, err := localstore.New(cfg.StateDir)
			if err != nil {
				return err
			}
			if err := store.SaveContests(reg.All()); err != nil {
				return fmt.Errorf("failed to snapshot contests: %w", err)
			}

			slog.Info("seeded", "count", n, "state_dir", cfg.StateDir)
			return nil
		},
	}
}
