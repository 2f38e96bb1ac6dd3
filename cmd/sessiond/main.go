package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	})))

	root := &cli.Command{
		Name:  "sessiond",
		Usage: "proctored contest session engine",
		Commands: []*cli.Command{
			serveCommand(),
			seedCommand(),
			replayCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
