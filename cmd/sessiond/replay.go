package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/campuscode/sessiond/internal/contest"
	"github.com/campuscode/sessiond/internal/grading"
	"github.com/campuscode/sessiond/internal/media"
	"github.com/campuscode/sessiond/internal/notify"
	"github.com/campuscode/sessiond/internal/session"
	"github.com/campuscode/sessiond/internal/sink/termsink"
)

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "drive one full session locally against a seed file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "seed",
				Usage:    "contest seed TOML file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "contest",
				Usage: "contest id to attempt (defaults to the first in the file)",
			},
			&cli.IntFlag{
				Name:  "warnings",
				Usage: "number of tab-switch warnings to simulate",
			},
			&cli.BoolFlag{
				Name:  "deny-media",
				Usage: "simulate a denied camera/microphone permission",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return replay(ctx, cmd.String("seed"), cmd.String("contest"),
				int(cmd.Int("warnings")), cmd.Bool("deny-media"))
		},
	}
}

func replay(ctx context.Context, seedPath, contestID string, warnings int, denyMedia bool) error {
	contests, err := contest.ParseSeedFile(seedPath)
	if err != nil {
		return err
	}
	if len(contests) == 0 {
		return fmt.Errorf("seed file %s contains no contests", seedPath)
	}

	reg := contest.NewInMemRegistry()
	var target *contest.Contest
	for _, c := range contests {
		reg.Put(c)
		if contestID == "" && target == nil {
			target = c
		}
		if c.ID == contestID {
			target = c
		}
	}
	if target == nil {
		return fmt.Errorf("contest %s not found in %s", contestID, seedPath)
	}

	broker := notify.NewBroker()
	events, cancelSub := broker.Subscribe(16)
	defer cancelSub()
	go func() {
		for ev := range events {
			slog.Info("notification", "contest_id", ev.ContestID, "message", ev.Message)
		}
	}()

	manager := session.NewManager(reg, grading.NewKeyGrader(), broker, slog.Default())

	acq := &media.FakeAcquirer{Deny: denyMedia}
	sess, err := manager.Join(ctx, "replay-student", target.ID, acq, termsink.New())
	if err != nil {
		return err
	}

	// answer every question with its key, locking each one in
	for _, q := range target.Questions {
		if err := sess.SetAnswer(q.ID, q.AnswerKey); err != nil {
			return err
		}
		if _, err := sess.SubmitQuestion(q.ID); err != nil {
			return err
		}
		if _, _, err := sess.Next(); err != nil {
			return err
		}
	}

	for i := 0; i < warnings; i++ {
		sess.ReportVisibilityLoss()
	}

	res := sess.Result()
	if res == nil {
		if res, err = sess.Submit(); err != nil {
			return err
		}
	}

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
