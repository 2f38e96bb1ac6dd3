package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/campuscode/sessiond/api"
	"github.com/campuscode/sessiond/internal/contest"
	"github.com/campuscode/sessiond/internal/environment"
	"github.com/campuscode/sessiond/internal/grading"
	"github.com/campuscode/sessiond/internal/localstore"
	"github.com/campuscode/sessiond/internal/media"
	"github.com/campuscode/sessiond/internal/notify"
	"github.com/campuscode/sessiond/internal/session"
	"github.com/campuscode/sessiond/internal/sink/natssink"
	"github.com/campuscode/sessiond/internal/sink/sqssink"
)

const joinTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the session daemon, consuming commands from NATS",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := environment.ReadEnvConfig()

	store, err := localstore.New(cfg.StateDir)
	if err != nil {
		return err
	}

	reg := contest.NewInMemRegistry()

	// locally-authored contests from the previous run come back first,
	// seed files override them
	if cached, ok, err := store.LoadContests(); err != nil {
		slog.Warn("failed to load contest snapshot", "error", err)
	} else if ok {
		for _, c := range cached {
			reg.Put(c)
		}
		slog.Info("restored contests from snapshot", "count", len(cached))
	}

	broker := notify.NewBroker()
	events, cancelSub := broker.Subscribe(64)
	defer cancelSub()

	if _, err := os.Stat(cfg.SeedDir); err == nil {
		n, err := contest.LoadSeedDir(reg, cfg.SeedDir)
		if err != nil {
			return fmt.Errorf("failed to load seeds: %w", err)
		}
		slog.Info("loaded contest seeds", "dir", cfg.SeedDir, "count", n)
		for _, c := range reg.All() {
			broker.Add(c.ID, fmt.Sprintf("contest %q is %s", c.Title, c.Status))
		}
	}

	if err := store.SaveContests(reg.All()); err != nil {
		slog.Warn("failed to save contest snapshot", "error", err)
	}

	nc, err := nats.Connect(cfg.NatsUrl)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NatsUrl, err)
	}

	manager := session.NewManager(reg, grading.NewKeyGrader(), broker, slog.Default())
	manager.WarnLimit = cfg.WarnLimit
	manager.TickEvery = cfg.TickEvery

	srv := &server{cfg: cfg, nc: nc, reg: reg, manager: manager}

	sub, err := nc.Subscribe(cfg.NatsCmdSubject, srv.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", cfg.NatsCmdSubject, err)
	}
	slog.Info("serving", "subject", cfg.NatsCmdSubject, "contests", reg.Size())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for ev := range events {
			slog.Info("notification",
				"id", ev.ID, "contest_id", ev.ContestID, "message", ev.Message)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		cancelSub()
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("failed to unsubscribe", "error", err)
		}
		return nc.Drain()
	})
	return g.Wait()
}

type server struct {
	cfg     *environment.EnvConfig
	nc      *nats.Conn
	reg     *contest.InMemRegistry
	manager *session.Manager

	// respondTo overrides how replies are sent. Nil means m.Respond.
	respondTo func(m *nats.Msg, b []byte) error
}

func (s *server) handle(m *nats.Msg) {
	var cmd api.Command
	if err := json.Unmarshal(m.Data, &cmd); err != nil {
		slog.Warn("failed to unmarshal command", "error", err)
		return
	}

	if cmd.Type == api.JoinCmd {
		s.handleJoin(cmd, m)
		return
	}
	s.handleSessionCmd(cmd, m)
}

func (s *server) handleJoin(cmd api.Command, m *nats.Msg) {
	id := cmd.SessionUuid
	if id == "" {
		id = uuid.NewString()
	}

	sinks := session.MultiSink{}
	if cmd.ReplyTo != "" {
		sinks = append(sinks, natssink.New(s.nc, id, cmd.ReplyTo))
	}
	sqsUrl := cmd.ResSqsUrl
	if sqsUrl == "" {
		sqsUrl = s.cfg.SqsResultsUrl
	}
	if sqsUrl != "" {
		sq, err := sqssink.New(id, sqsUrl, s.cfg.AwsRegion)
		if err != nil {
			slog.Error("failed to create SQS sink", "error", err)
		} else {
			sinks = append(sinks, sq)
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, slogSink{sessionUuid: id})
	}

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()

	_, err := s.manager.JoinWithID(ctx, id, cmd.StudentUuid, cmd.ContestId,
		media.ClientGrant{Granted: cmd.MediaGranted}, sinks)
	if err != nil {
		s.respondErr(m, err)
		return
	}
	s.respond(m, struct {
		SessionUuid string `json:"session_uuid"`
	}{SessionUuid: id})
}

func (s *server) handleSessionCmd(cmd api.Command, m *nats.Msg) {
	sess, ok := s.manager.Get(cmd.SessionUuid)
	if !ok {
		s.respondErr(m, fmt.Errorf("unknown session %s", cmd.SessionUuid))
		return
	}

	switch cmd.Type {
	case api.AnswerCmd:
		if err := sess.SetAnswer(cmd.QuestionId, cmd.Answer); err != nil {
			s.respondErr(m, err)
			return
		}
		s.respond(m, struct {
			Ok bool `json:"ok"`
		}{Ok: true})

	case api.SubmitQuestionCmd:
		res, err := sess.SubmitQuestion(cmd.QuestionId)
		if err != nil {
			s.respondErr(m, err)
			return
		}
		s.respond(m, struct {
			PointsAwarded int  `json:"points_awarded"`
			Passed        bool `json:"passed"`
		}{PointsAwarded: res.PointsAwarded, Passed: res.Passed})

	case api.NextQuestionCmd:
		idx, confirmFinal, err := sess.Next()
		if err != nil {
			s.respondErr(m, err)
			return
		}
		s.respond(m, struct {
			Index        int  `json:"index"`
			ConfirmFinal bool `json:"confirm_final"`
		}{Index: idx, ConfirmFinal: confirmFinal})

	case api.SubmitCmd:
		res, err := sess.Submit()
		if err != nil {
			s.respondErr(m, err)
			return
		}
		s.respond(m, s.apiResult(res))

	case api.VisibilityLossCmd:
		sess.ReportVisibilityLoss()
		s.respond(m, struct {
			Ok bool `json:"ok"`
		}{Ok: true})

	case api.CameraOffCmd:
		sess.ReportCameraOff()
		s.respond(m, struct {
			Ok bool `json:"ok"`
		}{Ok: true})

	default:
		s.respondErr(m, fmt.Errorf("unknown command type %q", cmd.Type))
	}
}

// apiResult maps a terminal session result to its wire form, with question
// results in contest order.
func (s *server) apiResult(res *session.Result) api.SessionResult {
	out := api.SessionResult{
		SessionUuid:  res.SessionID,
		ContestId:    res.ContestID,
		StudentUuid:  res.StudentID,
		Cause:        string(res.Cause),
		Answers:      res.Answers,
		TotalPoints:  res.TotalPoints,
		WarningCount: res.WarningCount,
		StartTime:    res.StartedAt.Format(time.RFC3339),
		FinishTime:   res.FinishedAt.Format(time.RFC3339),
	}

	c, err := s.reg.Lookup(res.ContestID)
	if err != nil {
		return out
	}
	for _, q := range c.Questions {
		answer, ok := res.Answers[q.ID]
		if !ok {
			continue
		}
		qr := api.QuestionResult{QuestionId: q.ID, Answer: answer}
		if g, graded := res.Grades[q.ID]; graded {
			points := g.PointsAwarded
			passed := g.Passed
			qr.PointsAwarded = &points
			qr.Passed = &passed
		}
		out.QuestionResults = append(out.QuestionResults, qr)
	}
	return out
}

func (s *server) respond(m *nats.Msg, v interface{}) {
	if m.Reply == "" {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		return
	}
	send := s.respondTo
	if send == nil {
		send = func(m *nats.Msg, b []byte) error { return m.Respond(b) }
	}
	if err := send(m, b); err != nil {
		slog.Warn("failed to respond", "error", err)
	}
}

func (s *server) respondErr(m *nats.Msg, err error) {
	slog.Warn("command rejected", "error", err)
	s.respond(m, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}

// slogSink is the fallback event sink for commands that carry no reply
// destination.
type slogSink struct {
	sessionUuid string
}

func (l slogSink) SessionStarted(contestID, studentID string, remainingSec int) {
	slog.Info("session started", "session_uuid", l.sessionUuid,
		"contest_id", contestID, "student_uuid", studentID, "remaining_sec", remainingSec)
}

func (l slogSink) WarningRaised(kind session.WarningKind, count int, forced bool) {
	slog.Warn("proctoring warning", "session_uuid", l.sessionUuid,
		"kind", kind, "count", count, "forced", forced)
}

func (l slogSink) QuestionGraded(questionID string, points int, passed bool, details string) {
	slog.Info("question graded", "session_uuid", l.sessionUuid,
		"question_id", questionID, "points", points, "passed", passed)
}

func (l slogSink) SessionFinished(cause session.TerminationCause, totalPoints, warningCount int) {
	slog.Info("session finished", "session_uuid", l.sessionUuid,
		"cause", cause, "total_points", totalPoints, "warnings", warningCount)
}

func (l slogSink) SessionError(msg string) {
	slog.Warn("session error", "session_uuid", l.sessionUuid, "message", msg)
}
