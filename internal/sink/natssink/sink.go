// Package natssink streams session events to a NATS inbox subject.
package natssink

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/campuscode/sessiond/api"
	"github.com/campuscode/sessiond/internal/session"
)

type natsEventSink struct {
	nc          *nats.Conn
	inbox       string
	sessionUuid string
}

// New creates a NATS sink that streams session events to the given inbox subject.
func New(nc *nats.Conn, sessionUuid string, inbox string) *natsEventSink {
	return &natsEventSink{
		nc:          nc,
		inbox:       inbox,
		sessionUuid: sessionUuid,
	}
}

// SessionStarted implements session.EventSink.
func (s *natsEventSink) SessionStarted(contestID, studentID string, remainingSec int) {
	s.send(api.NewSessionStarted(s.sessionUuid, contestID, studentID, remainingSec))
}

// WarningRaised implements session.EventSink.
func (s *natsEventSink) WarningRaised(kind session.WarningKind, count int, forced bool) {
	s.send(api.NewWarningRaised(s.sessionUuid, string(kind), count, forced))
}

// QuestionGraded implements session.EventSink.
func (s *natsEventSink) QuestionGraded(questionID string, points int, passed bool, details string) {
	var detailsPtr *string
	if details != "" {
		trimmed := details
		if len(trimmed) > api.MaxAnswerPreviewLen {
			trimmed = trimmed[:api.MaxAnswerPreviewLen]
		}
		detailsPtr = &trimmed
	}
	s.send(api.NewQuestionGraded(s.sessionUuid, questionID, points, passed, detailsPtr))
}

// SessionFinished implements session.EventSink.
func (s *natsEventSink) SessionFinished(cause session.TerminationCause, totalPoints, warningCount int) {
	s.send(api.NewSessionFinished(s.sessionUuid, string(cause), totalPoints, warningCount))
}

// SessionError implements session.EventSink.
func (s *natsEventSink) SessionError(msg string) {
	s.send(api.NewSessionError(s.sessionUuid, msg))
}

func (s *natsEventSink) send(msg interface{}) {
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal message", "error", err)
		return
	}

	if err := s.nc.Publish(s.inbox, b); err != nil {
		slog.Error("failed to publish message to NATS", "error", err)
	}
}
