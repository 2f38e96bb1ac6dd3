package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/campuscode/sessiond/internal/contest"
	"github.com/campuscode/sessiond/internal/grading"
	"github.com/campuscode/sessiond/internal/media"
	"github.com/campuscode/sessiond/internal/notify"
)

// Defaults for the proctoring warning limit and clock tick interval.
const (
	DefaultWarnLimit = 3
	DefaultTickEvery = time.Second
)

// Manager owns every live session of the process. It re-validates contest
// status through the registry at join time and announces finished sessions
// through the notification broker.
type Manager struct {
	registry contest.Registry
	grader   grading.Grader
	broker   *notify.Broker
	log      *slog.Logger

	sessions *xsync.MapOf[string, *Session]

	// WarnLimit and TickEvery may be overridden before the first Join.
	WarnLimit int
	TickEvery time.Duration
}

func NewManager(reg contest.Registry, grader grading.Grader,
	broker *notify.Broker, logger *slog.Logger) *Manager {

	return &Manager{
		registry:  reg,
		grader:    grader,
		broker:    broker,
		log:       logger,
		sessions:  xsync.NewMapOf[string, *Session](),
		WarnLimit: DefaultWarnLimit,
		TickEvery: DefaultTickEvery,
	}
}

// Join creates a session for one student's attempt at a contest and starts
// its countdown clock. The contest must currently be active and the media
// permission grant must succeed; otherwise no session is registered.
func (m *Manager) Join(ctx context.Context, studentID, contestID string,
	acquirer media.Acquirer, sink EventSink) (*Session, error) {
	return m.JoinWithID(ctx, uuid.NewString(), studentID, contestID, acquirer, sink)
}

// JoinWithID is Join with a caller-chosen session uuid, for clients that
// allocate the uuid before opening their event stream.
func (m *Manager) JoinWithID(ctx context.Context, id, studentID, contestID string,
	acquirer media.Acquirer, sink EventSink) (*Session, error) {

	c, err := m.registry.Lookup(contestID)
	if err != nil {
		err = fmt.Errorf("failed to look up contest %s: %w", contestID, err)
		sink.SessionError(err.Error())
		return nil, err
	}

	s := newSession(id, studentID, c, m.grader, sink, m.log, m.WarnLimit, func(res *Result) {
		m.sessions.Delete(id)
		m.broker.Add(c.ID, fmt.Sprintf("contest %q: attempt by %s finished (%s, %d points)",
			c.Title, res.StudentID, res.Cause, res.TotalPoints))
	})

	if err := s.start(ctx, acquirer); err != nil {
		return nil, err
	}

	m.sessions.Store(id, s)
	s.StartClock(m.TickEvery)

	m.log.Info("session joined",
		"session_uuid", id, "contest_id", contestID, "student_uuid", studentID)
	return s, nil
}

// Get returns a live session by uuid.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	return m.sessions.Load(sessionID)
}

// Live returns the number of live sessions.
func (m *Manager) Live() int {
	return m.sessions.Size()
}
