package session_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuscode/sessiond/internal/contest"
	"github.com/campuscode/sessiond/internal/grading"
	"github.com/campuscode/sessiond/internal/media"
	"github.com/campuscode/sessiond/internal/notify"
	"github.com/campuscode/sessiond/internal/session"
)

func fixtureContest(status contest.Status, durationSec int) *contest.Contest {
	return &contest.Contest{
		ID:          "spring-open",
		Title:       "Spring Open Round",
		Status:      status,
		DurationSec: durationSec,
		Questions: []contest.Question{
			{ID: "q1", Type: contest.QuestionMcq, Points: 5,
				Options: []string{"stack", "queue"}, AnswerKey: "queue"},
			{ID: "q2", Type: contest.QuestionCoding, Points: 20, AnswerKey: "42\n"},
			{ID: "q3", Type: contest.QuestionCoding, Points: 35, AnswerKey: "abracad"},
		},
	}
}

func newTestManager(c *contest.Contest) *session.Manager {
	reg := contest.NewInMemRegistry()
	reg.Put(c)
	m := session.NewManager(reg, grading.NewKeyGrader(), notify.NewBroker(), slog.Default())
	// keep the background clock out of the way; tests tick by hand
	m.TickEvery = time.Hour
	return m
}

// recordSink records the event stream of one session.
type recordSink struct {
	mu        sync.Mutex
	started   int
	warnings  []session.WarningKind
	graded    []string
	finishes  []session.TerminationCause
	errorMsgs []string
}

func (r *recordSink) SessionStarted(contestID, studentID string, remainingSec int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordSink) WarningRaised(kind session.WarningKind, count int, forced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, kind)
}

func (r *recordSink) QuestionGraded(questionID string, points int, passed bool, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graded = append(r.graded, questionID)
}

func (r *recordSink) SessionFinished(cause session.TerminationCause, totalPoints, warningCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishes = append(r.finishes, cause)
}

func (r *recordSink) SessionError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorMsgs = append(r.errorMsgs, msg)
}

func (r *recordSink) finishCauses() []session.TerminationCause {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]session.TerminationCause, len(r.finishes))
	copy(res, r.finishes)
	return res
}

func TestJoinActiveContest(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	acq := &media.FakeAcquirer{}

	s, err := m.Join(context.Background(), "student-1", "spring-open", acq, &recordSink{})
	require.NoError(t, err)

	assert.Equal(t, session.StateInProgress, s.State())
	assert.Equal(t, 5400, s.Remaining())
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, 1, acq.Acquired)
	assert.Equal(t, 1, m.Live())

	got, ok := m.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestJoinNonActiveContestRejected(t *testing.T) {
	for _, status := range []contest.Status{
		contest.StatusDraft, contest.StatusScheduled, contest.StatusCompleted,
	} {
		m := newTestManager(fixtureContest(status, 5400))
		acq := &media.FakeAcquirer{}
		sink := &recordSink{}

		_, err := m.Join(context.Background(), "student-1", "spring-open", acq, sink)
		require.Error(t, err)
		assert.ErrorIs(t, err, session.ErrContestNotActive)

		// no media permission prompt is ever issued
		assert.Equal(t, 0, acq.Acquired)
		assert.Equal(t, 0, m.Live())
		assert.Len(t, sink.errorMsgs, 1)
	}
}

func TestJoinUnknownContest(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))

	_, err := m.Join(context.Background(), "student-1", "no-such", &media.FakeAcquirer{}, &recordSink{})
	require.Error(t, err)
	assert.ErrorIs(t, err, contest.ErrNotFound)
}

func TestPermissionDeniedAllowsRetry(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))

	_, err := m.Join(context.Background(), "student-1", "spring-open",
		&media.FakeAcquirer{Deny: true}, &recordSink{})
	require.Error(t, err)
	assert.ErrorIs(t, err, media.ErrPermissionDenied)
	assert.Equal(t, 0, m.Live())

	// denial is recoverable: the same student may join again
	s, err := m.Join(context.Background(), "student-1", "spring-open",
		&media.FakeAcquirer{}, &recordSink{})
	require.NoError(t, err)
	assert.Equal(t, session.StateInProgress, s.State())
}

func TestTimeoutForcesTermination(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	acq := &media.FakeAcquirer{}

	s, err := m.Join(context.Background(), "student-1", "spring-open", acq, &recordSink{})
	require.NoError(t, err)

	require.NoError(t, s.SetAnswer("q1", "queue"))
	require.NoError(t, s.SetAnswer("q2", "wrong"))

	for i := 0; i < 5400; i++ {
		s.Tick()
	}

	assert.Equal(t, session.StateTerminated, s.State())
	assert.Equal(t, 0, s.Remaining())

	res := s.Result()
	require.NotNil(t, res)
	assert.Equal(t, session.CauseTimeout, res.Cause)
	assert.Equal(t, map[string]string{"q1": "queue", "q2": "wrong"}, res.Answers)
	assert.True(t, acq.LastStream.Released)

	// late ticks are no-ops
	s.Tick()
	assert.Equal(t, 0, s.Remaining())
	assert.Equal(t, 0, m.Live())
}

func TestRemainingNeverNegative(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 2))
	s, err := m.Join(context.Background(), "student-1", "spring-open",
		&media.FakeAcquirer{}, &recordSink{})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		s.Tick()
	}
	assert.Equal(t, 0, s.Remaining())
	assert.Equal(t, session.StateTerminated, s.State())
}

func TestThirdVisibilityWarningForcesTermination(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	sink := &recordSink{}

	s, err := m.Join(context.Background(), "student-1", "spring-open",
		&media.FakeAcquirer{}, sink)
	require.NoError(t, err)

	s.ReportVisibilityLoss()
	assert.Equal(t, 1, s.WarningCount())
	s.ReportVisibilityLoss()
	assert.Equal(t, 2, s.WarningCount())
	assert.Equal(t, session.StateInProgress, s.State())

	s.ReportVisibilityLoss()

	assert.Equal(t, session.StateTerminated, s.State())
	assert.Greater(t, s.Remaining(), 0)

	res := s.Result()
	require.NotNil(t, res)
	assert.Equal(t, session.CauseWarnings, res.Cause)
	assert.Equal(t, 3, res.WarningCount)

	// a late warning is a no-op; the count never moves again
	s.ReportVisibilityLoss()
	assert.Equal(t, 3, s.WarningCount())
	assert.Equal(t, []session.TerminationCause{session.CauseWarnings}, sink.finishCauses())
}

func TestCameraOffNeverForcesByItself(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	s, err := m.Join(context.Background(), "student-1", "spring-open",
		&media.FakeAcquirer{}, &recordSink{})
	require.NoError(t, err)

	s.ReportCameraOff()
	s.ReportCameraOff()
	s.ReportCameraOff()
	s.ReportCameraOff()

	assert.Equal(t, 4, s.WarningCount())
	assert.Equal(t, session.StateInProgress, s.State())

	// the shared counter is already over the limit, so the next
	// visibility loss forces
	s.ReportVisibilityLoss()
	assert.Equal(t, session.StateTerminated, s.State())
}

func TestSubmitQuestionIdempotent(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	sink := &recordSink{}
	s, err := m.Join(context.Background(), "student-1", "spring-open",
		&media.FakeAcquirer{}, sink)
	require.NoError(t, err)

	require.NoError(t, s.SetAnswer("q1", "abc"))
	first, err := s.SubmitQuestion("q1")
	require.NoError(t, err)
	assert.False(t, first.Passed)
	assert.Equal(t, []string{"q1"}, s.SubmittedQuestions())

	// resubmitting without edits is rejected and changes nothing
	again, err := s.SubmitQuestion("q1")
	assert.ErrorIs(t, err, session.ErrAlreadySubmitted)
	assert.Equal(t, first, again)
	assert.Equal(t, []string{"q1"}, s.SubmittedQuestions())
	assert.Len(t, sink.graded, 1)
}

func TestSubmitQuestionEmptyAnswer(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	s, err := m.Join(context.Background(), "student-1", "spring-open",
		&media.FakeAcquirer{}, &recordSink{})
	require.NoError(t, err)

	_, err = s.SubmitQuestion("q1")
	assert.ErrorIs(t, err, session.ErrEmptyAnswer)

	require.NoError(t, s.SetAnswer("q1", "   "))
	_, err = s.SubmitQuestion("q1")
	assert.ErrorIs(t, err, session.ErrEmptyAnswer)

	assert.Empty(t, s.SubmittedQuestions())
	assert.Equal(t, session.StateInProgress, s.State())
}

func TestUnknownQuestionRejected(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	s, err := m.Join(context.Background(), "student-1", "spring-open",
		&media.FakeAcquirer{}, &recordSink{})
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetAnswer("q99", "x"), session.ErrUnknownQuestion)
	_, err = s.SubmitQuestion("q99")
	assert.ErrorIs(t, err, session.ErrUnknownQuestion)
}

func TestNavigation(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	s, err := m.Join(context.Background(), "student-1", "spring-open",
		&media.FakeAcquirer{}, &recordSink{})
	require.NoError(t, err)

	require.NoError(t, s.SetAnswer("q1", "queue"))
	assert.Equal(t, 0, s.CurrentQuestion())

	idx, confirm, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1, s.CurrentQuestion())
	assert.False(t, confirm)

	idx, confirm, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.False(t, confirm)

	// at the last question navigation holds and asks for confirmation
	idx, confirm, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.True(t, confirm)

	// answers entered before navigating are kept
	res, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, "queue", res.Answers["q1"])
}

func TestExplicitSubmitScoring(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	acq := &media.FakeAcquirer{}
	s, err := m.Join(context.Background(), "student-1", "spring-open", acq, &recordSink{})
	require.NoError(t, err)

	require.NoError(t, s.SetAnswer("q1", "QUEUE"))
	g1, err := s.SubmitQuestion("q1")
	require.NoError(t, err)
	assert.True(t, g1.Passed)
	assert.Equal(t, 5, g1.PointsAwarded)

	require.NoError(t, s.SetAnswer("q2", " 42 "))
	g2, err := s.SubmitQuestion("q2")
	require.NoError(t, err)
	assert.True(t, g2.Passed)

	// q3 answered but never locked in: zero points, answer still carried
	require.NoError(t, s.SetAnswer("q3", "draft attempt"))

	res, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, session.CauseSubmitted, res.Cause)
	assert.Equal(t, 25, res.TotalPoints)
	assert.Equal(t, "draft attempt", res.Answers["q3"])
	assert.NotContains(t, res.Grades, "q3")
	assert.True(t, acq.LastStream.Released)

	// every answer key is a valid question id
	for id := range res.Answers {
		_, ok := fixtureContest(contest.StatusActive, 0).QuestionByID(id)
		assert.True(t, ok, "orphan answer key %s", id)
	}
}

func TestTerminalTransitionRace(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	sink := &recordSink{}
	s, err := m.Join(context.Background(), "student-1", "spring-open",
		&media.FakeAcquirer{}, sink)
	require.NoError(t, err)

	res, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, session.CauseSubmitted, res.Cause)

	// late timeout and warning triggers lose the race and change nothing
	s.Tick()
	s.ReportVisibilityLoss()
	_, err = s.Submit()
	assert.ErrorIs(t, err, session.ErrNotInProgress)

	assert.Equal(t, []session.TerminationCause{session.CauseSubmitted}, sink.finishCauses())
	assert.Equal(t, session.CauseSubmitted, s.Result().Cause)
}

func TestMediaReleaseFailureDoesNotBlockTermination(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	acq := &media.FakeAcquirer{ReleaseErr: errors.New("device busy")}
	s, err := m.Join(context.Background(), "student-1", "spring-open", acq, &recordSink{})
	require.NoError(t, err)

	res, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, session.StateTerminated, s.State())
	assert.Equal(t, session.CauseSubmitted, res.Cause)
	assert.True(t, acq.LastStream.Released)
}

func TestOperationsRejectedOutsideProgress(t *testing.T) {
	m := newTestManager(fixtureContest(contest.StatusActive, 5400))
	s, err := m.Join(context.Background(), "student-1", "spring-open",
		&media.FakeAcquirer{}, &recordSink{})
	require.NoError(t, err)

	_, err = s.Submit()
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetAnswer("q1", "x"), session.ErrNotInProgress)
	_, err = s.SubmitQuestion("q1")
	assert.ErrorIs(t, err, session.ErrNotInProgress)
	_, _, err = s.Next()
	assert.ErrorIs(t, err, session.ErrNotInProgress)

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel not closed after termination")
	}
}
