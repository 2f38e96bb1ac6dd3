package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/campuscode/sessiond/internal/contest"
	"github.com/campuscode/sessiond/internal/grading"
	"github.com/campuscode/sessiond/internal/media"
)

// State enumerates session lifecycle states.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingPermission State = "awaiting_permission"
	StateInProgress         State = "in_progress"
	StateSubmitting         State = "submitting"
	StateTerminated         State = "terminated"
)

// Rejection errors for session operations
var (
	ErrContestNotActive = fmt.Errorf("contest is not active")
	ErrNotInProgress    = fmt.Errorf("session is not in progress")
	ErrEmptyAnswer      = fmt.Errorf("answer is empty")
	ErrAlreadySubmitted = fmt.Errorf("question already submitted")
	ErrUnknownQuestion  = fmt.Errorf("unknown question id")
)

// Session is one student's live attempt at one contest. All mutation happens
// under a single mutex; the countdown clock, the proctoring monitors and
// explicit submission race for the terminal transition and only the first
// trigger while in progress wins.
type Session struct {
	mu sync.Mutex

	id        string
	studentID string
	contest   *contest.Contest

	state     State
	remaining int
	current   int

	warningCount int
	warnLimit    int

	answers   map[string]string
	submitted mapset.Set[string]
	validIDs  mapset.Set[string]
	grades    map[string]grading.Result

	stream media.Stream
	grader grading.Grader
	sink   EventSink
	log    *slog.Logger

	startedAt time.Time
	result    *Result
	onFinish  func(*Result)

	done chan struct{}
}

// Result is the flat summary handed to the caller when a session terminates.
// Answer keys are always valid question ids of the contest.
type Result struct {
	SessionID string
	ContestID string
	StudentID string

	Cause        TerminationCause
	Answers      map[string]string
	Grades       map[string]grading.Result
	TotalPoints  int
	WarningCount int

	StartedAt  time.Time
	FinishedAt time.Time
}

func newSession(id, studentID string, c *contest.Contest, grader grading.Grader,
	sink EventSink, logger *slog.Logger, warnLimit int, onFinish func(*Result)) *Session {

	validIDs := mapset.NewSet[string]()
	for _, q := range c.Questions {
		validIDs.Add(q.ID)
	}

	return &Session{
		id:        id,
		studentID: studentID,
		contest:   c,
		state:     StateIdle,
		warnLimit: warnLimit,
		answers:   make(map[string]string),
		submitted: mapset.NewSet[string](),
		validIDs:  validIDs,
		grades:    make(map[string]grading.Result),
		grader:    grader,
		sink:      sink,
		log:       logger,
		onFinish:  onFinish,
		done:      make(chan struct{}),
	}
}

// start takes the session from idle through media acquisition into progress.
// Joining is only possible when the contest is active; on permission denial
// the session stays idle and may be retried.
func (s *Session) start(ctx context.Context, acquirer media.Acquirer) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("session %s cannot join from state %s", s.id, s.state)
	}
	if s.contest.Status != contest.StatusActive {
		s.mu.Unlock()
		err := fmt.Errorf("%w: contest %s is %s", ErrContestNotActive, s.contest.ID, s.contest.Status)
		s.sink.SessionError(err.Error())
		return err
	}
	s.state = StateAwaitingPermission
	s.mu.Unlock()

	// the only suspension point; do not hold the lock across it
	stream, err := acquirer.Acquire(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateIdle
		err = fmt.Errorf("failed to acquire media stream: %w", err)
		s.sink.SessionError(err.Error())
		return err
	}

	s.stream = stream
	s.state = StateInProgress
	s.remaining = s.contest.DurationSec
	s.startedAt = time.Now()
	s.sink.SessionStarted(s.contest.ID, s.studentID, s.remaining)
	return nil
}

// StartClock runs the one-second countdown until the session terminates.
func (s *Session) StartClock(tickEvery time.Duration) {
	go func() {
		ticker := time.NewTicker(tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()
}

// Tick decrements remaining time by one second. Reaching zero forces
// termination. Ticks outside of progress are no-ops.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return
	}
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.terminateLocked(CauseTimeout)
	}
}

// ReportVisibilityLoss records a tab-switch warning. The warning that reaches
// the limit forces termination.
func (s *Session) ReportVisibilityLoss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return
	}
	s.warningCount++
	forced := s.warningCount >= s.warnLimit
	s.sink.WarningRaised(WarningTabSwitch, s.warningCount, forced)
	if forced {
		s.terminateLocked(CauseWarnings)
	}
}

// ReportCameraOff records a camera-off warning. It counts toward the total
// but never forces termination by itself.
func (s *Session) ReportCameraOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return
	}
	s.warningCount++
	s.sink.WarningRaised(WarningCameraOff, s.warningCount, false)
}

// SetAnswer stores the response text for a question without submitting it.
func (s *Session) SetAnswer(questionID, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if !s.validIDs.Contains(questionID) {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	s.answers[questionID] = answer
	return nil
}

// SubmitQuestion grades the stored answer for a question and locks it in.
// Submitting an empty answer is rejected; resubmitting a locked question is
// rejected without touching scores.
func (s *Session) SubmitQuestion(questionID string) (grading.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return grading.Result{}, ErrNotInProgress
	}
	q, ok := s.contest.QuestionByID(questionID)
	if !ok {
		return grading.Result{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if s.submitted.Contains(questionID) {
		return s.grades[questionID], ErrAlreadySubmitted
	}
	answer := s.answers[questionID]
	if strings.TrimSpace(answer) == "" {
		return grading.Result{}, fmt.Errorf("%w: question %s", ErrEmptyAnswer, questionID)
	}

	res, err := s.grader.Grade(q, answer)
	if err != nil {
		return grading.Result{}, fmt.Errorf("failed to grade question %s: %w", questionID, err)
	}

	s.submitted.Add(questionID)
	s.grades[questionID] = res
	s.sink.QuestionGraded(questionID, res.PointsAwarded, res.Passed, res.Details)
	return res, nil
}

// Next advances to the next question. At the last question it does not move
// and instead reports that final-submission confirmation is due. Answers of
// the question being left are kept.
func (s *Session) Next() (index int, confirmFinal bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return 0, false, ErrNotInProgress
	}
	if s.current < len(s.contest.Questions)-1 {
		s.current++
		return s.current, false, nil
	}
	return s.current, true, nil
}

// Submit is the explicit final submission.
func (s *Session) Submit() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return nil, ErrNotInProgress
	}
	return s.terminateLocked(CauseSubmitted), nil
}

// terminateLocked performs the single terminal transition. Callers must hold
// the lock and have verified the session is in progress. Media release
// failure is logged but never blocks termination.
func (s *Session) terminateLocked(cause TerminationCause) *Result {
	s.state = StateSubmitting

	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	grades := make(map[string]grading.Result, len(s.grades))
	total := 0
	for k, g := range s.grades {
		grades[k] = g
		total += g.PointsAwarded
	}

	if s.stream != nil {
		if err := s.stream.Release(); err != nil {
			s.log.Error("failed to release media stream",
				"session_uuid", s.id, "error", err)
		}
		s.stream = nil
	}

	res := &Result{
		SessionID:    s.id,
		ContestID:    s.contest.ID,
		StudentID:    s.studentID,
		Cause:        cause,
		Answers:      answers,
		Grades:       grades,
		TotalPoints:  total,
		WarningCount: s.warningCount,
		StartedAt:    s.startedAt,
		FinishedAt:   time.Now(),
	}
	s.result = res
	s.state = StateTerminated
	close(s.done)

	s.sink.SessionFinished(cause, total, s.warningCount)
	if s.onFinish != nil {
		s.onFinish(res)
	}
	return res
}

// ID returns the session uuid.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the remaining seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// WarningCount returns the number of proctoring warnings recorded so far.
func (s *Session) WarningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warningCount
}

// CurrentQuestion returns the index of the question in focus.
func (s *Session) CurrentQuestion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SubmittedQuestions returns the ids of locked-in questions.
func (s *Session) SubmittedQuestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted.ToSlice()
}

// Result returns the terminal result, or nil while the session is live.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Done is closed when the session terminates.
func (s *Session) Done() <-chan struct{} { return s.done }
