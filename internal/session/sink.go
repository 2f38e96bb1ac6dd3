package session

// EventSink receives the lifecycle events of one session as they happen.
// Implementations stream them to SQS, NATS or the terminal.
type EventSink interface {
	SessionStarted(contestID, studentID string, remainingSec int)

	WarningRaised(kind WarningKind, count int, forced bool)

	QuestionGraded(questionID string, points int, passed bool, details string)

	SessionFinished(cause TerminationCause, totalPoints int, warningCount int)

	SessionError(msg string)
}

// WarningKind labels a proctoring integrity event.
type WarningKind string

const (
	WarningTabSwitch WarningKind = "tab_switch"
	WarningCameraOff WarningKind = "camera_off"
)

// TerminationCause labels the single event that ended a session.
type TerminationCause string

const (
	CauseSubmitted TerminationCause = "submitted"
	CauseTimeout   TerminationCause = "timeout"
	CauseWarnings  TerminationCause = "warnings"
)

// MultiSink fans every event out to each wrapped sink in order.
type MultiSink []EventSink

func (m MultiSink) SessionStarted(contestID, studentID string, remainingSec int) {
	for _, s := range m {
		s.SessionStarted(contestID, studentID, remainingSec)
	}
}

func (m MultiSink) WarningRaised(kind WarningKind, count int, forced bool) {
	for _, s := range m {
		s.WarningRaised(kind, count, forced)
	}
}

func (m MultiSink) QuestionGraded(questionID string, points int, passed bool, details string) {
	for _, s := range m {
		s.QuestionGraded(questionID, points, passed, details)
	}
}

func (m MultiSink) SessionFinished(cause TerminationCause, totalPoints, warningCount int) {
	for _, s := range m {
		s.SessionFinished(cause, totalPoints, warningCount)
	}
}

func (m MultiSink) SessionError(msg string) {
	for _, s := range m {
		s.SessionError(msg)
	}
}
