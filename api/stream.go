package api

import "time"

// MsgType is a message type for streaming session events
type MsgType string

// Streaming message type constants
const (
	SessionStartedMsg  MsgType = "session_start"
	WarningRaisedMsg   MsgType = "warning_raise"
	QuestionGradedMsg  MsgType = "question_grade"
	SessionFinishedMsg MsgType = "session_finish"
	SessionErrorMsg    MsgType = "session_error"
)

// MaxAnswerPreviewLen caps the answer excerpt carried in graded events
const MaxAnswerPreviewLen = 120

// Header is the common header for all streaming session event messages
type Header struct {
	SessionUuid string  `json:"session_uuid"`
	MsgType     MsgType `json:"msg_type"`
}

// SessionStarted message sent when a session enters progress
type SessionStarted struct {
	Header
	ContestId    string `json:"contest_id"`
	StudentUuid  string `json:"student_uuid"`
	RemainingSec int    `json:"remaining_sec"`
	StartedTime  string `json:"started_time"`
}

// WarningRaised message sent when a proctoring warning is recorded
type WarningRaised struct {
	Header
	Kind         string `json:"kind"`
	WarningCount int    `json:"warning_count"`
	Forced       bool   `json:"forced"`
}

// QuestionGraded message sent after a per-question submission is graded
type QuestionGraded struct {
	Header
	QuestionId    string  `json:"question_id"`
	PointsAwarded int     `json:"points_awarded"`
	Passed        bool    `json:"passed"`
	Details       *string `json:"details,omitempty"`
}

// SessionFinished message sent exactly once when a session terminates
type SessionFinished struct {
	Header
	Cause        string `json:"cause"`
	TotalPoints  int    `json:"total_points"`
	WarningCount int    `json:"warning_count"`
	FinishedTime string `json:"finished_time"`
}

// SessionError message sent when a command is rejected
type SessionError struct {
	Header
	ErrorMessage string `json:"error_message"`
}

func NewSessionStarted(sessionUuid, contestId, studentUuid string, remainingSec int) SessionStarted {
	return SessionStarted{
		Header:       Header{SessionUuid: sessionUuid, MsgType: SessionStartedMsg},
		ContestId:    contestId,
		StudentUuid:  studentUuid,
		RemainingSec: remainingSec,
		StartedTime:  time.Now().Format(time.RFC3339),
	}
}

func NewWarningRaised(sessionUuid, kind string, warningCount int, forced bool) WarningRaised {
	return WarningRaised{
		Header:       Header{SessionUuid: sessionUuid, MsgType: WarningRaisedMsg},
		Kind:         kind,
		WarningCount: warningCount,
		Forced:       forced,
	}
}

func NewQuestionGraded(sessionUuid, questionId string, points int, passed bool, details *string) QuestionGraded {
	return QuestionGraded{
		Header:        Header{SessionUuid: sessionUuid, MsgType: QuestionGradedMsg},
		QuestionId:    questionId,
		PointsAwarded: points,
		Passed:        passed,
		Details:       details,
	}
}

func NewSessionFinished(sessionUuid, cause string, totalPoints, warningCount int) SessionFinished {
	return SessionFinished{
		Header:       Header{SessionUuid: sessionUuid, MsgType: SessionFinishedMsg},
		Cause:        cause,
		TotalPoints:  totalPoints,
		WarningCount: warningCount,
		FinishedTime: time.Now().Format(time.RFC3339),
	}
}

func NewSessionError(sessionUuid, errMsg string) SessionError {
	return SessionError{
		Header:       Header{SessionUuid: sessionUuid, MsgType: SessionErrorMsg},
		ErrorMessage: errMsg,
	}
}
