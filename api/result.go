package api

// Simple, non-streaming summary of a finished session

// QuestionResult represents the graded outcome of a single question
type QuestionResult struct {
	QuestionId string `json:"question_id"`

	Answer string `json:"answer"`

	// Grading outcome (only present if the question was submitted)
	PointsAwarded *int  `json:"points_awarded,omitempty"`
	Passed        *bool `json:"passed,omitempty"`
}

// SessionResult is the complete summary handed over at the
// final-submit boundary
type SessionResult struct {
	SessionUuid string `json:"session_uuid"`
	ContestId   string `json:"contest_id"`
	StudentUuid string `json:"student_uuid"`

	// Cause of termination: submitted, timeout or warnings
	Cause string `json:"cause"`

	// Flat answer map; keys are always valid question ids
	Answers map[string]string `json:"answers"`

	QuestionResults []QuestionResult `json:"question_results"`

	TotalPoints  int `json:"total_points"`
	WarningCount int `json:"warning_count"`

	StartTime  string `json:"start_time"`
	FinishTime string `json:"finish_time"`
}
