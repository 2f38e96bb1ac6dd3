package contest

// Status enumerates contest lifecycle states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// QuestionType enumerates the kinds of contest questions.
type QuestionType string

const (
	QuestionCoding QuestionType = "coding"
	QuestionMcq    QuestionType = "mcq"
)

// Question is one contest item. Immutable once the contest is created.
type Question struct {
	ID         string       `json:"id"`
	Type       QuestionType `json:"type"`
	Difficulty string       `json:"difficulty"`
	Points     int          `json:"points"`
	Statement  string       `json:"statement"`

	// Options is only populated for mcq questions.
	Options []string `json:"options,omitempty"`

	// AnswerKey is the expected answer used for grading. Never sent to
	// participants.
	AnswerKey string `json:"-"`
}

// Contest is a time-boxed ordered set of graded questions.
type Contest struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      Status     `json:"status"`
	DurationSec int        `json:"duration_sec"`
	Questions   []Question `json:"questions"`
}

// QuestionByID returns the question with the given id, or false.
func (c *Contest) QuestionByID(id string) (Question, bool) {
	for _, q := range c.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
