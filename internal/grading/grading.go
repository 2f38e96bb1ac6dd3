package grading

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/campuscode/sessiond/internal/contest"
)

// Result is the outcome of grading one submitted answer.
type Result struct {
	PointsAwarded int
	Passed        bool
	Details       string
}

// Grader grades a submitted answer for a question. Implementations must be
// deterministic and idempotent per submission attempt.
type Grader interface {
	Grade(q contest.Question, answer string) (Result, error)
}

// KeyGrader grades against the question's answer key. Mcq answers must match
// an option exactly (case-insensitive); coding answers are compared as
// whitespace-normalized token sequences against the key.
type KeyGrader struct{}

func NewKeyGrader() *KeyGrader { return &KeyGrader{} }

func (g *KeyGrader) Grade(q contest.Question, answer string) (Result, error) {
	if strings.TrimSpace(answer) == "" {
		return Result{}, fmt.Errorf("empty answer for question %s", q.ID)
	}

	var passed bool
	switch q.Type {
	case contest.QuestionMcq:
		passed = strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.AnswerKey))
	case contest.QuestionCoding:
		passed = normalize(answer) == normalize(q.AnswerKey)
	default:
		return Result{}, fmt.Errorf("unknown question type %q", q.Type)
	}

	res := Result{
		Passed:  passed,
		Details: fmt.Sprintf("answer sha256 %s", digest(answer)),
	}
	if passed {
		res.PointsAwarded = q.Points
	}
	return res, nil
}

// normalize collapses all whitespace runs so output-style answers compare by
// token sequence rather than exact formatting.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func digest(s string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(normalize(s))))
}
