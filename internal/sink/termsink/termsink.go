// Package termsink prints session events to the terminal for local runs.
package termsink

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/campuscode/sessiond/internal/session"
)

type TerminalSink struct {
	StartedAt time.Time
}

func New() *TerminalSink { return &TerminalSink{StartedAt: time.Now()} }

var (
	headline = color.New(color.FgCyan, color.Bold)
	warnline = color.New(color.FgYellow)
	failline = color.New(color.FgRed, color.Bold)
	passline = color.New(color.FgGreen)
)

func (t *TerminalSink) SessionStarted(contestID, studentID string, remainingSec int) {
	headline.Printf("== Session started ==\n")
	fmt.Printf("contest=%s student=%s remaining=%ds\n", contestID, studentID, remainingSec)
}

func (t *TerminalSink) WarningRaised(kind session.WarningKind, count int, forced bool) {
	warnline.Printf("!! Warning %d (%s)", count, kind)
	if forced {
		failline.Printf(" -> forcing submission")
	}
	fmt.Println()
}

func (t *TerminalSink) QuestionGraded(questionID string, points int, passed bool, details string) {
	if passed {
		passline.Printf("<- Question %s passed, %d points\n", questionID, points)
	} else {
		fmt.Printf("<- Question %s failed, %d points\n", questionID, points)
	}
	if details != "" {
		fmt.Printf("   %s\n", details)
	}
}

func (t *TerminalSink) SessionFinished(cause session.TerminationCause, totalPoints, warningCount int) {
	dur := time.Since(t.StartedAt).Round(time.Millisecond)
	headline.Printf("== Session finished in %s ==\n", dur)
	fmt.Printf("cause=%s total=%d warnings=%d\n", cause, totalPoints, warningCount)
}

func (t *TerminalSink) SessionError(msg string) {
	failline.Printf("== Session error: %s ==\n", msg)
}
