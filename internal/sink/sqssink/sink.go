// Package sqssink streams session events to an SQS results queue.
package sqssink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/campuscode/sessiond/api"
	"github.com/campuscode/sessiond/internal/session"
)

type sqsEventSink struct {
	sqsClient   *sqs.Client
	queueUrl    string
	sessionUuid string
}

// New creates an SQS sink that publishes the session's event stream to the
// given results queue url.
func New(sessionUuid string, queueUrl string, region string) (*sqsEventSink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &sqsEventSink{
		sqsClient:   sqs.NewFromConfig(cfg),
		queueUrl:    queueUrl,
		sessionUuid: sessionUuid,
	}, nil
}

// SessionStarted implements session.EventSink.
func (s *sqsEventSink) SessionStarted(contestID, studentID string, remainingSec int) {
	s.send(api.NewSessionStarted(s.sessionUuid, contestID, studentID, remainingSec))
}

// WarningRaised implements session.EventSink.
func (s *sqsEventSink) WarningRaised(kind session.WarningKind, count int, forced bool) {
	s.send(api.NewWarningRaised(s.sessionUuid, string(kind), count, forced))
}

// QuestionGraded implements session.EventSink.
func (s *sqsEventSink) QuestionGraded(questionID string, points int, passed bool, details string) {
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
func (s *sqsEventSink) SessionFinished(cause session.TerminationCause, totalPoints, warningCount int) {
	s.send(api.NewSessionFinished(s.sessionUuid, string(cause), totalPoints, warningCount))
}

// SessionError implements session.EventSink.
func (s *sqsEventSink) SessionError(msg string) {
	s.send(api.NewSessionError(s.sessionUuid, msg))
}

func (s *sqsEventSink) send(msg interface{}) {
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal message", "error", err)
		return
	}

	_, err = s.sqsClient.SendMessage(context.TODO(), &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueUrl),
		MessageBody: aws.String(string(b)),
	})
	if err != nil {
		slog.Error("failed to send message to SQS", "error", err)
	}
}
