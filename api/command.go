package api

// CmdType is a command type for inbound session commands
type CmdType string

// Command type constants
const (
	JoinCmd           CmdType = "join"
	AnswerCmd         CmdType = "answer"
	SubmitQuestionCmd CmdType = "submit_question"
	NextQuestionCmd   CmdType = "next_question"
	SubmitCmd         CmdType = "submit"
	VisibilityLossCmd CmdType = "visibility_loss"
	CameraOffCmd      CmdType = "camera_off"
)

// Command is the envelope for every inbound session command.
// Join carries StudentUuid, ContestId and ReplyTo; every later command
// references the session via SessionUuid.
type Command struct {
	Type CmdType `json:"type"`

	SessionUuid string `json:"session_uuid,omitempty"`

	StudentUuid string `json:"student_uuid,omitempty"`
	ContestId   string `json:"contest_id,omitempty"`

	// MediaGranted reports whether the client environment granted
	// camera+microphone access for this attempt.
	MediaGranted bool `json:"media_granted,omitempty"`

	QuestionId string `json:"question_id,omitempty"`
	Answer     string `json:"answer,omitempty"`

	// ReplyTo is the NATS inbox session events are streamed to.
	ReplyTo string `json:"reply_to,omitempty"`

	// ResSqsUrl, when set, mirrors the event stream to an SQS queue.
	ResSqsUrl string `json:"res_sqs_url,omitempty"`
}
