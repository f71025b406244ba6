package conversation

import "github.com/cheongeum/cheongeum-server/internal/feedback"

// Status of a turn.
const (
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
	StatusError    = "error"
)

// Error codes attached to turns with StatusError.
const (
	ErrCodeSimulator         = "AI_SIMULATOR_ERROR"
	ErrCodeEmptyAfterCleanup = "AI_TEXT_EMPTY_AFTER_SANITIZE"
)

// ErrorMessage is the reply text shown to the user when no usable reply
// could be produced.
const ErrorMessage = "AI 응답 생성 중 오류가 발생했습니다."

// TurnInput is one user step in a training call.
type TurnInput struct {
	SessionID    int64
	TurnNo       int
	UserText     string
	UserAudioURL string
	UserProfile  string
}

// RiskFlag marks a manipulation pattern present in a reply.
type RiskFlag struct {
	FlagType string `json:"flagType" msgpack:"flagType"`
	Keyword  string `json:"keyword" msgpack:"keyword"`
	Severity int    `json:"severity" msgpack:"severity"`
}

// TurnResult is the reply to one turn. It carries failures as
// Status/ErrorCode rather than as an error value.
type TurnResult struct {
	AIText        string     `json:"aiText" msgpack:"aiText"`
	AIAudioURL    *string    `json:"aiAudioUrl" msgpack:"aiAudioUrl"`
	AIAudioBase64 *string    `json:"aiAudioBase64" msgpack:"aiAudioBase64"`
	Status        string     `json:"status" msgpack:"status"`
	ErrorCode     string     `json:"errorCode,omitempty" msgpack:"errorCode,omitempty"`
	Flags         []RiskFlag `json:"flags" msgpack:"flags"`
}

// SessionScoreInput is a finished call ready for scoring.
type SessionScoreInput struct {
	SessionID int64
	Scenario  string
	ChatLog   []feedback.Message
}

// AnalysisData holds the numeric indicators of a SessionScore.
type AnalysisData struct {
	PanicScore     float64  `json:"panicScore" msgpack:"panicScore"`
	ComplianceRisk float64  `json:"complianceRisk" msgpack:"complianceRisk"`
	Sentiment      string   `json:"sentiment,omitempty" msgpack:"sentiment,omitempty"`
	RiskKeywords   []string `json:"riskKeywords,omitempty" msgpack:"riskKeywords,omitempty"`
	DominanceScore int      `json:"dominanceScore" msgpack:"dominanceScore"`
}

// SessionScore is the post-call evaluation returned to clients.
type SessionScore struct {
	SessionID         int64        `json:"sessionId" msgpack:"sessionId"`
	Score             int          `json:"score" msgpack:"score"`
	AnalysisData      AnalysisData `json:"analysisData" msgpack:"analysisData"`
	AISummary         string       `json:"aiSummary" msgpack:"aiSummary"`
	AICoaching        string       `json:"aiCoaching" msgpack:"aiCoaching"`
	GoodPoints        []string     `json:"goodPoints" msgpack:"goodPoints"`
	ImprovementPoints []string     `json:"improvementPoints" msgpack:"improvementPoints"`
}
