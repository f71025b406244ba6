package schema

import "strings"

// TurnRequest is one user step in a training call.
type TurnRequest struct {
	TurnNo       int     `json:"turnNo" msgpack:"turnNo"`
	UserText     *string `json:"userText,omitempty" msgpack:"userText,omitempty"`
	UserAudioURL *string `json:"userAudioUrl,omitempty" msgpack:"userAudioUrl,omitempty"`
	UserProfile  string  `json:"userProfile,omitempty" msgpack:"userProfile,omitempty"`
}

// Validate checks the request.
func (r *TurnRequest) Validate() error {
	if r.TurnNo < 1 {
		return invalid("turnNo", "must be at least 1")
	}
	if r.UserAudioURL != nil && *r.UserAudioURL != "" && !validURL(*r.UserAudioURL) {
		return invalid("userAudioUrl", "must be an absolute http(s) URL")
	}
	return nil
}

// ChatLine is one transcript entry in a ScoreRequest.
type ChatLine struct {
	Role    string `json:"role" msgpack:"role"`
	Content string `json:"content" msgpack:"content"`
}

// ScoreRequest asks for the evaluation of a finished call.
type ScoreRequest struct {
	ChatLog      []ChatLine `json:"chatLog" msgpack:"chatLog"`
	ScenarioType string     `json:"scenarioType,omitempty" msgpack:"scenarioType,omitempty"`
}

// Validate normalizes and checks the request.
func (r *ScoreRequest) Validate() error {
	r.ScenarioType = strings.ToLower(strings.TrimSpace(r.ScenarioType))
	switch r.ScenarioType {
	case "":
		r.ScenarioType = "prosecutor"
	case "prosecutor", "loan":
	default:
		return invalid("scenarioType", "must be prosecutor or loan")
	}
	if r.ChatLog == nil {
		r.ChatLog = []ChatLine{}
	}
	return nil
}
