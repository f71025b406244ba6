package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cheongeum/cheongeum-server/internal/conversation"
	"github.com/cheongeum/cheongeum-server/internal/feedback"
	"github.com/cheongeum/cheongeum-server/internal/schema"
)

// HandleTurn produces the caller's reply for one turn. Generation failures
// are reported inside the turn result with a 200 status.
func (h *Handler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req schema.TurnRequest
	if err := parseAndValidate(r, &req); err != nil {
		writeHTTPError(w, err)
		return
	}

	in := conversation.TurnInput{
		SessionID:   sessionID,
		TurnNo:      req.TurnNo,
		UserProfile: req.UserProfile,
	}
	if req.UserText != nil {
		in.UserText = *req.UserText
	}
	if req.UserAudioURL != nil {
		in.UserAudioURL = *req.UserAudioURL
	}

	WriteJSON(w, http.StatusOK, h.deps.Turns.ProcessTurn(r.Context(), in))
}

// HandleScore evaluates a finished call.
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req schema.ScoreRequest
	if err := parseAndValidate(r, &req); err != nil {
		writeHTTPError(w, err)
		return
	}

	chatLog := make([]feedback.Message, 0, len(req.ChatLog))
	for _, line := range req.ChatLog {
		chatLog = append(chatLog, feedback.Message{Role: line.Role, Content: line.Content})
	}

	WriteJSON(w, http.StatusOK, h.deps.Turns.ScoreSession(r.Context(), conversation.SessionScoreInput{
		SessionID: sessionID,
		Scenario:  req.ScenarioType,
		ChatLog:   chatLog,
	}))
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "Invalid session id")
		return 0, false
	}
	return id, true
}
