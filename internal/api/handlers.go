package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cheongeum/cheongeum-server/internal/config"
	"github.com/cheongeum/cheongeum-server/internal/conversation"
	"github.com/cheongeum/cheongeum-server/internal/schema"
	"github.com/cheongeum/cheongeum-server/internal/storage"
	"github.com/cheongeum/cheongeum-server/internal/store"
	"github.com/cheongeum/cheongeum-server/internal/voiceclone"
)

// VoiceCloner clones a voice from a sample and speaks text with it.
type VoiceCloner interface {
	CloneAndSynthesize(ctx context.Context, req voiceclone.Request) (*voiceclone.Result, error)
}

// TurnProcessor produces replies and scores for training calls.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, in conversation.TurnInput) conversation.TurnResult
	ScoreSession(ctx context.Context, in conversation.SessionScoreInput) conversation.SessionScore
}

// VoiceUploader stores voice samples.
type VoiceUploader interface {
	UploadVoice(ctx context.Context, filename, contentType string, body []byte) (*storage.Upload, error)
}

// Store persists users and experience records.
type Store interface {
	CreateUser(ctx context.Context, u store.NewUser) (int64, error)
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	UserByID(ctx context.Context, id int64) (*store.User, error)
	CreateRecord(ctx context.Context, userID int64, originalURL string, note *string) (int64, error)
	RecordOwner(ctx context.Context, recordID int64) (int64, error)
	ListRecords(ctx context.Context, userID int64) ([]store.Record, error)
	CreateClone(ctx context.Context, recordID int64, clonedURL, model string) (int64, error)
}

// Tokens issues and verifies session tokens.
type Tokens interface {
	TokenVerifier
	Issue(userID int64) (string, time.Time, error)
}

// Deps are the collaborators the HTTP layer calls into. Store and Uploader
// may be nil when the deployment has no database or bucket.
type Deps struct {
	Cloner   VoiceCloner
	Turns    TurnProcessor
	Uploader VoiceUploader
	Store    Store
	Tokens   Tokens
	Metrics  http.Handler
}

// Handler serves the HTTP API.
type Handler struct {
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(cfg *config.Config, deps Deps, logger zerolog.Logger) *Handler {
	return &Handler{cfg: cfg, deps: deps, logger: logger}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeBody(w, http.StatusOK, schema.HealthResponse{Status: "ok"})
}

// requireStore writes a 503 and returns false when no database is configured.
func (h *Handler) requireStore(w http.ResponseWriter) bool {
	if h.deps.Store == nil {
		WriteError(w, http.StatusServiceUnavailable, CodeDatabaseNotReady, "Database not configured")
		return false
	}
	return true
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.logger.Error().
		Err(err).
		Str("request_id", r.Header.Get("X-Request-ID")).
		Str("path", r.URL.Path).
		Msg(msg)
	WriteError(w, http.StatusInternalServerError, CodeServerError, "Unexpected error")
}
