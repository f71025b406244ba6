package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/cheongeum/cheongeum-server/internal/schema"
	"github.com/cheongeum/cheongeum-server/internal/storage"
	"github.com/cheongeum/cheongeum-server/internal/store"
	"github.com/cheongeum/cheongeum-server/internal/voiceclone"
)

const (
	voiceFileField      = "voiceFile"
	defaultVoiceName    = "voice.webm"
	defaultVoiceMIME    = "audio/webm"
	synthesizedMIMEType = "audio/mpeg"
)

// HandleUploadVoice stores a voice sample in object storage.
func (h *Handler) HandleUploadVoice(w http.ResponseWriter, r *http.Request) {
	file, err := parseUpload(w, r, voiceFileField, h.cfg.Server.MaxUploadBytes)
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	if h.deps.Uploader == nil {
		WriteError(w, http.StatusServiceUnavailable, CodeStorageNotReady, storage.ErrNotConfigured.Error())
		return
	}

	upload, err := h.deps.Uploader.UploadVoice(r.Context(), file.Filename, file.ContentType, file.Data)
	if err != nil {
		h.logger.Warn().Err(err).Str("filename", file.Filename).Msg("voice upload failed")
		WriteError(w, http.StatusServiceUnavailable, CodeStorageNotReady, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, upload)
}

// HandleCreateRecord stores an original sample URL for the current user.
func (h *Handler) HandleCreateRecord(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req schema.CreateRecordRequest
	if err := parseAndValidate(r, &req); err != nil {
		writeHTTPError(w, err)
		return
	}
	if !h.requireStore(w) {
		return
	}

	recordID, err := h.deps.Store.CreateRecord(r.Context(), userID, req.OriginalURL, req.Note)
	if err != nil {
		h.serverError(w, r, err, "create record failed")
		return
	}
	WriteJSON(w, http.StatusCreated, schema.RecordIDResponse{RecordID: recordID})
}

// HandleListRecords lists the current user's records.
func (h *Handler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	if !h.requireStore(w) {
		return
	}

	records, err := h.deps.Store.ListRecords(r.Context(), userID)
	if err != nil {
		h.serverError(w, r, err, "list records failed")
		return
	}
	WriteJSON(w, http.StatusOK, schema.ListResponse[store.Record]{Items: records})
}

// HandleCreateClone stores a cloned voice for one of the current user's records.
func (h *Handler) HandleCreateClone(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req schema.CreateCloneRequest
	if err := parseAndValidate(r, &req); err != nil {
		writeHTTPError(w, err)
		return
	}
	if !h.requireStore(w) {
		return
	}

	owner, err := h.deps.Store.RecordOwner(r.Context(), req.RecordID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.serverError(w, r, err, "lookup record failed")
		return
	}
	if err != nil || owner != userID {
		WriteError(w, http.StatusForbidden, CodeForbidden, "Not your record")
		return
	}

	cloneID, err := h.deps.Store.CreateClone(r.Context(), req.RecordID, req.ClonedURL, req.Model)
	if err != nil {
		h.serverError(w, r, err, "create clone failed")
		return
	}
	WriteJSON(w, http.StatusCreated, schema.CloneIDResponse{CloneID: cloneID})
}

// HandleVoiceClone speaks phishingText in the voice of the uploaded sample.
func (h *Handler) HandleVoiceClone(w http.ResponseWriter, r *http.Request) {
	file, err := parseUpload(w, r, voiceFileField, h.cfg.Server.MaxUploadBytes)
	if err != nil {
		writeHTTPError(w, err)
		return
	}

	text := r.FormValue("phishingText")
	if strings.TrimSpace(text) == "" {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "phishingText is required")
		return
	}

	req := voiceclone.Request{
		Audio:    file.Data,
		Filename: file.Filename,
		MIMEType: file.ContentType,
		Text:     text,
	}
	if req.Filename == "" {
		req.Filename = defaultVoiceName
	}
	if req.MIMEType == "" {
		req.MIMEType = defaultVoiceMIME
	}

	result, err := h.deps.Cloner.CloneAndSynthesize(r.Context(), req)
	if err != nil {
		event := h.logger.Warn()
		if voiceclone.IsConfigError(err) {
			event = h.logger.Error()
		}
		event.Err(err).Str("request_id", r.Header.Get("X-Request-ID")).Msg("voice clone failed")
		WriteError(w, http.StatusServiceUnavailable, CodeVoiceCloneFailed, "Voice clone failed")
		return
	}

	WriteJSON(w, http.StatusOK, schema.VoiceCloneResponse{
		AudioBase64: base64.StdEncoding.EncodeToString(result.Audio),
		MimeType:    synthesizedMIMEType,
	})
}
