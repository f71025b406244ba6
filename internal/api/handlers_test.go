package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cheongeum/cheongeum-server/internal/auth"
	"github.com/cheongeum/cheongeum-server/internal/config"
	"github.com/cheongeum/cheongeum-server/internal/conversation"
	"github.com/cheongeum/cheongeum-server/internal/storage"
	"github.com/cheongeum/cheongeum-server/internal/store"
	"github.com/cheongeum/cheongeum-server/internal/voiceclone"
)

type mockCloner struct {
	cloneFn func(ctx context.Context, req voiceclone.Request) (*voiceclone.Result, error)
}

func (m *mockCloner) CloneAndSynthesize(ctx context.Context, req voiceclone.Request) (*voiceclone.Result, error) {
	if m.cloneFn != nil {
		return m.cloneFn(ctx, req)
	}
	return nil, &voiceclone.ConfigError{Setting: "elevenlabs.api_key"}
}

type mockTurns struct {
	processFn func(ctx context.Context, in conversation.TurnInput) conversation.TurnResult
	scoreFn   func(ctx context.Context, in conversation.SessionScoreInput) conversation.SessionScore
}

func (m *mockTurns) ProcessTurn(ctx context.Context, in conversation.TurnInput) conversation.TurnResult {
	return m.processFn(ctx, in)
}

func (m *mockTurns) ScoreSession(ctx context.Context, in conversation.SessionScoreInput) conversation.SessionScore {
	return m.scoreFn(ctx, in)
}

type mockUploader struct {
	uploadFn func(ctx context.Context, filename, contentType string, body []byte) (*storage.Upload, error)
}

func (m *mockUploader) UploadVoice(ctx context.Context, filename, contentType string, body []byte) (*storage.Upload, error) {
	return m.uploadFn(ctx, filename, contentType, body)
}

type mockStore struct {
	createUserFn   func(ctx context.Context, u store.NewUser) (int64, error)
	userByEmailFn  func(ctx context.Context, email string) (*store.User, error)
	userByIDFn     func(ctx context.Context, id int64) (*store.User, error)
	createRecordFn func(ctx context.Context, userID int64, originalURL string, note *string) (int64, error)
	recordOwnerFn  func(ctx context.Context, recordID int64) (int64, error)
	listRecordsFn  func(ctx context.Context, userID int64) ([]store.Record, error)
	createCloneFn  func(ctx context.Context, recordID int64, clonedURL, model string) (int64, error)
}

func (m *mockStore) CreateUser(ctx context.Context, u store.NewUser) (int64, error) {
	return m.createUserFn(ctx, u)
}

func (m *mockStore) UserByEmail(ctx context.Context, email string) (*store.User, error) {
	return m.userByEmailFn(ctx, email)
}

func (m *mockStore) UserByID(ctx context.Context, id int64) (*store.User, error) {
	return m.userByIDFn(ctx, id)
}

func (m *mockStore) CreateRecord(ctx context.Context, userID int64, originalURL string, note *string) (int64, error) {
	return m.createRecordFn(ctx, userID, originalURL, note)
}

func (m *mockStore) RecordOwner(ctx context.Context, recordID int64) (int64, error) {
	return m.recordOwnerFn(ctx, recordID)
}

func (m *mockStore) ListRecords(ctx context.Context, userID int64) ([]store.Record, error) {
	return m.listRecordsFn(ctx, userID)
}

func (m *mockStore) CreateClone(ctx context.Context, recordID int64, clonedURL, model string) (int64, error) {
	return m.createCloneFn(ctx, recordID, clonedURL, model)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testEnv struct {
	router http.Handler
	tokens *auth.TokenManager
	cfg    *config.Config
}

func newTestEnv(t *testing.T, deps Deps) *testEnv {
	t.Helper()
	cfg, err := config.LoadWithDefaults(nil)
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	deps.Tokens = tokens

	return &testEnv{
		router: NewRouter(cfg, deps, zerolog.New(io.Discard)),
		tokens: tokens,
		cfg:    cfg,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	if userID > 0 {
		token, _, err := e.tokens.Issue(userID)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: e.cfg.Auth.CookieName, Value: token})
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileField, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	env := decodeEnvelope(t, rr)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, code, env.Error.Code)
}

func TestHealthGet(t *testing.T) {
	env := newTestEnv(t, Deps{})
	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/v1/health", nil), 0)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "{\"status\":\"ok\"}\n", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestHealthPost(t *testing.T) {
	env := newTestEnv(t, Deps{})
	rr := env.do(t, httptest.NewRequest(http.MethodPost, "/v1/health", nil), 0)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "{\"status\":\"ok\"}\n", rr.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t, Deps{Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("cheongeum_up 1\n"))
	})})
	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), 0)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "cheongeum_up")
}

func TestRequestIDPreserved(t *testing.T) {
	env := newTestEnv(t, Deps{})
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	rr := env.do(t, req, 0)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, Deps{})
	rr := env.do(t, httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil), 0)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t, Deps{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/uploads/voice"},
		{http.MethodGet, "/api/experience/records"},
		{http.MethodPost, "/api/experience/voice-clone"},
		{http.MethodPost, "/api/sessions/1/turns"},
	} {
		rr := env.do(t, httptest.NewRequest(tc.method, tc.path, nil), 0)
		assertErrorCode(t, rr, http.StatusUnauthorized, CodeUnauthorized)
	}
}

func TestSessionFromBearerHeader(t *testing.T) {
	env := newTestEnv(t, Deps{Store: &mockStore{userByIDFn: func(_ context.Context, id int64) (*store.User, error) {
		return &store.User{ID: id, Email: "kim@example.com", Name: "Kim", Provider: "local"}, nil
	}}})
	token, _, err := env.tokens.Issue(9)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := env.do(t, req, 0)

	require.Equal(t, http.StatusOK, rr.Code)
	var user map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &user))
	assert.Equal(t, float64(9), user["id"])
	assert.NotContains(t, user, "PasswordHash")
}

func TestInvalidSessionToken(t *testing.T) {
	env := newTestEnv(t, Deps{})
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "cheongeum.sid", Value: "forged"})

	assertErrorCode(t, env.do(t, req, 0), http.StatusUnauthorized, CodeUnauthorized)
}

func TestRegister(t *testing.T) {
	var created store.NewUser
	env := newTestEnv(t, Deps{Store: &mockStore{createUserFn: func(_ context.Context, u store.NewUser) (int64, error) {
		created = u
		return 5, nil
	}}})

	rr := env.do(t, jsonRequest(http.MethodPost, "/api/auth/register",
		`{"email":"kim@example.com","password":"secret1","name":"Kim"}`), 0)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	env2 := decodeEnvelope(t, rr)
	assert.True(t, env2.Success)
	assert.JSONEq(t, `{"userId":5}`, string(env2.Data))
	assert.True(t, auth.VerifyPassword("secret1", created.PasswordHash))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "cheongeum.sid", cookies[0].Name)
	userID, err := env.tokens.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, int64(5), userID)
}

func TestRegister_InvalidBody(t *testing.T) {
	env := newTestEnv(t, Deps{Store: &mockStore{}})

	rr := env.do(t, jsonRequest(http.MethodPost, "/api/auth/register",
		`{"email":"kim@example.com","password":"123","name":"Kim"}`), 0)

	assertErrorCode(t, rr, http.StatusBadRequest, CodeBadRequest)
	assert.Equal(t, "password", decodeEnvelope(t, rr).Error.Details["field"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t, Deps{Store: &mockStore{createUserFn: func(context.Context, store.NewUser) (int64, error) {
		return 0, store.ErrDuplicate
	}}})

	rr := env.do(t, jsonRequest(http.MethodPost, "/api/auth/register",
		`{"email":"kim@example.com","password":"secret1","name":"Kim"}`), 0)

	assertErrorCode(t, rr, http.StatusConflict, CodeEmailExists)
}

func TestRegister_NoDatabase(t *testing.T) {
	env := newTestEnv(t, Deps{})

	rr := env.do(t, jsonRequest(http.MethodPost, "/api/auth/register",
		`{"email":"kim@example.com","password":"secret1","name":"Kim"}`), 0)

	assertErrorCode(t, rr, http.StatusServiceUnavailable, CodeDatabaseNotReady)
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	st := &mockStore{userByEmailFn: func(_ context.Context, email string) (*store.User, error) {
		if email != "kim@example.com" {
			return nil, store.ErrNotFound
		}
		return &store.User{ID: 3, Email: email, PasswordHash: &hash}, nil
	}}
	env := newTestEnv(t, Deps{Store: st})

	rr := env.do(t, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"kim@example.com","password":"secret1"}`), 0)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"userId":3}`, string(decodeEnvelope(t, rr).Data))
	require.Len(t, rr.Result().Cookies(), 1)

	rr = env.do(t, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"kim@example.com","password":"wrong"}`), 0)
	assertErrorCode(t, rr, http.StatusUnauthorized, CodeInvalidCredentials)

	rr = env.do(t, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"lee@example.com","password":"secret1"}`), 0)
	assertErrorCode(t, rr, http.StatusUnauthorized, CodeInvalidCredentials)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, Deps{})

	rr := env.do(t, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), 0)

	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestUploadVoice(t *testing.T) {
	env := newTestEnv(t, Deps{Uploader: &mockUploader{uploadFn: func(_ context.Context, filename, contentType string, body []byte) (*storage.Upload, error) {
		assert.Equal(t, "sample.webm", filename)
		assert.Equal(t, "audio/webm", contentType)
		return &storage.Upload{URL: "https://cdn.example.com/k", Key: "k", Bucket: "b", Size: len(body), ContentType: contentType}, nil
	}}})

	req := multipartRequest(t, "/api/uploads/voice", nil, "voiceFile", "sample.webm", "audio/webm", []byte("webm-bytes"))
	rr := env.do(t, req, 1)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"url":"https://cdn.example.com/k","key":"k","bucket":"b","size":10,"mimeType":"audio/webm"}`,
		string(decodeEnvelope(t, rr).Data))
}

func TestUploadVoice_NoFile(t *testing.T) {
	env := newTestEnv(t, Deps{Uploader: &mockUploader{}})

	req := multipartRequest(t, "/api/uploads/voice", map[string]string{"note": "x"}, "", "", "", nil)
	assertErrorCode(t, env.do(t, req, 1), http.StatusBadRequest, CodeNoFile)
}

func TestUploadVoice_TooLarge(t *testing.T) {
	env := newTestEnv(t, Deps{Uploader: &mockUploader{}})
	env.cfg.Server.MaxUploadBytes = 8

	req := multipartRequest(t, "/api/uploads/voice", nil, "voiceFile", "a.mp3", "audio/mpeg", bytes.Repeat([]byte{1}, 64))
	assertErrorCode(t, env.do(t, req, 1), http.StatusRequestEntityTooLarge, CodeFileTooLarge)
}

func TestUploadVoice_StorageFailure(t *testing.T) {
	env := newTestEnv(t, Deps{Uploader: &mockUploader{uploadFn: func(context.Context, string, string, []byte) (*storage.Upload, error) {
		return nil, storage.ErrNotConfigured
	}}})

	req := multipartRequest(t, "/api/uploads/voice", nil, "voiceFile", "a.mp3", "audio/mpeg", []byte{1})
	assertErrorCode(t, env.do(t, req, 1), http.StatusServiceUnavailable, CodeStorageNotReady)
}

func TestCreateRecord(t *testing.T) {
	env := newTestEnv(t, Deps{Store: &mockStore{createRecordFn: func(_ context.Context, userID int64, originalURL string, note *string) (int64, error) {
		assert.Equal(t, int64(7), userID)
		assert.Equal(t, "https://cdn.example.com/o.mp3", originalURL)
		require.NotNil(t, note)
		assert.Equal(t, "첫 녹음", *note)
		return 21, nil
	}}})

	rr := env.do(t, jsonRequest(http.MethodPost, "/api/experience/records",
		`{"originalUrl":"https://cdn.example.com/o.mp3","note":"첫 녹음"}`), 7)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"recordId":21}`, string(decodeEnvelope(t, rr).Data))
}

func TestCreateRecord_InvalidURL(t *testing.T) {
	env := newTestEnv(t, Deps{Store: &mockStore{}})

	rr := env.do(t, jsonRequest(http.MethodPost, "/api/experience/records", `{"originalUrl":"nope"}`), 7)
	assertErrorCode(t, rr, http.StatusBadRequest, CodeBadRequest)
}

func TestListRecords(t *testing.T) {
	created := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, Deps{Store: &mockStore{listRecordsFn: func(_ context.Context, userID int64) ([]store.Record, error) {
		return []store.Record{{ID: 1, OriginalURL: "https://cdn.example.com/o.mp3", CreatedAt: created}}, nil
	}}})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/experience/records", nil), 7)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"items":[{"id":1,"original_url":"https://cdn.example.com/o.mp3","note":null,"created_at":"2025-05-01T12:00:00Z"}]}`,
		string(decodeEnvelope(t, rr).Data))
}

func TestCreateClone(t *testing.T) {
	st := &mockStore{
		recordOwnerFn: func(_ context.Context, recordID int64) (int64, error) {
			if recordID == 1 {
				return 7, nil
			}
			if recordID == 2 {
				return 8, nil
			}
			return 0, store.ErrNotFound
		},
		createCloneFn: func(context.Context, int64, string, string) (int64, error) { return 30, nil },
	}
	env := newTestEnv(t, Deps{Store: st})

	body := func(recordID string) string {
		return `{"recordId":` + recordID + `,"clonedUrl":"https://cdn.example.com/c.mp3","model":"eleven_multilingual_v2"}`
	}

	rr := env.do(t, jsonRequest(http.MethodPost, "/api/experience/clones", body("1")), 7)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"cloneId":30}`, string(decodeEnvelope(t, rr).Data))

	rr = env.do(t, jsonRequest(http.MethodPost, "/api/experience/clones", body("2")), 7)
	assertErrorCode(t, rr, http.StatusForbidden, CodeForbidden)

	rr = env.do(t, jsonRequest(http.MethodPost, "/api/experience/clones", body("3")), 7)
	assertErrorCode(t, rr, http.StatusForbidden, CodeForbidden)
}

func TestVoiceClone(t *testing.T) {
	audio := []byte("ID3-mpeg-bytes")
	env := newTestEnv(t, Deps{Cloner: &mockCloner{cloneFn: func(_ context.Context, req voiceclone.Request) (*voiceclone.Result, error) {
		assert.Equal(t, []byte("sample"), req.Audio)
		assert.Equal(t, "sample.webm", req.Filename)
		assert.Equal(t, "audio/webm", req.MIMEType)
		assert.Equal(t, "엄마 나야, 급하게 돈이 필요해", req.Text)
		return &voiceclone.Result{Audio: audio, VoiceID: "v1"}, nil
	}}})

	req := multipartRequest(t, "/api/experience/voice-clone", map[string]string{"phishingText": "엄마 나야, 급하게 돈이 필요해"},
		"voiceFile", "sample.webm", "audio/webm", []byte("sample"))
	rr := env.do(t, req, 1)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var data struct {
		AudioBase64 string `json:"audioBase64"`
		MimeType    string `json:"mimeType"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &data))
	assert.Equal(t, base64.StdEncoding.EncodeToString(audio), data.AudioBase64)
	assert.Equal(t, "audio/mpeg", data.MimeType)
}

func TestVoiceClone_Defaults(t *testing.T) {
	env := newTestEnv(t, Deps{Cloner: &mockCloner{cloneFn: func(_ context.Context, req voiceclone.Request) (*voiceclone.Result, error) {
		assert.Equal(t, "blob", req.Filename)
		assert.Equal(t, "audio/webm", req.MIMEType)
		return &voiceclone.Result{Audio: []byte{1}}, nil
	}}})

	req := multipartRequest(t, "/api/experience/voice-clone", map[string]string{"phishingText": "hi"},
		"voiceFile", "blob", "", []byte("sample"))
	rr := env.do(t, req, 1)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestVoiceClone_Validation(t *testing.T) {
	env := newTestEnv(t, Deps{Cloner: &mockCloner{}})

	req := multipartRequest(t, "/api/experience/voice-clone", map[string]string{"phishingText": "hi"}, "", "", "", nil)
	assertErrorCode(t, env.do(t, req, 1), http.StatusBadRequest, CodeNoFile)

	req = multipartRequest(t, "/api/experience/voice-clone", nil, "voiceFile", "a.webm", "audio/webm", []byte{1})
	assertErrorCode(t, env.do(t, req, 1), http.StatusBadRequest, CodeBadRequest)
}

func TestVoiceClone_Failures(t *testing.T) {
	for name, err := range map[string]error{
		"config":    &voiceclone.ConfigError{Setting: "elevenlabs.api_key"},
		"creation":  &voiceclone.ResourceCreationError{Err: errors.New("rejected")},
		"synthesis": &voiceclone.SynthesisError{VoiceID: "v1", Err: errors.New("quota")},
	} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, Deps{Cloner: &mockCloner{cloneFn: func(context.Context, voiceclone.Request) (*voiceclone.Result, error) {
				return nil, err
			}}})

			req := multipartRequest(t, "/api/experience/voice-clone", map[string]string{"phishingText": "hi"},
				"voiceFile", "a.webm", "audio/webm", []byte{1})
			assertErrorCode(t, env.do(t, req, 1), http.StatusServiceUnavailable, CodeVoiceCloneFailed)
		})
	}
}

func TestTurn_JSON(t *testing.T) {
	var got conversation.TurnInput
	turns := &mockTurns{processFn: func(_ context.Context, in conversation.TurnInput) conversation.TurnResult {
		got = in
		return conversation.TurnResult{
			AIText:    conversation.ErrorMessage,
			Status:    conversation.StatusError,
			ErrorCode: conversation.ErrCodeSimulator,
			Flags:     []conversation.RiskFlag{},
		}
	}}
	env := newTestEnv(t, Deps{Turns: turns})

	rr := env.do(t, jsonRequest(http.MethodPost, "/api/sessions/12/turns",
		`{"turnNo":2,"userText":"여보세요?","userProfile":"{\"age\":70}"}`), 1)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, conversation.TurnInput{SessionID: 12, TurnNo: 2, UserText: "여보세요?", UserProfile: `{"age":70}`}, got)

	var result map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &result))
	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "AI_SIMULATOR_ERROR", result["errorCode"])
	assert.Nil(t, result["aiAudioBase64"])
}

func TestTurn_MessagePack(t *testing.T) {
	var got conversation.TurnInput
	turns := &mockTurns{processFn: func(_ context.Context, in conversation.TurnInput) conversation.TurnResult {
		got = in
		return conversation.TurnResult{Status: conversation.StatusOngoing}
	}}
	env := newTestEnv(t, Deps{Turns: turns})

	encoded, err := msgpack.Marshal(map[string]interface{}{"turnNo": 1, "userAudioUrl": "https://cdn.example.com/u.webm"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/3/turns", bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/msgpack")

	rr := env.do(t, req, 1)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int64(3), got.SessionID)
	assert.Equal(t, "https://cdn.example.com/u.webm", got.UserAudioURL)
	assert.Empty(t, got.UserText)
}

func TestTurn_BadRequests(t *testing.T) {
	env := newTestEnv(t, Deps{Turns: &mockTurns{}})

	rr := env.do(t, jsonRequest(http.MethodPost, "/api/sessions/abc/turns", `{"turnNo":1}`), 1)
	assertErrorCode(t, rr, http.StatusBadRequest, CodeBadRequest)

	rr = env.do(t, jsonRequest(http.MethodPost, "/api/sessions/1/turns", `{"turnNo":0}`), 1)
	assertErrorCode(t, rr, http.StatusBadRequest, CodeBadRequest)

	rr = env.do(t, jsonRequest(http.MethodPost, "/api/sessions/1/turns", `{`), 1)
	assertErrorCode(t, rr, http.StatusBadRequest, CodeBadRequest)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/1/turns", bytes.NewBufferString("hello"))
	req.Header.Set("Content-Type", "text/plain")
	assertErrorCode(t, env.do(t, req, 1), http.StatusUnsupportedMediaType, CodeUnsupportedMedia)
}

func TestScore(t *testing.T) {
	var got conversation.SessionScoreInput
	turns := &mockTurns{scoreFn: func(_ context.Context, in conversation.SessionScoreInput) conversation.SessionScore {
		got = in
		return conversation.SessionScore{SessionID: in.SessionID, Score: 65, GoodPoints: []string{}, ImprovementPoints: []string{}}
	}}
	env := newTestEnv(t, Deps{Turns: turns})

	rr := env.do(t, jsonRequest(http.MethodPost, "/api/sessions/4/score",
		`{"chatLog":[{"role":"user","content":"설치했어요"}],"scenarioType":"loan"}`), 1)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int64(4), got.SessionID)
	assert.Equal(t, "loan", got.Scenario)
	require.Len(t, got.ChatLog, 1)
	assert.Equal(t, "설치했어요", got.ChatLog[0].Content)

	var score map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &score))
	assert.Equal(t, float64(65), score["score"])
}

func TestParseRequestBody_UnsupportedContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString("hello"))
	req.Header.Set("Content-Type", "text/plain")

	var v map[string]any
	err := ParseRequestBody(req, &v)
	require.Error(t, err)

	httpErr, ok := IsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnsupportedMediaType, httpErr.Status)
}
