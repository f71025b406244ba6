// Package simulator is a client for the external conversational simulator
// that plays the caller side of a training phone call.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cheongeum/cheongeum-server/internal/config"
)

const (
	actionInit = "init"
	actionChat = "chat"

	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// ErrUnavailable indicates the simulator is not reachable.
var ErrUnavailable = errors.New("simulator unavailable")

// ErrTimeout indicates the simulator took too long to respond.
var ErrTimeout = errors.New("simulator timeout")

// Error is a failure reported by the simulator, either as a non-200 status
// or as a response with ok=false.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("simulator error (status %d): %s", e.StatusCode, e.Message)
}

// ChatRequest is one user utterance for a session.
type ChatRequest struct {
	Action      string `json:"action" msgpack:"action"`
	SessionID   int64  `json:"sessionId" msgpack:"sessionId"`
	UserInput   string `json:"userInput,omitempty" msgpack:"userInput,omitempty"`
	UserProfile string `json:"userProfile,omitempty" msgpack:"userProfile,omitempty"`
}

// ChatResponse is the simulator's reply. AudioBase64 is empty when the
// simulator produced no audio.
type ChatResponse struct {
	OK           bool   `json:"ok" msgpack:"ok"`
	ResponseText string `json:"responseText" msgpack:"responseText"`
	Status       string `json:"status" msgpack:"status"`
	AudioBase64  string `json:"audioBase64" msgpack:"audioBase64"`
	Error        string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Client talks to the simulator over HTTP.
type Client struct {
	httpClient *http.Client
	endpoint   string
	encoding   string
}

// NewClient creates a simulator client.
func NewClient(cfg *config.SimulatorConfig) *Client {
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   strings.TrimRight(cfg.URL, "/"),
		encoding:   encoding,
	}
}

// Init prepares a simulator session for the given user profile.
func (c *Client) Init(ctx context.Context, sessionID int64, userProfile string) error {
	_, err := c.call(ctx, "/init", ChatRequest{Action: actionInit, SessionID: sessionID, UserProfile: userProfile})
	return err
}

// ChatTurn sends the user's input and returns the simulator's reply.
func (c *Client) ChatTurn(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.Action = actionChat
	return c.call(ctx, "/chat", req)
}

func (c *Client) call(ctx context.Context, path string, req ChatRequest) (*ChatResponse, error) {
	body, contentType, err := c.encode(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	var result ChatResponse
	if strings.Contains(resp.Header.Get("Content-Type"), "msgpack") {
		err = msgpack.Unmarshal(respBody, &result)
	} else {
		err = json.Unmarshal(respBody, &result)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.OK {
		msg := result.Error
		if msg == "" {
			msg = "simulator reported failure"
		}
		return nil, &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	return &result, nil
}

func (c *Client) encode(req ChatRequest) ([]byte, string, error) {
	if c.encoding == "msgpack" {
		body, err := msgpack.Marshal(req)
		return body, contentTypeMsgpack, err
	}
	body, err := json.Marshal(req)
	return body, contentTypeJSON, err
}

// IsError checks if an error is a simulator-reported Error.
func IsError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// isTimeout reports whether err came from a context deadline or from the
// http.Client's own Timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
