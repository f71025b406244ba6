package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cheongeum/cheongeum-server/internal/config"
	"github.com/cheongeum/cheongeum-server/internal/conversation"
	"github.com/cheongeum/cheongeum-server/internal/database"
	"github.com/cheongeum/cheongeum-server/internal/schema"
)

var (
	serverURL string
	token     string
	output    string
)

var rootCmd = &cobra.Command{
	Use:   "cheongeum-ctl",
	Short: "cheongeum server management tool",
	Long: `cheongeum-ctl talks to a running cheongeum server.

Commands:
  health       Check server health
  login        Obtain a session token
  voice-clone  Clone a voice and synthesize a phishing line
  turn         Send one turn of a training call
  score        Score a finished training call
  db-check     Verify database connectivity`,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE:  runHealth,
}

var loginCmd = &cobra.Command{
	Use:   "login [email] [password]",
	Short: "Log in and print the session token",
	Args:  cobra.ExactArgs(2),
	RunE:  runLogin,
}

var voiceCloneCmd = &cobra.Command{
	Use:   "voice-clone [audio-file] [text]",
	Short: "Clone a voice from a sample and speak text with it",
	Args:  cobra.ExactArgs(2),
	RunE:  runVoiceClone,
}

var turnCmd = &cobra.Command{
	Use:   "turn [session-id] [turn-no] [text]",
	Short: "Send one user turn of a training call",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runTurn,
}

var scoreCmd = &cobra.Command{
	Use:   "score [session-id] [chat-log.json]",
	Short: "Score a finished training call",
	Args:  cobra.ExactArgs(2),
	RunE:  runScore,
}

var dbCheckCmd = &cobra.Command{
	Use:   "db-check",
	Short: "Connect to DATABASE_URL and report the server time",
	RunE:  runDBCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "cheongeum server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("CHEONGEUM_TOKEN"), "Session token for authentication")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "Output format: text, json")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(voiceCloneCmd)
	rootCmd.AddCommand(turnCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(dbCheckCmd)

	voiceCloneCmd.Flags().StringP("out", "f", "voice-clone.mp3", "Where to write the synthesized audio")
	turnCmd.Flags().String("profile", "", "User profile passed to the simulator")
	scoreCmd.Flags().String("scenario", "prosecutor", "Scenario type: prosecutor, loan")
}

func runHealth(cmd *cobra.Command, args []string) error {
	resp, _, err := makeRequest(http.MethodGet, serverURL+"/v1/health", "", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(resp))
		return nil
	}

	var health schema.HealthResponse
	_ = json.Unmarshal(resp, &health)
	fmt.Printf("Status: %s\n", health.Status)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	body, _ := json.Marshal(schema.LoginRequest{Email: args[0], Password: args[1]})

	resp, cookies, err := makeRequest(http.MethodPost, serverURL+"/api/auth/login", "application/json", body)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(resp))
	}

	for _, c := range cookies {
		if c.HttpOnly && c.Value != "" {
			if output != "json" {
				fmt.Println(c.Value)
			}
			return nil
		}
	}
	return fmt.Errorf("login succeeded but no session cookie was returned")
}

func runVoiceClone(cmd *cobra.Command, args []string) error {
	audioFile := args[0]
	text := args[1]
	outPath, _ := cmd.Flags().GetString("out")

	audioData, err := os.ReadFile(audioFile)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("voiceFile", filepath.Base(audioFile))
	if err != nil {
		return err
	}
	if _, err := part.Write(audioData); err != nil {
		return err
	}
	if err := mw.WriteField("phishingText", text); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, _, err := makeRequest(http.MethodPost, serverURL+"/api/experience/voice-clone", mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(resp))
		return nil
	}

	var env struct {
		Data schema.VoiceCloneResponse `json:"data"`
	}
	if err := json.Unmarshal(resp, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(env.Data.AudioBase64)
	if err != nil {
		return fmt.Errorf("failed to decode audio: %w", err)
	}
	if err := os.WriteFile(outPath, audio, 0o644); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}

	fmt.Printf("✓ Wrote %d bytes of %s to %s\n", len(audio), env.Data.MimeType, outPath)
	return nil
}

func runTurn(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	turnNo, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid turn number %q", args[1])
	}
	profile, _ := cmd.Flags().GetString("profile")

	req := schema.TurnRequest{TurnNo: turnNo, UserProfile: profile}
	if len(args) == 3 {
		req.UserText = &args[2]
	}
	body, _ := json.Marshal(req)

	resp, _, err := makeRequest(http.MethodPost, serverURL+"/api/sessions/"+sessionID+"/turns", "application/json", body)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(resp))
		return nil
	}

	var env struct {
		Data conversation.TurnResult `json:"data"`
	}
	_ = json.Unmarshal(resp, &env)

	fmt.Printf("Status: %s\n", env.Data.Status)
	if env.Data.ErrorCode != "" {
		fmt.Printf("Error: %s\n", env.Data.ErrorCode)
	}
	fmt.Printf("AI: %s\n", env.Data.AIText)
	for _, f := range env.Data.Flags {
		fmt.Printf("  ! %s %q (severity %d)\n", f.FlagType, f.Keyword, f.Severity)
	}
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	scenario, _ := cmd.Flags().GetString("scenario")

	raw, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read chat log: %w", err)
	}
	var chatLog []schema.ChatLine
	if err := json.Unmarshal(raw, &chatLog); err != nil {
		return fmt.Errorf("failed to parse chat log: %w", err)
	}

	body, _ := json.Marshal(schema.ScoreRequest{ChatLog: chatLog, ScenarioType: scenario})

	resp, _, err := makeRequest(http.MethodPost, serverURL+"/api/sessions/"+sessionID+"/score", "application/json", body)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(resp))
		return nil
	}

	var env struct {
		Data conversation.SessionScore `json:"data"`
	}
	_ = json.Unmarshal(resp, &env)

	fmt.Printf("Score: %d\n", env.Data.Score)
	fmt.Printf("Summary: %s\n", env.Data.AISummary)
	fmt.Printf("Coaching: %s\n", env.Data.AICoaching)
	return nil
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("✗ database check failed: %w", err)
	}
	defer pool.Close()

	var now time.Time
	if err := pool.QueryRow(ctx, "SELECT NOW()").Scan(&now); err != nil {
		return fmt.Errorf("✗ database query failed: %w", err)
	}

	fmt.Printf("✓ Database reachable (server time %s)\n", now.Format(time.RFC3339))
	return nil
}

func makeRequest(method, url, contentType string, body []byte) ([]byte, []*http.Cookie, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("server error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, resp.Cookies(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
