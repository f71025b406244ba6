// Package conversation produces the caller's side of a training call one
// turn at a time, either from the live simulator or from a fixed script.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cheongeum/cheongeum-server/internal/config"
	"github.com/cheongeum/cheongeum-server/internal/feedback"
	"github.com/cheongeum/cheongeum-server/internal/metrics"
	"github.com/cheongeum/cheongeum-server/internal/sanitize"
	"github.com/cheongeum/cheongeum-server/internal/simulator"
)

const (
	pathLive     = "live"
	pathFallback = "fallback"
)

const (
	fallbackText     = "Seoul Prosecutors Office. There is an issue with your account. Please confirm your identity."
	fallbackAudioURL = "https://example.com/ai.mp3"
)

// Simulator generates the caller's reply for a live turn.
type Simulator interface {
	Init(ctx context.Context, sessionID int64, userProfile string) error
	ChatTurn(ctx context.Context, req simulator.ChatRequest) (*simulator.ChatResponse, error)
}

var _ Simulator = (*simulator.Client)(nil)

// Analyzer scores a finished session.
type Analyzer interface {
	Analyze(ctx context.Context, transcript []feedback.Message, scenario string) feedback.Report
}

var _ Analyzer = (*feedback.Analyzer)(nil)

// Orchestrator decides per turn between the live and the scripted path.
type Orchestrator struct {
	cfg       *config.SimulatorConfig
	simulator Simulator
	analyzer  Analyzer
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewOrchestrator creates an Orchestrator. cfg is read on every turn, so
// toggling cfg.Enabled takes effect without a restart.
func NewOrchestrator(cfg *config.SimulatorConfig, sim Simulator, analyzer Analyzer, m *metrics.Metrics, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		simulator: sim,
		analyzer:  analyzer,
		metrics:   m,
		logger:    logger,
	}
}

// ProcessTurn returns the reply for one turn. Failures are reported
// through the result's Status and ErrorCode.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in TurnInput) TurnResult {
	var result TurnResult
	path := pathFallback
	if o.liveEnabled() && in.UserText != "" {
		path = pathLive
		result = o.liveTurn(ctx, in)
	} else {
		result = o.fallbackTurn()
	}

	code := result.ErrorCode
	if code == "" {
		code = "ok"
	}
	o.metrics.ObserveTurn(path, code)
	return result
}

func (o *Orchestrator) liveEnabled() bool {
	return o.cfg != nil && o.cfg.Enabled && o.simulator != nil
}

func (o *Orchestrator) liveTurn(ctx context.Context, in TurnInput) TurnResult {
	logger := o.logger.With().Int64("session_id", in.SessionID).Int("turn_no", in.TurnNo).Logger()

	resp, err := o.chat(ctx, in)
	if err != nil {
		logger.Error().Err(err).Str("error_code", ErrCodeSimulator).Msg("simulator call failed")
		return errorResult(ErrCodeSimulator)
	}

	text := sanitize.Text(resp.ResponseText)
	if text == "" {
		logger.Warn().Str("error_code", ErrCodeEmptyAfterCleanup).Msg("simulator reply empty after sanitizing")
		return errorResult(ErrCodeEmptyAfterCleanup)
	}

	status := resp.Status
	if status == "" {
		status = StatusOngoing
	}

	result := TurnResult{
		AIText: text,
		Status: status,
		Flags:  []RiskFlag{},
	}
	if resp.AudioBase64 != "" {
		audio := resp.AudioBase64
		result.AIAudioBase64 = &audio
	}
	return result
}

// chat calls the simulator, turning a panic or a nil reply into an error.
// The first turn of a session with a profile initializes the simulator
// session before chatting.
func (o *Orchestrator) chat(ctx context.Context, in TurnInput) (resp *simulator.ChatResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("simulator panic: %v", r)
		}
	}()

	if in.TurnNo == 1 && in.UserProfile != "" {
		if err := o.simulator.Init(ctx, in.SessionID, in.UserProfile); err != nil {
			return nil, fmt.Errorf("init session: %w", err)
		}
	}

	resp, err = o.simulator.ChatTurn(ctx, simulator.ChatRequest{
		SessionID:   in.SessionID,
		UserInput:   in.UserText,
		UserProfile: in.UserProfile,
	})
	if err == nil && resp == nil {
		err = errors.New("simulator returned no response")
	}
	return resp, err
}

func (o *Orchestrator) fallbackTurn() TurnResult {
	text := sanitize.Text(fallbackText)
	if text == "" {
		text = ErrorMessage
	}
	audioURL := fallbackAudioURL
	return TurnResult{
		AIText:     text,
		AIAudioURL: &audioURL,
		Status:     StatusOngoing,
		Flags:      fallbackFlags(),
	}
}

// fallbackFlags describes the scripted reply. The set is fixed; it is not
// derived from the text.
func fallbackFlags() []RiskFlag {
	return []RiskFlag{
		{FlagType: "impersonation", Keyword: "Seoul Prosecutors", Severity: 3},
		{FlagType: "personal_info_request", Keyword: "confirm your identity", Severity: 4},
	}
}

func errorResult(code string) TurnResult {
	return TurnResult{
		AIText:    ErrorMessage,
		Status:    StatusError,
		ErrorCode: code,
		Flags:     []RiskFlag{},
	}
}

// ScoreSession evaluates a finished call.
func (o *Orchestrator) ScoreSession(ctx context.Context, in SessionScoreInput) SessionScore {
	var report feedback.Report
	if o.analyzer != nil {
		report = o.analyzer.Analyze(ctx, in.ChatLog, in.Scenario)
	} else {
		report = feedback.StaticReport()
	}

	o.logger.Info().
		Int64("session_id", in.SessionID).
		Int("score", report.Score).
		Msg("session scored")

	return SessionScore{
		SessionID: in.SessionID,
		Score:     report.Score,
		AnalysisData: AnalysisData{
			PanicScore:     report.Detailed.PanicScore,
			ComplianceRisk: report.Detailed.ComplianceRisk,
			Sentiment:      report.Detailed.Sentiment,
			RiskKeywords:   report.Detailed.RiskKeywords,
			DominanceScore: report.Detailed.DominanceScore,
		},
		AISummary:         report.Summary,
		AICoaching:        report.Advice,
		GoodPoints:        nonNil(report.GoodPoints),
		ImprovementPoints: nonNil(report.BadPoints),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
