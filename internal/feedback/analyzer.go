// Package feedback scores a finished training call and produces coaching
// for the user.
//
// Scoring is delegated to a language model when one is configured. The
// model's verdict is then clamped by a keyword scan of the transcript so
// that a user who already installed an app or sent money cannot score well
// just because they hung up at the end.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/cheongeum/cheongeum-server/internal/sanitize"
)

const defaultModel = "gpt-4o-mini"

// Scenario types understood by the analyzer. Anything else is treated as
// ScenarioProsecutor.
const (
	ScenarioProsecutor = "prosecutor"
	ScenarioLoan       = "loan"
)

const (
	compromisedScoreCeiling = 30
	compromisedScore        = 10
	compromisedDominance    = 1
	compromisedSentiment    = "취약함 (사후약방문)"
	compromisedSummary      = "마지막에 전화를 끊으셨지만, 이미 위험한 행동(앱 설치/제출)을 하셨기에 사실상 모든 정보가 탈취되었습니다."
	minAdviceRunes          = 20
)

// fatalTriggers are phrases that mean the user already acted on the scam.
var fatalTriggers = []string{"눌렀어요", "깔았어요", "설치", "제출", "비밀번호", "입금", "보냈어요", "작성"}

const loanFactMatrix = `[대출 사기 팩트체크]
1. 기존 대출 상환 요구: 은행은 절대 개인 계좌 입금을 요구하지 않음.
2. 위약금/전산 락: 전형적인 사기 수법.
3. 앱 설치: 문자로 온 URL 설치는 100% 해킹.`

const prosecutorFactMatrix = `[검찰 사칭 팩트체크]
1. 이중구속 파훼: '구속 vs 약식' 강요는 사기.
2. 자산 검수: 존재하지 않는 절차.
3. 공무집행방해: 전화 끊는다고 체포 안 됨.`

// Message is one line of a call transcript.
type Message struct {
	Role    string `json:"role" msgpack:"role"`
	Content string `json:"content" msgpack:"content"`
}

// DetailedAnalysis carries the finer-grained parts of a Report.
type DetailedAnalysis struct {
	Sentiment      string   `json:"sentiment"`
	RiskKeywords   []string `json:"risk_keywords"`
	DominanceScore int      `json:"dominance_score"`
	PanicScore     float64  `json:"panic_score,omitempty"`
	ComplianceRisk float64  `json:"compliance_risk,omitempty"`
}

// Report is the outcome of analyzing one session.
type Report struct {
	Score      int              `json:"score"`
	Summary    string           `json:"summary"`
	GoodPoints []string         `json:"good_points"`
	BadPoints  []string         `json:"bad_points"`
	Advice     string           `json:"advice"`
	Detailed   DetailedAnalysis `json:"detailed_analysis"`
}

// Completer returns a JSON object produced by a language model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Analyzer produces session reports.
type Analyzer struct {
	completer Completer
	logger    zerolog.Logger
}

// NewAnalyzer creates an Analyzer. A nil completer makes Analyze return
// StaticReport.
func NewAnalyzer(completer Completer, logger zerolog.Logger) *Analyzer {
	return &Analyzer{completer: completer, logger: logger}
}

// Analyze scores the transcript. It never fails; model or parse errors
// produce a report whose sentiment is "시스템 오류".
func (a *Analyzer) Analyze(ctx context.Context, transcript []Message, scenario string) Report {
	if a == nil || a.completer == nil {
		return StaticReport()
	}

	scenario = normalizeScenario(scenario)
	matrix := factMatrix(scenario)

	payload, err := json.Marshal(transcript)
	if err != nil {
		return failureReport(err)
	}

	raw, err := a.completer.Complete(ctx, systemPrompt(scenario, matrix), string(payload))
	if err != nil {
		a.logger.Warn().Err(err).Str("scenario", scenario).Msg("feedback analysis failed")
		return failureReport(err)
	}

	var report Report
	if err := json.Unmarshal([]byte(sanitize.Text(raw)), &report); err != nil {
		a.logger.Warn().Err(err).Str("scenario", scenario).Msg("feedback response malformed")
		return failureReport(err)
	}

	clamp(&report, transcriptText(transcript), matrix)
	return report
}

// StaticReport is returned when no language model is configured.
func StaticReport() Report {
	return Report{
		Score:      65,
		Summary:    "User was initially flustered but recovered with questions.",
		GoodPoints: []string{"Tried to verify the caller's identity"},
		BadPoints:  []string{"Attempted to share personal info", "Delayed hang up"},
		Advice:     "Prepare a short script for impersonation calls.",
		Detailed: DetailedAnalysis{
			RiskKeywords:   []string{},
			PanicScore:     0.7,
			ComplianceRisk: 0.5,
		},
	}
}

func failureReport(err error) Report {
	return Report{
		Score:      0,
		Summary:    "분석 실패",
		GoodPoints: []string{},
		BadPoints:  []string{},
		Advice:     fmt.Sprintf("오류: %v", err),
		Detailed: DetailedAnalysis{
			Sentiment:    "시스템 오류",
			RiskKeywords: []string{},
		},
	}
}

// clamp overrides the model's verdict when the transcript shows the user
// already acted on the scam, and backfills thin advice.
func clamp(r *Report, text, matrix string) {
	if r.Detailed.RiskKeywords == nil {
		r.Detailed.RiskKeywords = []string{}
	}

	compromised := false
	for _, trigger := range fatalTriggers {
		if !strings.Contains(text, trigger) {
			continue
		}
		compromised = true
		if !contains(r.Detailed.RiskKeywords, trigger) {
			r.Detailed.RiskKeywords = append(r.Detailed.RiskKeywords, trigger)
		}
	}

	if compromised {
		if r.Score > compromisedScoreCeiling {
			r.Score = compromisedScore
		}
		r.Detailed.DominanceScore = compromisedDominance
		r.Detailed.Sentiment = compromisedSentiment
		if !strings.Contains(r.Summary, "이미") {
			r.Summary = compromisedSummary
		}
	}

	if utf8.RuneCountInString(r.Advice) < minAdviceRunes {
		r.Advice = matrix
	}
}

func transcriptText(transcript []Message) string {
	var b strings.Builder
	for _, m := range transcript {
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

func normalizeScenario(scenario string) string {
	if strings.EqualFold(strings.TrimSpace(scenario), ScenarioLoan) {
		return ScenarioLoan
	}
	return ScenarioProsecutor
}

func factMatrix(scenario string) string {
	if scenario == ScenarioLoan {
		return loanFactMatrix
	}
	return prosecutorFactMatrix
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
