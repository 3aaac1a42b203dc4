// Package verifier implements the batch question verifier: four
// independent LLM checks (answers, quality, format, explanations) run per
// batch, and any failure fails the question.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nswprep/examgen/internal/a2a"
	"github.com/nswprep/examgen/internal/llm"
	"github.com/nswprep/examgen/internal/logging"
	"github.com/nswprep/examgen/internal/models"
)

// batchSize caps how many questions go into one LLM call.
const batchSize = 5

// Agent verifies exam questions for correctness, quality, and formatting.
type Agent struct {
	llm   *llm.Client
	model string
	port  int
	log   *logging.Logger
}

// NewAgent builds a verifier agent.
func NewAgent(client *llm.Client, model string, port int) *Agent {
	return &Agent{
		llm:   client,
		model: model,
		port:  port,
		log:   logging.Global().WithComponent("VerifierAgent"),
	}
}

// Card returns the agent descriptor.
func (a *Agent) Card() a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "VerifierAgent",
		Description: "Verifies exam question correctness, quality, and formatting",
		URL:         a2a.Endpoint{Port: a.port}.BaseURL() + "/",
		Version:     "1.0.0",
		Skills: []a2a.AgentSkill{
			{ID: "verify_questions", Name: "Verify Questions", Description: "Verify a batch of questions for correctness and quality", Tags: []string{"verification", "quality"}},
			{ID: "verify_single", Name: "Verify Single Question", Description: "Verify a single question in detail", Tags: []string{"verification"}},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
}

type verifyRequest struct {
	Questions []models.Question `json:"questions"`
	Question  *models.Question  `json:"question"`
}

// Handle routes one task.
func (a *Agent) Handle(ctx context.Context, action string, raw json.RawMessage) (interface{}, error) {
	var req verifyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	switch action {
	case "verify_questions":
		return a.verifyQuestions(ctx, req.Questions), nil
	case "verify_single":
		return a.verifySingle(ctx, req.Question), nil
	default:
		return a2a.UnknownAction(action), nil
	}
}

// BatchResult is the verify_questions response body.
type BatchResult struct {
	Success      bool                           `json:"success"`
	Verification models.BatchVerificationResult `json:"verification"`
	Summary      Summary                        `json:"summary"`
}

// Summary condenses a batch verification for callers that only need
// the headline.
type Summary struct {
	Total     int     `json:"total"`
	Passed    int     `json:"passed"`
	Failed    int     `json:"failed"`
	PassRate  float64 `json:"pass_rate"`
	AllPassed bool    `json:"all_passed"`
}

func (a *Agent) verifyQuestions(ctx context.Context, questions []models.Question) *BatchResult {
	all := make([]models.QuestionVerification, 0, len(questions))
	for i := 0; i < len(questions); i += batchSize {
		end := i + batchSize
		if end > len(questions) {
			end = len(questions)
		}
		all = append(all, a.verifyBatch(ctx, questions[i:end])...)
	}

	passed := 0
	for _, v := range all {
		if v.Passed() {
			passed++
		}
	}
	result := models.BatchVerificationResult{
		TotalQuestions: len(questions),
		Passed:         passed,
		Failed:         len(all) - passed,
		Questions:      all,
	}
	return &BatchResult{
		Success:      true,
		Verification: result,
		Summary: Summary{
			Total:     result.TotalQuestions,
			Passed:    result.Passed,
			Failed:    result.Failed,
			PassRate:  result.PassRate(),
			AllPassed: result.Failed == 0 && result.TotalQuestions > 0,
		},
	}
}

// SingleResult is the verify_single response body.
type SingleResult struct {
	Success      bool                        `json:"success"`
	Verification models.QuestionVerification `json:"verification"`
}

func (a *Agent) verifySingle(ctx context.Context, q *models.Question) interface{} {
	if q == nil {
		return a2a.ErrorBody{Success: false, Error: "No question provided"}
	}
	batch := a.verifyQuestions(ctx, []models.Question{*q})
	return &SingleResult{Success: true, Verification: batch.Verification.Questions[0]}
}

// checkResult is the per-question shape every check prompt asks for.
type checkResult struct {
	AnswerMatches    *bool    `json:"answer_matches,omitempty"`
	Confidence       float64  `json:"confidence,omitempty"`
	MyAnswerChoiceID string   `json:"my_answer_choice_id,omitempty"`
	MySolution       string   `json:"my_solution,omitempty"`
	Issue            string   `json:"issue,omitempty"`
	AllPassed        *bool    `json:"all_passed,omitempty"`
	Issues           []string `json:"issues,omitempty"`
}

// verifyBatch runs the four checks concurrently over one slice of
// questions. A check that errors counts as passing; the pipeline has its
// own correctness gate and the verifier must not block on LLM trouble.
func (a *Agent) verifyBatch(ctx context.Context, questions []models.Question) []models.QuestionVerification {
	payload, _ := json.MarshalIndent(questions, "", "  ")
	questionsJSON := string(payload)

	var answers, quality, format, explanations []checkResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { answers = a.runCheck(gctx, answerPrompt(questionsJSON)); return nil })
	g.Go(func() error { quality = a.runCheck(gctx, qualityPrompt(questionsJSON)); return nil })
	g.Go(func() error { format = a.runCheck(gctx, formatPrompt(questionsJSON)); return nil })
	g.Go(func() error { explanations = a.runCheck(gctx, explanationPrompt(questionsJSON)); return nil })
	g.Wait()

	verifications := make([]models.QuestionVerification, 0, len(questions))
	for i, q := range questions {
		verifications = append(verifications, combine(q,
			at(answers, i), at(quality, i), at(format, i), at(explanations, i)))
	}
	return verifications
}

func (a *Agent) runCheck(ctx context.Context, prompt string) []checkResult {
	var results []checkResult
	if err := a.llm.GenerateJSON(ctx, a.model, verifierSystemPrompt, prompt, &results); err != nil {
		a.log.Warn("verification check failed: %v", err)
		return nil
	}
	return results
}

func at(results []checkResult, i int) checkResult {
	if i < len(results) {
		return results[i]
	}
	return checkResult{}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// combine folds the four check results into one verdict. Any failed check
// fails the question.
func combine(q models.Question, answer, quality, format, explanation checkResult) models.QuestionVerification {
	var issues []models.VerificationIssue

	answerCorrect := boolOr(answer.AnswerMatches, true)
	if !answerCorrect {
		msg := answer.Issue
		if msg == "" {
			msg = fmt.Sprintf("Answer verification failed. Verifier determined correct answer is choice %s", answer.MyAnswerChoiceID)
		}
		issues = append(issues, models.VerificationIssue{
			Category:   "answer",
			Message:    msg,
			Suggestion: answer.MySolution,
		})
	}

	qualityOK := boolOr(quality.AllPassed, true)
	for _, msg := range quality.Issues {
		issues = append(issues, models.VerificationIssue{Category: "quality", Message: msg})
	}
	formatOK := boolOr(format.AllPassed, true)
	for _, msg := range format.Issues {
		issues = append(issues, models.VerificationIssue{Category: "format", Message: msg})
	}
	explanationOK := boolOr(explanation.AllPassed, true)
	for _, msg := range explanation.Issues {
		issues = append(issues, models.VerificationIssue{Category: "explanation", Message: msg})
	}

	status := models.VerifyPass
	if !(answerCorrect && qualityOK && formatOK && explanationOK) {
		status = models.VerifyFail
	}
	if issues == nil {
		issues = []models.VerificationIssue{}
	}

	return models.QuestionVerification{
		QuestionID:            q.ID,
		QuestionText:          truncate(q.Question, 100),
		Status:                status,
		AnswerCorrect:         answerCorrect,
		AnswerConfidence:      answer.Confidence,
		VerifiedCorrectChoice: answer.MyAnswerChoiceID,
		QualityOK:             qualityOK,
		FormatOK:              formatOK,
		ExplanationOK:         explanationOK,
		Issues:                issues,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
