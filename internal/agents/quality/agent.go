// Package quality implements the quality judge: a single LLM pass that
// solves, attacks, and scores a question, followed by a deterministic
// status derivation over the structured result.
package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nswprep/examgen/internal/a2a"
	"github.com/nswprep/examgen/internal/llm"
	"github.com/nswprep/examgen/internal/models"
)

// Agent judges question quality.
type Agent struct {
	llm   *llm.Client
	model string
	port  int
}

// NewAgent builds the judge over an LLM client.
func NewAgent(client *llm.Client, model string, port int) *Agent {
	return &Agent{llm: client, model: model, port: port}
}

// Card returns the agent descriptor.
func (a *Agent) Card() a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "QualityCheckerAgent",
		Description: "Verifies question correctness, finds vulnerabilities, and scores quality",
		URL:         a2a.Endpoint{Port: a.port}.BaseURL() + "/",
		Version:     "1.0.0",
		Skills: []a2a.AgentSkill{
			{ID: "check_quality", Name: "Check Quality", Description: "Comprehensive quality check: solve, attack, and judge", Tags: []string{"quality", "verification"}},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
}

type checkRequest struct {
	Question  models.Question  `json:"question"`
	Blueprint models.Blueprint `json:"blueprint"`
}

// checkOutput is the structured result the single LLM pass returns.
type checkOutput struct {
	SolutionSteps     []map[string]interface{} `json:"solution_steps"`
	NumReasoningSteps int                      `json:"num_reasoning_steps"`
	SolvedAnswerID    interface{}              `json:"solved_answer_id"`
	SolveConfidence   float64                  `json:"solve_confidence"`
	TimeToSolve       string                   `json:"time_to_solve_estimate"`

	DifficultyAssessment models.DifficultyAssessment `json:"difficulty_assessment"`

	Vulnerabilities              []models.Vulnerability `json:"vulnerabilities"`
	CanSolveWithoutUnderstanding bool                   `json:"can_solve_without_understanding"`
	VulnerabilityScore           float64                `json:"vulnerability_score"`

	ClarityScore     float64 `json:"clarity_score"`
	AlignmentScore   float64 `json:"alignment_score"`
	ActualDifficulty int     `json:"actual_difficulty"`
	DifficultyMatch  bool    `json:"difficulty_match"`

	Issues              []string `json:"issues"`
	RevisionSuggestions []string `json:"revision_suggestions"`
}

// Handle routes one task.
func (a *Agent) Handle(ctx context.Context, action string, raw json.RawMessage) (interface{}, error) {
	if action != "check_quality" {
		return a2a.UnknownAction(action), nil
	}
	var req checkRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return a.check(ctx, &req), nil
}

func (a *Agent) check(ctx context.Context, req *checkRequest) interface{} {
	var out checkOutput
	prompt := buildQualityPrompt(&req.Question, &req.Blueprint)
	if err := a.llm.GenerateJSON(ctx, a.model, "", prompt, &out); err != nil {
		return a2a.ErrorBody{Success: false, Error: fmt.Sprintf("Failed to check quality: %v", err)}
	}

	status := deriveStatus(&out)

	actualDifficulty := out.ActualDifficulty
	if actualDifficulty == 0 {
		actualDifficulty = req.Blueprint.DifficultyTarget
	}

	issues := out.Issues
	if issues == nil {
		issues = []string{}
	}
	suggestions := out.RevisionSuggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	return models.Judgment{
		Success:  true,
		Accepted: status == models.StatusAccepted,
		Status:   status,
		Solution: &models.Solution{
			Steps:            out.SolutionSteps,
			SelectedAnswerID: answerID(out.SolvedAnswerID),
			Confidence:       out.SolveConfidence,
		},
		AnswerMatches:   answerID(out.SolvedAnswerID) == "1",
		Vulnerabilities: out.Vulnerabilities,
		CanShortcut:     out.CanSolveWithoutUnderstanding,
		VulnScore:       out.VulnerabilityScore,
		Scores: &models.JudgmentScores{
			Clarity:          out.ClarityScore,
			DifficultyMatch:  out.DifficultyMatch,
			ActualDifficulty: actualDifficulty,
			Alignment:        out.AlignmentScore,
		},
		Issues:      issues,
		Suggestions: suggestions,
	}
}

// deriveStatus maps the structured check result onto a verdict. The rules
// run strictly in order; identical inputs always yield the same status.
func deriveStatus(out *checkOutput) models.JudgmentStatus {
	// 1. Solver disagrees with the marked answer.
	if answerID(out.SolvedAnswerID) != "1" {
		return models.StatusRejected
	}

	// 2. Difficulty honesty check.
	if out.DifficultyAssessment.IsTooEasy {
		return models.StatusRejected
	}
	if rate, ok := parseSuccessRate(out.DifficultyAssessment.EstimatedYear6Success); ok && rate > 40 {
		return models.StatusNeedsRevision
	}

	// 3. Vulnerabilities, worst first.
	for _, v := range out.Vulnerabilities {
		if v.Severity == models.SeverityCritical {
			return models.StatusRejected
		}
	}
	for _, v := range out.Vulnerabilities {
		if v.Severity == models.SeverityMajor || v.Type == "too_easy" {
			return models.StatusNeedsRevision
		}
	}

	// 4. Reasoning depth.
	if out.NumReasoningSteps < 3 {
		return models.StatusNeedsRevision
	}

	// 5. Clarity.
	if out.ClarityScore < 0.5 {
		return models.StatusRejected
	}
	if out.ClarityScore < 0.7 {
		return models.StatusNeedsRevision
	}

	// 6. Overall vulnerability score.
	if out.VulnerabilityScore > 0.6 {
		return models.StatusNeedsRevision
	}

	return models.StatusAccepted
}

// answerID normalizes the solver's answer id, which models emit as either
// a string or a number.
func answerID(v interface{}) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.Itoa(int(n))
	case int:
		return strconv.Itoa(n)
	default:
		return ""
	}
}

// parseSuccessRate reads rates like "20-30%" or "45%", returning the lower
// bound.
func parseSuccessRate(s string) (int, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return 0, false
	}
	if i := strings.Index(s, "-"); i > 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

func buildQualityPrompt(q *models.Question, bp *models.Blueprint) string {
	contentSection := ""
	if q.Content != "" {
		contentSection = fmt.Sprintf("\n## Question Context/Setup\n%s\n", q.Content)
	}

	var choices strings.Builder
	for _, c := range q.Choices {
		fmt.Fprintf(&choices, "  (%s) %s\n", c.ID, c.Text)
	}

	return fmt.Sprintf(`You are a STRICT quality checker for NSW Selective Schools exam questions.
This exam selects the TOP 5%% of Year 6 students - questions must be GENUINELY DIFFICULT.
%s
## Question to Check
%s

## Options
%s
## Expected Correct Answer: Option 1

## Blueprint Info
- Concept: %s
- Target Difficulty: %d/3 (MUST be genuinely hard for difficulty 3)

## Your Tasks

### 1. SOLVE the question step-by-step
- Work through the problem methodically
- Count how many distinct reasoning steps are required
- Determine which answer you arrive at
- Note if the expected answer (Option 1) matches your solution

### 2. DIFFICULTY CHECK (CRITICAL)
BE HONEST: Is this question genuinely difficult for a Year 6 student?

Signs the question is TOO EASY (any of these = fail):
- Can be solved in 1-2 obvious steps
- Correct answer is clearly different from wrong answers
- Wrong answers are obviously implausible
- Pattern or answer is immediately visible
- A typical Year 6 student would get this right in under 30 seconds
- Only requires reading comprehension, not complex reasoning

Signs of appropriate difficulty:
- Requires 4+ distinct logical steps
- At least 2 wrong answers are very tempting
- Requires careful analysis to eliminate plausible-looking wrong answers
- Includes information that seems relevant but isn't (tests discernment)
- Most Year 6 students would get this wrong

### 3. ATTACK the question (find vulnerabilities)
- Can a student guess correctly without understanding?
- Are there shortcuts (pattern matching, elimination, length clues)?
- Is there any ambiguity that could lead to multiple valid answers?
- Are any distractors obviously wrong or implausible?

### 4. JUDGE the question quality
- Is the language clear and unambiguous?
- Does the difficulty ACTUALLY match the target?
- Does it test the intended concept?

## Output Format
Return a JSON object:

{
    "solution_steps": [
        {"step": 1, "action": "What you did", "result": "What you found"}
    ],
    "num_reasoning_steps": 4,
    "solved_answer_id": "1",
    "solve_confidence": 0.95,
    "time_to_solve_estimate": "60+ seconds",

    "difficulty_assessment": {
        "is_too_easy": false,
        "reasons_too_easy": [],
        "num_tempting_wrong_answers": 2,
        "estimated_year6_success_rate": "20-30%%"
    },

    "vulnerabilities": [
        {
            "type": "shortcut|ambiguity|elimination|weak_distractor|too_easy",
            "severity": "critical|major|minor",
            "description": "What the vulnerability is",
            "affected_options": ["2", "3"]
        }
    ],
    "can_solve_without_understanding": false,
    "vulnerability_score": 0.2,

    "clarity_score": 0.9,
    "alignment_score": 0.85,
    "actual_difficulty": 3,
    "difficulty_match": true,

    "issues": ["List of problems found"],
    "revision_suggestions": ["How to fix each issue - be specific about making it harder"]
}

BE STRICT. If a question seems straightforward, it's probably too easy.

Output ONLY the JSON object.`,
		contentSection, q.Question, choices.String(),
		bp.ConceptName, bp.DifficultyTarget)
}
