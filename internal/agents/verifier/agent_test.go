package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nswprep/examgen/internal/llm"
	"github.com/nswprep/examgen/internal/models"
)

func mcq(id string) models.Question {
	return models.Question{
		ID:       id,
		Question: "Which word is the odd one out?",
		Type:     "multiple-choice",
		Choices: []models.Choice{
			{ID: "1", Text: "apple", IsCorrect: true},
			{ID: "2", Text: "banana", IsCorrect: false},
			{ID: "3", Text: "carrot", IsCorrect: false},
			{ID: "4", Text: "mango", IsCorrect: false},
		},
		Explanation: "Apple is the only one that grows on a tree here.",
	}
}

func newTestAgent(responses ...string) (*Agent, *llm.FakeProvider) {
	fake := llm.NewFakeProvider(responses...)
	return NewAgent(llm.NewClient("test", fake), "m", 5006), fake
}

func handleBatch(t *testing.T, agent *Agent, questions []models.Question) *BatchResult {
	t.Helper()
	payload, _ := json.Marshal(map[string]interface{}{
		"action": "verify_questions", "questions": questions,
	})
	out, err := agent.Handle(context.Background(), "verify_questions", json.RawMessage(payload))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	res, ok := out.(*BatchResult)
	if !ok {
		t.Fatalf("unexpected result type %T", out)
	}
	return res
}

func TestVerifyQuestionsAllPass(t *testing.T) {
	agent, _ := newTestAgent(`[{"answer_matches": true, "confidence": 0.9, "my_answer_choice_id": "1", "all_passed": true, "issues": []}]`)

	res := handleBatch(t, agent, []models.Question{mcq("q1")})
	if !res.Success || res.Summary.Passed != 1 || !res.Summary.AllPassed {
		t.Fatalf("summary = %+v", res.Summary)
	}
	v := res.Verification.Questions[0]
	if v.Status != models.VerifyPass || !v.AnswerCorrect || len(v.Issues) != 0 {
		t.Fatalf("verification = %+v", v)
	}
}

func TestVerifyQuestionsWrongAnswerFails(t *testing.T) {
	agent, _ := newTestAgent(`[{"answer_matches": false, "confidence": 0.8, "my_answer_choice_id": "3", "my_solution": "carrot is the only vegetable", "all_passed": true, "issues": []}]`)

	res := handleBatch(t, agent, []models.Question{mcq("q1")})
	if res.Summary.Failed != 1 || res.Summary.AllPassed {
		t.Fatalf("summary = %+v", res.Summary)
	}
	v := res.Verification.Questions[0]
	if v.Status != models.VerifyFail || v.AnswerCorrect {
		t.Fatalf("verification = %+v", v)
	}
	if v.VerifiedCorrectChoice != "3" {
		t.Fatalf("verified choice = %q", v.VerifiedCorrectChoice)
	}
	if len(v.Issues) != 1 || v.Issues[0].Category != "answer" {
		t.Fatalf("issues = %+v", v.Issues)
	}
}

func TestVerifyQuestionsChecksBatched(t *testing.T) {
	// Seven questions split into a batch of five and a batch of two; each
	// batch costs four LLM calls.
	agent, fake := newTestAgent(`[{"all_passed": true, "issues": []}]`)

	questions := make([]models.Question, 7)
	for i := range questions {
		questions[i] = mcq("q")
	}
	res := handleBatch(t, agent, questions)
	if res.Summary.Total != 7 || res.Summary.Passed != 7 {
		t.Fatalf("summary = %+v", res.Summary)
	}
	if got := fake.CallCount(); got != 8 {
		t.Fatalf("llm calls = %d, want 8", got)
	}
}

func TestVerifyQuestionsLLMFailurePasses(t *testing.T) {
	// A check that cannot run must not fail the question; the pipeline's
	// correctness gate is the blocking check.
	fake := &llm.FakeProvider{Err: errors.New("model unavailable")}
	agent := NewAgent(llm.NewClient("test", fake), "m", 5006)

	res := handleBatch(t, agent, []models.Question{mcq("q1")})
	if res.Summary.Passed != 1 {
		t.Fatalf("summary = %+v", res.Summary)
	}
}

func TestVerifyQuestionsEmptyBatch(t *testing.T) {
	agent, fake := newTestAgent(`[]`)
	res := handleBatch(t, agent, nil)
	if !res.Success || res.Summary.Total != 0 || res.Summary.AllPassed {
		t.Fatalf("summary = %+v", res.Summary)
	}
	if fake.CallCount() != 0 {
		t.Fatal("empty batch must not call the model")
	}
}

func TestVerifySingle(t *testing.T) {
	agent, _ := newTestAgent(`[{"answer_matches": true, "all_passed": true, "issues": []}]`)

	payload, _ := json.Marshal(map[string]interface{}{
		"action": "verify_single", "question": mcq("q1"),
	})
	out, err := agent.Handle(context.Background(), "verify_single", json.RawMessage(payload))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	res, ok := out.(*SingleResult)
	if !ok {
		t.Fatalf("unexpected result type %T", out)
	}
	if !res.Success || res.Verification.Status != models.VerifyPass {
		t.Fatalf("result = %+v", res)
	}
}
