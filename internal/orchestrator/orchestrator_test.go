package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nswprep/examgen/internal/a2a"
	"github.com/nswprep/examgen/internal/models"
)

// fakeRunner scripts how many questions each subtopic batch accepts per
// round and records every dispatch.
type fakeRunner struct {
	mu sync.Mutex
	// accepts[subtopic] is consumed round by round.
	accepts map[string][]int
	// dispatches records (subtopic, count) in call order.
	dispatches []dispatch
}

type dispatch struct {
	subtopic string
	count    int
}

func (f *fakeRunner) GenerateBatch(ctx context.Context, subtopic string, count, difficulty int) []*models.PipelineResult {
	f.mu.Lock()
	f.dispatches = append(f.dispatches, dispatch{subtopic, count})
	accept := count
	if rounds, ok := f.accepts[subtopic]; ok && len(rounds) > 0 {
		accept = rounds[0]
		f.accepts[subtopic] = rounds[1:]
	}
	f.mu.Unlock()

	results := make([]*models.PipelineResult, count)
	for i := range results {
		if i < accept {
			results[i] = &models.PipelineResult{
				Accepted: true,
				Question: &models.Question{Question: fmt.Sprintf("%s q%d", subtopic, i), SubtopicName: subtopic},
				Errors:   []string{},
			}
		} else {
			results[i] = &models.PipelineResult{
				Accepted: false,
				Errors:   []string{"Question rejected by quality judge"},
			}
		}
	}
	return results
}

func (f *fakeRunner) GenerateQuestion(ctx context.Context, subtopic string, difficulty int, excludeIDs []string) *models.PipelineResult {
	return f.GenerateBatch(ctx, subtopic, 1, difficulty)[0]
}

func (f *fakeRunner) dispatchesFor(subtopic string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var counts []int
	for _, d := range f.dispatches {
		if d.subtopic == subtopic {
			counts = append(counts, d.count)
		}
	}
	return counts
}

func newTestOrchestrator(runner BatchRunner) *Orchestrator {
	return New(a2a.NewClient("orch-test", time.Second), runner, Peers{}, Config{}, 5000)
}

func TestDefaultPlanTotals(t *testing.T) {
	if got := DefaultPlan("thinking_skills").Total(); got != 40 {
		t.Fatalf("thinking_skills total = %d, want 40", got)
	}
	if got := DefaultPlan("math").Total(); got != 35 {
		t.Fatalf("math total = %d, want 35", got)
	}
	if DefaultPlan("science") != nil {
		t.Fatal("unsupported exam type must have no default plan")
	}
}

func TestGenerateExamFullQuota(t *testing.T) {
	runner := &fakeRunner{}
	o := newTestOrchestrator(runner)

	res := o.GenerateExam(context.Background(), "thinking_skills", nil)
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.TotalQuestions != 40 {
		t.Fatalf("total = %d, want 40", res.TotalQuestions)
	}
	if res.Rounds != 1 {
		t.Fatalf("rounds = %d, want 1", res.Rounds)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %v", res.Errors)
	}
}

func TestRetryRoundDispatchesShortfallOnly(t *testing.T) {
	// Round 1: logical_reasoning accepts only 2 of 5; everything else is
	// full. Round 2 must dispatch exactly the 3-question shortfall, and
	// only for that subtopic.
	runner := &fakeRunner{accepts: map[string][]int{
		"logical_reasoning": {2, 3},
	}}
	o := newTestOrchestrator(runner)

	res := o.GenerateExam(context.Background(), "thinking_skills", nil)
	if res.TotalQuestions != 40 {
		t.Fatalf("total = %d, want 40", res.TotalQuestions)
	}
	if res.Rounds != 2 {
		t.Fatalf("rounds = %d, want 2", res.Rounds)
	}
	if got := runner.dispatchesFor("logical_reasoning"); len(got) != 2 || got[0] != 5 || got[1] != 3 {
		t.Fatalf("logical_reasoning dispatches = %v, want [5 3]", got)
	}
	// Subtopics that met quota in round 1 get no top-up.
	if got := runner.dispatchesFor("analogies"); len(got) != 1 {
		t.Fatalf("analogies dispatches = %v, want one round", got)
	}
}

func TestRetryRoundsBounded(t *testing.T) {
	// A subtopic that never produces anything gets the initial round plus
	// RetryRounds top-ups, then the shortfall is reported.
	runner := &fakeRunner{accepts: map[string][]int{
		"deduction": {0, 0, 0, 0, 0},
	}}
	o := newTestOrchestrator(runner)
	o.cfg.Plans = map[string]*BatchPlan{
		"thinking_skills": {
			ExamType:    "thinking_skills",
			Quota:       map[string]int{"deduction": 5},
			Difficulty:  3,
			RetryRounds: 2,
		},
	}

	res := o.GenerateExam(context.Background(), "thinking_skills", nil)
	if !res.Success {
		t.Fatal("shortfall must not fail the batch")
	}
	if res.TotalQuestions != 0 {
		t.Fatalf("total = %d", res.TotalQuestions)
	}
	if got := runner.dispatchesFor("deduction"); len(got) != 3 {
		t.Fatalf("deduction dispatches = %v, want 3 rounds", got)
	}
	if len(res.Errors) == 0 {
		t.Fatal("shortfall must be reported in errors")
	}
}

func TestGenerateExamUnsupportedType(t *testing.T) {
	o := newTestOrchestrator(&fakeRunner{})
	res := o.GenerateExam(context.Background(), "science", nil)
	if res.Success {
		t.Fatal("unsupported exam type must fail")
	}
	if res.Error == "" {
		t.Fatal("expected an error message")
	}
}

func TestGenerateExamQuotaOverride(t *testing.T) {
	runner := &fakeRunner{}
	o := newTestOrchestrator(runner)

	res := o.GenerateExam(context.Background(), "thinking_skills", map[string]interface{}{
		"subtopic_questions": map[string]interface{}{
			"analogies": float64(2),
			"deduction": float64(1),
		},
		"retry_rounds": float64(0),
	})
	if res.TotalQuestions != 3 {
		t.Fatalf("total = %d, want 3", res.TotalQuestions)
	}
	if got := runner.dispatchesFor("analogies"); len(got) != 1 || got[0] != 2 {
		t.Fatalf("analogies dispatches = %v", got)
	}
	if got := runner.dispatchesFor("inference"); len(got) != 0 {
		t.Fatalf("inference must not be dispatched, got %v", got)
	}
}

func TestGenerateExamCodePrefix(t *testing.T) {
	o := newTestOrchestrator(&fakeRunner{})
	res := o.GenerateExam(context.Background(), "math", nil)
	if len(res.ExamCode) < 5 || res.ExamCode[:5] != "MATH-" {
		t.Fatalf("exam code = %q", res.ExamCode)
	}
}
