// Package pipeline implements the per-question state machine and the
// batch fan-out that drives many pipelines in parallel.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nswprep/examgen/internal/a2a"
	"github.com/nswprep/examgen/internal/logging"
	"github.com/nswprep/examgen/internal/models"
)

// Endpoints locates the peer services the controller drives.
type Endpoints struct {
	ConceptGuide string
	Generator    string
	Quality      string
	Correctness  string
}

// Config tunes the controller.
type Config struct {
	// MaxRevisions bounds the revision loop. 0 means accept on the first
	// judgment or fail.
	MaxRevisions int
}

// Controller runs one question through select, generate, verify, judge,
// and the bounded revision loop.
type Controller struct {
	client    *a2a.Client
	endpoints Endpoints
	cfg       Config
	log       *logging.Logger
}

// NewController builds a controller over the given peers.
func NewController(client *a2a.Client, endpoints Endpoints, cfg Config) *Controller {
	return &Controller{
		client:    client,
		endpoints: endpoints,
		cfg:       cfg,
		log:       logging.Global().WithComponent("Pipeline"),
	}
}

// state tracks a single in-flight question generation.
type state struct {
	subtopic   string
	difficulty int

	selection *models.ConceptSelection
	blueprint *models.Blueprint
	question  *models.Question
	judgment  *models.Judgment

	revisionCount int
	accepted      bool
	errors        []string
}

// GenerateQuestion runs the full pipeline for one question.
func (c *Controller) GenerateQuestion(ctx context.Context, subtopic string, difficulty int, excludeIDs []string) *models.PipelineResult {
	st := &state{subtopic: subtopic, difficulty: difficulty}

	logging.PipelineStep("Select Concept", 1, 4, fmt.Sprintf("subtopic=%s, difficulty=%d", subtopic, difficulty))
	selection, err := c.selectConcept(ctx, subtopic, difficulty, excludeIDs)
	if err != nil {
		st.errors = append(st.errors, fmt.Sprintf("Failed to select concept: %v", err))
		return result(st)
	}
	st.selection = selection
	c.log.Info("selected concept: %s", selection.Concept.Name)

	for attempt := 0; attempt <= c.cfg.MaxRevisions; attempt++ {
		st.revisionCount = attempt

		var gen *generateResult
		if attempt == 0 {
			logging.PipelineStep("Generate Question", 2, 4, "concept="+selection.Concept.Name)
			gen, err = c.generateQuestion(ctx, selection)
		} else {
			logging.PipelineStep(fmt.Sprintf("Revise Question (attempt %d)", attempt+1), 2, 4,
				fmt.Sprintf("issues: %d", len(st.judgment.Issues)))
			gen, err = c.reviseQuestion(ctx, st.question, st.blueprint, st.judgment.Issues, st.judgment.Suggestions)
		}
		if err != nil {
			// Generation trouble is terminal; retries are the
			// orchestrator's concern.
			st.errors = append(st.errors, fmt.Sprintf("Failed to generate question (attempt %d): %v", attempt+1, err))
			return result(st)
		}
		st.blueprint = gen.Blueprint
		st.question = gen.Question

		logging.PipelineStep("Verify Correctness", 3, 4, fmt.Sprintf("attempt %d", attempt+1))
		verification := c.verifyCorrectness(ctx, st.question, st.blueprint)
		if !verification.Verified {
			c.log.Info("correctness FAILED - %d issues", len(verification.Issues))
			issues := verification.Issues
			if len(issues) == 0 {
				issues = []string{"Answer verification failed"}
			}
			// Feed the revision loop the same feedback shape the judge
			// produces.
			st.judgment = &models.Judgment{
				Success:     true,
				Accepted:    false,
				Status:      models.StatusNeedsRevision,
				Issues:      issues,
				Suggestions: verification.Suggestions,
			}
			continue
		}

		logging.PipelineStep("Quality Check", 4, 4, fmt.Sprintf("attempt %d", attempt+1))
		judgment, err := c.checkQuality(ctx, st.question, st.blueprint)
		if err != nil {
			st.errors = append(st.errors, fmt.Sprintf("Quality check failed (attempt %d): %v", attempt+1, err))
			return result(st)
		}
		st.judgment = judgment

		if judgment.Accepted {
			c.log.Info("question ACCEPTED after %d attempt(s)", attempt+1)
			st.accepted = true
			break
		}
		if judgment.Status == models.StatusRejected {
			c.log.Info("question REJECTED - %d issues found", len(judgment.Issues))
			st.errors = append(st.errors, "Question rejected by quality judge")
			break
		}
		c.log.Info("question needs revision - %d issues found", len(judgment.Issues))
	}

	return result(st)
}

// GenerateBatch runs count independent pipelines concurrently for one
// subtopic. Concepts are not excluded across pipelines; duplicates within
// a batch are an accepted throughput trade-off. The returned slice always
// has length count.
func (c *Controller) GenerateBatch(ctx context.Context, subtopic string, count, difficulty int) []*models.PipelineResult {
	results := make([]*models.PipelineResult, count)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = &models.PipelineResult{
						Accepted: false,
						Errors:   []string{fmt.Sprintf("Generation error: %v", r)},
					}
				}
			}()
			results[i] = c.GenerateQuestion(gctx, subtopic, difficulty, nil)
			return nil
		})
	}
	g.Wait()

	for i := range results {
		if results[i] == nil {
			results[i] = &models.PipelineResult{Accepted: false, Errors: []string{"pipeline produced no result"}}
		}
	}
	return results
}

func result(st *state) *models.PipelineResult {
	r := &models.PipelineResult{
		Accepted:      st.accepted,
		Question:      st.question,
		RevisionCount: st.revisionCount,
		Judgment:      st.judgment,
		Errors:        st.errors,
	}
	if st.selection != nil {
		r.ConceptID = st.selection.Concept.ID
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	return r
}

func (c *Controller) selectConcept(ctx context.Context, subtopic string, difficulty int, excludeIDs []string) (*models.ConceptSelection, error) {
	if excludeIDs == nil {
		excludeIDs = []string{}
	}
	var resp struct {
		Success   bool                     `json:"success"`
		Error     string                   `json:"error"`
		Selection *models.ConceptSelection `json:"selection"`
	}
	err := c.client.SendTaskAs(ctx, c.endpoints.ConceptGuide, "ConceptGuide", map[string]interface{}{
		"action":      "select_concept",
		"subtopic":    subtopic,
		"difficulty":  difficulty,
		"exclude_ids": excludeIDs,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Selection == nil {
		return nil, fmt.Errorf("%s", orDefault(resp.Error, "no selection returned"))
	}
	return resp.Selection, nil
}

type generateResult struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error"`
	Blueprint *models.Blueprint `json:"blueprint"`
	Question  *models.Question  `json:"question"`
}

func (c *Controller) generateQuestion(ctx context.Context, selection *models.ConceptSelection) (*generateResult, error) {
	var resp generateResult
	err := c.client.SendTaskAs(ctx, c.endpoints.Generator, "QuestionGenerator", map[string]interface{}{
		"action":    "generate_question",
		"selection": selection,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Blueprint == nil || resp.Question == nil {
		return nil, fmt.Errorf("%s", orDefault(resp.Error, "generator returned no question"))
	}
	return &resp, nil
}

func (c *Controller) reviseQuestion(ctx context.Context, q *models.Question, bp *models.Blueprint, issues, suggestions []string) (*generateResult, error) {
	if issues == nil {
		issues = []string{}
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	var resp generateResult
	err := c.client.SendTaskAs(ctx, c.endpoints.Generator, "QuestionGenerator", map[string]interface{}{
		"action":      "revise_question",
		"question":    q,
		"blueprint":   bp,
		"issues":      issues,
		"suggestions": suggestions,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Blueprint == nil || resp.Question == nil {
		return nil, fmt.Errorf("%s", orDefault(resp.Error, "generator returned no revision"))
	}
	return &resp, nil
}

type verificationResult struct {
	Success     bool     `json:"success"`
	Verified    bool     `json:"verified"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// verifyCorrectness never fails the pipeline: when the verifier cannot be
// reached or errors internally, correctness is treated as passing.
func (c *Controller) verifyCorrectness(ctx context.Context, q *models.Question, bp *models.Blueprint) *verificationResult {
	var resp verificationResult
	err := c.client.SendTaskAs(ctx, c.endpoints.Correctness, "Correctness", map[string]interface{}{
		"action":    "verify_correctness",
		"question":  q,
		"blueprint": bp,
	}, &resp)
	if err != nil || !resp.Success {
		if err != nil {
			c.log.Warn("correctness check unavailable, continuing: %v", err)
		}
		return &verificationResult{Success: true, Verified: true, Issues: []string{}, Suggestions: []string{}}
	}
	return &resp
}

func (c *Controller) checkQuality(ctx context.Context, q *models.Question, bp *models.Blueprint) (*models.Judgment, error) {
	raw, err := c.client.SendTask(ctx, c.endpoints.Quality, "QualityChecker", map[string]interface{}{
		"action":    "check_quality",
		"question":  q,
		"blueprint": bp,
	})
	if err != nil {
		return nil, err
	}
	var judgment models.Judgment
	if err := json.Unmarshal(raw, &judgment); err != nil {
		return nil, fmt.Errorf("decoding judgment: %w", err)
	}
	if !judgment.Success {
		return nil, fmt.Errorf("%s", orDefault(judgment.Error, "quality check failed"))
	}
	return &judgment, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
