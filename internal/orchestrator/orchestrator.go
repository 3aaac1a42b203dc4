// Package orchestrator implements the batch planner and façade: it expands
// an exam request into a quota plan, drives subtopic batches in parallel
// with shortfall retry rounds, and aggregates the accepted questions.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nswprep/examgen/internal/a2a"
	"github.com/nswprep/examgen/internal/logging"
	"github.com/nswprep/examgen/internal/models"
)

// BatchRunner runs one subtopic batch. Satisfied by pipeline.Controller.
type BatchRunner interface {
	GenerateBatch(ctx context.Context, subtopic string, count, difficulty int) []*models.PipelineResult
	GenerateQuestion(ctx context.Context, subtopic string, difficulty int, excludeIDs []string) *models.PipelineResult
}

// Peers locates the services the orchestrator talks to directly.
type Peers struct {
	ConceptGuide string
	Image        string
	Database     string
	All          map[string]string // role -> base URL, for check_agents
}

// Config tunes the orchestrator.
type Config struct {
	Plans    map[string]*BatchPlan // per-exam overrides, nil entries fall back to defaults
	TopicIDs map[string]string     // exam type -> topic UUID
}

// Orchestrator coordinates exam generation across the agent fleet.
type Orchestrator struct {
	client *a2a.Client
	runner BatchRunner
	peers  Peers
	cfg    Config
	port   int
	log    *logging.Logger
}

// New builds an orchestrator.
func New(client *a2a.Client, runner BatchRunner, peers Peers, cfg Config, port int) *Orchestrator {
	return &Orchestrator{
		client: client,
		runner: runner,
		peers:  peers,
		cfg:    cfg,
		port:   port,
		log:    logging.Global().WithComponent("Orchestrator"),
	}
}

// Card returns the agent descriptor.
func (o *Orchestrator) Card() a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "OrchestratorAgent",
		Description: "Coordinates exam generation across specialized agents",
		URL:         a2a.Endpoint{Port: o.port}.BaseURL() + "/",
		Version:     "1.0.0",
		Skills: []a2a.AgentSkill{
			{ID: "generate_exam", Name: "Generate Exam", Description: "Generate a complete exam by orchestrating sub-agents", Tags: []string{"orchestration", "exam"}},
			{ID: "check_agents", Name: "Check Agents", Description: "Check status of all sub-agents", Tags: []string{"health", "status"}},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
}

type examRequest struct {
	ExamType string                 `json:"exam_type"`
	Config   map[string]interface{} `json:"config"`
}

// Handle routes one task.
func (o *Orchestrator) Handle(ctx context.Context, action string, raw json.RawMessage) (interface{}, error) {
	switch action {
	case "generate_exam":
		req := examRequest{ExamType: "thinking_skills"}
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		return o.GenerateExam(ctx, req.ExamType, req.Config), nil
	case "check_agents":
		return o.CheckAgents(ctx), nil
	default:
		return a2a.UnknownAction(action), nil
	}
}

// Step is one entry of the batch step log.
type Step struct {
	Step          string `json:"step"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	QuestionCount int    `json:"question_count,omitempty"`
	InsertedCount int    `json:"inserted_count,omitempty"`
	Count         int    `json:"count,omitempty"`
}

// ExamResult is the aggregated outcome of one exam batch.
type ExamResult struct {
	Success        bool              `json:"success"`
	Error          string            `json:"error,omitempty"`
	ExamCode       string            `json:"exam_code,omitempty"`
	ExamName       string            `json:"exam_name,omitempty"`
	ExamType       string            `json:"exam_type,omitempty"`
	ExamID         string            `json:"exam_id,omitempty"`
	Steps          []Step            `json:"steps"`
	TotalQuestions int               `json:"total_questions"`
	Questions      []models.Question `json:"questions"`
	Errors         []string          `json:"errors,omitempty"`
	Rounds         int               `json:"rounds"`
}

// GenerateExam runs the whole batch: plan, generate with retries, images,
// persistence. Per-question failures are reported in the step log, never
// as a batch failure.
func (o *Orchestrator) GenerateExam(ctx context.Context, examType string, overrides map[string]interface{}) *ExamResult {
	plan := o.planFor(examType, overrides)
	if plan == nil {
		return &ExamResult{Success: false, Error: fmt.Sprintf("Unsupported exam type: %s", examType), Steps: []Step{}, Questions: []models.Question{}}
	}

	now := time.Now().UTC()
	prefix := map[string]string{"thinking_skills": "THINK", "math": "MATH"}[examType]
	examCode := stringOverride(overrides, "exam_code", fmt.Sprintf("%s-%s", prefix, now.Format("20060102-1504")))
	examName := stringOverride(overrides, "exam_name", fmt.Sprintf("%s Exam %s", titleFor(examType), examCode))

	result := &ExamResult{
		Success:   true,
		ExamCode:  examCode,
		ExamName:  examName,
		ExamType:  examType,
		Steps:     []Step{},
		Questions: []models.Question{},
	}

	result.Steps = append(result.Steps, Step{Step: "generate_questions", Status: "in_progress"})
	questions, errs, rounds := o.generateQuestions(ctx, plan)
	result.Rounds = rounds
	result.Errors = errs
	result.Questions = questions
	result.TotalQuestions = len(questions)
	result.Steps[len(result.Steps)-1] = Step{Step: "generate_questions", Status: "completed", QuestionCount: len(questions)}

	// Tag questions with the exam's topic.
	if topicID := o.cfg.TopicIDs[examType]; topicID != "" {
		for i := range result.Questions {
			if result.Questions[i].TopicID == "" {
				result.Questions[i].TopicID = topicID
			}
		}
	}

	o.generateImages(ctx, result)
	o.persist(ctx, result, overrides)
	return result
}

// generateQuestions executes the plan: every subtopic batch runs in
// parallel; after each round, subtopics still short of quota get a top-up
// round sized exactly to the shortfall, up to RetryRounds extra rounds.
func (o *Orchestrator) generateQuestions(ctx context.Context, plan *BatchPlan) ([]models.Question, []string, int) {
	remaining := make(map[string]int, len(plan.Quota))
	for s, n := range plan.Quota {
		if n > 0 {
			remaining[s] = n
		}
	}

	var (
		mu        sync.Mutex
		questions []models.Question
		errs      []string
	)
	rounds := 0

	for round := 0; round <= plan.RetryRounds && len(remaining) > 0; round++ {
		rounds = round + 1
		subtopics := sortedKeys(remaining)
		o.log.Info("round %d: dispatching %d subtopic batches", round+1, len(subtopics))

		g, gctx := errgroup.WithContext(ctx)
		for _, subtopic := range subtopics {
			count := remaining[subtopic]
			g.Go(func() error {
				results := o.runner.GenerateBatch(gctx, subtopic, count, plan.Difficulty)
				mu.Lock()
				defer mu.Unlock()
				accepted := 0
				for _, r := range results {
					if r.Accepted && r.Question != nil {
						questions = append(questions, *r.Question)
						accepted++
					} else {
						errs = append(errs, r.Errors...)
					}
				}
				remaining[subtopic] -= accepted
				return nil
			})
		}
		g.Wait()

		for s, n := range remaining {
			if n <= 0 {
				delete(remaining, s)
			}
		}
	}

	for s, n := range remaining {
		errs = append(errs, fmt.Sprintf("subtopic %s short by %d after all rounds", s, n))
	}
	return questions, errs, rounds
}

// generateImages fills in image URLs for questions that need a diagram.
// Image trouble never fails the batch.
func (o *Orchestrator) generateImages(ctx context.Context, result *ExamResult) {
	var needing []int
	for i := range result.Questions {
		if result.Questions[i].RequiresImage && result.Questions[i].ImageURL == "" {
			needing = append(needing, i)
		}
	}
	if len(needing) == 0 || o.peers.Image == "" {
		return
	}

	result.Steps = append(result.Steps, Step{Step: "generate_images", Status: "in_progress", Count: len(needing)})
	for _, i := range needing {
		var resp struct {
			Success  bool   `json:"success"`
			ImageURL string `json:"image_url"`
		}
		err := o.client.SendTaskAs(ctx, o.peers.Image, "Image", map[string]interface{}{
			"action":      "generate_diagram",
			"description": result.Questions[i].ImageDescription,
		}, &resp)
		if err != nil || !resp.Success {
			o.log.Warn("image generation failed for question %d: %v", i, err)
			continue
		}
		result.Questions[i].ImageURL = resp.ImageURL
	}
	result.Steps[len(result.Steps)-1].Status = "completed"
}

// persist inserts the questions and creates the exam record. Database
// trouble is logged in the steps and does not fail the batch.
func (o *Orchestrator) persist(ctx context.Context, result *ExamResult, overrides map[string]interface{}) {
	if o.peers.Database == "" || len(result.Questions) == 0 {
		return
	}

	result.Steps = append(result.Steps, Step{Step: "insert_questions", Status: "in_progress"})
	var insertResp struct {
		Success       bool     `json:"success"`
		Error         string   `json:"error"`
		InsertedCount int      `json:"inserted_count"`
		InsertedIDs   []string `json:"inserted_ids"`
	}
	err := o.client.SendTaskAs(ctx, o.peers.Database, "Database", map[string]interface{}{
		"action":    "insert_questions",
		"questions": result.Questions,
	}, &insertResp)
	if err != nil || !insertResp.Success {
		msg := "Database error"
		if err != nil {
			msg = err.Error()
		} else if insertResp.Error != "" {
			msg = insertResp.Error
		}
		result.Steps[len(result.Steps)-1] = Step{Step: "insert_questions", Status: "failed", Error: msg}
		return
	}
	result.Steps[len(result.Steps)-1] = Step{Step: "insert_questions", Status: "completed", InsertedCount: insertResp.InsertedCount}

	result.Steps = append(result.Steps, Step{Step: "create_exam", Status: "in_progress"})
	var examResp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		ExamID  string `json:"exam_id"`
	}
	err = o.client.SendTaskAs(ctx, o.peers.Database, "Database", map[string]interface{}{
		"action": "create_exam",
		"exam": map[string]interface{}{
			"code":           result.ExamCode,
			"name":           result.ExamName,
			"description":    stringOverride(overrides, "exam_description", ""),
			"type":           dbExamType(result.ExamType),
			"time_limit":     intOverride(overrides, "time_limit", 45),
			"question_count": len(insertResp.InsertedIDs),
			"topic_id":       o.cfg.TopicIDs[result.ExamType],
		},
		"question_ids": insertResp.InsertedIDs,
	}, &examResp)
	if err != nil || !examResp.Success {
		msg := "Database error"
		if err != nil {
			msg = err.Error()
		} else if examResp.Error != "" {
			msg = examResp.Error
		}
		result.Steps[len(result.Steps)-1] = Step{Step: "create_exam", Status: "failed", Error: msg}
		return
	}
	result.Steps[len(result.Steps)-1] = Step{Step: "create_exam", Status: "completed"}
	result.ExamID = examResp.ExamID
}

// AgentStatus is one peer's health as seen by check_agents.
type AgentStatus struct {
	Status string   `json:"status"`
	URL    string   `json:"url"`
	Skills []string `json:"skills,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// CheckAgents probes every peer's agent card.
func (o *Orchestrator) CheckAgents(ctx context.Context) map[string]interface{} {
	statuses := make(map[string]AgentStatus, len(o.peers.All))
	for name, url := range o.peers.All {
		card, err := o.client.GetAgentCard(ctx, url)
		if err != nil {
			statuses[name] = AgentStatus{Status: "error", URL: url, Error: err.Error()}
			continue
		}
		skills := make([]string, 0, len(card.Skills))
		for _, s := range card.Skills {
			skills = append(skills, s.Name)
		}
		statuses[name] = AgentStatus{Status: "online", URL: url, Skills: skills}
	}
	return map[string]interface{}{
		"agents":    statuses,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}

func (o *Orchestrator) planFor(examType string, overrides map[string]interface{}) *BatchPlan {
	base := o.cfg.Plans[examType]
	if base == nil {
		base = DefaultPlan(examType)
	}
	if base == nil {
		return nil
	}

	// Copy before applying request overrides.
	plan := &BatchPlan{
		ExamType:    base.ExamType,
		Quota:       make(map[string]int, len(base.Quota)),
		Difficulty:  base.Difficulty,
		RetryRounds: base.RetryRounds,
	}
	for s, n := range base.Quota {
		plan.Quota[s] = n
	}

	if d := intOverride(overrides, "difficulty", 0); d > 0 {
		plan.Difficulty = d
	}
	if r := intOverride(overrides, "retry_rounds", -1); r >= 0 {
		plan.RetryRounds = r
	}
	for _, key := range []string{"subtopic_counts", "subtopic_questions"} {
		raw, ok := overrides[key].(map[string]interface{})
		if !ok || len(raw) == 0 {
			continue
		}
		plan.Quota = make(map[string]int, len(raw))
		for s, v := range raw {
			if n, ok := asCount(v); ok && n > 0 {
				plan.Quota[s] = n
			}
		}
		break
	}
	return plan
}

func dbExamType(examType string) string {
	if examType == "thinking_skills" {
		return "thinking-skills"
	}
	return examType
}

func titleFor(examType string) string {
	switch examType {
	case "thinking_skills":
		return "Thinking Skills"
	case "math":
		return "Mathematics"
	default:
		return examType
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringOverride(m map[string]interface{}, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

func intOverride(m map[string]interface{}, key string, def int) int {
	if n, ok := asCount(m[key]); ok {
		return n
	}
	return def
}

func asCount(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
