// Package generator implements the question generator service: it turns a
// concept selection into a blueprint plus a realized question, and revises
// both when the quality gates send feedback.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nswprep/examgen/internal/a2a"
	"github.com/nswprep/examgen/internal/llm"
	"github.com/nswprep/examgen/internal/models"
)

// Agent generates and revises questions via the LLM.
type Agent struct {
	llm   *llm.Client
	model string
	port  int
}

// NewAgent builds the generator over an LLM client.
func NewAgent(client *llm.Client, model string, port int) *Agent {
	return &Agent{llm: client, model: model, port: port}
}

// Card returns the agent descriptor.
func (a *Agent) Card() a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "QuestionGeneratorAgent",
		Description: "Creates blueprints and generates polished NSW Selective exam questions",
		URL:         a2a.Endpoint{Port: a.port}.BaseURL() + "/",
		Version:     "1.0.0",
		Skills: []a2a.AgentSkill{
			{ID: "generate_question", Name: "Generate Question", Description: "Generate a complete question from a concept selection", Tags: []string{"generation", "question"}},
			{ID: "revise_question", Name: "Revise Question", Description: "Revise a question based on feedback", Tags: []string{"generation", "revision"}},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
}

type generateRequest struct {
	Selection models.ConceptSelection `json:"selection"`
}

type reviseRequest struct {
	Question    models.Question  `json:"question"`
	Blueprint   models.Blueprint `json:"blueprint"`
	Issues      []string         `json:"issues"`
	Suggestions []string         `json:"suggestions"`
}

// GenerateResult is the success payload for both operations.
type GenerateResult struct {
	Success   bool              `json:"success"`
	Blueprint *models.Blueprint `json:"blueprint"`
	Question  *models.Question  `json:"question"`
}

// Handle routes one task.
func (a *Agent) Handle(ctx context.Context, action string, raw json.RawMessage) (interface{}, error) {
	switch action {
	case "generate_question":
		var req generateRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		return a.generate(ctx, &req.Selection), nil
	case "revise_question":
		var req reviseRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		return a.revise(ctx, &req), nil
	default:
		return a2a.UnknownAction(action), nil
	}
}

// genOutput is the shape the prompts ask the model to emit.
type genOutput struct {
	SetupElements          []string              `json:"setup_elements"`
	QuestionStemStructure  string                `json:"question_stem_structure"`
	Constraints            []string              `json:"constraints"`
	CorrectAnswerReasoning string                `json:"correct_answer_reasoning"`
	SolutionSteps          []models.SolutionStep `json:"solution_steps"`
	RequiresImage          bool                  `json:"requires_image"`
	ImageSpec              string                `json:"image_spec"`
	Content                string                `json:"content"`
	QuestionText           string                `json:"question_text"`
	Choices                []genChoice           `json:"choices"`
	Explanation            string                `json:"explanation"`
	Tags                   []string              `json:"tags"`
}

type genChoice struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	Misconception string `json:"misconception"`
}

func (a *Agent) generate(ctx context.Context, sel *models.ConceptSelection) interface{} {
	count := choiceCountFor(sel.Concept.TopicName)

	var out genOutput
	if err := a.llm.GenerateJSON(ctx, a.model, "", buildGenerationPrompt(sel, count), &out); err != nil {
		return a2a.ErrorBody{Success: false, Error: fmt.Sprintf("Failed to generate question: %v", err)}
	}
	if out.QuestionText == "" || len(out.Choices) == 0 {
		return a2a.ErrorBody{Success: false, Error: "Failed to generate question"}
	}

	bp := a.parseBlueprint(&out, &sel.Concept, sel.TargetDifficulty)
	q := parseQuestion(&out, bp, count)
	return GenerateResult{Success: true, Blueprint: bp, Question: q}
}

func (a *Agent) revise(ctx context.Context, req *reviseRequest) interface{} {
	// The incoming question fixes the option count; clamp to the exam's
	// valid counts so a malformed input cannot propagate through revision.
	count := len(req.Question.Choices)
	if count < 4 {
		count = 4
	} else if count > 5 {
		count = 5
	}

	var out genOutput
	prompt := buildRevisionPrompt(&req.Question, &req.Blueprint, req.Issues, req.Suggestions, count)
	if err := a.llm.GenerateJSON(ctx, a.model, "", prompt, &out); err != nil {
		return a2a.ErrorBody{Success: false, Error: fmt.Sprintf("Failed to revise question: %v", err)}
	}
	if out.QuestionText == "" || len(out.Choices) == 0 {
		return a2a.ErrorBody{Success: false, Error: "Failed to revise question"}
	}

	concept := models.AtomicConcept{
		ID:           req.Blueprint.ConceptID,
		Name:         req.Blueprint.ConceptName,
		SubtopicID:   req.Blueprint.SubtopicID,
		SubtopicName: req.Blueprint.SubtopicName,
		TopicID:      req.Blueprint.TopicID,
	}
	bp := a.parseBlueprint(&out, &concept, req.Blueprint.DifficultyTarget)
	bp.RevisionCount = req.Blueprint.RevisionCount + 1

	q := parseQuestion(&out, bp, count)
	return map[string]interface{}{
		"success":        true,
		"blueprint":      bp,
		"question":       q,
		"revision_count": bp.RevisionCount,
	}
}

// choiceCountFor maps the topic onto the exam's mandatory option count:
// mathematics papers use 5 options, thinking skills 4.
func choiceCountFor(topicName string) int {
	if strings.Contains(strings.ToLower(topicName), "math") {
		return 5
	}
	return 4
}

func (a *Agent) parseBlueprint(out *genOutput, concept *models.AtomicConcept, difficulty int) *models.Blueprint {
	var distractors []models.DistractorSpec
	for i, c := range out.Choices {
		if i == 0 {
			continue // first choice is the correct answer
		}
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}
		mis := c.Misconception
		if mis == "" {
			mis = "Plausible but incorrect"
		}
		distractors = append(distractors, models.DistractorSpec{
			ID:            id,
			Misconception: mis,
			ErrorType:     "conceptual",
			TextHint:      c.Text,
		})
	}
	for len(distractors) < 3 {
		distractors = append(distractors, models.DistractorSpec{
			ID:            fmt.Sprintf("%d", len(distractors)+2),
			Misconception: "Plausible but incorrect",
			ErrorType:     "conceptual",
		})
	}

	steps := out.SolutionSteps
	for i := range steps {
		if steps[i].StepNumber == 0 {
			steps[i].StepNumber = i + 1
		}
	}

	var correctValue string
	if len(out.Choices) > 0 {
		correctValue = out.Choices[0].Text
	}

	tags := out.Tags
	if len(tags) == 0 {
		tags = []string{concept.TopicName, concept.SubtopicName}
	}

	return &models.Blueprint{
		ConceptID:              concept.ID,
		ConceptName:            concept.Name,
		SubtopicID:             concept.SubtopicID,
		SubtopicName:           concept.SubtopicName,
		TopicID:                concept.TopicID,
		QuestionType:           models.TypeMultipleChoice,
		TargetSkill:            models.SkillApplication,
		DifficultyTarget:       difficulty,
		SetupElements:          out.SetupElements,
		QuestionStemStructure:  out.QuestionStemStructure,
		Constraints:            out.Constraints,
		CorrectAnswerValue:     correctValue,
		CorrectAnswerReasoning: out.CorrectAnswerReasoning,
		Distractors:            distractors,
		SolutionSteps:          steps,
		RequiresImage:          out.RequiresImage,
		ImageSpec:              out.ImageSpec,
		Tags:                   tags,
	}
}

// parseQuestion realizes the model output into a Question, enforcing the
// first-choice-correct invariant and padding or trimming to the mandatory
// choice count.
func parseQuestion(out *genOutput, bp *models.Blueprint, choiceCount int) *models.Question {
	var choices []models.Choice
	for i, c := range out.Choices {
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}
		choice := models.Choice{
			ID:        id,
			Text:      c.Text,
			IsCorrect: i == 0,
		}
		if i > 0 {
			choice.Misconception = c.Misconception
		}
		choices = append(choices, choice)
	}
	for len(choices) < choiceCount {
		choices = append(choices, models.Choice{
			ID:        fmt.Sprintf("%d", len(choices)+1),
			Text:      fmt.Sprintf("Option %d", len(choices)+1),
			IsCorrect: false,
		})
	}
	// Overlong model output is trimmed from the tail; the correct choice
	// is first and always survives.
	if len(choices) > choiceCount {
		choices = choices[:choiceCount]
	}

	explanation := out.Explanation
	if explanation == "" {
		explanation = "No explanation provided."
	}

	return &models.Question{
		Content:          out.Content,
		Question:         out.QuestionText,
		Choices:          choices,
		Type:             string(models.TypeMultipleChoice),
		Explanation:      explanation,
		Difficulty:       fmt.Sprintf("%d", bp.DifficultyTarget),
		TopicID:          bp.TopicID,
		SubtopicID:       bp.SubtopicID,
		SubtopicName:     bp.SubtopicName,
		RequiresImage:    bp.RequiresImage,
		ImageDescription: bp.ImageSpec,
		Tags:             bp.Tags,
	}
}
