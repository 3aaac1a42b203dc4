package conceptguide

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nswprep/examgen/internal/a2a"
	"github.com/nswprep/examgen/internal/models"
)

// Agent exposes the registry over the task endpoint.
type Agent struct {
	registry *Registry
	port     int
}

// NewAgent wraps a registry for serving on the given port.
func NewAgent(registry *Registry, port int) *Agent {
	return &Agent{registry: registry, port: port}
}

// Card returns the agent descriptor.
func (a *Agent) Card() a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "ConceptGuideAgent",
		Description: "Provides atomic concepts for question generation from the custom guide",
		URL:         a2a.Endpoint{Port: a.port}.BaseURL() + "/",
		Version:     "1.0.0",
		Skills: []a2a.AgentSkill{
			{ID: "get_concepts", Name: "Get Concepts", Description: "Get all concepts for a subtopic", Tags: []string{"concepts", "curriculum"}},
			{ID: "select_concept", Name: "Select Concept", Description: "Select a concept appropriate for the target difficulty", Tags: []string{"concepts", "selection"}},
			{ID: "list_subtopics", Name: "List Subtopics", Description: "List available subtopics with concept counts", Tags: []string{"concepts", "info"}},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
}

type selectRequest struct {
	Subtopic   string   `json:"subtopic"`
	Difficulty int      `json:"difficulty"`
	ExcludeIDs []string `json:"exclude_ids"`
}

type getConceptsRequest struct {
	Subtopic string `json:"subtopic"`
}

// Handle routes one task to the registry.
func (a *Agent) Handle(ctx context.Context, action string, raw json.RawMessage) (interface{}, error) {
	switch action {
	case "list_subtopics":
		return a.listSubtopics(), nil
	case "get_concepts":
		var req getConceptsRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		return a.getConcepts(req.Subtopic), nil
	case "select_concept":
		req := selectRequest{Difficulty: 3}
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		return a.selectConcept(req), nil
	default:
		return a2a.UnknownAction(action), nil
	}
}

func (a *Agent) selectConcept(req selectRequest) interface{} {
	selection, err := a.registry.Select(req.Subtopic, req.Difficulty, req.ExcludeIDs)
	if err != nil {
		if errors.Is(err, errNoEligible) {
			return a2a.ErrorBody{Success: false, Error: "no_eligible"}
		}
		return a2a.ErrorBody{Success: false, Error: err.Error()}
	}
	return map[string]interface{}{
		"success":   true,
		"selection": selection,
	}
}

func (a *Agent) getConcepts(subtopic string) interface{} {
	if subtopic != "" {
		graph := a.registry.Graph(subtopic)
		if graph == nil {
			return map[string]interface{}{
				"success":   false,
				"error":     "Unknown subtopic: " + subtopic,
				"available": a.registry.Subtopics(),
			}
		}
		return map[string]interface{}{
			"success":       true,
			"subtopic":      subtopic,
			"subtopic_id":   graph.SubtopicID,
			"subtopic_name": graph.SubtopicName,
			"concept_count": len(graph.Concepts),
			"concepts":      graph.Concepts,
		}
	}

	var all []models.AtomicConcept
	for _, key := range a.registry.Subtopics() {
		all = append(all, a.registry.Graph(key).Concepts...)
	}
	return map[string]interface{}{
		"success":        true,
		"total_concepts": len(all),
		"concepts":       all,
	}
}

type subtopicInfo struct {
	Key             string         `json:"key"`
	SubtopicID      string         `json:"subtopic_id"`
	SubtopicName    string         `json:"subtopic_name"`
	TopicName       string         `json:"topic_name"`
	ConceptCount    int            `json:"concept_count"`
	DifficultyRange map[string]int `json:"difficulty_range"`
}

func (a *Agent) listSubtopics() interface{} {
	var subtopics []subtopicInfo
	total := 0
	for _, key := range a.registry.Subtopics() {
		graph := a.registry.Graph(key)
		minD, maxD := 1, 3
		if len(graph.Concepts) > 0 {
			minD, maxD = graph.Concepts[0].DifficultyMin, graph.Concepts[0].DifficultyMax
			for _, c := range graph.Concepts[1:] {
				if c.DifficultyMin < minD {
					minD = c.DifficultyMin
				}
				if c.DifficultyMax > maxD {
					maxD = c.DifficultyMax
				}
			}
		}
		subtopics = append(subtopics, subtopicInfo{
			Key:             key,
			SubtopicID:      graph.SubtopicID,
			SubtopicName:    graph.SubtopicName,
			TopicName:       graph.TopicName,
			ConceptCount:    len(graph.Concepts),
			DifficultyRange: map[string]int{"min": minD, "max": maxD},
		})
		total += len(graph.Concepts)
	}
	return map[string]interface{}{
		"success":         true,
		"subtopics":       subtopics,
		"total_subtopics": len(subtopics),
		"total_concepts":  total,
	}
}
