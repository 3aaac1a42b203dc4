package orchestrator

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Router builds the REST surface that fronts the agent fleet for web
// clients. Batch responses are always HTTP 200; failures are reported in
// the body.
func (o *Orchestrator) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", o.handleHealth)
	r.Get("/agents", o.handleAgents)
	r.Post("/api/exams/generate", o.handleGenerateExam)
	r.Post("/api/exams/thinking-skills", o.handleGenerateTyped("thinking_skills"))
	r.Post("/api/exams/math", o.handleGenerateTyped("math"))
	r.Get("/api/concepts", o.handleConcepts)
	r.Get("/api/concepts/{subtopic}", o.handleConceptsBySubtopic)
	r.Post("/api/questions/single", o.handleSingleQuestion)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (o *Orchestrator) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "orchestrator"})
}

func (o *Orchestrator) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, o.CheckAgents(r.Context()))
}

type generateBody struct {
	ExamType string                 `json:"exam_type"`
	Config   map[string]interface{} `json:"config"`
}

func (o *Orchestrator) handleGenerateExam(w http.ResponseWriter, r *http.Request) {
	body := generateBody{ExamType: "thinking_skills"}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}
	writeJSON(w, http.StatusOK, o.GenerateExam(r.Context(), body.ExamType, body.Config))
}

func (o *Orchestrator) handleGenerateTyped(examType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body generateBody
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&body)
		}
		writeJSON(w, http.StatusOK, o.GenerateExam(r.Context(), examType, body.Config))
	}
}

func (o *Orchestrator) handleConcepts(w http.ResponseWriter, r *http.Request) {
	raw, err := o.client.SendTask(r.Context(), o.peers.ConceptGuide, "ConceptGuide",
		map[string]interface{}{"action": "list_subtopics"})
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func (o *Orchestrator) handleConceptsBySubtopic(w http.ResponseWriter, r *http.Request) {
	raw, err := o.client.SendTask(r.Context(), o.peers.ConceptGuide, "ConceptGuide",
		map[string]interface{}{"action": "get_concepts", "subtopic": chi.URLParam(r, "subtopic")})
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

type singleQuestionBody struct {
	Subtopic   string `json:"subtopic"`
	Difficulty int    `json:"difficulty"`
}

func (o *Orchestrator) handleSingleQuestion(w http.ResponseWriter, r *http.Request) {
	body := singleQuestionBody{Difficulty: 3}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}
	if body.Subtopic == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": "subtopic is required"})
		return
	}
	res := o.runner.GenerateQuestion(r.Context(), body.Subtopic, body.Difficulty, nil)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        res.Accepted,
		"question":       res.Question,
		"revision_count": res.RevisionCount,
		"errors":         res.Errors,
	})
}
