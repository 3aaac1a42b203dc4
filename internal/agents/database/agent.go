// Package database exposes the question-bank store over the task
// protocol.
package database

import (
	"context"
	"encoding/json"

	"github.com/nswprep/examgen/internal/a2a"
	"github.com/nswprep/examgen/internal/logging"
	"github.com/nswprep/examgen/internal/models"
	"github.com/nswprep/examgen/internal/store"
)

// Store is what the agent needs from the persistence layer. Satisfied by
// store.Store.
type Store interface {
	InsertQuestions(ctx context.Context, questions []models.Question) (*store.InsertOutcome, error)
	CreateExam(ctx context.Context, exam store.ExamRecord, questionIDs []string) (string, error)
	GetSubtopics(ctx context.Context, topicID string) ([]store.Subtopic, error)
}

// Agent handles PostgreSQL operations for questions and exams.
type Agent struct {
	store Store
	port  int
	log   *logging.Logger
}

// NewAgent builds a database agent over a store.
func NewAgent(st Store, port int) *Agent {
	return &Agent{
		store: st,
		port:  port,
		log:   logging.Global().WithComponent("DatabaseAgent"),
	}
}

// Card returns the agent descriptor.
func (a *Agent) Card() a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "DatabaseAgent",
		Description: "Handles PostgreSQL operations for questions and exams",
		URL:         a2a.Endpoint{Port: a.port}.BaseURL() + "/",
		Version:     "1.0.0",
		Skills: []a2a.AgentSkill{
			{ID: "insert_questions", Name: "Insert Questions", Description: "Insert questions into the questionbank", Tags: []string{"database", "insert"}},
			{ID: "create_exam", Name: "Create Exam", Description: "Create an exam record and link questions", Tags: []string{"database", "exam"}},
			{ID: "get_subtopics", Name: "Get Subtopics", Description: "Fetch subtopics for a topic", Tags: []string{"database", "query"}},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
}

type taskRequest struct {
	Questions   []models.Question `json:"questions"`
	Exam        store.ExamRecord  `json:"exam"`
	QuestionIDs []string          `json:"question_ids"`
	TopicID     string            `json:"topic_id"`
}

// Handle routes one task. Database trouble is reported in-band as
// success:false.
func (a *Agent) Handle(ctx context.Context, action string, raw json.RawMessage) (interface{}, error) {
	var req taskRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	switch action {
	case "insert_questions":
		return a.insertQuestions(ctx, req.Questions), nil
	case "create_exam":
		return a.createExam(ctx, req.Exam, req.QuestionIDs), nil
	case "get_subtopics":
		return a.getSubtopics(ctx, req.TopicID), nil
	default:
		return a2a.UnknownAction(action), nil
	}
}

// InsertResult is the insert_questions response body.
type InsertResult struct {
	Success       bool                `json:"success"`
	InsertedCount int                 `json:"inserted_count"`
	InsertedIDs   []string            `json:"inserted_ids"`
	Errors        []store.InsertError `json:"errors"`
}

func (a *Agent) insertQuestions(ctx context.Context, questions []models.Question) interface{} {
	outcome, err := a.store.InsertQuestions(ctx, questions)
	if err != nil {
		a.log.Error("insert failed: %v", err)
		return a2a.ErrorBody{Success: false, Error: err.Error()}
	}
	a.log.Info("inserted %d question(s), %d error(s)", len(outcome.InsertedIDs), len(outcome.Errors))
	return &InsertResult{
		Success:       len(outcome.Errors) == 0,
		InsertedCount: len(outcome.InsertedIDs),
		InsertedIDs:   outcome.InsertedIDs,
		Errors:        outcome.Errors,
	}
}

// ExamResult is the create_exam response body.
type ExamResult struct {
	Success         bool   `json:"success"`
	ExamID          string `json:"exam_id"`
	ExamCode        string `json:"exam_code"`
	QuestionsLinked int    `json:"questions_linked"`
}

func (a *Agent) createExam(ctx context.Context, exam store.ExamRecord, questionIDs []string) interface{} {
	examID, err := a.store.CreateExam(ctx, exam, questionIDs)
	if err != nil {
		a.log.Error("create exam failed: %v", err)
		return a2a.ErrorBody{Success: false, Error: err.Error()}
	}
	a.log.Info("created exam %s with %d question(s)", examID, len(questionIDs))
	return &ExamResult{
		Success:         true,
		ExamID:          examID,
		ExamCode:        exam.Code,
		QuestionsLinked: len(questionIDs),
	}
}

// SubtopicsResult is the get_subtopics response body.
type SubtopicsResult struct {
	Success   bool             `json:"success"`
	Subtopics []store.Subtopic `json:"subtopics"`
	Count     int              `json:"count"`
}

func (a *Agent) getSubtopics(ctx context.Context, topicID string) interface{} {
	subtopics, err := a.store.GetSubtopics(ctx, topicID)
	if err != nil {
		return a2a.ErrorBody{Success: false, Error: err.Error()}
	}
	if subtopics == nil {
		subtopics = []store.Subtopic{}
	}
	return &SubtopicsResult{Success: true, Subtopics: subtopics, Count: len(subtopics)}
}
