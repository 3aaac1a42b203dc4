package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nswprep/examgen/internal/models"
	"github.com/nswprep/examgen/internal/store"
)

type fakeStore struct {
	insertOutcome *store.InsertOutcome
	insertErr     error
	examID        string
	examErr       error
	subtopics     []store.Subtopic

	lastQuestions   []models.Question
	lastExam        store.ExamRecord
	lastQuestionIDs []string
}

func (f *fakeStore) InsertQuestions(ctx context.Context, questions []models.Question) (*store.InsertOutcome, error) {
	f.lastQuestions = questions
	return f.insertOutcome, f.insertErr
}

func (f *fakeStore) CreateExam(ctx context.Context, exam store.ExamRecord, questionIDs []string) (string, error) {
	f.lastExam = exam
	f.lastQuestionIDs = questionIDs
	return f.examID, f.examErr
}

func (f *fakeStore) GetSubtopics(ctx context.Context, topicID string) ([]store.Subtopic, error) {
	return f.subtopics, nil
}

func TestInsertQuestions(t *testing.T) {
	fs := &fakeStore{insertOutcome: &store.InsertOutcome{
		InsertedIDs: []string{"id-1", "id-2"},
		Errors:      []store.InsertError{},
	}}
	agent := NewAgent(fs, 5003)

	payload, _ := json.Marshal(map[string]interface{}{
		"action": "insert_questions",
		"questions": []models.Question{
			{Question: "q1", Type: "multiple-choice"},
			{Question: "q2", Type: "multiple-choice"},
		},
	})
	out, err := agent.Handle(context.Background(), "insert_questions", json.RawMessage(payload))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	res, ok := out.(*InsertResult)
	if !ok {
		t.Fatalf("unexpected type %T", out)
	}
	if !res.Success || res.InsertedCount != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(fs.lastQuestions) != 2 {
		t.Fatalf("store received %d questions", len(fs.lastQuestions))
	}
}

func TestInsertQuestionsPartialFailure(t *testing.T) {
	fs := &fakeStore{insertOutcome: &store.InsertOutcome{
		InsertedIDs: []string{"id-1"},
		Errors:      []store.InsertError{{Question: "q2", Error: "bad row"}},
	}}
	agent := NewAgent(fs, 5003)

	out, _ := agent.Handle(context.Background(), "insert_questions",
		json.RawMessage(`{"action":"insert_questions","questions":[{"question":"q1"},{"question":"q2"}]}`))
	res := out.(*InsertResult)
	if res.Success {
		t.Fatal("partial failure must report success:false")
	}
	if res.InsertedCount != 1 || len(res.Errors) != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestInsertQuestionsStoreDown(t *testing.T) {
	fs := &fakeStore{insertErr: errors.New("connection refused")}
	agent := NewAgent(fs, 5003)

	out, err := agent.Handle(context.Background(), "insert_questions",
		json.RawMessage(`{"action":"insert_questions","questions":[]}`))
	if err != nil {
		t.Fatalf("store trouble must stay in-band, got %v", err)
	}
	data, _ := json.Marshal(out)
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	json.Unmarshal(data, &resp)
	if resp.Success || resp.Error == "" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestCreateExam(t *testing.T) {
	fs := &fakeStore{examID: "exam-uuid"}
	agent := NewAgent(fs, 5003)

	payload := `{
		"action": "create_exam",
		"exam": {"code": "THINK-20250101-0900", "name": "Test", "type": "thinking-skills", "time_limit": 45},
		"question_ids": ["a", "b", "c"]
	}`
	out, err := agent.Handle(context.Background(), "create_exam", json.RawMessage(payload))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	res := out.(*ExamResult)
	if !res.Success || res.ExamID != "exam-uuid" || res.QuestionsLinked != 3 {
		t.Fatalf("result = %+v", res)
	}
	if fs.lastExam.Code != "THINK-20250101-0900" || len(fs.lastQuestionIDs) != 3 {
		t.Fatalf("store received exam=%+v ids=%v", fs.lastExam, fs.lastQuestionIDs)
	}
}

func TestGetSubtopics(t *testing.T) {
	fs := &fakeStore{subtopics: []store.Subtopic{
		{ID: "s1", Name: "analogies"},
		{ID: "s2", Name: "deduction"},
	}}
	agent := NewAgent(fs, 5003)

	out, err := agent.Handle(context.Background(), "get_subtopics", json.RawMessage(`{"action":"get_subtopics"}`))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	res := out.(*SubtopicsResult)
	if !res.Success || res.Count != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestUnknownAction(t *testing.T) {
	agent := NewAgent(&fakeStore{}, 5003)
	out, err := agent.Handle(context.Background(), "drop_tables", json.RawMessage(`{"action":"drop_tables"}`))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	data, _ := json.Marshal(out)
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	json.Unmarshal(data, &resp)
	if resp.Success || resp.Error != "Unknown action: drop_tables" {
		t.Fatalf("resp = %+v", resp)
	}
}
