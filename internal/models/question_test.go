package models

import (
	"encoding/json"
	"testing"
)

func intPtr(i int) *int { return &i }

func TestValidateMCQ(t *testing.T) {
	q := &Question{
		Type:     string(TypeMultipleChoice),
		Question: "Which number comes next?",
		Choices: []Choice{
			{ID: "1", Text: "13", IsCorrect: true},
			{ID: "2", Text: "12", IsCorrect: false},
			{ID: "3", Text: "15", IsCorrect: false},
			{ID: "4", Text: "11", IsCorrect: false},
		},
	}
	if errs := q.Validate(); len(errs) != 0 {
		t.Fatalf("expected valid MCQ, got %v", errs)
	}

	q.Choices[1].IsCorrect = true
	if errs := q.Validate(); len(errs) == 0 {
		t.Fatal("expected error for two correct choices")
	}
}

func TestValidateMCQAfterJSONRoundTrip(t *testing.T) {
	// JSON decoding turns IsCorrect into untyped interface values; the
	// validator must still recognize them.
	raw := `{"question":"q","type":"multiple-choice","choices":[
		{"id":"1","text":"a","is_correct":true},
		{"id":"2","text":"b","is_correct":false},
		{"id":"3","text":"c","is_correct":false},
		{"id":"4","text":"d","is_correct":false}]}`
	var q Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if errs := q.Validate(); len(errs) != 0 {
		t.Fatalf("expected valid, got %v", errs)
	}
	cc := q.CorrectChoice()
	if cc == nil || cc.ID != "1" {
		t.Fatalf("CorrectChoice = %+v", cc)
	}
}

func TestValidateDragDropPermutation(t *testing.T) {
	q := &Question{
		Type:     string(TypeDragAndDrop),
		Question: "Order the events",
		Choices: []Choice{
			{ID: "1", Text: "a", CorrectPosition: intPtr(2)},
			{ID: "2", Text: "b", CorrectPosition: intPtr(1)},
			{ID: "3", Text: "c", CorrectPosition: intPtr(3)},
		},
	}
	if errs := q.Validate(); len(errs) != 0 {
		t.Fatalf("expected valid ordering, got %v", errs)
	}

	// Duplicate position breaks the permutation.
	q.Choices[2].CorrectPosition = intPtr(1)
	if errs := q.Validate(); len(errs) == 0 {
		t.Fatal("expected permutation error")
	}
}

func TestValidateCloze(t *testing.T) {
	q := &Question{
		Type:     string(TypeCloze),
		Question: "Fill the blanks",
		Choices: []Choice{
			{ID: "1", Options: []string{"a", "b", "c", "d"}, IsCorrect: 2},
		},
	}
	if errs := q.Validate(); len(errs) != 0 {
		t.Fatalf("expected valid cloze, got %v", errs)
	}

	q.Choices[0].Options = []string{"a", "b"}
	if errs := q.Validate(); len(errs) == 0 {
		t.Fatal("expected option-count error")
	}

	q.Choices[0].Options = []string{"a", "b", "c", "d"}
	q.Choices[0].IsCorrect = 7
	if errs := q.Validate(); len(errs) == 0 {
		t.Fatal("expected index-range error")
	}
}

func TestHasBloomLevel(t *testing.T) {
	c := AtomicConcept{BloomLevels: []BloomLevel{BloomApplication, BloomAnalysis}}
	if !c.HasBloomLevel(BloomAnalysis) {
		t.Error("expected analysis present")
	}
	if c.HasBloomLevel(BloomRecall) {
		t.Error("did not expect recall")
	}
}
