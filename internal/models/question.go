package models

import "fmt"

// Choice is the universal choice record; which fields are populated
// depends on the question type.
//
// MCQ: ID, Text, IsCorrect (bool).
// Drag-and-drop: ID, Text, CorrectPosition (1-indexed, nil = distractor).
// Cloze: ID, Options (exactly 4), IsCorrect (0-based index into Options).
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`

	// IsCorrect is a bool for MCQ and a 0-3 int for cloze blanks.
	IsCorrect interface{} `json:"is_correct,omitempty"`

	Misconception   string   `json:"misconception,omitempty"`
	CorrectPosition *int     `json:"correct_position,omitempty"`
	Options         []string `json:"options,omitempty"`
}

// CorrectBool reports whether an MCQ choice is marked correct.
func (c Choice) CorrectBool() bool {
	b, ok := c.IsCorrect.(bool)
	return ok && b
}

// Question is the presentation artifact accepted by the pipeline and
// persisted to the question bank.
type Question struct {
	ID string `json:"id"`

	Content     string `json:"content,omitempty"`
	Question    string `json:"question"`
	Explanation string `json:"explanation"`

	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`

	TopicID      string   `json:"topic_id,omitempty"`
	SubtopicID   string   `json:"subtopic_id,omitempty"`
	SubtopicIDs  []string `json:"subtopic_ids,omitempty"`
	SubtopicName string   `json:"subtopic_name"`

	Choices []Choice `json:"choices"`

	RequiresImage    bool   `json:"requires_image"`
	ImageDescription string `json:"image_description,omitempty"`
	ImageURL         string `json:"image_url,omitempty"`

	Tags     []string `json:"tags"`
	Showup   bool     `json:"showup"`
	IsActive bool     `json:"is_active"`
}

// CorrectChoice returns the MCQ choice marked correct, or nil.
func (q *Question) CorrectChoice() *Choice {
	for i := range q.Choices {
		if q.Choices[i].CorrectBool() {
			return &q.Choices[i]
		}
	}
	return nil
}

// Validate checks the structural invariants for the question's type.
func (q *Question) Validate() []string {
	var errs []string
	if q.Question == "" {
		errs = append(errs, "question text is required")
	}

	switch QuestionType(q.Type) {
	case TypeMultipleChoice, TypeMCQWithImages:
		errs = append(errs, q.validateMCQ()...)
	case TypeDragAndDrop:
		errs = append(errs, q.validateDragDrop()...)
	case TypeCloze:
		errs = append(errs, q.validateCloze()...)
	}
	return errs
}

func (q *Question) validateMCQ() []string {
	var errs []string
	if len(q.Choices) < 2 {
		errs = append(errs, "at least 2 choices required")
		return errs
	}
	correct := 0
	for _, c := range q.Choices {
		if c.CorrectBool() {
			correct++
		}
	}
	if correct != 1 {
		errs = append(errs, fmt.Sprintf("exactly one correct answer required, found %d", correct))
	}
	return errs
}

func (q *Question) validateDragDrop() []string {
	var errs []string
	positioned := make([]int, 0, len(q.Choices))
	for _, c := range q.Choices {
		if c.CorrectPosition != nil {
			positioned = append(positioned, *c.CorrectPosition)
		}
	}
	if len(positioned) < 2 {
		errs = append(errs, "at least 2 items with positions required")
		return errs
	}
	// Positions must be a permutation of 1..k.
	seen := make(map[int]bool, len(positioned))
	for _, p := range positioned {
		if p < 1 || p > len(positioned) || seen[p] {
			errs = append(errs, fmt.Sprintf("positions must be a permutation of 1..%d", len(positioned)))
			return errs
		}
		seen[p] = true
	}
	return errs
}

func (q *Question) validateCloze() []string {
	var errs []string
	if len(q.Choices) == 0 {
		errs = append(errs, "at least one blank required")
		return errs
	}
	for i, c := range q.Choices {
		if len(c.Options) != 4 {
			errs = append(errs, fmt.Sprintf("blank %d must have exactly 4 options", i+1))
		}
		idx, ok := asInt(c.IsCorrect)
		if !ok || idx < 0 || idx > 3 {
			errs = append(errs, fmt.Sprintf("blank %d is_correct must be 0-3", i+1))
		}
	}
	return errs
}

// asInt accepts the numeric forms JSON decoding can produce.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
