package models

// QuestionType mirrors the question-bank type column.
type QuestionType string

const (
	TypeMultipleChoice   QuestionType = "multiple-choice"
	TypeMCQWithImages    QuestionType = "multiple-choice-with-images"
	TypeDragAndDrop      QuestionType = "drag-and-drop"
	TypeMultiSubquestion QuestionType = "multi-subquestion"
	TypeCloze            QuestionType = "cloze"
	TypeWriting          QuestionType = "writing"
)

// TargetSkill is the cognitive skill a blueprint aims at.
type TargetSkill string

const (
	SkillRecall      TargetSkill = "recall"
	SkillApplication TargetSkill = "application"
	SkillTransfer    TargetSkill = "transfer"
	SkillAnalysis    TargetSkill = "analysis"
)

// DistractorSpec describes one wrong answer and the misconception that
// leads a student to it.
type DistractorSpec struct {
	ID            string `json:"id"`
	Misconception string `json:"misconception"`
	ErrorType     string `json:"error_type"`
	TextHint      string `json:"text_hint,omitempty"`
}

// SolutionStep is one step of a blueprint's intended solution path.
type SolutionStep struct {
	StepNumber  int    `json:"step_number"`
	Description string `json:"description"`
	Reasoning   string `json:"reasoning"`
}

// Blueprint is the structured plan for a question before surface
// realization. The generator builds it, the judge reads it, and the
// revision loop carries it forward with an incremented RevisionCount.
type Blueprint struct {
	ConceptID    string `json:"concept_id"`
	ConceptName  string `json:"concept_name"`
	SubtopicID   string `json:"subtopic_id"`
	SubtopicName string `json:"subtopic_name"`
	TopicID      string `json:"topic_id"`

	QuestionType     QuestionType `json:"question_type"`
	TargetSkill      TargetSkill  `json:"target_skill"`
	DifficultyTarget int          `json:"difficulty_target"`

	SetupElements         []string `json:"setup_elements"`
	QuestionStemStructure string   `json:"question_stem_structure"`
	Constraints           []string `json:"constraints"`

	CorrectAnswerValue     string `json:"correct_answer_value"`
	CorrectAnswerReasoning string `json:"correct_answer_reasoning"`

	Distractors   []DistractorSpec `json:"distractors"`
	SolutionSteps []SolutionStep   `json:"solution_steps"`

	RequiresImage bool   `json:"requires_image"`
	ImageSpec     string `json:"image_spec,omitempty"`

	Tags          []string `json:"tags"`
	RevisionCount int      `json:"revision_count"`
}
