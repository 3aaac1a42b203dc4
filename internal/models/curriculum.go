// Package models defines the wire-level data structures shared by the
// examgen services: concepts, blueprints, questions, judgments, and
// verification results. All JSON field names match the question-bank schema.
package models

// BloomLevel names a level of Bloom's taxonomy for cognitive skills.
type BloomLevel string

const (
	BloomRecall        BloomLevel = "recall"
	BloomComprehension BloomLevel = "comprehension"
	BloomApplication   BloomLevel = "application"
	BloomAnalysis      BloomLevel = "analysis"
	BloomSynthesis     BloomLevel = "synthesis"
	BloomEvaluation    BloomLevel = "evaluation"
)

// AtomicConcept is the smallest testable unit of subject matter. Concepts
// are immutable after the registry loads them.
type AtomicConcept struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	SubtopicID   string `json:"subtopic_id"`
	SubtopicName string `json:"subtopic_name"`
	TopicID      string `json:"topic_id"`
	TopicName    string `json:"topic_name"`

	// Difficulty window this concept can be tested at, 1..3 inclusive.
	DifficultyMin int `json:"difficulty_min"`
	DifficultyMax int `json:"difficulty_max"`

	BloomLevels []BloomLevel `json:"bloom_levels"`

	CommonMisconceptions []string `json:"common_misconceptions"`
	QuestionPatterns     []string `json:"question_patterns"`
	ExampleStems         []string `json:"example_stems,omitempty"`

	TypicallyRequiresImage bool     `json:"typically_requires_image"`
	ImageTypes             []string `json:"image_types,omitempty"`
}

// HasBloomLevel reports whether the concept can be tested at the given level.
func (c *AtomicConcept) HasBloomLevel(level BloomLevel) bool {
	for _, b := range c.BloomLevels {
		if b == level {
			return true
		}
	}
	return false
}

// ConceptGraph is one subtopic's catalog of concepts.
type ConceptGraph struct {
	SubtopicID   string          `json:"subtopic_id"`
	SubtopicName string          `json:"subtopic_name"`
	TopicID      string          `json:"topic_id"`
	TopicName    string          `json:"topic_name"`
	Concepts     []AtomicConcept `json:"concepts"`
}

// ConceptSelection is the registry's answer to a selection request: the
// chosen concept plus the targets the generator should aim for.
type ConceptSelection struct {
	Concept          AtomicConcept `json:"concept"`
	TargetDifficulty int           `json:"target_difficulty"`
	TargetBloomLevel BloomLevel    `json:"target_bloom_level"`

	// At most three misconceptions, in catalog order, used as distractor seeds.
	SelectedMisconceptions []string `json:"selected_misconceptions"`
	SelectedPattern        string   `json:"selected_pattern,omitempty"`
}
