package orchestrator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BatchPlan is the per-exam quota plan the orchestrator executes. Quotas
// are decremented as questions are accepted.
type BatchPlan struct {
	ExamType    string         `yaml:"exam_type" json:"exam_type"`
	Quota       map[string]int `yaml:"quota" json:"quota"`
	Difficulty  int            `yaml:"difficulty" json:"difficulty"`
	RetryRounds int            `yaml:"retry_rounds" json:"retry_rounds"`
}

// Total is the sum of all subtopic quotas.
func (p *BatchPlan) Total() int {
	total := 0
	for _, n := range p.Quota {
		total += n
	}
	return total
}

// DefaultPlan returns the built-in quota plan for an exam type, or nil for
// unsupported types.
func DefaultPlan(examType string) *BatchPlan {
	switch examType {
	case "thinking_skills":
		return &BatchPlan{
			ExamType: examType,
			Quota: map[string]int{
				"analogies":           5,
				"critical_thinking":   5,
				"deduction":           5,
				"inference":           5,
				"logical_reasoning":   5,
				"pattern_recognition": 5,
				"sequencing":          5,
				"spatial_reasoning":   5,
			},
			Difficulty:  3,
			RetryRounds: 2,
		}
	case "math":
		return &BatchPlan{
			ExamType: examType,
			Quota: map[string]int{
				"averages":        3,
				"fractions":       4,
				"geometry":        5,
				"measurement":     4,
				"number_patterns": 3,
				"percentages":     4,
				"probability":     3,
				"problem_solving": 5,
				"ratios":          4,
			},
			Difficulty:  3,
			RetryRounds: 2,
		}
	default:
		return nil
	}
}

// LoadPlans reads per-exam plan overrides from a YAML file keyed by exam
// type. Missing file is not an error; the defaults apply.
func LoadPlans(path string) (map[string]*BatchPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	plans := make(map[string]*BatchPlan)
	if err := yaml.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for examType, p := range plans {
		if p.ExamType == "" {
			p.ExamType = examType
		}
	}
	return plans, nil
}
