package models

// JudgmentStatus is the quality judge's verdict on a question.
type JudgmentStatus string

const (
	StatusAccepted      JudgmentStatus = "accepted"
	StatusRejected      JudgmentStatus = "rejected"
	StatusNeedsRevision JudgmentStatus = "needs_revision"
)

// Severity grades a vulnerability found during the adversarial pass.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

// Vulnerability is one exploit found in a question: a shortcut, an
// elimination path, a weak distractor, an ambiguity, or a too-easy signal.
type Vulnerability struct {
	Type            string   `json:"type"`
	Severity        Severity `json:"severity"`
	Description     string   `json:"description"`
	AffectedOptions []string `json:"affected_options,omitempty"`
}

// DifficultyAssessment is the judge's honesty check on whether a question
// is genuinely hard enough for its target.
type DifficultyAssessment struct {
	IsTooEasy             bool     `json:"is_too_easy"`
	ReasonsTooEasy        []string `json:"reasons_too_easy,omitempty"`
	NumTemptingWrong      int      `json:"num_tempting_wrong_answers,omitempty"`
	EstimatedYear6Success string   `json:"estimated_year6_success_rate,omitempty"`
}

// JudgmentScores carries the numeric quality axes.
type JudgmentScores struct {
	Clarity          float64 `json:"clarity"`
	DifficultyMatch  bool    `json:"difficulty_match"`
	ActualDifficulty int     `json:"actual_difficulty"`
	Alignment        float64 `json:"alignment"`
}

// Solution records how the judge solved the question.
type Solution struct {
	Steps            []map[string]interface{} `json:"steps"`
	SelectedAnswerID string                   `json:"selected_answer_id"`
	Confidence       float64                  `json:"confidence"`
}

// Judgment is the quality judge's complete structured verdict.
type Judgment struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Accepted bool           `json:"accepted"`
	Status   JudgmentStatus `json:"status"`

	Solution        *Solution       `json:"solution,omitempty"`
	AnswerMatches   bool            `json:"answer_matches"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities,omitempty"`
	CanShortcut     bool            `json:"can_shortcut"`
	VulnScore       float64         `json:"vulnerability_score"`
	Scores          *JudgmentScores `json:"scores,omitempty"`

	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// PipelineResult is the outcome of one end-to-end question pipeline.
type PipelineResult struct {
	Accepted      bool      `json:"accepted"`
	Question      *Question `json:"question,omitempty"`
	ConceptID     string    `json:"concept_id,omitempty"`
	RevisionCount int       `json:"revision_count"`
	Judgment      *Judgment `json:"judgment,omitempty"`
	Errors        []string  `json:"errors"`
}
