package models

// VerificationStatus is the verifier's pass/fail call on one question.
type VerificationStatus string

const (
	VerifyPass VerificationStatus = "pass"
	VerifyFail VerificationStatus = "fail"
)

// VerificationIssue is one problem found during question verification.
type VerificationIssue struct {
	Category   string `json:"category"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// QuestionVerification is the verifier's result for a single question.
type QuestionVerification struct {
	QuestionID   string             `json:"question_id,omitempty"`
	QuestionText string             `json:"question_text"`
	Status       VerificationStatus `json:"status"`

	AnswerCorrect         bool    `json:"answer_correct"`
	AnswerConfidence      float64 `json:"answer_confidence"`
	VerifiedCorrectChoice string  `json:"verified_correct_choice,omitempty"`

	QualityOK     bool `json:"quality_ok"`
	FormatOK      bool `json:"format_ok"`
	ExplanationOK bool `json:"explanation_ok"`

	Issues []VerificationIssue `json:"issues"`
}

// Passed reports whether the question cleared every check.
func (v QuestionVerification) Passed() bool {
	return v.Status == VerifyPass
}

// BatchVerificationResult summarizes verification over a batch.
type BatchVerificationResult struct {
	TotalQuestions int                    `json:"total_questions"`
	Passed         int                    `json:"passed"`
	Failed         int                    `json:"failed"`
	Questions      []QuestionVerification `json:"questions"`
}

// PassRate is the fraction of the batch that passed.
func (b BatchVerificationResult) PassRate() float64 {
	if b.TotalQuestions == 0 {
		return 0
	}
	return float64(b.Passed) / float64(b.TotalQuestions)
}
