package verifier

import "fmt"

const verifierSystemPrompt = `You are a meticulous exam question verifier for NSW Selective School practice exams (Year 6 students). You respond only with JSON arrays, one element per input question, in input order.`

const resultFooter = `Return ONLY a JSON array with one object per question, in the same order as the input. No prose before or after the array.`

func answerPrompt(questionsJSON string) string {
	return fmt.Sprintf(`Independently solve each of the following exam questions. Do NOT look at which choice is marked correct until you have your own answer.

QUESTIONS:
%s

For each question:
1. Solve it from scratch, showing your reasoning.
2. Pick the choice id your solution leads to.
3. Compare with the choice marked "is_correct": true.

Output object per question:
{
  "answer_matches": true/false,
  "confidence": 0.0-1.0,
  "my_answer_choice_id": "<choice id you picked>",
  "my_solution": "<brief solution>",
  "issue": "<description if the marked answer is wrong, else empty>"
}

%s`, questionsJSON, resultFooter)
}

func qualityPrompt(questionsJSON string) string {
	return fmt.Sprintf(`Review each question for quality problems that would make it unsuitable for a selective school exam:
- ambiguous wording or multiple defensible answers
- implausible or obviously wrong distractors
- age-inappropriate content or vocabulary for Year 6
- trivially guessable answers (longest option, odd one out)

QUESTIONS:
%s

Output object per question:
{
  "all_passed": true/false,
  "issues": ["<each quality problem found>"]
}

%s`, questionsJSON, resultFooter)
}

func formatPrompt(questionsJSON string) string {
	return fmt.Sprintf(`Validate the structure and formatting of each question:
- exactly one choice marked correct
- choice texts non-empty and distinct
- no placeholder text ("Option 2", "TODO", "lorem")
- question stem is a complete, well-formed question

QUESTIONS:
%s

Output object per question:
{
  "all_passed": true/false,
  "issues": ["<each formatting problem found>"]
}

%s`, questionsJSON, resultFooter)
}

func explanationPrompt(questionsJSON string) string {
	return fmt.Sprintf(`Check that each question's explanation actually supports its marked correct answer:
- the explanation's reasoning must arrive at the marked choice
- it must not argue for a different choice
- it must address the question actually asked

QUESTIONS:
%s

Output object per question:
{
  "all_passed": true/false,
  "issues": ["<each mismatch found>"]
}

%s`, questionsJSON, resultFooter)
}
