package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nswprep/examgen/internal/models"
)

var difficultyDesc = map[int]string{
	1: "EASY - straightforward, 1-2 steps",
	2: "MEDIUM - requires careful thinking, 2-3 steps",
	3: "EXTREMELY HARD - only top 5% of Year 6 students should answer correctly",
}

const hardRequirements = `
## CRITICAL: MAKE THIS QUESTION GENUINELY DIFFICULT

This is for the NSW Selective Schools exam - a competitive test where only the TOP 5% of students
are selected. Your question must be GENUINELY CHALLENGING, not a straightforward problem.

### Difficulty Requirements (ALL must be met):
1. **Multi-step reasoning**: Require 4+ distinct logical steps that CANNOT be skipped
2. **Hidden complexity**: The answer should NOT be obvious even after reading carefully
3. **Trap answers**: At least 2 wrong answers must seem very plausible and require careful analysis to eliminate
4. **No pattern matching**: Cannot be solved by recognizing a simple pattern or formula
5. **Requires insight**: Student must notice something non-obvious or make a creative connection
6. **Information overload**: Include 4-5 pieces of information where not all are directly relevant
7. **Counter-intuitive**: The correct answer should surprise students who rush

### What makes a question TOO EASY (AVOID these):
- Can be solved in 1-2 obvious steps
- Correct answer is clearly different from wrong answers
- Simple application of a single rule or formula
- Wrong answers are obviously wrong
- Pattern is immediately visible
- Reading comprehension is the main challenge (not reasoning)

### Examples of HARD question techniques:
- Nested conditionals: "If A then B, but only when C is not true, unless D..."
- Exceptions to rules: Give a rule, then add an exception that changes the answer
- Irrelevant information: Include facts that seem important but aren't needed
- Order matters: Require tracking multiple changes in sequence
- Contrapositive reasoning: Require students to think about what must be FALSE
- Multiple valid-looking paths: Several approaches seem right but only one works
`

const australianContext = `
## AUSTRALIAN CONTEXT (MANDATORY)
- Use AUSTRALIAN ENGLISH spelling: colour, favourite, organisation, travelled, centre, metre, litre, programme
- All locations MUST be Australian: Sydney, Melbourne, Brisbane, Perth, Adelaide, Canberra, Hobart, Darwin
- Use Australian suburbs: Parramatta, Bondi, St Kilda, Surry Hills, Manly, Fremantle, Paddington
- Australian schools: use names like "Northwood Primary", "Riverside Public School", "St Mary's College"
- Australian currency: dollars and cents ($, AUD)
- Australian seasons: Summer (Dec-Feb), Autumn (Mar-May), Winter (Jun-Aug), Spring (Sep-Nov)
- Australian animals/plants when relevant: kangaroo, koala, platypus, wombat, eucalyptus, banksia
- Australian sports: cricket, AFL, rugby league, netball, swimming
- NO American references: no "favorite", "color", "math" (use "maths"), no US cities, no Fahrenheit

Output ONLY the JSON object.`

// buildGenerationPrompt assembles the single-shot blueprint+question prompt
// for a concept selection.
func buildGenerationPrompt(sel *models.ConceptSelection, choiceCount int) string {
	concept := sel.Concept
	var b strings.Builder

	fmt.Fprintf(&b, `You are creating a NSW Selective Schools exam question (Year 6 level, %s).

## Concept to Test
- **Name**: %s
- **Description**: %s
- **Subtopic**: %s

## Target Parameters
- **Difficulty**: %d/3 - %s
- **Cognitive Level**: %s
- **Question Type**: Multiple Choice (%d options)
`,
		concept.TopicName, concept.Name, concept.Description, concept.SubtopicName,
		sel.TargetDifficulty, describeDifficulty(sel.TargetDifficulty),
		sel.TargetBloomLevel, choiceCount)

	if sel.TargetDifficulty >= 3 {
		b.WriteString(hardRequirements)
	}

	if sel.SelectedPattern != "" {
		fmt.Fprintf(&b, "\n## Question Pattern\nBase the question on this pattern: %s\n", sel.SelectedPattern)
	}

	if len(sel.SelectedMisconceptions) > 0 {
		b.WriteString("\n## Distractor Design (MAKE THESE TRICKY)\nWrong answers must be VERY plausible - students should have to think hard to eliminate them:\n")
		for _, m := range sel.SelectedMisconceptions {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}

	b.WriteString(imageSection(concept))
	b.WriteString(formatInstructions(concept, choiceCount))

	fmt.Fprintf(&b, `

## CRITICAL RULES
1. Choice id="1" MUST be the correct answer
2. Question must have exactly ONE correct answer
3. Language: clear, unambiguous, Year 6 appropriate vocabulary (but HARD reasoning)
4. NEVER use literal \n in content - use actual line breaks or <br> tags
5. All explanations should use <strong>HTML</strong> for emphasis
6. THIS MUST BE A GENUINELY DIFFICULT QUESTION - if a typical Year 6 student can solve it quickly, it's TOO EASY
`)
	b.WriteString(australianContext)
	return b.String()
}

func describeDifficulty(d int) string {
	if desc, ok := difficultyDesc[d]; ok {
		return desc
	}
	return difficultyDesc[3]
}

func imageSection(concept models.AtomicConcept) string {
	switch concept.SubtopicName {
	case "Deduction":
		return `
## Image Requirement
For Deduction questions, the image shows TWO character portraits side-by-side with names (NO quotes in image).
Character statements go in the content field as HTML, not in the image.
Set requires_image: true and provide image_spec in this format:
image_type: character_portrait_dual
person1_name: [Name1]
person1_appearance: [brief description]
person2_name: [Name2]
person2_appearance: [brief description]
`
	case "Inference":
		return `
## Image Requirement
For Inference questions, the image shows a SINGLE character portrait with their name AND their flawed statement.
Set requires_image: true and provide image_spec in this format:
image_type: character_portrait_single
person_name: [Name]
person_appearance: [brief description]
person_statement: "[Their exact flawed statement]"
`
	}
	if concept.TypicallyRequiresImage {
		types := strings.Join(concept.ImageTypes, ", ")
		if types == "" {
			types = "diagram, figure, or visual"
		}
		return fmt.Sprintf(`
## Image Requirement
This question type may require an image.
Suitable image types: %s
If using an image, set requires_image: true and describe in image_spec.
`, types)
	}
	return `
## Image Requirement
This question should be text-only. Set requires_image: false.
`
}

func formatInstructions(concept models.AtomicConcept, choiceCount int) string {
	var choices strings.Builder
	choices.WriteString(`        {"id": "1", "text": "Correct answer"}`)
	for i := 2; i <= choiceCount; i++ {
		fmt.Fprintf(&choices, `,
        {"id": "%d", "text": "Wrong answer %d", "misconception": "Error that leads here"}`, i, i-1)
	}

	return fmt.Sprintf(`
## OUTPUT FORMAT (NSW Selective Exam)

{
    "setup_elements": ["context element 1", "context element 2"],
    "question_stem_structure": "Template/structure of the question",
    "constraints": ["logical constraint 1", "constraint 2"],
    "correct_answer_reasoning": "Why the correct answer is right",
    "solution_steps": [{"step_number": 1, "description": "First step", "reasoning": "Why needed"}],
    "requires_image": %t,
    "image_spec": null,
    "content": "Setup/context if needed, or null",
    "question_text": "The complete question being asked?",
    "choices": [
%s
    ],
    "explanation": "Clear explanation with <strong>HTML</strong> formatting",
    "tags": ["%s", "%s"]
}`, concept.TypicallyRequiresImage, choices.String(), concept.TopicName, concept.SubtopicName)
}

// buildRevisionPrompt assembles the prompt for revising a question that
// failed quality checks.
func buildRevisionPrompt(q *models.Question, bp *models.Blueprint, issues, suggestions []string, choiceCount int) string {
	issuesText := "None"
	if len(issues) > 0 {
		issuesText = "- " + strings.Join(issues, "\n- ")
	}
	suggestionsText := "None"
	if len(suggestions) > 0 {
		suggestionsText = "- " + strings.Join(suggestions, "\n- ")
	}
	choicesJSON, _ := json.MarshalIndent(q.Choices, "", "  ")

	var choices strings.Builder
	choices.WriteString(`        {"id": "1", "text": "Correct answer"}`)
	for i := 2; i <= choiceCount; i++ {
		fmt.Fprintf(&choices, `,
        {"id": "%d", "text": "Wrong answer", "misconception": "..."}`, i)
	}

	return fmt.Sprintf(`You are revising a NSW Selective Schools exam question that failed quality checks.

## Original Question
%s

## Original Choices
%s

## Issues Found
%s

## Suggestions for Improvement
%s

## Your Task
Create a REVISED question that addresses ALL issues while maintaining:
- The same concept being tested: %s
- The same target difficulty: %d/3
- Clear, unambiguous structure
- AUSTRALIAN ENGLISH spelling (colour, favourite, centre, metre, travelled, organisation)
- Australian locations only (Sydney, Melbourne, Brisbane, Perth, Adelaide, etc.)
- Australian context (AUD currency, Australian schools, Australian seasons)

Output the revised question in JSON format:

{
    "setup_elements": [...],
    "question_stem_structure": "...",
    "constraints": [...],
    "correct_answer_reasoning": "...",
    "solution_steps": [...],
    "requires_image": true/false,
    "image_spec": "...",
    "question_text": "The revised question text",
    "choices": [
%s
    ],
    "explanation": "...",
    "tags": [...]
}

Output ONLY the JSON object.`,
		q.Question, choicesJSON, issuesText, suggestionsText,
		bp.ConceptName, bp.DifficultyTarget, choices.String())
}
