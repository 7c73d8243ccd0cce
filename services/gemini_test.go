package services

import (
	"strings"
	"testing"
)

const sampleGeneration = `1. Question: Can you walk me through how you would design a rate limiter for a public API?
   Type: technical
   Assesses: Distributed systems design
   Key Points: Token bucket, shared state, failure modes

2. Question: Tell me about a project where you owned a service end to end.
   Type: experience
   Assesses: Ownership and delivery
   Key Points: Scope, decisions, outcomes

3. Question: How would you debug a sudden spike in p99 latency?
   Type: problem-solving
   Assesses: Diagnostic methodology
   Key Points: Metrics, tracing, hypotheses

4. Question: Describe a disagreement with a teammate and how you resolved it.
   Type: behavioral
   Assesses: Collaboration under tension
   Key Points: Listening, compromise, outcome

5. Question: What draws you to this role and team?
   Type: cultural-fit
   Assesses: Motivation and alignment
   Key Points: Genuine interest, values match`

func TestParseGeneratedQuestions(t *testing.T) {
	questions, err := parseGeneratedQuestions(sampleGeneration)
	if err != nil {
		t.Fatalf("parseGeneratedQuestions() error = %v", err)
	}
	if len(questions) != 5 {
		t.Fatalf("parsed %d questions, want 5", len(questions))
	}

	first := questions[0]
	if !strings.HasPrefix(first.Text, "Can you walk me through") {
		t.Errorf("first question text = %q", first.Text)
	}
	if first.Type != "technical" {
		t.Errorf("first question type = %q, want technical", first.Type)
	}
	if first.Category != "Distributed systems design" {
		t.Errorf("first question category = %q", first.Category)
	}
	if questions[4].Type != "cultural-fit" {
		t.Errorf("last question type = %q, want cultural-fit", questions[4].Type)
	}
}

func TestParseGeneratedQuestionsRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty reply", ""},
		{"wrong count", "1. Question: Only one question here, which is long enough.\n   Type: technical"},
		{
			"invalid type",
			strings.Replace(sampleGeneration, "Type: technical", "Type: quiz", 1),
		},
		{
			"too short question",
			strings.Replace(sampleGeneration,
				"Can you walk me through how you would design a rate limiter for a public API?",
				"Why?", 1),
		},
		{"prose instead of format", "Here are some great questions you could ask the candidate about Go."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseGeneratedQuestions(tt.raw); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestParseEvaluation(t *testing.T) {
	raw := `{"relevance": 8.5, "clarity": 7, "technical_accuracy": 9, "feedback": "Clear and correct.", "improvement_areas": "Mention tradeoffs."}`

	evaluation, err := parseEvaluation(raw)
	if err != nil {
		t.Fatalf("parseEvaluation() error = %v", err)
	}
	if evaluation.Relevance != 8.5 || evaluation.Clarity != 7 || evaluation.TechnicalAccuracy != 9 {
		t.Errorf("scores = %v/%v/%v", evaluation.Relevance, evaluation.Clarity, evaluation.TechnicalAccuracy)
	}
	if evaluation.Feedback != "Clear and correct." {
		t.Errorf("feedback = %q", evaluation.Feedback)
	}
}

func TestParseEvaluationStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"relevance\": 6, \"clarity\": 6, \"technical_accuracy\": 6, \"feedback\": \"ok\", \"improvement_areas\": \"ok\"}\n```"

	evaluation, err := parseEvaluation(raw)
	if err != nil {
		t.Fatalf("parseEvaluation() error = %v", err)
	}
	if evaluation.Relevance != 6 {
		t.Errorf("relevance = %v, want 6", evaluation.Relevance)
	}
}

func TestParseEvaluationRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "the answer was decent overall"},
		{"missing dimension", `{"relevance": 5, "clarity": 5, "feedback": "x"}`},
		{"score above range", `{"relevance": 12, "clarity": 5, "technical_accuracy": 5}`},
		{"score below range", `{"relevance": 5, "clarity": -2, "technical_accuracy": 5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseEvaluation(tt.raw); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
