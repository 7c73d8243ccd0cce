package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

const (
	ModelName                = "gemini-2.5-flash"
	QuestionCount            = 5
	generationAttempts       = 3
	minQuestionLength        = 10
	transcriptionTimeout     = 15 * time.Second
	transcriptionPromptText  = "Transcribe only clear, intelligible speech from this audio. Provide only the transcript, no additional commentary. If the audio contains no intelligible speech, return an empty response."
)

var validQuestionTypes = map[string]bool{
	"technical":       true,
	"experience":      true,
	"problem-solving": true,
	"behavioral":      true,
	"cultural-fit":    true,
}

// GeminiService handles all Gemini AI operations: question generation,
// audio transcription, answer evaluation and document field extraction.
type GeminiService struct {
	genaiClient *genai.Client
}

func NewGeminiService(apiKey string) *GeminiService {
	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		slog.Error("Failed to create genai client", "error", err)
		return nil
	}

	return &GeminiService{genaiClient: genaiClient}
}

// GenerateQuestions produces the interview question set for a job/candidate
// pairing. The model is asked for a rigid numbered format; the reply is
// parsed and validated, and malformed replies are retried a few times before
// giving up.
func (g *GeminiService) GenerateQuestions(ctx context.Context, req GenerationRequest) ([]GeneratedQuestion, error) {
	if g.genaiClient == nil {
		return nil, fmt.Errorf("genai client not initialized")
	}

	prompt := buildQuestionPrompt(req)

	var lastErr error
	for attempt := 1; attempt <= generationAttempts; attempt++ {
		result, err := g.genaiClient.Models.GenerateContent(
			ctx,
			ModelName,
			genai.Text(prompt),
			nil,
		)
		if err != nil {
			lastErr = fmt.Errorf("failed to generate questions: %w", err)
			slog.Error("Question generation call failed", "error", err, "attempt", attempt)
			continue
		}

		questions, err := parseGeneratedQuestions(result.Text())
		if err != nil {
			lastErr = err
			slog.Warn("Generated questions failed validation, retrying", "error", err, "attempt", attempt)
			continue
		}

		slog.Info("Generated interview questions", "count", len(questions), "attempt", attempt)
		return questions, nil
	}

	return nil, fmt.Errorf("question generation failed after %d attempts: %w", generationAttempts, lastErr)
}

func buildQuestionPrompt(req GenerationRequest) string {
	var ctx strings.Builder
	if req.JobDescription != "" {
		ctx.WriteString(fmt.Sprintf("Job Description:\n%s\n\n", req.JobDescription))
	}
	if req.ResumeContent != "" {
		ctx.WriteString(fmt.Sprintf("Candidate Resume:\n%s\n\n", req.ResumeContent))
	}
	if req.JobRole != "" {
		ctx.WriteString(fmt.Sprintf("Job Role: %s\n\n", req.JobRole))
	}

	return fmt.Sprintf(`You are an expert technical interviewer. Based on the following context, generate exactly %d interview questions.

%sThe questions must cover these areas, one question each, in this order:
1. technical - technical skills required for the role
2. experience - relevant past experience
3. problem-solving - approach to solving realistic problems
4. behavioral - working style and collaboration
5. cultural-fit - motivation and alignment with the role

Format each question EXACTLY like this, with no other text before or after:

1. Question: <the full question text>
   Type: <one of: technical, experience, problem-solving, behavioral, cultural-fit>
   Assesses: <what this question evaluates>
   Key Points: <what a strong answer should cover>

Each question must be specific to the provided context, at least one full sentence long, and answerable verbally in 2-3 minutes.`, QuestionCount, ctx.String())
}

// parseGeneratedQuestions converts the model's numbered-block reply into
// structured questions, rejecting the whole reply if any block is missing a
// field, carries an unknown type, or is implausibly short.
func parseGeneratedQuestions(raw string) ([]GeneratedQuestion, error) {
	var questions []GeneratedQuestion
	var current *GeneratedQuestion

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if idx := strings.Index(line, "Question:"); idx >= 0 && isNumberedLine(line) {
			if current != nil {
				questions = append(questions, *current)
			}
			current = &GeneratedQuestion{Text: strings.TrimSpace(line[idx+len("Question:"):])}
			continue
		}

		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Type:"):
			current.Type = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "Type:")))
		case strings.HasPrefix(line, "Assesses:"):
			current.Category = strings.TrimSpace(strings.TrimPrefix(line, "Assesses:"))
		case strings.HasPrefix(line, "Key Points:"):
			current.KeyPoints = strings.TrimSpace(strings.TrimPrefix(line, "Key Points:"))
		}
	}
	if current != nil {
		questions = append(questions, *current)
	}

	if len(questions) != QuestionCount {
		return nil, fmt.Errorf("expected %d questions, parsed %d", QuestionCount, len(questions))
	}
	for i, q := range questions {
		if len(q.Text) < minQuestionLength {
			return nil, fmt.Errorf("question %d is too short: %q", i+1, q.Text)
		}
		if !validQuestionTypes[q.Type] {
			return nil, fmt.Errorf("question %d has invalid type %q", i+1, q.Type)
		}
	}
	return questions, nil
}

// isNumberedLine reports whether the line starts with "N." for some digit N.
func isNumberedLine(line string) bool {
	dot := strings.Index(line, ".")
	if dot <= 0 {
		return false
	}
	_, err := strconv.Atoi(line[:dot])
	return err == nil
}

// Transcribe converts candidate answer audio to text using Gemini's inline
// audio support. An empty transcript is an error: silence and unintelligible
// audio must not produce a scored response.
func (g *GeminiService) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if g.genaiClient == nil {
		return "", fmt.Errorf("genai client not initialized")
	}
	if len(audioData) == 0 {
		return "", fmt.Errorf("audio data is empty")
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	slog.Info("Transcribing audio with Gemini", "size", len(audioData), "mime_type", mimeType)

	ctx, cancel := context.WithTimeout(ctx, transcriptionTimeout)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromText(transcriptionPromptText),
		&genai.Part{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     audioData,
			},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.genaiClient.Models.GenerateContent(
		ctx,
		ModelName,
		contents,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate transcript: %w", err)
	}

	transcript := strings.TrimSpace(result.Text())
	if transcript == "" {
		return "", fmt.Errorf("no intelligible speech found in audio")
	}

	slog.Info("Audio transcribed successfully", "transcript_length", len(transcript))
	return transcript, nil
}

// Evaluate scores a transcribed answer against its question on three
// dimensions. Scores outside [0,10] are rejected rather than clamped so a
// misbehaving model can never distort stored results.
func (g *GeminiService) Evaluate(ctx context.Context, questionText, transcript string) (*Evaluation, error) {
	if g.genaiClient == nil {
		return nil, fmt.Errorf("genai client not initialized")
	}

	prompt := fmt.Sprintf(`You are an expert interviewer evaluating a candidate's verbal answer.

Question: %s

Candidate's answer: %s

Score the answer on these dimensions, each from 0 to 10:
- relevance: how directly the answer addresses the question
- clarity: how well-structured and understandable the answer is
- technical_accuracy: how technically correct the content is

Respond with ONLY a JSON object in exactly this shape, no markdown, no other text:
{"relevance": 0, "clarity": 0, "technical_accuracy": 0, "feedback": "2-3 sentences of constructive feedback", "improvement_areas": "1-2 concrete areas to improve"}`, questionText, transcript)

	result, err := g.genaiClient.Models.GenerateContent(
		ctx,
		ModelName,
		genai.Text(prompt),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate answer: %w", err)
	}

	evaluation, err := parseEvaluation(result.Text())
	if err != nil {
		return nil, err
	}

	slog.Info("Answer evaluated",
		"relevance", evaluation.Relevance,
		"clarity", evaluation.Clarity,
		"technical_accuracy", evaluation.TechnicalAccuracy)
	return evaluation, nil
}

// parseEvaluation extracts and validates the scorer's JSON reply.
func parseEvaluation(raw string) (*Evaluation, error) {
	cleaned := stripCodeFences(raw)
	if !gjson.Valid(cleaned) {
		return nil, fmt.Errorf("evaluation is not valid JSON: %q", truncateForLog(cleaned))
	}

	parsed := gjson.Parse(cleaned)
	evaluation := &Evaluation{
		Feedback:     parsed.Get("feedback").String(),
		Improvements: parsed.Get("improvement_areas").String(),
	}

	for _, dim := range []struct {
		key  string
		dest *float64
	}{
		{"relevance", &evaluation.Relevance},
		{"clarity", &evaluation.Clarity},
		{"technical_accuracy", &evaluation.TechnicalAccuracy},
	} {
		value := parsed.Get(dim.key)
		if !value.Exists() {
			return nil, fmt.Errorf("evaluation is missing %q", dim.key)
		}
		score := value.Float()
		if score < 0 || score > 10 {
			return nil, fmt.Errorf("evaluation score %q out of range: %v", dim.key, score)
		}
		*dim.dest = score
	}

	return evaluation, nil
}

// ExtractJobDescription pulls structured fields out of raw job description
// text. Extraction failures are not fatal to the upload flow; callers fall
// back to storing the raw text.
func (g *GeminiService) ExtractJobDescription(ctx context.Context, content string) (*ExtractedJobDescription, error) {
	if g.genaiClient == nil {
		return nil, fmt.Errorf("genai client not initialized")
	}

	prompt := fmt.Sprintf(`Extract structured fields from this job description.

Job description:
%s

Respond with ONLY a JSON object, no markdown:
{"title": "", "company": "", "requirements": ["..."], "skills_required": ["..."], "experience_required": ""}`, content)

	result, err := g.genaiClient.Models.GenerateContent(ctx, ModelName, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to extract job description: %w", err)
	}

	cleaned := stripCodeFences(result.Text())
	if !gjson.Valid(cleaned) {
		return nil, fmt.Errorf("job description extraction is not valid JSON")
	}

	parsed := gjson.Parse(cleaned)
	return &ExtractedJobDescription{
		Title:              parsed.Get("title").String(),
		Company:            parsed.Get("company").String(),
		Requirements:       stringSlice(parsed.Get("requirements")),
		SkillsRequired:     stringSlice(parsed.Get("skills_required")),
		ExperienceRequired: parsed.Get("experience_required").String(),
	}, nil
}

// ExtractResume pulls structured fields out of raw resume text.
func (g *GeminiService) ExtractResume(ctx context.Context, content string) (*ExtractedResume, error) {
	if g.genaiClient == nil {
		return nil, fmt.Errorf("genai client not initialized")
	}

	prompt := fmt.Sprintf(`Extract structured fields from this resume.

Resume:
%s

Respond with ONLY a JSON object, no markdown:
{"candidate_name": "", "email": "", "phone": "", "skills": ["..."], "experience": ["..."]}`, content)

	result, err := g.genaiClient.Models.GenerateContent(ctx, ModelName, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to extract resume: %w", err)
	}

	cleaned := stripCodeFences(result.Text())
	if !gjson.Valid(cleaned) {
		return nil, fmt.Errorf("resume extraction is not valid JSON")
	}

	parsed := gjson.Parse(cleaned)
	return &ExtractedResume{
		CandidateName: parsed.Get("candidate_name").String(),
		Email:         parsed.Get("email").String(),
		Phone:         parsed.Get("phone").String(),
		Skills:        stringSlice(parsed.Get("skills")),
		Experience:    stringSlice(parsed.Get("experience")),
	}, nil
}

// Helper functions

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func stringSlice(result gjson.Result) []string {
	var out []string
	for _, item := range result.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
