package services

import (
	"context"
	"fmt"
	"log/slog"
)

// Transcriber converts answer audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error)
}

// Evaluation is a scored assessment of one answer. All scores are on a 0-10
// scale; implementations must reject anything outside that range.
type Evaluation struct {
	Relevance         float64
	Clarity           float64
	TechnicalAccuracy float64
	Feedback          string
	Improvements      string
}

// AnswerScorer evaluates a transcript against the question it answers.
type AnswerScorer interface {
	Evaluate(ctx context.Context, questionText, transcript string) (*Evaluation, error)
}

// ScoredAnswer is the complete result of running one answer through the
// pipeline: transcript plus its evaluation, produced together or not at all.
type ScoredAnswer struct {
	Transcript string
	Evaluation Evaluation
}

// ScoringPipeline chains transcription and scoring. Either stage failing
// aborts the whole run with a distinct error kind, so callers can tell a bad
// recording from a scorer outage and no partial result ever escapes.
type ScoringPipeline struct {
	transcriber Transcriber
	scorer      AnswerScorer
}

func NewScoringPipeline(transcriber Transcriber, scorer AnswerScorer) *ScoringPipeline {
	return &ScoringPipeline{transcriber: transcriber, scorer: scorer}
}

func (p *ScoringPipeline) Score(ctx context.Context, audioData []byte, mimeType, questionText string) (*ScoredAnswer, error) {
	if len(audioData) == 0 {
		return nil, fmt.Errorf("%w: audio payload is empty", ErrTranscriptionFailure)
	}

	transcript, err := p.transcriber.Transcribe(ctx, audioData, mimeType)
	if err != nil {
		slog.Error("Transcription stage failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailure, err)
	}
	if transcript == "" {
		return nil, fmt.Errorf("%w: transcript is empty", ErrTranscriptionFailure)
	}

	evaluation, err := p.scorer.Evaluate(ctx, questionText, transcript)
	if err != nil {
		slog.Error("Scoring stage failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrScoringFailure, err)
	}
	for _, score := range []float64{evaluation.Relevance, evaluation.Clarity, evaluation.TechnicalAccuracy} {
		if score < 0 || score > 10 {
			return nil, fmt.Errorf("%w: score %v out of range", ErrScoringFailure, score)
		}
	}

	return &ScoredAnswer{Transcript: transcript, Evaluation: *evaluation}, nil
}
