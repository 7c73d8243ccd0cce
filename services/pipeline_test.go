package services

import (
	"context"
	"errors"
	"testing"
)

func TestPipelineEmptyAudio(t *testing.T) {
	transcriber := &fakeTranscriber{transcript: "hello"}
	scorer := &fakeScorer{evaluation: goodEvaluation()}
	pipeline := NewScoringPipeline(transcriber, scorer)

	_, err := pipeline.Score(context.Background(), nil, "audio/webm", "Question?")
	if !errors.Is(err, ErrTranscriptionFailure) {
		t.Fatalf("error = %v, want ErrTranscriptionFailure", err)
	}
	if transcriber.calls != 0 {
		t.Error("transcriber called for empty audio")
	}
}

func TestPipelineTranscriberFailure(t *testing.T) {
	transcriber := &fakeTranscriber{err: errors.New("stt timeout")}
	scorer := &fakeScorer{evaluation: goodEvaluation()}
	pipeline := NewScoringPipeline(transcriber, scorer)

	_, err := pipeline.Score(context.Background(), []byte("audio"), "audio/webm", "Question?")
	if !errors.Is(err, ErrTranscriptionFailure) {
		t.Fatalf("error = %v, want ErrTranscriptionFailure", err)
	}
	if scorer.calls != 0 {
		t.Error("scorer called after transcription failed")
	}
}

func TestPipelineEmptyTranscript(t *testing.T) {
	transcriber := &fakeTranscriber{transcript: ""}
	scorer := &fakeScorer{evaluation: goodEvaluation()}
	pipeline := NewScoringPipeline(transcriber, scorer)

	_, err := pipeline.Score(context.Background(), []byte("audio"), "audio/webm", "Question?")
	if !errors.Is(err, ErrTranscriptionFailure) {
		t.Fatalf("error = %v, want ErrTranscriptionFailure", err)
	}
	if scorer.calls != 0 {
		t.Error("scorer called for empty transcript")
	}
}

func TestPipelineScorerFailure(t *testing.T) {
	transcriber := &fakeTranscriber{transcript: "an answer"}
	scorer := &fakeScorer{err: errors.New("model overloaded")}
	pipeline := NewScoringPipeline(transcriber, scorer)

	_, err := pipeline.Score(context.Background(), []byte("audio"), "audio/webm", "Question?")
	if !errors.Is(err, ErrScoringFailure) {
		t.Fatalf("error = %v, want ErrScoringFailure", err)
	}
}

func TestPipelineOutOfRangeScoreRejected(t *testing.T) {
	tests := []struct {
		name       string
		evaluation Evaluation
	}{
		{"above range", Evaluation{Relevance: 11, Clarity: 5, TechnicalAccuracy: 5}},
		{"below range", Evaluation{Relevance: 5, Clarity: -1, TechnicalAccuracy: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transcriber := &fakeTranscriber{transcript: "an answer"}
			scorer := &fakeScorer{evaluation: &tt.evaluation}
			pipeline := NewScoringPipeline(transcriber, scorer)

			_, err := pipeline.Score(context.Background(), []byte("audio"), "audio/webm", "Question?")
			if !errors.Is(err, ErrScoringFailure) {
				t.Fatalf("error = %v, want ErrScoringFailure", err)
			}
		})
	}
}

func TestPipelineSuccess(t *testing.T) {
	transcriber := &fakeTranscriber{transcript: "I would shard by tenant id."}
	scorer := &fakeScorer{evaluation: goodEvaluation()}
	pipeline := NewScoringPipeline(transcriber, scorer)

	scored, err := pipeline.Score(context.Background(), []byte("audio"), "audio/webm", "How would you scale this?")
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scored.Transcript != "I would shard by tenant id." {
		t.Errorf("transcript = %q", scored.Transcript)
	}
	if scored.Evaluation.TechnicalAccuracy != 9 {
		t.Errorf("technical_accuracy = %v, want 9", scored.Evaluation.TechnicalAccuracy)
	}
}
