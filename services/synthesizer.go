package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"

// ElevenLabsService converts interviewer prompts to speech. Fixed phrases
// (the closing remark and other canned lines) are served from the audio
// cache so repeated sessions don't re-bill the same synthesis.
type ElevenLabsService struct {
	apiKey  string
	voiceID string
	client  *resty.Client
	cache   *AudioCache
}

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func NewElevenLabsService(apiKey, voiceID string, cache *AudioCache) *ElevenLabsService {
	return &ElevenLabsService{
		apiKey:  apiKey,
		voiceID: voiceID,
		client:  resty.New().SetTimeout(60 * time.Second),
		cache:   cache,
	}
}

// Synthesize returns MP3 audio for the given text, consulting the cache for
// fixed phrases before calling the API.
func (e *ElevenLabsService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if e.cache != nil {
		return e.cache.GetOrGenerate(ctx, text, e.voiceID, func() ([]byte, error) {
			return e.textToSpeech(ctx, text)
		})
	}
	return e.textToSpeech(ctx, text)
}

func (e *ElevenLabsService) textToSpeech(ctx context.Context, text string) ([]byte, error) {
	request := elevenLabsRequest{
		Text:    text,
		ModelID: "eleven_monolingual_v1",
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("xi-api-key", e.apiKey).
		SetBody(request).
		Post(fmt.Sprintf("%s/%s", elevenLabsBaseURL, e.voiceID))
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("elevenlabs API error: %d - %s", resp.StatusCode(), resp.String())
	}

	slog.Info("Generated audio from ElevenLabs", "text_length", len(text), "audio_size", len(resp.Body()))
	return resp.Body(), nil
}
