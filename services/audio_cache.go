package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// AudioCache provides filesystem-based caching for synthesized speech.
// Only fixed phrases are cached: question-specific prompts embed the
// question text and would never hit again.
type AudioCache struct {
	cacheDir string
	mutex    sync.RWMutex
}

// FixedPhrases are the canned interviewer lines worth caching. Keys are the
// exact synthesized text.
var FixedPhrases = map[string]bool{
	ClosingRemark: true,
	"Welcome to your interview. Take your time with each answer.": true,
	"Please answer the question when you're ready.":               true,
}

func NewAudioCache(cacheDir string) *AudioCache {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		slog.Error("Failed to create cache directory", "dir", cacheDir, "error", err)
	}

	return &AudioCache{cacheDir: cacheDir}
}

// cacheKey derives the file key from text and voice so a voice change never
// serves stale audio.
func (ac *AudioCache) cacheKey(text, voiceID string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", text, voiceID)))
	return hex.EncodeToString(hash[:])
}

func (ac *AudioCache) cachePath(key string) string {
	return filepath.Join(ac.cacheDir, key+".mp3")
}

// IsFixedPhrase reports whether the text is a cacheable canned line.
func (ac *AudioCache) IsFixedPhrase(text string) bool {
	return FixedPhrases[text]
}

// Get retrieves cached audio data if it exists
func (ac *AudioCache) Get(ctx context.Context, text, voiceID string) ([]byte, bool) {
	if !ac.IsFixedPhrase(text) {
		return nil, false
	}

	ac.mutex.RLock()
	defer ac.mutex.RUnlock()

	path := ac.cachePath(ac.cacheKey(text, voiceID))
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed to read cached audio", "path", path, "error", err)
		}
		return nil, false
	}

	slog.Info("Cache hit for fixed phrase", "text", text, "voice_id", voiceID)
	return data, true
}

// Set stores audio data in the cache
func (ac *AudioCache) Set(ctx context.Context, text, voiceID string, audioData []byte) error {
	if !ac.IsFixedPhrase(text) {
		return nil
	}

	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	path := ac.cachePath(ac.cacheKey(text, voiceID))
	if err := os.WriteFile(path, audioData, 0644); err != nil {
		slog.Error("Failed to write audio to cache", "path", path, "error", err)
		return err
	}

	slog.Info("Cached fixed phrase audio", "text", text, "voice_id", voiceID, "size", len(audioData))
	return nil
}

// GetOrGenerate serves from cache when possible, otherwise invokes the
// generator and caches the result for fixed phrases.
func (ac *AudioCache) GetOrGenerate(ctx context.Context, text, voiceID string, generator func() ([]byte, error)) ([]byte, error) {
	if cached, found := ac.Get(ctx, text, voiceID); found {
		return cached, nil
	}

	audioData, err := generator()
	if err != nil {
		return nil, fmt.Errorf("failed to generate audio: %w", err)
	}

	if ac.IsFixedPhrase(text) {
		if err := ac.Set(ctx, text, voiceID, audioData); err != nil {
			slog.Warn("Failed to cache audio", "error", err)
		}
	}

	return audioData, nil
}

// ClearCache removes all cached files
func (ac *AudioCache) ClearCache() error {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	return os.RemoveAll(ac.cacheDir)
}
