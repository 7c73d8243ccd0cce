package services

import "errors"

// Error kinds surfaced by the core. Collaborator failures (generation,
// transcription, scoring, synthesis) propagate verbatim and are retryable by
// the caller; state-integrity errors are local, non-retryable, and never
// leave stored state modified.
var (
	// ErrGenerationFailure means the question generator could not be reached
	// or returned an unusable (empty) question list. No session is created.
	ErrGenerationFailure = errors.New("question generation failed")

	// ErrEmptyQuestionSet rejects confirming a session without questions.
	ErrEmptyQuestionSet = errors.New("question set is empty")

	// ErrInvalidState rejects an operation the session's status does not
	// allow: editing after confirmation, answering a draft or completed
	// session, confirming twice.
	ErrInvalidState = errors.New("operation not allowed in current session state")

	// ErrTranscriptionFailure covers empty/unintelligible audio and STT
	// collaborator errors. The session is unchanged and the same question
	// can be retried.
	ErrTranscriptionFailure = errors.New("audio transcription failed")

	// ErrScoringFailure covers scorer collaborator errors and malformed or
	// out-of-range scorer output.
	ErrScoringFailure = errors.New("response scoring failed")

	// ErrSynthesisFailure covers TTS collaborator errors. Answer submission
	// degrades to a text-only result instead of failing on it.
	ErrSynthesisFailure = errors.New("speech synthesis failed")

	// ErrReportNotReady rejects report generation before the session has
	// completed.
	ErrReportNotReady = errors.New("interview is not completed yet")

	// ErrNotFound means an unknown session or question id.
	ErrNotFound = errors.New("record not found")
)
