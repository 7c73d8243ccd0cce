package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/echohire/backend/models"
)

// Interviewer lines spoken between questions.
const (
	ClosingRemark      = "Thank you for completing the interview. Your responses have been recorded and your results will be shared soon."
	nextQuestionPrefix = "Thank you for your response. Here's your next question: "
)

// GenerationRequest carries the context the question generator works from.
// Either the jd/resume pair or the bare job role is set, never both.
type GenerationRequest struct {
	JobDescription string
	ResumeContent  string
	JobRole        string
}

// GeneratedQuestion is one validated question out of the generator.
type GeneratedQuestion struct {
	Text      string
	Type      string
	Category  string
	KeyPoints string
}

// QuestionGenerator produces the ordered question set for a new session.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, req GenerationRequest) ([]GeneratedQuestion, error)
}

// SpeechSynthesizer turns interviewer text into playable audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ProgressPublisher pushes session progress events to connected observers.
// Implemented by the websocket hub; may be nil when no observers exist.
type ProgressPublisher interface {
	BroadcastToSession(sessionID string, message []byte)
}

// CreateSessionRequest describes a new interview. Exactly one source must be
// given: an uploaded jd/resume pair, or a bare job role.
type CreateSessionRequest struct {
	JDID          string
	ResumeID      string
	JobRole       string
	CandidateName string
}

// SubmitResult is everything the client needs after one accepted answer.
type SubmitResult struct {
	Status            string
	CurrentIndex      int
	TotalQuestions    int
	AnsweredQuestions int
	NextQuestionText  *string
	RemarkText        string
	Transcript        string
	Feedback          string
	Audio             []byte
}

// ValidationResult reports whether a session can accept answers right now.
type ValidationResult struct {
	Valid             bool   `json:"valid"`
	Status            string `json:"status"`
	TotalQuestions    int    `json:"total_questions"`
	AnsweredQuestions int    `json:"answered_questions"`
	Message           string `json:"message"`
}

// ProgressEvent is the payload broadcast to session observers after each
// accepted answer.
type ProgressEvent struct {
	Type           string `json:"type"`
	SessionID      string `json:"session_id"`
	Status         string `json:"status"`
	CurrentIndex   int    `json:"current_index"`
	TotalQuestions int    `json:"total_questions"`
}

// InterviewManager owns the session lifecycle: creation from generated
// questions, draft editing, confirmation, and serialized answer submission.
// Throughout, a session's current_index always equals its stored response
// count; every operation either preserves that or fails without touching
// state.
type InterviewManager struct {
	store     SessionStore
	generator QuestionGenerator
	pipeline  *ScoringPipeline
	synth     SpeechSynthesizer
	events    ProgressPublisher

	// Per-session submission locks, created on demand and dropped when a
	// session completes.
	locks     map[string]*sync.Mutex
	locksLock sync.Mutex
}

func NewInterviewManager(store SessionStore, generator QuestionGenerator, pipeline *ScoringPipeline, synth SpeechSynthesizer, events ProgressPublisher) *InterviewManager {
	return &InterviewManager{
		store:     store,
		generator: generator,
		pipeline:  pipeline,
		synth:     synth,
		events:    events,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (m *InterviewManager) sessionLock(sessionID string) *sync.Mutex {
	m.locksLock.Lock()
	defer m.locksLock.Unlock()

	lock, exists := m.locks[sessionID]
	if !exists {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}

func (m *InterviewManager) dropSessionLock(sessionID string) {
	m.locksLock.Lock()
	defer m.locksLock.Unlock()
	delete(m.locks, sessionID)
}

// CreateSession generates a question set and persists a draft session with
// it. Generation runs first: if it fails or returns nothing, no session is
// created at all.
func (m *InterviewManager) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.InterviewSession, []models.InterviewQuestion, error) {
	genReq, session, err := m.resolveSource(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	generated, err := m.generator.GenerateQuestions(ctx, genReq)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}
	if len(generated) == 0 {
		return nil, nil, fmt.Errorf("%w: generator returned no questions", ErrGenerationFailure)
	}

	questions := make([]models.InterviewQuestion, len(generated))
	for i, q := range generated {
		questions[i] = models.InterviewQuestion{
			QuestionText:   q.Text,
			QuestionType:   q.Type,
			Category:       q.Category,
			SequenceNumber: i + 1,
		}
	}

	if err := m.store.CreateSessionWithQuestions(ctx, session, questions); err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("Interview session created", "session_id", session.ID, "questions", len(questions), "job_role", session.JobRole)
	return session, questions, nil
}

// resolveSource validates the creation request and builds both the generator
// input and the draft session row.
func (m *InterviewManager) resolveSource(ctx context.Context, req CreateSessionRequest) (GenerationRequest, *models.InterviewSession, error) {
	hasDocs := req.JDID != "" && req.ResumeID != ""
	hasRole := req.JobRole != ""

	switch {
	case hasDocs && hasRole:
		return GenerationRequest{}, nil, fmt.Errorf("provide either jd_id and resume_id or job_role, not both")
	case hasDocs:
		jd, err := m.store.GetJobDescription(ctx, req.JDID)
		if err != nil {
			return GenerationRequest{}, nil, fmt.Errorf("failed to load job description: %w", err)
		}
		if jd == nil {
			return GenerationRequest{}, nil, fmt.Errorf("%w: job description %s", ErrNotFound, req.JDID)
		}

		resume, err := m.store.GetCandidateResume(ctx, req.ResumeID)
		if err != nil {
			return GenerationRequest{}, nil, fmt.Errorf("failed to load resume: %w", err)
		}
		if resume == nil {
			return GenerationRequest{}, nil, fmt.Errorf("%w: resume %s", ErrNotFound, req.ResumeID)
		}

		candidateName := req.CandidateName
		if candidateName == "" {
			candidateName = resume.CandidateName
		}

		session := &models.InterviewSession{
			JDID:          &jd.ID,
			ResumeID:      &resume.ID,
			JobRole:       jd.Title,
			CandidateName: candidateName,
			Status:        models.SessionStatusDraft,
		}
		return GenerationRequest{JobDescription: jd.Content, ResumeContent: resume.Content}, session, nil
	case hasRole:
		session := &models.InterviewSession{
			JobRole:       req.JobRole,
			CandidateName: req.CandidateName,
			Status:        models.SessionStatusDraft,
		}
		return GenerationRequest{JobRole: req.JobRole}, session, nil
	default:
		return GenerationRequest{}, nil, fmt.Errorf("either jd_id and resume_id or job_role must be provided")
	}
}

// EditQuestion replaces a question's text while the session is still a
// draft. Confirmed sessions reject edits so the question set candidates
// answer against is immutable.
func (m *InterviewManager) EditQuestion(ctx context.Context, questionID, newText string) (*models.InterviewQuestion, error) {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return nil, fmt.Errorf("question text cannot be empty")
	}

	question, err := m.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	if question == nil {
		return nil, fmt.Errorf("%w: question %s", ErrNotFound, questionID)
	}

	session, err := m.store.GetInterviewSession(ctx, question.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, question.SessionID)
	}
	if session.Status != models.SessionStatusDraft {
		return nil, fmt.Errorf("%w: cannot edit questions of a %s session", ErrInvalidState, session.Status)
	}

	question.QuestionText = newText
	question.IsModified = true
	if err := m.store.UpdateQuestion(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	return question, nil
}

// ConfirmSession locks the question set and moves the session from draft to
// ready.
func (m *InterviewManager) ConfirmSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	session, err := m.store.GetInterviewSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if session.Status != models.SessionStatusDraft {
		return nil, fmt.Errorf("%w: cannot confirm a %s session", ErrInvalidState, session.Status)
	}

	questions, err := m.store.GetQuestions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: session %s has no questions", ErrEmptyQuestionSet, sessionID)
	}

	session.Status = models.SessionStatusReady
	if err := m.store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to confirm session: %w", err)
	}

	slog.Info("Interview session confirmed", "session_id", sessionID, "questions", len(questions))
	return session, nil
}

// ValidateSession reports whether the session can accept answers, without
// modifying anything.
func (m *InterviewManager) ValidateSession(ctx context.Context, sessionID string) (*ValidationResult, error) {
	session, err := m.store.GetInterviewSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	questions, err := m.store.GetQuestions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	result := &ValidationResult{
		Status:            session.Status,
		TotalQuestions:    len(questions),
		AnsweredQuestions: session.CurrentIndex,
	}

	switch session.Status {
	case models.SessionStatusReady, models.SessionStatusInProgress:
		result.Valid = true
		result.Message = "interview is ready to accept answers"
	case models.SessionStatusDraft:
		result.Message = "interview has not been confirmed yet"
	case models.SessionStatusCompleted:
		result.Message = "interview is already completed"
	default:
		result.Message = fmt.Sprintf("unknown session status %q", session.Status)
	}
	return result, nil
}

// SubmitAnswer runs one answer through the scoring pipeline and, only on
// full success, records it and advances the session. Submissions for the
// same session are serialized; a pipeline failure leaves the session exactly
// as it was, so the same question can be retried.
func (m *InterviewManager) SubmitAnswer(ctx context.Context, sessionID string, audioData []byte, mimeType string) (*SubmitResult, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.store.GetInterviewSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	switch session.Status {
	case models.SessionStatusReady, models.SessionStatusInProgress:
		// accepts answers
	case models.SessionStatusDraft:
		return nil, fmt.Errorf("%w: session has not been confirmed", ErrInvalidState)
	case models.SessionStatusCompleted:
		return nil, fmt.Errorf("%w: interview is already completed", ErrInvalidState)
	default:
		return nil, fmt.Errorf("%w: unknown session status %q", ErrInvalidState, session.Status)
	}

	questions, err := m.store.GetQuestions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	if session.CurrentIndex >= len(questions) {
		return nil, fmt.Errorf("%w: no question left at index %d", ErrInvalidState, session.CurrentIndex)
	}
	current := questions[session.CurrentIndex]

	scored, err := m.pipeline.Score(ctx, audioData, mimeType, current.QuestionText)
	if err != nil {
		// Session untouched, same question stays current.
		return nil, err
	}

	now := time.Now()
	newIndex := session.CurrentIndex + 1
	total := len(questions)

	newStatus := models.SessionStatusInProgress
	var startedAt, endedAt *time.Time
	if session.StartedAt == nil {
		startedAt = &now
	}
	if newIndex == total {
		newStatus = models.SessionStatusCompleted
		endedAt = &now
	}

	response := &models.CandidateResponse{
		SessionID:         sessionID,
		QuestionID:        current.ID,
		Transcript:        scored.Transcript,
		Relevance:         scored.Evaluation.Relevance,
		Clarity:           scored.Evaluation.Clarity,
		TechnicalAccuracy: scored.Evaluation.TechnicalAccuracy,
		Feedback:          scored.Evaluation.Feedback,
		Improvements:      scored.Evaluation.Improvements,
	}

	if err := m.store.AppendResponseAndAdvance(ctx, response, newIndex, newStatus, startedAt, endedAt); err != nil {
		return nil, fmt.Errorf("failed to record response: %w", err)
	}

	m.publishProgress(ProgressEvent{
		Type:           "answer_recorded",
		SessionID:      sessionID,
		Status:         newStatus,
		CurrentIndex:   newIndex,
		TotalQuestions: total,
	})

	result := &SubmitResult{
		Status:            newStatus,
		CurrentIndex:      newIndex,
		TotalQuestions:    total,
		AnsweredQuestions: newIndex,
		Transcript:        scored.Transcript,
		Feedback:          scored.Evaluation.Feedback,
	}

	if newStatus == models.SessionStatusCompleted {
		result.RemarkText = ClosingRemark
		m.dropSessionLock(sessionID)
	} else {
		next := questions[newIndex]
		result.NextQuestionText = &next.QuestionText
		result.RemarkText = nextQuestionPrefix + next.QuestionText
	}

	// Synthesis failure degrades to a text-only result; the answer is
	// already recorded and must not be rolled back over audio.
	if audio, err := m.synth.Synthesize(ctx, result.RemarkText); err != nil {
		slog.Warn("Speech synthesis failed, returning text-only result", "error", err, "session_id", sessionID)
	} else {
		result.Audio = audio
	}

	return result, nil
}

func (m *InterviewManager) publishProgress(event ProgressEvent) {
	if m.events == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal progress event", "error", err)
		return
	}
	m.events.BroadcastToSession(event.SessionID, payload)
}
