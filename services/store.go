package services

import (
	"context"
	"time"

	"github.com/echohire/backend/models"
)

// SessionStore is the persistence surface the core depends on. Lookup
// methods return (nil, nil) for unknown ids; callers translate that into
// ErrNotFound. Implemented by repository.GORMRepository.
type SessionStore interface {
	GetJobDescription(ctx context.Context, id string) (*models.JobDescription, error)
	GetCandidateResume(ctx context.Context, id string) (*models.CandidateResume, error)

	// CreateSessionWithQuestions persists a session and its question set
	// atomically: no partial session is ever visible.
	CreateSessionWithQuestions(ctx context.Context, session *models.InterviewSession, questions []models.InterviewQuestion) error
	GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error)
	UpdateSession(ctx context.Context, session *models.InterviewSession) error

	GetQuestion(ctx context.Context, questionID string) (*models.InterviewQuestion, error)
	GetQuestions(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error)
	UpdateQuestion(ctx context.Context, question *models.InterviewQuestion) error

	GetResponses(ctx context.Context, sessionID string) ([]models.CandidateResponse, error)

	// AppendResponseAndAdvance atomically stores a response and moves the
	// session pointer forward, failing if another writer advanced it first.
	AppendResponseAndAdvance(ctx context.Context, response *models.CandidateResponse, newIndex int, newStatus string, startedAt, endedAt *time.Time) error

	GetInterviewReport(ctx context.Context, sessionID string) (*models.InterviewReport, error)
	CreateInterviewReport(ctx context.Context, report *models.InterviewReport) error
}
