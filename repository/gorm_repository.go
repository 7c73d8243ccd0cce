package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/echohire/backend/models"
	"gorm.io/gorm"
)

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.JobDescription{},
		&models.CandidateResume{},
		&models.InterviewSession{},
		&models.InterviewQuestion{},
		&models.CandidateResponse{},
		&models.InterviewReport{},
	)
}

// Document operations

func (r *GORMRepository) CreateJobDescription(ctx context.Context, jd *models.JobDescription) error {
	if err := r.db.WithContext(ctx).Create(jd).Error; err != nil {
		slog.Error("Failed to create job description", "error", err)
		return err
	}
	slog.Info("Job description created", "jd_id", jd.ID, "title", jd.Title)
	return nil
}

func (r *GORMRepository) GetJobDescription(ctx context.Context, id string) (*models.JobDescription, error) {
	var jd models.JobDescription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&jd).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get job description", "error", err, "jd_id", id)
		return nil, err
	}
	return &jd, nil
}

func (r *GORMRepository) CreateCandidateResume(ctx context.Context, resume *models.CandidateResume) error {
	if err := r.db.WithContext(ctx).Create(resume).Error; err != nil {
		slog.Error("Failed to create candidate resume", "error", err)
		return err
	}
	slog.Info("Candidate resume created", "resume_id", resume.ID, "candidate", resume.CandidateName)
	return nil
}

func (r *GORMRepository) GetCandidateResume(ctx context.Context, id string) (*models.CandidateResume, error) {
	var resume models.CandidateResume
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&resume).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get candidate resume", "error", err, "resume_id", id)
		return nil, err
	}
	return &resume, nil
}

// Session operations

// CreateSessionWithQuestions persists a session and its question set in one
// transaction, so a generation result is either fully visible or not at all.
func (r *GORMRepository) CreateSessionWithQuestions(ctx context.Context, session *models.InterviewSession, questions []models.InterviewQuestion) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].SessionID = session.ID
			if err := tx.Create(&questions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to create interview session", "error", err)
		return err
	}
	slog.Info("Interview session created", "session_id", session.ID, "question_count", len(questions))
	return nil
}

func (r *GORMRepository) GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("id = ?", sessionID).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview session", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) GetSessionWithDetails(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("id = ?", sessionID).
		Preload("JobDescription").
		Preload("CandidateResume").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_number")
		}).
		Preload("Responses").
		Preload("Report").
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get session with details", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) UpdateSession(ctx context.Context, session *models.InterviewSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		slog.Error("Failed to update interview session", "error", err, "session_id", session.ID)
		return err
	}
	return nil
}

func (r *GORMRepository) SearchSessions(ctx context.Context, candidateName, company, status string) ([]models.InterviewSession, error) {
	var sessions []models.InterviewSession
	query := r.db.WithContext(ctx).Model(&models.InterviewSession{})

	if candidateName != "" {
		query = query.Where("candidate_name ILIKE ?", "%"+candidateName+"%")
	}
	if company != "" {
		query = query.Joins("JOIN job_descriptions ON job_descriptions.id = interview_sessions.jd_id").
			Where("job_descriptions.company ILIKE ?", "%"+company+"%")
	}
	if status != "" {
		query = query.Where("interview_sessions.status = ?", status)
	}

	if err := query.Preload("JobDescription").Order("interview_sessions.created_at DESC").Find(&sessions).Error; err != nil {
		slog.Error("Failed to search sessions", "error", err)
		return nil, err
	}
	return sessions, nil
}

// Question operations

func (r *GORMRepository) GetQuestion(ctx context.Context, questionID string) (*models.InterviewQuestion, error) {
	var question models.InterviewQuestion
	if err := r.db.WithContext(ctx).Where("id = ?", questionID).First(&question).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get question", "error", err, "question_id", questionID)
		return nil, err
	}
	return &question, nil
}

func (r *GORMRepository) GetQuestions(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error) {
	var questions []models.InterviewQuestion
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence_number").
		Find(&questions).Error
	if err != nil {
		slog.Error("Failed to get questions", "error", err, "session_id", sessionID)
		return nil, err
	}
	return questions, nil
}

func (r *GORMRepository) UpdateQuestion(ctx context.Context, question *models.InterviewQuestion) error {
	if err := r.db.WithContext(ctx).Save(question).Error; err != nil {
		slog.Error("Failed to update question", "error", err, "question_id", question.ID)
		return err
	}
	slog.Info("Question updated", "question_id", question.ID, "session_id", question.SessionID)
	return nil
}

// Response operations

func (r *GORMRepository) GetResponses(ctx context.Context, sessionID string) ([]models.CandidateResponse, error) {
	var responses []models.CandidateResponse
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at").
		Find(&responses).Error
	if err != nil {
		slog.Error("Failed to get responses", "error", err, "session_id", sessionID)
		return nil, err
	}
	return responses, nil
}

// AppendResponseAndAdvance creates a response and advances the session
// pointer in one transaction. The WHERE clause on current_index makes a lost
// race visible as ErrDuplicatedKey instead of a duplicate response: if
// another writer advanced the session first, the guarded update matches zero
// rows and the whole transaction rolls back.
func (r *GORMRepository) AppendResponseAndAdvance(ctx context.Context, response *models.CandidateResponse, newIndex int, newStatus string, startedAt, endedAt *time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(response).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"current_index": newIndex,
			"status":        newStatus,
		}
		if startedAt != nil {
			updates["started_at"] = startedAt
		}
		if endedAt != nil {
			updates["ended_at"] = endedAt
		}

		result := tx.Model(&models.InterviewSession{}).
			Where("id = ? AND current_index = ?", response.SessionID, newIndex-1).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrDuplicatedKey
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to append response", "error", err, "session_id", response.SessionID, "question_id", response.QuestionID)
		return err
	}
	slog.Info("Response appended", "session_id", response.SessionID, "question_id", response.QuestionID, "new_index", newIndex, "status", newStatus)
	return nil
}

// Report operations

func (r *GORMRepository) CreateInterviewReport(ctx context.Context, report *models.InterviewReport) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		slog.Error("Failed to create interview report", "error", err, "session_id", report.SessionID)
		return err
	}
	slog.Info("Interview report created", "report_id", report.ID, "session_id", report.SessionID, "overall_score", report.OverallScore)
	return nil
}

func (r *GORMRepository) GetInterviewReport(ctx context.Context, sessionID string) (*models.InterviewReport, error) {
	var report models.InterviewReport
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&report).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview report", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &report, nil
}
