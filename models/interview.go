package models

import (
	"time"

	"gorm.io/gorm"
)

// Session status values. Transitions only move forward:
// draft -> ready -> in_progress -> completed. Completed is terminal.
const (
	SessionStatusDraft      = "draft"
	SessionStatusReady      = "ready"
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
)

// InterviewSession records one end-to-end interview. The id is the sole
// external handle; JD/resume interviews and mock (job-role) interviews share
// the same id space. CurrentIndex always equals the number of responses.
type InterviewSession struct {
	ID            string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	JDID          *string        `gorm:"type:uuid;index" json:"jd_id,omitempty"`
	ResumeID      *string        `gorm:"type:uuid;index" json:"resume_id,omitempty"`
	JobRole       string         `gorm:"size:255" json:"job_role,omitempty"` // set for mock interviews
	CandidateName string         `gorm:"size:255;not null;default:'Anonymous'" json:"candidate_name"`
	Status        string         `gorm:"not null;default:'draft';check:status IN ('draft', 'ready', 'in_progress', 'completed')" json:"status"`
	CurrentIndex  int            `gorm:"not null;default:0" json:"current_index"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	EndedAt       *time.Time     `json:"ended_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	JobDescription  *JobDescription     `gorm:"foreignKey:JDID" json:"job_description,omitempty"`
	CandidateResume *CandidateResume    `gorm:"foreignKey:ResumeID" json:"candidate_resume,omitempty"`
	Questions       []InterviewQuestion `gorm:"foreignKey:SessionID" json:"questions,omitempty"`
	Responses       []CandidateResponse `gorm:"foreignKey:SessionID" json:"responses,omitempty"`
	Report          *InterviewReport    `gorm:"foreignKey:SessionID" json:"report,omitempty"`
}

// InterviewQuestion is one question of a session's fixed, ordered set.
// Text is mutable only while the session is draft; SequenceNumber never
// changes once assigned.
type InterviewQuestion struct {
	ID             string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SessionID      string         `gorm:"type:uuid;not null;index" json:"session_id"`
	QuestionText   string         `gorm:"type:text;not null" json:"question_text"`
	QuestionType   string         `gorm:"size:50" json:"question_type"` // technical, experience, problem-solving, behavioral, cultural-fit
	Category       string         `gorm:"size:100" json:"category,omitempty"`
	SequenceNumber int            `gorm:"not null" json:"sequence_number"` // 1-based interview order
	IsModified     bool           `gorm:"default:false" json:"is_modified"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Session InterviewSession `gorm:"foreignKey:SessionID" json:"-"`
}

// CandidateResponse is the scored record of one answer. Exactly one exists
// per question and it is never edited after creation.
type CandidateResponse struct {
	ID                string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SessionID         string         `gorm:"type:uuid;not null;index" json:"session_id"`
	QuestionID        string         `gorm:"type:uuid;not null;uniqueIndex" json:"question_id"`
	Transcript        string         `gorm:"type:text;not null" json:"transcript"`
	Relevance         float64        `gorm:"type:decimal(4,1);not null" json:"relevance"`          // 0-10
	Clarity           float64        `gorm:"type:decimal(4,1);not null" json:"clarity"`            // 0-10
	TechnicalAccuracy float64        `gorm:"type:decimal(4,1);not null" json:"technical_accuracy"` // 0-10
	Feedback          string         `gorm:"type:text" json:"feedback"`
	Improvements      string         `gorm:"type:text" json:"improvements,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Session  InterviewSession  `gorm:"foreignKey:SessionID" json:"-"`
	Question InterviewQuestion `gorm:"foreignKey:QuestionID" json:"-"`
}
