package models

import (
	"time"

	"gorm.io/gorm"
)

// JobDescription stores the extracted text and metadata of an uploaded JD
type JobDescription struct {
	ID                 string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title              string         `gorm:"size:255;not null" json:"title"`
	Company            string         `gorm:"size:255;not null" json:"company"`
	Content            string         `gorm:"type:text;not null" json:"content"`
	FileName           string         `gorm:"size:255" json:"file_name,omitempty"`
	FileType           string         `gorm:"size:50" json:"file_type,omitempty"`
	Requirements       []string       `gorm:"serializer:json" json:"requirements,omitempty"`
	SkillsRequired     []string       `gorm:"serializer:json" json:"skills_required,omitempty"`
	ExperienceRequired string         `gorm:"size:100" json:"experience_required,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Interviews []InterviewSession `gorm:"foreignKey:JDID" json:"interviews,omitempty"`
}

// CandidateResume stores the extracted text and metadata of an uploaded resume
type CandidateResume struct {
	ID            string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CandidateName string         `gorm:"size:255;not null" json:"candidate_name"`
	Email         string         `gorm:"size:255" json:"email,omitempty"`
	Phone         string         `gorm:"size:50" json:"phone,omitempty"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	FileName      string         `gorm:"size:255" json:"file_name,omitempty"`
	FileType      string         `gorm:"size:50" json:"file_type,omitempty"`
	Skills        []string       `gorm:"serializer:json" json:"skills,omitempty"`
	Experience    []string       `gorm:"serializer:json" json:"experience,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Interviews []InterviewSession `gorm:"foreignKey:ResumeID" json:"interviews,omitempty"`
}
