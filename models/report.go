package models

import (
	"time"

	"gorm.io/gorm"
)

// InterviewReport is the cached session-level rollup, written exactly once
// after the session completes. Repeated report requests return this record
// unchanged.
type InterviewReport struct {
	ID                  string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SessionID           string         `gorm:"type:uuid;not null;uniqueIndex" json:"session_id"`
	OverallScore        float64        `gorm:"type:decimal(4,1);not null" json:"overall_score"`       // 0.0 to 10.0
	TechnicalScore      float64        `gorm:"type:decimal(4,1);not null" json:"technical_score"`     // mean technical accuracy
	CommunicationScore  float64        `gorm:"type:decimal(4,1);not null" json:"communication_score"` // mean clarity
	CulturalFitScore    float64        `gorm:"type:decimal(4,1);not null" json:"cultural_fit_score"`  // mean relevance
	Strengths           []string       `gorm:"serializer:json" json:"strengths"`
	AreasForImprovement []string       `gorm:"serializer:json" json:"areas_for_improvement"`
	Recommendation      string         `gorm:"size:50;not null" json:"overall_recommendation"`
	CreatedAt           time.Time      `json:"created_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Session InterviewSession `gorm:"foreignKey:SessionID" json:"-"`
}
