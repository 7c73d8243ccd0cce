package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/echohire/backend/models"
)

// Recommendation bands by overall score.
const (
	RecommendationStrongHire = "Strong Hire"
	RecommendationHire       = "Hire"
	RecommendationBorderline = "Borderline"
	RecommendationNoHire     = "No Hire"
)

const (
	strengthThreshold    = 8.0
	improvementThreshold = 4.0
)

// ReportAggregator derives a hiring report from a completed session's
// responses. The report is computed once and cached in the database; repeat
// requests return the stored row byte-for-byte.
type ReportAggregator struct {
	store SessionStore

	// Serializes first-time generation so concurrent requests for the same
	// session don't both compute and insert.
	generationLock sync.Mutex
}

func NewReportAggregator(store SessionStore) *ReportAggregator {
	return &ReportAggregator{store: store}
}

// BuildReport returns the session's report, generating and persisting it on
// first request. Sessions that have not completed are rejected.
func (a *ReportAggregator) BuildReport(ctx context.Context, sessionID string) (*models.InterviewReport, error) {
	session, err := a.store.GetInterviewSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if session.Status != models.SessionStatusCompleted {
		return nil, fmt.Errorf("%w: session is %s", ErrReportNotReady, session.Status)
	}

	if report, err := a.store.GetInterviewReport(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	} else if report != nil {
		return report, nil
	}

	a.generationLock.Lock()
	defer a.generationLock.Unlock()

	// Another request may have generated it while we waited.
	if report, err := a.store.GetInterviewReport(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	} else if report != nil {
		return report, nil
	}

	responses, err := a.store.GetResponses(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("%w: session has no responses", ErrReportNotReady)
	}

	report := aggregateResponses(sessionID, responses)
	if err := a.store.CreateInterviewReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	slog.Info("Interview report generated",
		"session_id", sessionID,
		"overall_score", report.OverallScore,
		"recommendation", report.Recommendation)
	return report, nil
}

// aggregateResponses rolls per-answer scores up into report dimensions:
// technical maps from technical_accuracy, communication from clarity,
// cultural fit from relevance, overall is the mean of the three. All values
// round to one decimal place.
func aggregateResponses(sessionID string, responses []models.CandidateResponse) *models.InterviewReport {
	var relevanceSum, claritySum, technicalSum float64
	for _, r := range responses {
		relevanceSum += r.Relevance
		claritySum += r.Clarity
		technicalSum += r.TechnicalAccuracy
	}

	n := float64(len(responses))
	technical := roundScore(technicalSum / n)
	communication := roundScore(claritySum / n)
	culturalFit := roundScore(relevanceSum / n)
	overall := roundScore((technical + communication + culturalFit) / 3)

	dimensions := []struct {
		name  string
		score float64
	}{
		{"Technical knowledge", technical},
		{"Communication", communication},
		{"Cultural fit", culturalFit},
	}

	var strengths, improvements []string
	for _, d := range dimensions {
		if d.score >= strengthThreshold {
			strengths = append(strengths, d.name)
		}
		if d.score <= improvementThreshold {
			improvements = append(improvements, d.name)
		}
	}

	return &models.InterviewReport{
		SessionID:           sessionID,
		OverallScore:        overall,
		TechnicalScore:      technical,
		CommunicationScore:  communication,
		CulturalFitScore:    culturalFit,
		Strengths:           strengths,
		AreasForImprovement: improvements,
		Recommendation:      recommendationFor(overall),
	}
}

func roundScore(score float64) float64 {
	return math.Round(score*10) / 10
}

func recommendationFor(overall float64) string {
	switch {
	case overall >= 8:
		return RecommendationStrongHire
	case overall >= 6:
		return RecommendationHire
	case overall >= 4:
		return RecommendationBorderline
	default:
		return RecommendationNoHire
	}
}
