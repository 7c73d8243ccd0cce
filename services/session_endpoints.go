package services

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/echohire/backend/repository"
	"github.com/go-chi/chi/v5"
)

// maxAnswerUploadSize bounds answer recordings; a few minutes of webm audio
// fits comfortably.
const maxAnswerUploadSize = 32 << 20

type InterviewEndpoints struct {
	manager *InterviewManager
	reports *ReportAggregator
	repo    *repository.GORMRepository
}

func NewInterviewEndpoints(manager *InterviewManager, reports *ReportAggregator, repo *repository.GORMRepository) *InterviewEndpoints {
	return &InterviewEndpoints{
		manager: manager,
		reports: reports,
		repo:    repo,
	}
}

type CreateInterviewRequest struct {
	JDID          string `json:"jd_id"`
	ResumeID      string `json:"resume_id"`
	JobRole       string `json:"job_role"`
	CandidateName string `json:"candidate_name"`
}

type EditQuestionRequest struct {
	QuestionText string `json:"question_text"`
}

func (e *InterviewEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/interviews", func(r chi.Router) {
		r.Post("/", e.CreateInterviewHandler)
		r.Get("/", e.SearchInterviewsHandler)
		r.Put("/questions/{id}", e.EditQuestionHandler)
		r.Get("/{id}", e.GetInterviewHandler)
		r.Post("/{id}/confirm", e.ConfirmInterviewHandler)
		r.Get("/{id}/validate", e.ValidateInterviewHandler)
		r.Post("/{id}/answer", e.SubmitAnswerHandler)
		r.Get("/{id}/report", e.GetReportHandler)
	})
}

func (e *InterviewEndpoints) CreateInterviewHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hasDocs := req.JDID != "" && req.ResumeID != ""
	if !hasDocs && req.JobRole == "" {
		writeError(w, http.StatusBadRequest, "Either jd_id and resume_id or job_role is required")
		return
	}

	session, questions, err := e.manager.CreateSession(r.Context(), CreateSessionRequest{
		JDID:          req.JDID,
		ResumeID:      req.ResumeID,
		JobRole:       req.JobRole,
		CandidateName: req.CandidateName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session":   session,
		"questions": questions,
		"message":   "Interview created in draft state. Review the questions and confirm to start.",
	})
}

func (e *InterviewEndpoints) EditQuestionHandler(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "id")
	if questionID == "" {
		writeError(w, http.StatusBadRequest, "Question ID is required")
		return
	}

	var req EditQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.QuestionText == "" {
		writeError(w, http.StatusBadRequest, "question_text is required")
		return
	}

	question, err := e.manager.EditQuestion(r.Context(), questionID, req.QuestionText)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"question": question,
	})
}

func (e *InterviewEndpoints) ConfirmInterviewHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	session, err := e.manager.ConfirmSession(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"message": "Interview confirmed and ready to start.",
	})
}

func (e *InterviewEndpoints) ValidateInterviewHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	result, err := e.manager.ValidateSession(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SubmitAnswerHandler accepts one recorded answer as multipart form data.
// On success the response body is the interviewer's next spoken prompt as
// MP3 audio, with progress reported in headers; when synthesis was
// unavailable the body falls back to JSON.
func (e *InterviewEndpoints) SubmitAnswerHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	if err := r.ParseMultipartForm(maxAnswerUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read answer audio", "error", err, "session_id", sessionID)
		writeError(w, http.StatusBadRequest, "Failed to read audio file")
		return
	}

	mimeType := header.Header.Get("Content-Type")

	result, err := e.manager.SubmitAnswer(r.Context(), sessionID, audioData, mimeType)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("X-Interview-Status", result.Status)
	w.Header().Set("X-Total-Questions", strconv.Itoa(result.TotalQuestions))
	w.Header().Set("X-Answered-Questions", strconv.Itoa(result.AnsweredQuestions))

	if result.Audio != nil {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		w.Write(result.Audio)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             result.Status,
		"current_index":      result.CurrentIndex,
		"total_questions":    result.TotalQuestions,
		"answered_questions": result.AnsweredQuestions,
		"next_question_text": result.NextQuestionText,
		"remark_text":        result.RemarkText,
		"transcript":         result.Transcript,
		"feedback":           result.Feedback,
	})
}

func (e *InterviewEndpoints) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	report, err := e.reports.BuildReport(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report": report,
	})
}

func (e *InterviewEndpoints) GetInterviewHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	session, err := e.repo.GetSessionWithDetails(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get interview")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Interview not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
	})
}

func (e *InterviewEndpoints) SearchInterviewsHandler(w http.ResponseWriter, r *http.Request) {
	candidateName := r.URL.Query().Get("candidate_name")
	company := r.URL.Query().Get("company")
	status := r.URL.Query().Get("status")

	sessions, err := e.repo.SearchSessions(r.Context(), candidateName, company, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to search interviews")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// writeServiceError maps core error kinds to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrEmptyQuestionSet), errors.Is(err, ErrReportNotReady):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrTranscriptionFailure):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrGenerationFailure), errors.Is(err, ErrScoringFailure), errors.Is(err, ErrSynthesisFailure):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("Unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
