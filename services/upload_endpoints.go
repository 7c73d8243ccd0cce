package services

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/echohire/backend/models"
	"github.com/echohire/backend/repository"
	"github.com/go-chi/chi/v5"
)

const maxDocumentUploadSize = 8 << 20

// ExtractedJobDescription holds structured fields pulled from JD text.
type ExtractedJobDescription struct {
	Title              string
	Company            string
	Requirements       []string
	SkillsRequired     []string
	ExperienceRequired string
}

// ExtractedResume holds structured fields pulled from resume text.
type ExtractedResume struct {
	CandidateName string
	Email         string
	Phone         string
	Skills        []string
	Experience    []string
}

// DocumentExtractor pulls structured metadata out of uploaded document
// text. Extraction failing never fails an upload; the raw content is stored
// either way.
type DocumentExtractor interface {
	ExtractJobDescription(ctx context.Context, content string) (*ExtractedJobDescription, error)
	ExtractResume(ctx context.Context, content string) (*ExtractedResume, error)
}

type UploadEndpoints struct {
	repo      *repository.GORMRepository
	extractor DocumentExtractor
}

func NewUploadEndpoints(repo *repository.GORMRepository, extractor DocumentExtractor) *UploadEndpoints {
	return &UploadEndpoints{
		repo:      repo,
		extractor: extractor,
	}
}

func (e *UploadEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/uploads", func(r chi.Router) {
		r.Post("/jd", e.UploadJobDescriptionHandler)
		r.Post("/resume", e.UploadResumeHandler)
	})
}

func (e *UploadEndpoints) UploadJobDescriptionHandler(w http.ResponseWriter, r *http.Request) {
	content, fileName, fileType, ok := readDocumentUpload(w, r)
	if !ok {
		return
	}

	jd := &models.JobDescription{
		Content:  content,
		FileName: fileName,
		FileType: fileType,
	}

	if extracted, err := e.extractor.ExtractJobDescription(r.Context(), content); err != nil {
		slog.Warn("Job description extraction failed, storing raw content", "error", err, "file_name", fileName)
		jd.Title = "Unknown Role"
	} else {
		jd.Title = extracted.Title
		jd.Company = extracted.Company
		jd.Requirements = extracted.Requirements
		jd.SkillsRequired = extracted.SkillsRequired
		jd.ExperienceRequired = extracted.ExperienceRequired
	}
	if jd.Title == "" {
		jd.Title = "Unknown Role"
	}

	if err := e.repo.CreateJobDescription(r.Context(), jd); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store job description")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"jd_id":   jd.ID,
		"title":   jd.Title,
		"company": jd.Company,
		"message": "Job description uploaded successfully",
	})
}

func (e *UploadEndpoints) UploadResumeHandler(w http.ResponseWriter, r *http.Request) {
	content, fileName, fileType, ok := readDocumentUpload(w, r)
	if !ok {
		return
	}

	resume := &models.CandidateResume{
		Content:  content,
		FileName: fileName,
		FileType: fileType,
	}

	if extracted, err := e.extractor.ExtractResume(r.Context(), content); err != nil {
		slog.Warn("Resume extraction failed, storing raw content", "error", err, "file_name", fileName)
	} else {
		resume.CandidateName = extracted.CandidateName
		resume.Email = extracted.Email
		resume.Phone = extracted.Phone
		resume.Skills = extracted.Skills
		resume.Experience = extracted.Experience
	}

	if err := e.repo.CreateCandidateResume(r.Context(), resume); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store resume")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"resume_id":      resume.ID,
		"candidate_name": resume.CandidateName,
		"message":        "Resume uploaded successfully",
	})
}

// readDocumentUpload extracts the text content of an uploaded document from
// the multipart "file" field. Writes the error response itself and returns
// ok=false when the upload is unusable.
func readDocumentUpload(w http.ResponseWriter, r *http.Request) (content, fileName, fileType string, ok bool) {
	if err := r.ParseMultipartForm(maxDocumentUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return "", "", "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return "", "", "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read uploaded document", "error", err, "file_name", header.Filename)
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return "", "", "", false
	}

	content = strings.TrimSpace(string(data))
	if content == "" {
		writeError(w, http.StatusBadRequest, "Uploaded file is empty")
		return "", "", "", false
	}

	return content, header.Filename, header.Header.Get("Content-Type"), true
}
