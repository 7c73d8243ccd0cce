package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/echohire/backend/models"
	"github.com/google/uuid"
)

// memoryStore is an in-memory SessionStore for tests. It mimics the real
// repository's contract: (nil, nil) on missing rows and a guarded
// current_index update in AppendResponseAndAdvance.
type memoryStore struct {
	mu        sync.Mutex
	jds       map[string]models.JobDescription
	resumes   map[string]models.CandidateResume
	sessions  map[string]models.InterviewSession
	questions map[string][]models.InterviewQuestion // by session, interview order
	responses map[string][]models.CandidateResponse // by session
	reports   map[string]models.InterviewReport     // by session

	reportCreates int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		jds:       make(map[string]models.JobDescription),
		resumes:   make(map[string]models.CandidateResume),
		sessions:  make(map[string]models.InterviewSession),
		questions: make(map[string][]models.InterviewQuestion),
		responses: make(map[string][]models.CandidateResponse),
		reports:   make(map[string]models.InterviewReport),
	}
}

func (s *memoryStore) GetJobDescription(ctx context.Context, id string) (*models.JobDescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jd, ok := s.jds[id]; ok {
		return &jd, nil
	}
	return nil, nil
}

func (s *memoryStore) GetCandidateResume(ctx context.Context, id string) (*models.CandidateResume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resume, ok := s.resumes[id]; ok {
		return &resume, nil
	}
	return nil, nil
}

func (s *memoryStore) CreateSessionWithQuestions(ctx context.Context, session *models.InterviewSession, questions []models.InterviewQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.New().String()
		}
		questions[i].SessionID = session.ID
	}
	s.sessions[session.ID] = *session
	s.questions[session.ID] = append([]models.InterviewQuestion(nil), questions...)
	return nil
}

func (s *memoryStore) GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return &session, nil
	}
	return nil, nil
}

func (s *memoryStore) UpdateSession(ctx context.Context, session *models.InterviewSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *memoryStore) GetQuestion(ctx context.Context, questionID string) (*models.InterviewQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, questions := range s.questions {
		for _, q := range questions {
			if q.ID == questionID {
				return &q, nil
			}
		}
	}
	return nil, nil
}

func (s *memoryStore) GetQuestions(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.InterviewQuestion(nil), s.questions[sessionID]...), nil
}

func (s *memoryStore) UpdateQuestion(ctx context.Context, question *models.InterviewQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	questions := s.questions[question.SessionID]
	for i := range questions {
		if questions[i].ID == question.ID {
			questions[i] = *question
			return nil
		}
	}
	return fmt.Errorf("question %s not found", question.ID)
}

func (s *memoryStore) GetResponses(ctx context.Context, sessionID string) ([]models.CandidateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CandidateResponse(nil), s.responses[sessionID]...), nil
}

func (s *memoryStore) AppendResponseAndAdvance(ctx context.Context, response *models.CandidateResponse, newIndex int, newStatus string, startedAt, endedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[response.SessionID]
	if !ok {
		return fmt.Errorf("session %s not found", response.SessionID)
	}
	if session.CurrentIndex != newIndex-1 {
		return fmt.Errorf("session advanced concurrently")
	}
	for _, r := range s.responses[response.SessionID] {
		if r.QuestionID == response.QuestionID {
			return fmt.Errorf("duplicate response for question %s", response.QuestionID)
		}
	}

	if response.ID == "" {
		response.ID = uuid.New().String()
	}
	s.responses[response.SessionID] = append(s.responses[response.SessionID], *response)

	session.CurrentIndex = newIndex
	session.Status = newStatus
	if startedAt != nil {
		session.StartedAt = startedAt
	}
	if endedAt != nil {
		session.EndedAt = endedAt
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *memoryStore) GetInterviewReport(ctx context.Context, sessionID string) (*models.InterviewReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if report, ok := s.reports[sessionID]; ok {
		return &report, nil
	}
	return nil, nil
}

func (s *memoryStore) CreateInterviewReport(ctx context.Context, report *models.InterviewReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.SessionID]; exists {
		return fmt.Errorf("report already exists for session %s", report.SessionID)
	}
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	s.reports[report.SessionID] = *report
	s.reportCreates++
	return nil
}

// Collaborator fakes

type fakeGenerator struct {
	questions []GeneratedQuestion
	err       error
}

func (f *fakeGenerator) GenerateQuestions(ctx context.Context, req GenerationRequest) ([]GeneratedQuestion, error) {
	return f.questions, f.err
}

type fakeTranscriber struct {
	transcript string
	err        error
	calls      int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	f.calls++
	return f.transcript, f.err
}

type fakeScorer struct {
	evaluation *Evaluation
	err        error
	calls      int
}

func (f *fakeScorer) Evaluate(ctx context.Context, questionText, transcript string) (*Evaluation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.evaluation, nil
}

type fakeSynthesizer struct {
	audio []byte
	err   error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return f.audio, f.err
}

func fiveQuestions() []GeneratedQuestion {
	types := []string{"technical", "experience", "problem-solving", "behavioral", "cultural-fit"}
	questions := make([]GeneratedQuestion, len(types))
	for i, qt := range types {
		questions[i] = GeneratedQuestion{
			Text: fmt.Sprintf("Tell me about topic %d in depth.", i+1),
			Type: qt,
		}
	}
	return questions
}

func goodEvaluation() *Evaluation {
	return &Evaluation{
		Relevance:         8,
		Clarity:           7,
		TechnicalAccuracy: 9,
		Feedback:          "Solid answer.",
		Improvements:      "More examples.",
	}
}

type managerFixture struct {
	store       *memoryStore
	generator   *fakeGenerator
	transcriber *fakeTranscriber
	scorer      *fakeScorer
	synth       *fakeSynthesizer
	manager     *InterviewManager
}

func newManagerFixture() *managerFixture {
	f := &managerFixture{
		store:       newMemoryStore(),
		generator:   &fakeGenerator{questions: fiveQuestions()},
		transcriber: &fakeTranscriber{transcript: "I would use connection pooling and retries."},
		scorer:      &fakeScorer{evaluation: goodEvaluation()},
		synth:       &fakeSynthesizer{audio: []byte("mp3-bytes")},
	}
	pipeline := NewScoringPipeline(f.transcriber, f.scorer)
	f.manager = NewInterviewManager(f.store, f.generator, pipeline, f.synth, nil)
	return f
}

// assertIndexMatchesResponses checks the core bookkeeping rule after every
// operation: the session pointer equals the number of stored responses.
func assertIndexMatchesResponses(t *testing.T, store *memoryStore, sessionID string) {
	t.Helper()
	session, _ := store.GetInterviewSession(context.Background(), sessionID)
	responses, _ := store.GetResponses(context.Background(), sessionID)
	if session.CurrentIndex != len(responses) {
		t.Fatalf("current_index = %d, want %d (response count)", session.CurrentIndex, len(responses))
	}
}

func TestCreateSessionDraft(t *testing.T) {
	f := newManagerFixture()

	session, questions, err := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "Backend Engineer"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.Status != models.SessionStatusDraft {
		t.Errorf("status = %q, want draft", session.Status)
	}
	if session.CurrentIndex != 0 {
		t.Errorf("current_index = %d, want 0", session.CurrentIndex)
	}
	if len(questions) != 5 {
		t.Fatalf("question count = %d, want 5", len(questions))
	}
	for i, q := range questions {
		if q.SequenceNumber != i+1 {
			t.Errorf("question %d sequence = %d, want %d", i, q.SequenceNumber, i+1)
		}
	}
	assertIndexMatchesResponses(t, f.store, session.ID)
}

func TestCreateSessionFromDocuments(t *testing.T) {
	f := newManagerFixture()
	f.store.jds["jd-1"] = models.JobDescription{ID: "jd-1", Title: "Platform Engineer", Content: "Go, Postgres, Kubernetes"}
	f.store.resumes["res-1"] = models.CandidateResume{ID: "res-1", CandidateName: "Jordan Wu", Content: "Five years of Go services"}

	session, _, err := f.manager.CreateSession(context.Background(), CreateSessionRequest{JDID: "jd-1", ResumeID: "res-1"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.JobRole != "Platform Engineer" {
		t.Errorf("job_role = %q, want jd title", session.JobRole)
	}
	if session.CandidateName != "Jordan Wu" {
		t.Errorf("candidate_name = %q, want resume name", session.CandidateName)
	}
}

func TestCreateSessionUnknownDocuments(t *testing.T) {
	f := newManagerFixture()

	_, _, err := f.manager.CreateSession(context.Background(), CreateSessionRequest{JDID: "missing", ResumeID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCreateSessionGenerationFailure(t *testing.T) {
	f := newManagerFixture()
	f.generator.err = errors.New("model unavailable")

	_, _, err := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "SRE"})
	if !errors.Is(err, ErrGenerationFailure) {
		t.Fatalf("error = %v, want ErrGenerationFailure", err)
	}
	if len(f.store.sessions) != 0 {
		t.Errorf("sessions stored = %d, want 0 when generation fails", len(f.store.sessions))
	}
}

func TestCreateSessionEmptyGeneration(t *testing.T) {
	f := newManagerFixture()
	f.generator.questions = nil

	_, _, err := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "SRE"})
	if !errors.Is(err, ErrGenerationFailure) {
		t.Fatalf("error = %v, want ErrGenerationFailure", err)
	}
	if len(f.store.sessions) != 0 {
		t.Errorf("sessions stored = %d, want 0", len(f.store.sessions))
	}
}

func TestEditQuestionWhileDraft(t *testing.T) {
	f := newManagerFixture()
	session, questions, _ := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "SRE"})

	edited, err := f.manager.EditQuestion(context.Background(), questions[2].ID, "Describe a production incident you debugged.")
	if err != nil {
		t.Fatalf("EditQuestion() error = %v", err)
	}
	if !edited.IsModified {
		t.Error("IsModified not set after edit")
	}
	if edited.QuestionText != "Describe a production incident you debugged." {
		t.Errorf("question text = %q", edited.QuestionText)
	}

	stored, _ := f.store.GetQuestions(context.Background(), session.ID)
	if stored[2].QuestionText != edited.QuestionText {
		t.Error("edit not persisted")
	}
}

func TestEditQuestionAfterConfirmRejected(t *testing.T) {
	f := newManagerFixture()
	session, questions, _ := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "SRE"})
	if _, err := f.manager.ConfirmSession(context.Background(), session.ID); err != nil {
		t.Fatalf("ConfirmSession() error = %v", err)
	}

	_, err := f.manager.EditQuestion(context.Background(), questions[0].ID, "New text that is plenty long.")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("error = %v, want ErrInvalidState", err)
	}
}

func TestConfirmSession(t *testing.T) {
	f := newManagerFixture()
	session, _, _ := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "SRE"})

	confirmed, err := f.manager.ConfirmSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ConfirmSession() error = %v", err)
	}
	if confirmed.Status != models.SessionStatusReady {
		t.Errorf("status = %q, want ready", confirmed.Status)
	}

	// Confirming twice is rejected.
	if _, err := f.manager.ConfirmSession(context.Background(), session.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second confirm error = %v, want ErrInvalidState", err)
	}
}

func TestConfirmEmptyQuestionSet(t *testing.T) {
	f := newManagerFixture()
	f.store.sessions["empty"] = models.InterviewSession{ID: "empty", Status: models.SessionStatusDraft}

	_, err := f.manager.ConfirmSession(context.Background(), "empty")
	if !errors.Is(err, ErrEmptyQuestionSet) {
		t.Fatalf("error = %v, want ErrEmptyQuestionSet", err)
	}
}

func TestSubmitAnswerOnDraftRejected(t *testing.T) {
	f := newManagerFixture()
	session, _, _ := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "SRE"})

	_, err := f.manager.SubmitAnswer(context.Background(), session.ID, []byte("audio"), "audio/webm")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("error = %v, want ErrInvalidState", err)
	}
	assertIndexMatchesResponses(t, f.store, session.ID)
}

func TestSubmitAnswerFullInterview(t *testing.T) {
	f := newManagerFixture()
	session, questions, _ := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "SRE"})
	f.manager.ConfirmSession(context.Background(), session.ID)

	for i := 0; i < len(questions); i++ {
		result, err := f.manager.SubmitAnswer(context.Background(), session.ID, []byte("audio"), "audio/webm")
		if err != nil {
			t.Fatalf("SubmitAnswer(%d) error = %v", i, err)
		}
		assertIndexMatchesResponses(t, f.store, session.ID)

		if result.CurrentIndex != i+1 {
			t.Errorf("answer %d: current_index = %d, want %d", i, result.CurrentIndex, i+1)
		}
		if i < len(questions)-1 {
			if result.Status != models.SessionStatusInProgress {
				t.Errorf("answer %d: status = %q, want in_progress", i, result.Status)
			}
			if result.NextQuestionText == nil || *result.NextQuestionText != questions[i+1].QuestionText {
				t.Errorf("answer %d: wrong next question", i)
			}
			if !strings.HasPrefix(result.RemarkText, "Thank you for your response.") {
				t.Errorf("answer %d: remark = %q", i, result.RemarkText)
			}
		} else {
			if result.Status != models.SessionStatusCompleted {
				t.Errorf("final answer: status = %q, want completed", result.Status)
			}
			if result.NextQuestionText != nil {
				t.Error("final answer: next question should be nil")
			}
			if result.RemarkText != ClosingRemark {
				t.Errorf("final remark = %q", result.RemarkText)
			}
		}
		if len(result.Audio) == 0 {
			t.Errorf("answer %d: missing synthesized audio", i)
		}
	}

	stored, _ := f.store.GetInterviewSession(context.Background(), session.ID)
	if stored.StartedAt == nil || stored.EndedAt == nil {
		t.Error("started_at/ended_at not stamped")
	}

	// Completed sessions reject further answers.
	_, err := f.manager.SubmitAnswer(context.Background(), session.ID, []byte("audio"), "audio/webm")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("post-completion submit error = %v, want ErrInvalidState", err)
	}
}

func TestSubmitAnswerPipelineFailureLeavesStateUntouched(t *testing.T) {
	f := newManagerFixture()
	session, _, _ := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "SRE"})
	f.manager.ConfirmSession(context.Background(), session.ID)

	f.scorer.err = errors.New("scorer down")
	_, err := f.manager.SubmitAnswer(context.Background(), session.ID, []byte("audio"), "audio/webm")
	if !errors.Is(err, ErrScoringFailure) {
		t.Fatalf("error = %v, want ErrScoringFailure", err)
	}

	stored, _ := f.store.GetInterviewSession(context.Background(), session.ID)
	if stored.Status != models.SessionStatusReady || stored.CurrentIndex != 0 {
		t.Fatalf("session mutated by failed pipeline: status=%q index=%d", stored.Status, stored.CurrentIndex)
	}
	assertIndexMatchesResponses(t, f.store, session.ID)

	// Retrying the same question after the scorer recovers records exactly
	// one response.
	f.scorer.err = nil
	result, err := f.manager.SubmitAnswer(context.Background(), session.ID, []byte("audio"), "audio/webm")
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if result.CurrentIndex != 1 {
		t.Errorf("current_index = %d, want 1", result.CurrentIndex)
	}
	responses, _ := f.store.GetResponses(context.Background(), session.ID)
	if len(responses) != 1 {
		t.Fatalf("response count = %d, want 1", len(responses))
	}
}

func TestSubmitAnswerSynthesisFailureDegradesToText(t *testing.T) {
	f := newManagerFixture()
	session, _, _ := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "SRE"})
	f.manager.ConfirmSession(context.Background(), session.ID)

	f.synth.err = errors.New("tts quota exhausted")
	result, err := f.manager.SubmitAnswer(context.Background(), session.ID, []byte("audio"), "audio/webm")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v, synthesis failure must not fail submission", err)
	}
	if result.Audio != nil {
		t.Error("expected nil audio on synthesis failure")
	}
	if result.CurrentIndex != 1 {
		t.Errorf("current_index = %d, want 1 (answer still recorded)", result.CurrentIndex)
	}
}

func TestSubmitAnswerConcurrent(t *testing.T) {
	f := newManagerFixture()
	session, questions, _ := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "SRE"})
	f.manager.ConfirmSession(context.Background(), session.ID)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.manager.SubmitAnswer(context.Background(), session.ID, []byte("audio"), "audio/webm")
		}()
	}
	wg.Wait()

	assertIndexMatchesResponses(t, f.store, session.ID)
	responses, _ := f.store.GetResponses(context.Background(), session.ID)
	seen := make(map[string]bool)
	for _, r := range responses {
		if seen[r.QuestionID] {
			t.Fatalf("question %s answered twice", r.QuestionID)
		}
		seen[r.QuestionID] = true
	}
	if len(responses) > len(questions) {
		t.Fatalf("response count = %d exceeds question count %d", len(responses), len(questions))
	}
}

func TestValidateSession(t *testing.T) {
	f := newManagerFixture()
	session, _, _ := f.manager.CreateSession(context.Background(), CreateSessionRequest{JobRole: "SRE"})

	result, err := f.manager.ValidateSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if result.Valid {
		t.Error("draft session reported valid")
	}
	if result.TotalQuestions != 5 {
		t.Errorf("total_questions = %d, want 5", result.TotalQuestions)
	}

	f.manager.ConfirmSession(context.Background(), session.ID)
	result, _ = f.manager.ValidateSession(context.Background(), session.ID)
	if !result.Valid {
		t.Error("ready session reported invalid")
	}

	if _, err := f.manager.ValidateSession(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown session error = %v, want ErrNotFound", err)
	}
}
