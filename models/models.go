package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - JobDescription, CandidateResume from document.go
// - InterviewSession, InterviewQuestion, CandidateResponse from interview.go
// - InterviewReport from report.go

// Database schema overview:
// 1. job_descriptions - Extracted text and metadata of uploaded JDs
// 2. candidate_resumes - Extracted text and metadata of uploaded resumes
// 3. interview_sessions - One row per interview, owns the status state machine
// 4. interview_questions - The fixed, ordered question set of a session
// 5. candidate_responses - One scored answer per question, immutable
// 6. interview_reports - Cached session-level rollup, written once
