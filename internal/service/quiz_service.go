package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// QuizService manages quizzes and exposes their submissions for review.
type QuizService struct {
	courses     CourseStore
	quizzes     QuizStore
	submissions SubmissionStore
	guard       *access.Guard
	audit       Recorder
	log         zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(courses CourseStore, quizzes QuizStore, submissions SubmissionStore, guard *access.Guard, audit Recorder, log zerolog.Logger) *QuizService {
	return &QuizService{
		courses:     courses,
		quizzes:     quizzes,
		submissions: submissions,
		guard:       guard,
		audit:       audit,
		log:         log.With().Str("component", "quiz_service").Logger(),
	}
}

// List returns the course's quizzes, redacted for non-reviewers.
func (s *QuizService) List(ctx context.Context, p model.Principal, courseID uuid.UUID) ([]model.Quiz, error) {
	reviewer, err := s.visibility(ctx, p, courseID)
	if err != nil {
		return nil, err
	}

	quizzes, err := s.quizzes.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, apperror.Internal("list quizzes", err)
	}
	if !reviewer {
		for i := range quizzes {
			quizzes[i] = quizzes[i].Redacted()
		}
	}
	return quizzes, nil
}

// Get returns one quiz, redacted for non-reviewers.
func (s *QuizService) Get(ctx context.Context, p model.Principal, courseID, quizID uuid.UUID) (*model.Quiz, error) {
	reviewer, err := s.visibility(ctx, p, courseID)
	if err != nil {
		return nil, err
	}
	q, err := loadQuiz(ctx, s.quizzes, courseID, quizID)
	if err != nil {
		return nil, err
	}
	if !reviewer {
		r := q.Redacted()
		q = &r
	}
	return q, nil
}

// Create adds a quiz. Each question receives a stable id and omitted
// settings fall back to the platform defaults.
func (s *QuizService) Create(ctx context.Context, p model.Principal, courseID uuid.UUID, req *model.CreateQuizRequest) (*model.Quiz, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(p, access.ContentWrite, access.Course(course)); err != nil {
		return nil, err
	}

	q := &model.Quiz{
		CourseID:     courseID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		TimeLimit:    model.DefaultQuizTimeLimit,
		PassingScore: model.DefaultQuizPassingScore,
		MaxAttempts:  model.DefaultQuizMaxAttempts,
		Questions:    BuildQuestions(req.Questions),
	}
	if req.TimeLimit != nil {
		q.TimeLimit = *req.TimeLimit
	}
	if req.PassingScore != nil {
		q.PassingScore = *req.PassingScore
	}
	if req.MaxAttempts != nil {
		q.MaxAttempts = *req.MaxAttempts
	}

	if err := s.quizzes.Create(ctx, q); err != nil {
		return nil, apperror.Internal("create quiz", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionQuizCreated, &courseID, map[string]any{
		"quiz_id":        q.ID,
		"title":          q.Title,
		"question_count": len(q.Questions),
	}))
	return q, nil
}

// Delete removes a quiz, its submissions and its attempt summaries.
func (s *QuizService) Delete(ctx context.Context, p model.Principal, courseID, quizID uuid.UUID) error {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return err
	}
	if err := s.guard.Authorize(p, access.ContentWrite, access.Course(course)); err != nil {
		return err
	}
	q, err := loadQuiz(ctx, s.quizzes, courseID, quizID)
	if err != nil {
		return err
	}

	if err := s.quizzes.Delete(ctx, courseID, quizID); err != nil {
		return storeErr("delete quiz", "quiz", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionQuizDeleted, &courseID, map[string]any{
		"quiz_id": q.ID,
		"title":   q.Title,
	}))
	return nil
}

// Submissions returns a page of every student's attempts for review.
func (s *QuizService) Submissions(ctx context.Context, p model.Principal, courseID, quizID uuid.UUID, page, perPage int) ([]model.QuizSubmission, int, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.guard.Authorize(p, access.ContentReview, access.Course(course)); err != nil {
		return nil, 0, err
	}
	if _, err := loadQuiz(ctx, s.quizzes, courseID, quizID); err != nil {
		return nil, 0, err
	}

	page, perPage = NormalizePage(page, perPage)
	subs, total, err := s.submissions.ListQuizSubmissions(ctx, quizID, perPage, offsetOf(page, perPage))
	if err != nil {
		return nil, 0, apperror.Internal("list quiz submissions", err)
	}
	return subs, total, nil
}

// MySubmissions returns the principal's own attempts at a quiz, oldest first.
func (s *QuizService) MySubmissions(ctx context.Context, p model.Principal, courseID, quizID uuid.UUID) ([]model.QuizSubmission, error) {
	if _, err := loadQuiz(ctx, s.quizzes, courseID, quizID); err != nil {
		return nil, err
	}
	subs, err := s.submissions.ListStudentQuizSubmissions(ctx, quizID, p.UserID)
	if err != nil {
		return nil, apperror.Internal("list own quiz submissions", err)
	}
	return subs, nil
}

func (s *QuizService) visibility(ctx context.Context, p model.Principal, courseID uuid.UUID) (bool, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return false, err
	}
	reviewer := s.guard.Allowed(p, access.ContentReview, access.Course(course))
	if !reviewer && course.Status != model.CourseStatusActive {
		return false, apperror.NotFound("course not found")
	}
	return reviewer, nil
}

// BuildQuestions converts validated question input into stored questions.
// Manual-review types never keep a correct answer.
func BuildQuestions(in []model.QuestionInput) []model.Question {
	out := make([]model.Question, 0, len(in))
	for _, qi := range in {
		q := model.Question{
			ID:          uuid.NewString(),
			Prompt:      strings.TrimSpace(qi.Prompt),
			Type:        model.QuestionType(qi.Type),
			Points:      model.DefaultQuestionPoints,
			Explanation: qi.Explanation,
		}
		if qi.Points != nil {
			q.Points = *qi.Points
		}
		for _, opt := range qi.Options {
			q.Options = append(q.Options, strings.TrimSpace(opt))
		}
		if !q.Type.ManualReview() && qi.CorrectAnswer != nil {
			answer := strings.TrimSpace(*qi.CorrectAnswer)
			if q.Type == model.QuestionTrueFalse {
				answer = strings.ToLower(answer)
			}
			q.CorrectAnswer = &answer
		}
		out = append(out, q)
	}
	return out
}

func loadQuiz(ctx context.Context, quizzes QuizStore, courseID, quizID uuid.UUID) (*model.Quiz, error) {
	q, err := quizzes.GetByID(ctx, quizID)
	if err != nil {
		return nil, storeErr("load quiz", "quiz", err)
	}
	if q.CourseID != courseID {
		return nil, apperror.NotFound("quiz not found")
	}
	return q, nil
}
