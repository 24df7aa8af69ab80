package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// SubmissionRepository reads the immutable quiz and assignment submission history.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

const quizSubmissionColumns = `id, quiz_id, course_id, student_id, attempt_number, answers, feedback,
	points_possible, points_scored, score, status, passed, submitted_at`

func scanQuizSubmission(row interface{ Scan(...any) error }) (*model.QuizSubmission, error) {
	s := &model.QuizSubmission{}
	err := row.Scan(&s.ID, &s.QuizID, &s.CourseID, &s.StudentID, &s.AttemptNumber, &s.Answers, &s.Feedback,
		&s.PointsPossible, &s.PointsScored, &s.Score, &s.Status, &s.Passed, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListQuizSubmissions returns a page of a quiz's submissions, newest first.
func (r *SubmissionRepository) ListQuizSubmissions(ctx context.Context, quizID uuid.UUID, limit, offset int) ([]model.QuizSubmission, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quiz_submissions WHERE quiz_id = $1`, quizID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+quizSubmissionColumns+` FROM quiz_submissions
		 WHERE quiz_id = $1
		 ORDER BY submitted_at DESC, id DESC
		 LIMIT $2 OFFSET $3`, quizID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.QuizSubmission{}
	for rows.Next() {
		s, err := scanQuizSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

// ListStudentQuizSubmissions returns every attempt a student made on a quiz, oldest first.
func (r *SubmissionRepository) ListStudentQuizSubmissions(ctx context.Context, quizID, studentID uuid.UUID) ([]model.QuizSubmission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quizSubmissionColumns+` FROM quiz_submissions
		 WHERE quiz_id = $1 AND student_id = $2
		 ORDER BY attempt_number ASC`, quizID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.QuizSubmission{}
	for rows.Next() {
		s, err := scanQuizSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ListAssignmentSubmissions returns a page of an assignment's submissions, newest first.
func (r *SubmissionRepository) ListAssignmentSubmissions(ctx context.Context, assignmentID uuid.UUID, limit, offset int) ([]model.AssignmentSubmission, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assignment_submissions WHERE assignment_id = $1`, assignmentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, assignment_id, course_id, student_id, file_ref, file_name, comment, status, score, feedback, submitted_at
		 FROM assignment_submissions
		 WHERE assignment_id = $1
		 ORDER BY submitted_at DESC, id DESC
		 LIMIT $2 OFFSET $3`, assignmentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.AssignmentSubmission{}
	for rows.Next() {
		var s model.AssignmentSubmission
		if err := rows.Scan(&s.ID, &s.AssignmentID, &s.CourseID, &s.StudentID, &s.FileRef, &s.FileName,
			&s.Comment, &s.Status, &s.Score, &s.Feedback, &s.SubmittedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}
