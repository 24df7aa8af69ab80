package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// QuizRepository handles quiz data access. Questions are stored as a JSONB array.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const quizColumns = `id, course_id, title, description, time_limit, passing_score, max_attempts, questions, created_at, updated_at`

func scanQuiz(row interface{ Scan(...any) error }) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := row.Scan(&q.ID, &q.CourseID, &q.Title, &q.Description, &q.TimeLimit,
		&q.PassingScore, &q.MaxAttempts, &q.Questions, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Create inserts a quiz with its questions.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (course_id, title, description, time_limit, passing_score, max_attempts, questions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		q.CourseID, q.Title, q.Description, q.TimeLimit, q.PassingScore, q.MaxAttempts, questions,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// GetByID retrieves a quiz by id.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q, err := scanQuiz(r.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id))
	return q, notFound(err)
}

// ListByCourse returns a course's quizzes, oldest first.
func (r *QuizRepository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE course_id = $1 ORDER BY created_at ASC, id ASC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quizzes := []model.Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, *q)
	}
	return quizzes, rows.Err()
}

// Delete removes a quiz, its submissions, and its attempt summary from every
// enrollment of the course in one transaction.
func (r *QuizRepository) Delete(ctx context.Context, courseID, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM quiz_submissions WHERE quiz_id = $1`, id); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM quizzes WHERE id = $1 AND course_id = $2`, id, courseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`UPDATE enrollments
		 SET quiz_attempts = quiz_attempts - $1::text,
		     version = version + 1
		 WHERE course_id = $2 AND quiz_attempts ? $1::text`,
		id.String(), courseID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CountByCourse returns the number of quizzes in a course.
func (r *QuizRepository) CountByCourse(ctx context.Context, courseID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quizzes WHERE course_id = $1`, courseID).Scan(&n)
	return n, err
}
