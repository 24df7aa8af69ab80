package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/repository"
)

// The store interfaces below are implemented by the repository package.

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, filter model.UserFilter, limit, offset int) ([]model.User, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) error
	UpdateProfile(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CourseStore interface {
	Create(ctx context.Context, c *model.Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error)
	List(ctx context.Context, filter model.CourseFilter, limit, offset int) ([]model.Course, int, error)
	Update(ctx context.Context, c *model.Course) error
	DeleteCascade(ctx context.Context, id uuid.UUID) (*model.CourseCascade, error)
}

type ModuleStore interface {
	Create(ctx context.Context, m *model.Module) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Module, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Module, error)
	ListIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
	Update(ctx context.Context, m *model.Module) error
	Delete(ctx context.Context, courseID, id uuid.UUID) error
}

type QuizStore interface {
	Create(ctx context.Context, q *model.Quiz) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Quiz, error)
	CountByCourse(ctx context.Context, courseID uuid.UUID) (int, error)
	Delete(ctx context.Context, courseID, id uuid.UUID) error
}

type AssignmentStore interface {
	Create(ctx context.Context, a *model.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Assignment, error)
	CountByCourse(ctx context.Context, courseID uuid.UUID) (int, error)
	Delete(ctx context.Context, courseID, id uuid.UUID) error
}

type EnrollmentStore interface {
	Create(ctx context.Context, e *model.Enrollment) error
	Get(ctx context.Context, studentID, courseID uuid.UUID) (*model.Enrollment, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.EnrollmentWithCourse, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID, limit, offset int) ([]model.Enrollment, int, error)
	Aggregate(ctx context.Context, courseID uuid.UUID) (*repository.EnrollmentAggregate, error)
	Update(ctx context.Context, e *model.Enrollment) error
	RecordQuizSubmission(ctx context.Context, s *model.QuizSubmission, e *model.Enrollment) error
	RecordAssignmentSubmission(ctx context.Context, s *model.AssignmentSubmission, e *model.Enrollment) error
}

type SubmissionStore interface {
	ListQuizSubmissions(ctx context.Context, quizID uuid.UUID, limit, offset int) ([]model.QuizSubmission, int, error)
	ListStudentQuizSubmissions(ctx context.Context, quizID, studentID uuid.UUID) ([]model.QuizSubmission, error)
	ListAssignmentSubmissions(ctx context.Context, assignmentID uuid.UUID, limit, offset int) ([]model.AssignmentSubmission, int, error)
}

type DashboardStore interface {
	PlatformStats(ctx context.Context) (*model.PlatformStats, error)
	TopCourses(ctx context.Context, limit int) ([]model.CourseSummary, error)
}

type AuditStore interface {
	Insert(ctx context.Context, e *model.AuditEntry) error
	Query(ctx context.Context, filter model.AuditFilter, limit, offset int) ([]model.AuditRecord, int, error)
}
