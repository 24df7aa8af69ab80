package service

import (
	"context"
	"io"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/repository"
)

// memDB is an in-memory stand-in for the Postgres repositories. Every
// read hands out copies so callers cannot mutate stored state, mirroring
// what a database round trip gives the services.
type memDB struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*model.User
	courses     map[uuid.UUID]*model.Course
	modules     map[uuid.UUID]*model.Module
	quizzes     map[uuid.UUID]*model.Quiz
	assignments map[uuid.UUID]*model.Assignment
	enrollments map[string]*model.Enrollment
	quizSubs    []*model.QuizSubmission
	assignSubs  []*model.AssignmentSubmission
	audit       []model.AuditEntry
	seq         int

	// beforeCAS runs, unlocked, before each enrollment compare-and-swap.
	beforeCAS func()
	// casConflicts forces that many version conflicts before writes succeed.
	casConflicts int
	casCalls     int
}

func newMemDB() *memDB {
	return &memDB{
		users:       map[uuid.UUID]*model.User{},
		courses:     map[uuid.UUID]*model.Course{},
		modules:     map[uuid.UUID]*model.Module{},
		quizzes:     map[uuid.UUID]*model.Quiz{},
		assignments: map[uuid.UUID]*model.Assignment{},
		enrollments: map[string]*model.Enrollment{},
	}
}

// tick returns strictly increasing timestamps for deterministic ordering.
func (db *memDB) tick() time.Time {
	db.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(db.seq) * time.Second)
}

func enrollmentKey(studentID, courseID uuid.UUID) string {
	return studentID.String() + "|" + courseID.String()
}

func cloneEnrollment(e *model.Enrollment) *model.Enrollment {
	c := *e
	c.CompletedModules = slices.Clone(e.CompletedModules)
	c.QuizAttempts = maps.Clone(e.QuizAttempts)
	c.AssignmentSubmissions = maps.Clone(e.AssignmentSubmissions)
	if e.CompletedAt != nil {
		at := *e.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// ─── Users ──────────────────────────────────────────────────────────────────

type memUsers struct{ db *memDB }

func (s memUsers) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = s.db.tick()
	u.UpdatedAt = u.CreatedAt
	c := *u
	s.db.users[u.ID] = &c
	return nil
}

func (s memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memUsers) List(_ context.Context, filter model.UserFilter, limit, offset int) ([]model.User, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.User{}
	for _, u := range s.db.users {
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, limit, offset), len(out), nil
}

func (s memUsers) UpdateStatus(_ context.Context, id uuid.UUID, status model.UserStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = status
	return nil
}

func (s memUsers) UpdateProfile(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.FirstName = u.FirstName
	stored.LastName = u.LastName
	stored.UpdatedAt = s.db.tick()
	u.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s memUsers) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, c := range s.db.courses {
		if c.InstructorID == id {
			return repository.ErrHasDependents
		}
	}
	for k, e := range s.db.enrollments {
		if e.StudentID == id {
			delete(s.db.enrollments, k)
		}
	}
	s.db.quizSubs = slices.DeleteFunc(s.db.quizSubs, func(q *model.QuizSubmission) bool { return q.StudentID == id })
	s.db.assignSubs = slices.DeleteFunc(s.db.assignSubs, func(a *model.AssignmentSubmission) bool { return a.StudentID == id })
	delete(s.db.users, id)
	return nil
}

// ─── Courses ────────────────────────────────────────────────────────────────

type memCourses struct{ db *memDB }

func (s memCourses) Create(_ context.Context, c *model.Course) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = s.db.tick()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	s.db.courses[c.ID] = &cp
	return nil
}

func (s memCourses) GetByID(_ context.Context, id uuid.UUID) (*model.Course, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s memCourses) List(_ context.Context, filter model.CourseFilter, limit, offset int) ([]model.Course, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q := strings.ToLower(filter.Query)
	out := []model.Course{}
	for _, c := range s.db.courses {
		if filter.InstructorID != nil && c.InstructorID != *filter.InstructorID {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Title), q) && !strings.Contains(strings.ToLower(c.Description), q) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, limit, offset), len(out), nil
}

func (s memCourses) Update(_ context.Context, c *model.Course) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.courses[c.ID]; !ok {
		return repository.ErrNotFound
	}
	c.UpdatedAt = s.db.tick()
	cp := *c
	s.db.courses[c.ID] = &cp
	return nil
}

func (s memCourses) DeleteCascade(_ context.Context, id uuid.UUID) (*model.CourseCascade, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.courses[id]; !ok {
		return nil, repository.ErrNotFound
	}
	out := &model.CourseCascade{}
	before := len(s.db.quizSubs)
	s.db.quizSubs = slices.DeleteFunc(s.db.quizSubs, func(q *model.QuizSubmission) bool { return q.CourseID == id })
	out.QuizSubmissions = int64(before - len(s.db.quizSubs))
	before = len(s.db.assignSubs)
	s.db.assignSubs = slices.DeleteFunc(s.db.assignSubs, func(a *model.AssignmentSubmission) bool { return a.CourseID == id })
	out.AssignmentSubmissions = int64(before - len(s.db.assignSubs))
	for k, e := range s.db.enrollments {
		if e.CourseID == id {
			delete(s.db.enrollments, k)
			out.Enrollments++
		}
	}
	for k, a := range s.db.assignments {
		if a.CourseID == id {
			delete(s.db.assignments, k)
			out.Assignments++
		}
	}
	for k, q := range s.db.quizzes {
		if q.CourseID == id {
			delete(s.db.quizzes, k)
			out.Quizzes++
		}
	}
	for k, m := range s.db.modules {
		if m.CourseID == id {
			delete(s.db.modules, k)
			out.Modules++
		}
	}
	delete(s.db.courses, id)
	return out, nil
}

// ─── Modules ────────────────────────────────────────────────────────────────

type memModules struct{ db *memDB }

func (s memModules) Create(_ context.Context, m *model.Module) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = s.db.tick()
	m.UpdatedAt = m.CreatedAt
	cp := *m
	s.db.modules[m.ID] = &cp
	s.recomputeLocked(m.CourseID)
	return nil
}

// recomputeLocked mirrors the repository's in-transaction progress rewrite
// for open enrollments after the module set changes.
func (s memModules) recomputeLocked(courseID uuid.UUID) {
	live := []uuid.UUID{}
	for _, m := range s.db.modules {
		if m.CourseID == courseID {
			live = append(live, m.ID)
		}
	}
	for _, e := range s.db.enrollments {
		if e.CourseID != courseID || e.IsCompleted() {
			continue
		}
		before := e.Progress
		e.RecomputeProgress(live)
		if e.Progress != before {
			e.Version++
		}
	}
}

func (s memModules) GetByID(_ context.Context, id uuid.UUID) (*model.Module, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.modules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s memModules) ListByCourse(_ context.Context, courseID uuid.UUID) ([]model.Module, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Module{}
	for _, m := range s.db.modules {
		if m.CourseID == courseID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s memModules) ListIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	mods, err := s.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(mods))
	for _, m := range mods {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s memModules) Update(_ context.Context, m *model.Module) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.modules[m.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *m
	s.db.modules[m.ID] = &cp
	return nil
}

func (s memModules) Delete(_ context.Context, courseID, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.modules[id]
	if !ok || m.CourseID != courseID {
		return repository.ErrNotFound
	}
	delete(s.db.modules, id)
	for _, e := range s.db.enrollments {
		if e.CourseID == courseID && slices.Contains(e.CompletedModules, id) {
			e.CompletedModules = slices.DeleteFunc(e.CompletedModules, func(x uuid.UUID) bool { return x == id })
			e.Version++
		}
	}
	s.recomputeLocked(courseID)
	return nil
}

// ─── Quizzes ────────────────────────────────────────────────────────────────

type memQuizzes struct{ db *memDB }

func (s memQuizzes) Create(_ context.Context, q *model.Quiz) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q.ID = uuid.New()
	q.CreatedAt = s.db.tick()
	q.UpdatedAt = q.CreatedAt
	cp := *q
	cp.Questions = slices.Clone(q.Questions)
	s.db.quizzes[q.ID] = &cp
	return nil
}

func (s memQuizzes) GetByID(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q, ok := s.db.quizzes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *q
	cp.Questions = slices.Clone(q.Questions)
	return &cp, nil
}

func (s memQuizzes) ListByCourse(_ context.Context, courseID uuid.UUID) ([]model.Quiz, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Quiz{}
	for _, q := range s.db.quizzes {
		if q.CourseID == courseID {
			cp := *q
			cp.Questions = slices.Clone(q.Questions)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s memQuizzes) CountByCourse(ctx context.Context, courseID uuid.UUID) (int, error) {
	qs, err := s.ListByCourse(ctx, courseID)
	return len(qs), err
}

func (s memQuizzes) Delete(_ context.Context, courseID, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q, ok := s.db.quizzes[id]
	if !ok || q.CourseID != courseID {
		return repository.ErrNotFound
	}
	s.db.quizSubs = slices.DeleteFunc(s.db.quizSubs, func(x *model.QuizSubmission) bool { return x.QuizID == id })
	delete(s.db.quizzes, id)
	for _, e := range s.db.enrollments {
		if _, ok := e.QuizAttempts[id.String()]; ok {
			delete(e.QuizAttempts, id.String())
			e.Version++
		}
	}
	return nil
}

// ─── Assignments ────────────────────────────────────────────────────────────

type memAssignments struct{ db *memDB }

func (s memAssignments) Create(_ context.Context, a *model.Assignment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = s.db.tick()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	s.db.assignments[a.ID] = &cp
	return nil
}

func (s memAssignments) GetByID(_ context.Context, id uuid.UUID) (*model.Assignment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s memAssignments) ListByCourse(_ context.Context, courseID uuid.UUID) ([]model.Assignment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Assignment{}
	for _, a := range s.db.assignments {
		if a.CourseID == courseID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s memAssignments) CountByCourse(ctx context.Context, courseID uuid.UUID) (int, error) {
	as, err := s.ListByCourse(ctx, courseID)
	return len(as), err
}

func (s memAssignments) Delete(_ context.Context, courseID, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.assignments[id]
	if !ok || a.CourseID != courseID {
		return repository.ErrNotFound
	}
	s.db.assignSubs = slices.DeleteFunc(s.db.assignSubs, func(x *model.AssignmentSubmission) bool { return x.AssignmentID == id })
	delete(s.db.assignments, id)
	for _, e := range s.db.enrollments {
		if _, ok := e.AssignmentSubmissions[id.String()]; ok {
			delete(e.AssignmentSubmissions, id.String())
			e.Version++
		}
	}
	return nil
}

// ─── Enrollments ────────────────────────────────────────────────────────────

type memEnrollments struct{ db *memDB }

func (s memEnrollments) Create(_ context.Context, e *model.Enrollment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := enrollmentKey(e.StudentID, e.CourseID)
	if _, ok := s.db.enrollments[key]; ok {
		return repository.ErrDuplicate
	}
	e.Version = 1
	s.db.enrollments[key] = cloneEnrollment(e)
	return nil
}

func (s memEnrollments) Get(_ context.Context, studentID, courseID uuid.UUID) (*model.Enrollment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.enrollments[enrollmentKey(studentID, courseID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneEnrollment(e), nil
}

func (s memEnrollments) ListByStudent(_ context.Context, studentID uuid.UUID) ([]model.EnrollmentWithCourse, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.EnrollmentWithCourse{}
	for _, e := range s.db.enrollments {
		if e.StudentID != studentID {
			continue
		}
		row := model.EnrollmentWithCourse{Enrollment: *cloneEnrollment(e)}
		if c, ok := s.db.courses[e.CourseID]; ok {
			row.CourseTitle = c.Title
		}
		out = append(out, row)
	}
	return out, nil
}

func (s memEnrollments) ListByCourse(_ context.Context, courseID uuid.UUID, limit, offset int) ([]model.Enrollment, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Enrollment{}
	for _, e := range s.db.enrollments {
		if e.CourseID == courseID {
			out = append(out, *cloneEnrollment(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.Before(out[j].EnrolledAt) })
	return window(out, limit, offset), len(out), nil
}

func (s memEnrollments) Aggregate(_ context.Context, courseID uuid.UUID) (*repository.EnrollmentAggregate, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a := &repository.EnrollmentAggregate{}
	for _, e := range s.db.enrollments {
		if e.CourseID != courseID {
			continue
		}
		a.Total++
		a.ProgressSum += e.Progress
		if e.IsCompleted() {
			a.Completed++
		}
		a.QuizzesAttempted += len(e.QuizAttempts)
		a.AssignmentsSubmitted += len(e.AssignmentSubmissions)
	}
	return a, nil
}

func (s memEnrollments) Update(_ context.Context, e *model.Enrollment) error {
	s.hook()
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.casLocked(e)
}

func (s memEnrollments) RecordQuizSubmission(_ context.Context, sub *model.QuizSubmission, e *model.Enrollment) error {
	s.hook()
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.quizSubs {
		if existing.QuizID == sub.QuizID && existing.StudentID == sub.StudentID && existing.AttemptNumber == sub.AttemptNumber {
			return repository.ErrDuplicate
		}
	}
	if err := s.casLocked(e); err != nil {
		return err
	}
	cp := *sub
	s.db.quizSubs = append(s.db.quizSubs, &cp)
	return nil
}

func (s memEnrollments) RecordAssignmentSubmission(_ context.Context, sub *model.AssignmentSubmission, e *model.Enrollment) error {
	s.hook()
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.casLocked(e); err != nil {
		return err
	}
	cp := *sub
	s.db.assignSubs = append(s.db.assignSubs, &cp)
	return nil
}

func (s memEnrollments) hook() {
	s.db.mu.Lock()
	fn := s.db.beforeCAS
	s.db.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s memEnrollments) casLocked(e *model.Enrollment) error {
	s.db.casCalls++
	if s.db.casConflicts > 0 {
		s.db.casConflicts--
		return repository.ErrVersionConflict
	}
	key := enrollmentKey(e.StudentID, e.CourseID)
	stored, ok := s.db.enrollments[key]
	if !ok || stored.ID != e.ID || stored.Version != e.Version {
		return repository.ErrVersionConflict
	}
	e.Version++
	s.db.enrollments[key] = cloneEnrollment(e)
	return nil
}

// ─── Dashboard ──────────────────────────────────────────────────────────────

type memDashboard struct{ db *memDB }

func (s memDashboard) PlatformStats(_ context.Context) (*model.PlatformStats, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	st := &model.PlatformStats{UsersByStatus: map[model.UserStatus]int{}}
	for _, u := range s.db.users {
		st.TotalUsers++
		st.UsersByStatus[u.Status]++
	}
	for _, c := range s.db.courses {
		st.TotalCourses++
		if c.Status == model.CourseStatusActive {
			st.ActiveCourses++
		}
	}
	var sum float64
	for _, e := range s.db.enrollments {
		st.TotalEnrollments++
		sum += e.Progress
		if e.IsCompleted() {
			st.CompletedEnrollments++
		}
	}
	if st.TotalEnrollments > 0 {
		st.AverageProgress = model.Round2(sum / float64(st.TotalEnrollments))
	}
	return st, nil
}

func (s memDashboard) TopCourses(_ context.Context, limit int) ([]model.CourseSummary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.CourseSummary{}
	for _, c := range s.db.courses {
		cs := model.CourseSummary{CourseID: c.ID, Title: c.Title, InstructorID: c.InstructorID, Status: c.Status}
		var sum float64
		for _, e := range s.db.enrollments {
			if e.CourseID != c.ID {
				continue
			}
			cs.Enrolled++
			sum += e.Progress
			if e.IsCompleted() {
				cs.Completed++
			}
		}
		if cs.Enrolled > 0 {
			cs.AverageProgress = model.Round2(sum / float64(cs.Enrolled))
		}
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Enrolled > out[j].Enrolled })
	return window(out, limit, 0), nil
}

// ─── Submissions ────────────────────────────────────────────────────────────

type memSubmissions struct{ db *memDB }

func (s memSubmissions) ListQuizSubmissions(_ context.Context, quizID uuid.UUID, limit, offset int) ([]model.QuizSubmission, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.QuizSubmission{}
	for _, q := range s.db.quizSubs {
		if q.QuizID == quizID {
			out = append(out, *q)
		}
	}
	return window(out, limit, offset), len(out), nil
}

func (s memSubmissions) ListStudentQuizSubmissions(_ context.Context, quizID, studentID uuid.UUID) ([]model.QuizSubmission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.QuizSubmission{}
	for _, q := range s.db.quizSubs {
		if q.QuizID == quizID && q.StudentID == studentID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (s memSubmissions) ListAssignmentSubmissions(_ context.Context, assignmentID uuid.UUID, limit, offset int) ([]model.AssignmentSubmission, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.AssignmentSubmission{}
	for _, a := range s.db.assignSubs {
		if a.AssignmentID == assignmentID {
			out = append(out, *a)
		}
	}
	return window(out, limit, offset), len(out), nil
}

// ─── Audit ──────────────────────────────────────────────────────────────────

type memAudit struct {
	db      *memDB
	failing bool
}

func (s *memAudit) Insert(_ context.Context, e *model.AuditEntry) error {
	if s.failing {
		return io.ErrUnexpectedEOF
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.audit = append(s.db.audit, *e)
	return nil
}

func (s *memAudit) Query(_ context.Context, filter model.AuditFilter, limit, offset int) ([]model.AuditRecord, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.AuditRecord{}
	for _, e := range s.db.audit {
		u := s.db.users[e.UserID]
		if filter.ActionType != "" && e.ActionType != filter.ActionType {
			continue
		}
		if filter.Role != "" && (u == nil || string(u.Role) != filter.Role) {
			continue
		}
		if filter.CourseID != nil && (e.CourseID == nil || *e.CourseID != *filter.CourseID) {
			continue
		}
		rec := model.AuditRecord{AuditEntry: e, UserName: "Unknown User"}
		if u != nil {
			rec.UserEmail = u.Email
			rec.UserName = strings.TrimSpace(u.FirstName + " " + u.LastName)
			rec.UserRole = string(u.Role)
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return window(out, limit, offset), len(out), nil
}

// recorder captures audit entries synchronously.
type recorder struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (r *recorder) Record(_ context.Context, e model.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.ActionType)
	}
	return out
}

// ─── Files ──────────────────────────────────────────────────────────────────

type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func (f *memFiles) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	ref := "mem://" + key
	f.objects[ref] = b
	return ref, nil
}

func (f *memFiles) Delete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, ref)
	f.deleted = append(f.deleted, ref)
	return nil
}

type noopCache struct{ invalidated []uuid.UUID }

func (c *noopCache) InvalidatePrincipal(_ context.Context, id uuid.UUID) {
	c.invalidated = append(c.invalidated, id)
}

// ─── Fixture ────────────────────────────────────────────────────────────────

func window[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

type fixture struct {
	db          *memDB
	audit       *recorder
	files       *memFiles
	guard       *access.Guard
	courses     *CourseService
	modules     *ModuleService
	quizzes     *QuizService
	assignments *AssignmentService
	enrollments *EnrollmentService

	instructor model.Principal
	hrAdmin    model.Principal
	student    model.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newMemDB()
	rec := &recorder{}
	files := &memFiles{}
	guard := access.NewGuard(nil)
	log := zerolog.Nop()

	f := &fixture{
		db:    db,
		audit: rec,
		files: files,
		guard: guard,
	}
	f.courses = NewCourseService(memCourses{db}, memModules{db}, memQuizzes{db}, memAssignments{db}, guard, rec, log)
	f.modules = NewModuleService(memCourses{db}, memModules{db}, guard, rec, log)
	f.quizzes = NewQuizService(memCourses{db}, memQuizzes{db}, memSubmissions{db}, guard, rec, log)
	f.assignments = NewAssignmentService(memCourses{db}, memModules{db}, memAssignments{db}, memSubmissions{db}, guard, rec, log)
	f.enrollments = NewEnrollmentService(memCourses{db}, memModules{db}, memQuizzes{db}, memAssignments{db}, memEnrollments{db}, files, guard, rec, 5, log)

	f.instructor = f.addUser(t, model.RoleInstructor)
	f.hrAdmin = f.addUser(t, model.RoleHRAdmin)
	f.student = f.addUser(t, model.RoleParticipant)
	return f
}

func (f *fixture) addUser(t *testing.T, role model.Role) model.Principal {
	t.Helper()
	u := &model.User{
		Email:     uuid.NewString() + "@example.com",
		FirstName: string(role),
		Role:      role,
		Status:    model.UserStatusApproved,
	}
	if err := (memUsers{f.db}).Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return model.Principal{UserID: u.ID, Email: u.Email, Role: role}
}

func (f *fixture) course(t *testing.T) *model.Course {
	t.Helper()
	c, err := f.courses.Create(context.Background(), f.instructor, &model.CreateCourseRequest{Title: "Go Fundamentals"})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	return c
}

func (f *fixture) module(t *testing.T, courseID uuid.UUID, order int) *model.Module {
	t.Helper()
	m, err := f.modules.Create(context.Background(), f.instructor, courseID, &model.CreateModuleRequest{
		Title: "Module",
		Order: order,
	})
	if err != nil {
		t.Fatalf("create module: %v", err)
	}
	return m
}

func (f *fixture) quiz(t *testing.T, courseID uuid.UUID, questions ...model.QuestionInput) *model.Quiz {
	t.Helper()
	q, err := f.quizzes.Create(context.Background(), f.instructor, courseID, &model.CreateQuizRequest{
		Title:     "Checkpoint",
		Questions: questions,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return q
}

func (f *fixture) enroll(t *testing.T, p model.Principal, courseID uuid.UUID) *model.Enrollment {
	t.Helper()
	e, err := f.enrollments.Enroll(context.Background(), p, courseID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return e
}

func mc(answer string, options ...string) model.QuestionInput {
	return model.QuestionInput{
		Prompt:        "Pick one",
		Type:          string(model.QuestionMultipleChoice),
		Options:       options,
		CorrectAnswer: &answer,
	}
}

type repositoryAggregate = repository.EnrollmentAggregate
