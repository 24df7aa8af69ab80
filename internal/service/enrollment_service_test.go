package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
)

func answersJSON(t *testing.T, answers map[string]any) *model.SubmitQuizRequest {
	t.Helper()
	raw, err := json.Marshal(answers)
	if err != nil {
		t.Fatalf("marshal answers: %v", err)
	}
	return &model.SubmitQuizRequest{Answers: raw}
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)

	e := f.enroll(t, f.student, c.ID)
	if e.Status != model.EnrollmentEnrolled || e.Progress != 0 {
		t.Fatalf("fresh enrollment = %+v", e)
	}

	_, err := f.enrollments.Enroll(ctx, f.student, c.ID)
	if !errors.Is(err, apperror.ErrDuplicateEnrollment) {
		t.Fatalf("second enroll err = %v, want DuplicateEnrollment", err)
	}

	_, err = f.enrollments.Enroll(ctx, f.instructor, c.ID)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("instructor enroll err = %v, want Unauthorized", err)
	}

	_, err = f.enrollments.Enroll(ctx, f.addUser(t, model.RoleManager), uuid.New())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("unknown course err = %v, want NotFound", err)
	}

	archived := "archived"
	if _, err := f.courses.Update(ctx, f.instructor, c.ID, &model.UpdateCourseRequest{Status: &archived}); err != nil {
		t.Fatalf("archive: %v", err)
	}
	_, err = f.enrollments.Enroll(ctx, f.addUser(t, model.RoleParticipant), c.ID)
	if !errors.Is(err, apperror.ErrPolicyViolation) {
		t.Fatalf("archived enroll err = %v, want PolicyViolation", err)
	}
}

func TestCompleteModule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)
	m1 := f.module(t, c.ID, 1)
	f.module(t, c.ID, 2)
	f.module(t, c.ID, 3)

	if _, err := f.enrollments.CompleteModule(ctx, f.student, c.ID, m1.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("complete before enroll err = %v, want NotFound", err)
	}

	f.enroll(t, f.student, c.ID)

	e, err := f.enrollments.CompleteModule(ctx, f.student, c.ID, m1.ID)
	if err != nil {
		t.Fatalf("complete module: %v", err)
	}
	if e.Progress != 33.33 {
		t.Errorf("progress = %v, want 33.33", e.Progress)
	}

	again, err := f.enrollments.CompleteModule(ctx, f.student, c.ID, m1.ID)
	if err != nil {
		t.Fatalf("complete module again: %v", err)
	}
	if again.Progress != 33.33 || len(again.CompletedModules) != 1 {
		t.Errorf("repeat completion changed state: progress=%v modules=%v", again.Progress, again.CompletedModules)
	}

	completed := 0
	for _, a := range f.audit.actions() {
		if a == model.ActionModuleCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("module_completed audited %d times, want 1", completed)
	}

	other := f.course(t)
	foreign := f.module(t, other.ID, 1)
	if _, err := f.enrollments.CompleteModule(ctx, f.student, c.ID, foreign.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("foreign module err = %v, want NotFound", err)
	}
}

func TestSubmitQuizGradesAndNumbersAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)
	q := f.quiz(t, c.ID, mc("A", "A", "B", "C"), mc("B", "A", "B", "C"))
	f.enroll(t, f.student, c.ID)

	req := answersJSON(t, map[string]any{
		q.Questions[0].ID: "a",
		q.Questions[1].ID: "c",
	})

	sub, err := f.enrollments.SubmitQuiz(ctx, f.student, c.ID, q.ID, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.PointsScored != 1 || sub.PointsPossible != 2 || sub.Score != 50 {
		t.Errorf("graded %v/%v = %v, want 1/2 = 50", sub.PointsScored, sub.PointsPossible, sub.Score)
	}
	if sub.Status != model.SubmissionCompleted {
		t.Errorf("status = %s, want completed", sub.Status)
	}
	if sub.Passed == nil || *sub.Passed {
		t.Errorf("passed = %v, want false against default passing score 60", sub.Passed)
	}
	if sub.AttemptNumber != 1 {
		t.Errorf("attempt = %d, want 1", sub.AttemptNumber)
	}

	second, err := f.enrollments.SubmitQuiz(ctx, f.student, c.ID, q.ID, req)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.AttemptNumber != 2 || second.ID == sub.ID {
		t.Errorf("second submission = attempt %d id %s", second.AttemptNumber, second.ID)
	}

	e, err := memEnrollments{f.db}.Get(ctx, f.student.UserID, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	latest := e.QuizAttempts[q.ID.String()]
	if latest.SubmissionID != second.ID || latest.AttemptNumber != 2 {
		t.Errorf("latest attempt summary = %+v, want second submission", latest)
	}
	if len(f.db.quizSubs) != 2 {
		t.Errorf("stored %d submissions, want 2 immutable records", len(f.db.quizSubs))
	}
}

func TestSubmitQuizAttemptCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)
	q := f.quiz(t, c.ID, mc("A", "A", "B"))
	f.enroll(t, f.student, c.ID)

	req := answersJSON(t, map[string]any{q.Questions[0].ID: "A"})
	for i := 0; i < model.DefaultQuizMaxAttempts; i++ {
		if _, err := f.enrollments.SubmitQuiz(ctx, f.student, c.ID, q.ID, req); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	_, err := f.enrollments.SubmitQuiz(ctx, f.student, c.ID, q.ID, req)
	if !errors.Is(err, apperror.ErrPolicyViolation) {
		t.Fatalf("over-cap err = %v, want PolicyViolation", err)
	}
	if len(f.db.quizSubs) != model.DefaultQuizMaxAttempts {
		t.Errorf("stored %d submissions, want %d", len(f.db.quizSubs), model.DefaultQuizMaxAttempts)
	}
}

func TestSubmitQuizCapCheckedBeforeGrading(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)
	q := f.quiz(t, c.ID, mc("A", "A", "B"))
	f.enroll(t, f.student, c.ID)

	req := answersJSON(t, map[string]any{q.Questions[0].ID: "A"})
	for i := 0; i < model.DefaultQuizMaxAttempts; i++ {
		if _, err := f.enrollments.SubmitQuiz(ctx, f.student, c.ID, q.ID, req); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	casBefore := f.db.casCalls

	_, err := f.enrollments.SubmitQuiz(ctx, f.student, c.ID, q.ID, &model.SubmitQuizRequest{Answers: json.RawMessage(`[]`)})
	if !errors.Is(err, apperror.ErrPolicyViolation) {
		t.Fatalf("malformed over-cap err = %v, want PolicyViolation", err)
	}
	if f.db.casCalls != casBefore {
		t.Errorf("over-cap submission reached the enrollment write")
	}
}

func TestSubmitQuizRejectsMalformedAnswersBeforePersisting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)
	q := f.quiz(t, c.ID, mc("A", "A", "B"))
	f.enroll(t, f.student, c.ID)

	payloads := []string{`null`, `[]`, `"A"`, `{"": "A"}`, `{"q": {"nested": true}}`}
	for _, p := range payloads {
		_, err := f.enrollments.SubmitQuiz(ctx, f.student, c.ID, q.ID, &model.SubmitQuizRequest{Answers: json.RawMessage(p)})
		if !errors.Is(err, apperror.ErrInvalidInput) {
			t.Errorf("payload %s: err = %v, want InvalidInput", p, err)
		}
	}
	if len(f.db.quizSubs) != 0 || f.db.casCalls != 0 {
		t.Errorf("malformed payloads reached storage: subs=%d cas=%d", len(f.db.quizSubs), f.db.casCalls)
	}
}

func TestInterleavedModuleCompletionAndQuizKeepBothUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)
	m := f.module(t, c.ID, 1)
	f.module(t, c.ID, 2)
	q := f.quiz(t, c.ID, mc("A", "A", "B"))
	f.enroll(t, f.student, c.ID)

	// The quiz write reads the enrollment, then a module completion commits
	// before the quiz write reaches storage.
	var once sync.Once
	f.db.beforeCAS = func() {
		once.Do(func() {
			f.db.mu.Lock()
			f.db.beforeCAS = nil
			f.db.mu.Unlock()
			if _, err := f.enrollments.CompleteModule(ctx, f.student, c.ID, m.ID); err != nil {
				t.Errorf("interleaved complete: %v", err)
			}
		})
	}

	req := answersJSON(t, map[string]any{q.Questions[0].ID: "A"})
	if _, err := f.enrollments.SubmitQuiz(ctx, f.student, c.ID, q.ID, req); err != nil {
		t.Fatalf("submit: %v", err)
	}

	e, err := memEnrollments{f.db}.Get(ctx, f.student.UserID, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(e.CompletedModules) != 1 || e.CompletedModules[0] != m.ID {
		t.Errorf("module completion lost: %v", e.CompletedModules)
	}
	if _, ok := e.QuizAttempts[q.ID.String()]; !ok {
		t.Errorf("quiz attempt lost: %v", e.QuizAttempts)
	}
	if e.Progress != 50 {
		t.Errorf("progress = %v, want 50", e.Progress)
	}
	if len(f.db.quizSubs) != 1 {
		t.Errorf("stored %d quiz submissions, want exactly 1", len(f.db.quizSubs))
	}
}

func TestConcurrentEnrollmentWritesAreAllApplied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewEnrollmentService(memCourses{f.db}, memModules{f.db}, memQuizzes{f.db}, memAssignments{f.db},
		memEnrollments{f.db}, f.files, f.guard, f.audit, 100, zerolog.Nop())

	c := f.course(t)
	const n = 8
	modules := make([]*model.Module, n)
	for i := range modules {
		modules[i] = f.module(t, c.ID, i)
	}
	q := f.quiz(t, c.ID, mc("A", "A", "B"))
	f.enroll(t, f.student, c.ID)
	req := answersJSON(t, map[string]any{q.Questions[0].ID: "A"})

	var wg sync.WaitGroup
	errs := make(chan error, n+1)
	for _, m := range modules {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := svc.CompleteModule(ctx, f.student, c.ID, id); err != nil {
				errs <- err
			}
		}(m.ID)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := svc.SubmitQuiz(ctx, f.student, c.ID, q.ID, req); err != nil {
			errs <- err
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent write failed: %v", err)
	}

	e, err := memEnrollments{f.db}.Get(ctx, f.student.UserID, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(e.CompletedModules) != n {
		t.Errorf("completed %d modules, want %d", len(e.CompletedModules), n)
	}
	if e.Progress != 100 {
		t.Errorf("progress = %v, want 100", e.Progress)
	}
	if _, ok := e.QuizAttempts[q.ID.String()]; !ok {
		t.Error("quiz attempt lost")
	}
}

func TestMutateRetryBudget(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		conflicts int
		wantErr   error
	}{
		{"recovers after conflicts", 3, nil},
		{"gives up when budget is spent", 6, apperror.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.course(t)
			m := f.module(t, c.ID, 1)
			f.enroll(t, f.student, c.ID)

			f.db.casConflicts = tt.conflicts
			_, err := f.enrollments.CompleteModule(ctx, f.student, c.ID, m.ID)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("err = %v, want success", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarkComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)
	m1 := f.module(t, c.ID, 1)
	m2 := f.module(t, c.ID, 2)
	f.enroll(t, f.student, c.ID)

	peer := f.addUser(t, model.RoleParticipant)
	if _, err := f.enrollments.MarkComplete(ctx, peer, c.ID, f.student.UserID); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("peer completion err = %v, want Unauthorized", err)
	}

	e, err := f.enrollments.MarkComplete(ctx, f.student, c.ID, f.student.UserID)
	if err != nil {
		t.Fatalf("self completion: %v", err)
	}
	if e.Status != model.EnrollmentCompleted || e.Progress != 100 || e.CompletedAt == nil {
		t.Fatalf("completed enrollment = %+v", e)
	}

	// Later events are stored but never reopen the enrollment.
	e, err = f.enrollments.CompleteModule(ctx, f.student, c.ID, m1.ID)
	if err != nil {
		t.Fatalf("complete after mark: %v", err)
	}
	if e.Status != model.EnrollmentCompleted || e.Progress != 100 || len(e.CompletedModules) != 1 {
		t.Errorf("post-completion module = %+v", e)
	}

	if _, err := f.enrollments.MarkComplete(ctx, f.instructor, c.ID, f.student.UserID); err != nil {
		t.Fatalf("instructor re-completion: %v", err)
	}
	marked := 0
	for _, a := range f.audit.actions() {
		if a == model.ActionEnrollmentCompleted {
			marked++
		}
	}
	if marked != 1 {
		t.Errorf("enrollment_completed audited %d times, want 1", marked)
	}

	other := f.addUser(t, model.RoleParticipant)
	f.enroll(t, other, c.ID)
	if _, err := f.enrollments.CompleteModule(ctx, other, c.ID, m2.ID); err != nil {
		t.Fatal(err)
	}
	e, err = f.enrollments.MarkComplete(ctx, f.instructor, c.ID, other.UserID)
	if err != nil {
		t.Fatalf("owner completion: %v", err)
	}
	if e.Progress != 100 {
		t.Errorf("owner-completed progress = %v, want 100", e.Progress)
	}
}

func TestProgressFollowsLiveModuleSet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)
	m1 := f.module(t, c.ID, 1)
	m2 := f.module(t, c.ID, 2)
	f.module(t, c.ID, 3)
	f.enroll(t, f.student, c.ID)

	for _, id := range []uuid.UUID{m1.ID, m2.ID} {
		if _, err := f.enrollments.CompleteModule(ctx, f.student, c.ID, id); err != nil {
			t.Fatal(err)
		}
	}

	if err := f.modules.Delete(ctx, f.instructor, c.ID, m2.ID); err != nil {
		t.Fatalf("delete module: %v", err)
	}
	p, err := f.enrollments.Progress(ctx, f.student, c.ID, f.student.UserID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Progress != 50 || p.TotalModules != 2 || p.CompletedCount != 1 {
		t.Errorf("after delete: progress=%v total=%d done=%d, want 50/2/1", p.Progress, p.TotalModules, p.CompletedCount)
	}

	f.module(t, c.ID, 4)
	f.module(t, c.ID, 5)
	p, err = f.enrollments.Progress(ctx, f.student, c.ID, f.student.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Progress != 25 {
		t.Errorf("after additions: progress = %v, want 25", p.Progress)
	}

	peer := f.addUser(t, model.RoleParticipant)
	if _, err := f.enrollments.Progress(ctx, peer, c.ID, f.student.UserID); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("peer progress err = %v, want Unauthorized", err)
	}
	if _, err := f.enrollments.Progress(ctx, f.instructor, c.ID, f.student.UserID); err != nil {
		t.Errorf("owner progress: %v", err)
	}
}

func TestModuleSetChangesRewriteStoredProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)
	m1 := f.module(t, c.ID, 1)

	finisher := f.addUser(t, model.RoleParticipant)
	f.enroll(t, f.student, c.ID)
	f.enroll(t, finisher, c.ID)
	if _, err := f.enrollments.CompleteModule(ctx, f.student, c.ID, m1.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.enrollments.MarkComplete(ctx, finisher, c.ID, finisher.UserID); err != nil {
		t.Fatal(err)
	}

	stored := func() (student, done float64) {
		t.Helper()
		list, _, err := f.enrollments.CourseEnrollments(ctx, f.instructor, c.ID, 1, 10)
		if err != nil {
			t.Fatalf("course enrollments: %v", err)
		}
		for _, e := range list {
			switch e.StudentID {
			case f.student.UserID:
				student = e.Progress
			case finisher.UserID:
				done = e.Progress
			}
		}
		return student, done
	}

	if got, _ := stored(); got != 100 {
		t.Fatalf("single module done: stored progress = %v, want 100", got)
	}

	m2 := f.module(t, c.ID, 2)
	m3 := f.module(t, c.ID, 3)
	f.module(t, c.ID, 4)

	student, done := stored()
	if student != 25 || done != 100 {
		t.Errorf("after additions: student=%v completed=%v, want 25/100", student, done)
	}

	mine, err := f.enrollments.MyEnrollments(ctx, f.student)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].Progress != 25 || mine[0].Status != model.EnrollmentEnrolled {
		t.Errorf("my enrollments = %+v, want one enrolled record at 25", mine)
	}

	stats, err := f.enrollments.CourseStats(ctx, f.instructor, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.AverageProgress != 62.5 || stats.CompletionRate != 50 {
		t.Errorf("stats avg=%v completion=%v, want 62.5/50", stats.AverageProgress, stats.CompletionRate)
	}

	for _, id := range []uuid.UUID{m2.ID, m3.ID} {
		if err := f.modules.Delete(ctx, f.instructor, c.ID, id); err != nil {
			t.Fatalf("delete module: %v", err)
		}
	}
	if student, _ := stored(); student != 50 {
		t.Errorf("after deletions: stored progress = %v, want 50", student)
	}
}

func TestSubmitAssignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)
	late, err := f.assignments.Create(ctx, f.instructor, c.ID, &model.CreateAssignmentRequest{Title: "Essay", DueDate: &past})
	if err != nil {
		t.Fatal(err)
	}
	onTime, err := f.assignments.Create(ctx, f.instructor, c.ID, &model.CreateAssignmentRequest{Title: "Lab", DueDate: &future})
	if err != nil {
		t.Fatal(err)
	}

	upload := func(name string) Upload {
		body := []byte("report")
		return Upload{Body: bytes.NewReader(body), Size: int64(len(body)), FileName: name, ContentType: "text/plain"}
	}

	if _, err := f.enrollments.SubmitAssignment(ctx, f.student, c.ID, onTime.ID, upload("a.txt")); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("unenrolled submit err = %v, want NotFound", err)
	}
	if len(f.files.objects) != 0 {
		t.Fatalf("file stored for unenrolled student")
	}

	f.enroll(t, f.student, c.ID)

	tests := []struct {
		assignment *model.Assignment
		want       model.AssignmentSubmissionStatus
	}{
		{late, model.AssignmentLate},
		{onTime, model.AssignmentSubmitted},
	}
	for _, tt := range tests {
		sub, err := f.enrollments.SubmitAssignment(ctx, f.student, c.ID, tt.assignment.ID, upload("../../etc/report.txt"))
		if err != nil {
			t.Fatalf("%s: %v", tt.assignment.Title, err)
		}
		if sub.Status != tt.want {
			t.Errorf("%s: status = %s, want %s", tt.assignment.Title, sub.Status, tt.want)
		}
		if sub.FileName != "report.txt" {
			t.Errorf("file name = %q, want base name only", sub.FileName)
		}
		if _, ok := f.files.objects[sub.FileRef]; !ok {
			t.Errorf("file %s not stored", sub.FileRef)
		}
	}

	e, _ := memEnrollments{f.db}.Get(ctx, f.student.UserID, c.ID)
	if len(e.AssignmentSubmissions) != 2 {
		t.Errorf("enrollment holds %d assignment summaries, want 2", len(e.AssignmentSubmissions))
	}
}

func TestSubmitAssignmentRemovesFileWhenWriteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)
	a, err := f.assignments.Create(ctx, f.instructor, c.ID, &model.CreateAssignmentRequest{Title: "Essay"})
	if err != nil {
		t.Fatal(err)
	}
	f.enroll(t, f.student, c.ID)

	f.db.casConflicts = 100
	_, err = f.enrollments.SubmitAssignment(ctx, f.student, c.ID, a.ID, Upload{
		Body: bytes.NewReader([]byte("x")), Size: 1, FileName: "x.txt",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("err = %v, want Conflict", err)
	}
	if len(f.files.objects) != 0 || len(f.files.deleted) != 1 {
		t.Errorf("orphaned file: objects=%d deleted=%v", len(f.files.objects), f.files.deleted)
	}
}

func TestCourseStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.course(t)

	stats, err := f.enrollments.CourseStats(ctx, f.instructor, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *stats != (model.CourseStats{}) {
		t.Errorf("empty course stats = %+v, want zeros", stats)
	}

	m := f.module(t, c.ID, 1)
	f.module(t, c.ID, 2)
	q := f.quiz(t, c.ID, mc("A", "A", "B"))
	f.quiz(t, c.ID, mc("A", "A", "B"))

	second := f.addUser(t, model.RoleManager)
	f.enroll(t, f.student, c.ID)
	f.enroll(t, second, c.ID)

	if _, err := f.enrollments.CompleteModule(ctx, second, c.ID, m.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.enrollments.MarkComplete(ctx, f.student, c.ID, f.student.UserID); err != nil {
		t.Fatal(err)
	}
	req := answersJSON(t, map[string]any{q.Questions[0].ID: "A"})
	if _, err := f.enrollments.SubmitQuiz(ctx, f.student, c.ID, q.ID, req); err != nil {
		t.Fatal(err)
	}

	stats, err = f.enrollments.CourseStats(ctx, second, c.ID)
	if err != nil {
		t.Fatalf("manager stats: %v", err)
	}
	want := model.CourseStats{
		TotalEnrolled:   2,
		AverageProgress: 75,
		CompletionRate:  50,
		QuizCompletion:  25,
	}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}

	if _, err := f.enrollments.CourseStats(ctx, f.student, c.ID); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("participant stats err = %v, want Unauthorized", err)
	}
}

func TestComputeCourseStatsRounding(t *testing.T) {
	tests := []struct {
		name        string
		agg         repositoryAggregate
		quizzes     int
		assignments int
		want        model.CourseStats
	}{
		{
			name:        "thirds round to two decimals",
			agg:         repositoryAggregate{Total: 3, ProgressSum: 100, Completed: 1, QuizzesAttempted: 1, AssignmentsSubmitted: 2},
			quizzes:     1,
			assignments: 1,
			want:        model.CourseStats{TotalEnrolled: 3, AverageProgress: 33.33, CompletionRate: 33.33, QuizCompletion: 33.33, AssignmentCompletion: 66.67},
		},
		{
			name: "no quizzes or assignments",
			agg:  repositoryAggregate{Total: 2, ProgressSum: 50},
			want: model.CourseStats{TotalEnrolled: 2, AverageProgress: 25},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := tt.agg
			got := computeCourseStats(&agg, tt.quizzes, tt.assignments)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMyEnrollmentsListsCourseTitles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 2; i++ {
		c, err := f.courses.Create(ctx, f.instructor, &model.CreateCourseRequest{Title: fmt.Sprintf("Course %d", i)})
		if err != nil {
			t.Fatal(err)
		}
		f.enroll(t, f.student, c.ID)
	}

	list, err := f.enrollments.MyEnrollments(ctx, f.student)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d enrollments, want 2", len(list))
	}
	for _, e := range list {
		if e.CourseTitle == "" {
			t.Errorf("enrollment %s missing course title", e.ID)
		}
	}
}
