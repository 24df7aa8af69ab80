package model

import "github.com/google/uuid"

// PlatformStats are the platform-wide counters shown on the admin dashboard.
type PlatformStats struct {
	TotalUsers           int                `json:"total_users"`
	UsersByStatus        map[UserStatus]int `json:"users_by_status"`
	TotalCourses         int                `json:"total_courses"`
	ActiveCourses        int                `json:"active_courses"`
	TotalEnrollments     int                `json:"total_enrollments"`
	CompletedEnrollments int                `json:"completed_enrollments"`
	AverageProgress      float64            `json:"average_progress"`
}

// CourseSummary is one course's row in the dashboard breakdown.
type CourseSummary struct {
	CourseID        uuid.UUID    `json:"course_id"`
	Title           string       `json:"title"`
	InstructorID    uuid.UUID    `json:"instructor_id"`
	Status          CourseStatus `json:"status"`
	Enrolled        int          `json:"enrolled"`
	Completed       int          `json:"completed"`
	AverageProgress float64      `json:"average_progress"`
}

// Dashboard consolidates the platform counters and the busiest courses.
type Dashboard struct {
	Stats      PlatformStats   `json:"stats"`
	TopCourses []CourseSummary `json:"top_courses"`
}
