// Package access decides whether a principal may perform an action.
// All role and ownership rules live in one table evaluated by Guard.
package access

import (
	"slices"

	"github.com/google/uuid"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// Action names a guarded operation.
type Action string

const (
	CourseCreate       Action = "course:create"
	CourseUpdate       Action = "course:update"
	CourseDelete       Action = "course:delete"
	ContentWrite       Action = "content:write"
	ContentReview      Action = "content:review"
	CourseStats        Action = "course:stats"
	CourseEnroll       Action = "course:enroll"
	CourseLearn        Action = "course:learn"
	EnrollmentComplete Action = "enrollment:complete"
	AuditRead          Action = "audit:read"
	AuditCourse        Action = "audit:course"
	UserManage         Action = "user:manage"
	AuditStream        Action = "audit:stream"
	ProfileRead        Action = "profile:read"
	ProfileUpdate      Action = "profile:update"
	DashboardRead      Action = "dashboard:read"
)

// Resource carries the facts ownership predicates look at. Zero values mean
// "not applicable" for the action being checked.
type Resource struct {
	CourseOwnerID uuid.UUID
	SubjectID     uuid.UUID
}

// Course builds a Resource for a course-scoped action.
func Course(c *model.Course) Resource {
	return Resource{CourseOwnerID: c.InstructorID}
}

// Predicate is an extra condition a rule imposes beyond role membership.
type Predicate func(p model.Principal, r Resource) bool

// OwnsCourse holds when the principal is the course's instructor.
func OwnsCourse(p model.Principal, r Resource) bool {
	return r.CourseOwnerID != uuid.Nil && r.CourseOwnerID == p.UserID
}

// IsSelf holds when the principal is the subject of the action.
func IsSelf(p model.Principal, r Resource) bool {
	return r.SubjectID != uuid.Nil && r.SubjectID == p.UserID
}

// Rule grants an action to the listed roles, optionally only when Predicate holds.
type Rule struct {
	Roles     []model.Role
	Predicate Predicate
}

func (r Rule) allows(p model.Principal, res Resource) bool {
	if !slices.Contains(r.Roles, p.Role) {
		return false
	}
	return r.Predicate == nil || r.Predicate(p, res)
}

// Policy maps each action to the rules that grant it. An action is allowed
// when any of its rules allows it.
type Policy map[Action][]Rule

func roles(rs ...model.Role) []model.Role { return rs }

// DefaultPolicy is the platform rule table.
func DefaultPolicy() Policy {
	var (
		instructor  = roles(model.RoleInstructor)
		hrAdmin     = roles(model.RoleHRAdmin)
		learners    = roles(model.RoleParticipant, model.RoleManager)
		ownerOnly   = Rule{Roles: instructor, Predicate: OwnsCourse}
		anyHRAdmin  = Rule{Roles: hrAdmin}
		anyLearner  = Rule{Roles: learners}
		selfLearner = Rule{Roles: learners, Predicate: IsSelf}
		anySelf     = Rule{Roles: roles(model.RoleInstructor, model.RoleParticipant, model.RoleHRAdmin, model.RoleManager), Predicate: IsSelf}
	)

	return Policy{
		CourseCreate:       {{Roles: instructor}},
		CourseUpdate:       {ownerOnly, anyHRAdmin},
		CourseDelete:       {ownerOnly, anyHRAdmin},
		ContentWrite:       {ownerOnly},
		ContentReview:      {ownerOnly, anyHRAdmin},
		CourseStats:        {ownerOnly, anyHRAdmin, {Roles: roles(model.RoleManager)}},
		CourseEnroll:       {anyLearner},
		CourseLearn:        {anyLearner},
		EnrollmentComplete: {selfLearner, ownerOnly},
		AuditRead:          {anyHRAdmin, {Roles: instructor}},
		AuditCourse:        {ownerOnly, anyHRAdmin},
		UserManage:         {anyHRAdmin},
		AuditStream:        {anyHRAdmin},
		ProfileRead:        {anySelf, anyHRAdmin},
		ProfileUpdate:      {anySelf},
		DashboardRead:      {anyHRAdmin, {Roles: roles(model.RoleManager)}},
	}
}

// Guard evaluates a Policy.
type Guard struct {
	policy Policy
}

// NewGuard returns a Guard over policy, or over DefaultPolicy when policy is nil.
func NewGuard(policy Policy) *Guard {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Guard{policy: policy}
}

// Allowed reports whether p may perform action on res. Unknown actions are denied.
func (g *Guard) Allowed(p model.Principal, action Action, res Resource) bool {
	for _, rule := range g.policy[action] {
		if rule.allows(p, res) {
			return true
		}
	}
	return false
}

// Authorize returns an Unauthorized error when p may not perform action on res.
func (g *Guard) Authorize(p model.Principal, action Action, res Resource) error {
	if !g.Allowed(p, action, res) {
		return apperror.Unauthorized("you are not allowed to perform %s", action)
	}
	return nil
}
