package profile

import "time"

// Role identifies the application-level role assigned to a user at signup.
// The enumeration is defined by the host application; this package only names
// the two roles it needs to distinguish.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// User is the durable profile record for an identity. It is keyed by the
// identity-provider-assigned ID in every store that holds it.
//
// Password exists only for backward shape-compatibility with older record
// consumers and is always the empty string; credential material never enters
// a profile record.
//
// CreatedCourses is present (non-nil, possibly empty) only for instructors and
// absent for every other role.
type User struct {
	ID              string    `json:"id" bson:"_id"`
	Email           string    `json:"email" bson:"email"`
	Password        string    `json:"password" bson:"password"`
	Name            string    `json:"name" bson:"name"`
	Role            Role      `json:"role" bson:"role"`
	Avatar          *string   `json:"avatar" bson:"avatar"`
	Bio             string    `json:"bio" bson:"bio"`
	EnrolledCourses []string  `json:"enrolledCourses" bson:"enrolled_courses"`
	CreatedCourses  *[]string `json:"createdCourses,omitempty" bson:"created_courses,omitempty"`
	LastLogin       time.Time `json:"lastLogin" bson:"last_login"`
}

// IsInstructor reports whether the record carries the instructor role.
func (u *User) IsInstructor() bool {
	return u.Role == RoleInstructor
}

// Clone returns a deep copy of the record so callers can mutate freely
// without aliasing slices held by stores or published snapshots.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Avatar != nil {
		avatar := *u.Avatar
		c.Avatar = &avatar
	}
	if u.EnrolledCourses != nil {
		c.EnrolledCourses = make([]string, len(u.EnrolledCourses))
		copy(c.EnrolledCourses, u.EnrolledCourses)
	}
	if u.CreatedCourses != nil {
		courses := make([]string, len(*u.CreatedCourses))
		copy(courses, *u.CreatedCourses)
		c.CreatedCourses = &courses
	}
	return &c
}

// NewUser constructs a record with the invariants this package maintains:
// an empty password, an initialized enrollment list, and a created-courses
// list only when the role is instructor.
func NewUser(id, email, name string, role Role, lastLogin time.Time) *User {
	u := &User{
		ID:              id,
		Email:           email,
		Password:        "",
		Name:            name,
		Role:            role,
		Bio:             "",
		EnrolledCourses: []string{},
		LastLogin:       lastLogin,
	}
	if role == RoleInstructor {
		courses := []string{}
		u.CreatedCourses = &courses
	}
	return u
}

// Patch describes a shallow partial update to a User. Nil fields are left
// untouched; non-nil fields replace the whole target field (no deep merge of
// slices). The record ID is immutable and therefore not patchable.
type Patch struct {
	Email           *string
	Name            *string
	Role            *Role
	Avatar          **string
	Bio             *string
	EnrolledCourses *[]string
	CreatedCourses  **[]string
	LastLogin       *time.Time
}

// IsZero reports whether the patch carries no changes.
func (p Patch) IsZero() bool {
	return p.Email == nil && p.Name == nil && p.Role == nil && p.Avatar == nil &&
		p.Bio == nil && p.EnrolledCourses == nil && p.CreatedCourses == nil &&
		p.LastLogin == nil
}

// Apply merges the patch into u field by field.
func (p Patch) Apply(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.EnrolledCourses != nil {
		u.EnrolledCourses = *p.EnrolledCourses
	}
	if p.CreatedCourses != nil {
		u.CreatedCourses = *p.CreatedCourses
	}
	if p.LastLogin != nil {
		u.LastLogin = *p.LastLogin
	}
}
