package authapi

import "time"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`

	CollegeName    *string `json:"college_name,omitempty"`
	Course         *string `json:"course,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	Enrollment     *string `json:"enrollment,omitempty"`
	YearOfJoining  *int    `json:"year_of_joining,omitempty"`
	YearOfPassing  *int    `json:"year_of_passing,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest is the payload fallback for non-browser clients that hold
// the refresh value outside a cookie jar. Optional; the cookie wins.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// logoutRequest allows clients whose refresh cookie cannot reach the logout
// path to hand the value over explicitly. Optional.
type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type updateProfileRequest struct {
	Name           *string `json:"name,omitempty"`
	CollegeName    *string `json:"college_name,omitempty"`
	Course         *string `json:"course,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	Enrollment     *string `json:"enrollment,omitempty"`
	YearOfJoining  *int    `json:"year_of_joining,omitempty"`
	YearOfPassing  *int    `json:"year_of_passing,omitempty"`
}

// userResponse is the public principal shape. Password hashes and stored
// refresh state never appear here.
type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`

	CollegeName    *string `json:"college_name,omitempty"`
	Course         *string `json:"course,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	Enrollment     *string `json:"enrollment,omitempty"`
	YearOfJoining  *int    `json:"year_of_joining,omitempty"`
	YearOfPassing  *int    `json:"year_of_passing,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type registerResponse struct {
	User userResponse `json:"user"`
}

type loginResponse struct {
	User userResponse `json:"user"`
}

type meResponse struct {
	User userResponse `json:"user"`
}

type profileResponse struct {
	User userResponse `json:"user"`
}
