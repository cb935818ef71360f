package models

import "time"

// User is the identity and credential record. PasswordHash and
// PasswordChangedAt never leave the server.
type User struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	PasswordChangedAt *time.Time `json:"-"`
	Profile
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile holds the free-form fields a user can fill in at signup.
type Profile struct {
	Desc     string  `json:"desc,omitempty"     bson:"desc,omitempty"     validate:"max=500"`
	Country  string  `json:"country,omitempty"  bson:"country,omitempty"  validate:"max=100"`
	State    string  `json:"state,omitempty"    bson:"state,omitempty"    validate:"max=100"`
	District string  `json:"district,omitempty" bson:"district,omitempty" validate:"max=100"`
	Mandal   string  `json:"mandal,omitempty"   bson:"mandal,omitempty"   validate:"max=100"`
	Town     string  `json:"town,omitempty"     bson:"town,omitempty"     validate:"max=100"`
	Category string  `json:"category"           bson:"category"           validate:"max=50"`
	Rating   float64 `json:"rating"             bson:"rating"             validate:"gte=0"`
	Img      string  `json:"img,omitempty"      bson:"img,omitempty"      validate:"max=255"`
}

const DefaultUserCategory = "nocategory"

// UserSummary is the public view of a user embedded in stories and messages.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// SignupRequest is the JSON body for POST /signup.
type SignupRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
	Profile
}

// LoginRequest is the JSON body for POST /login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest is the JSON body for PATCH /password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required"`
}

// AuthResponse is returned by signup, login and password change.
type AuthResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	User   *User  `json:"user"`
}
