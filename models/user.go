package models

import "strings"

// User is the stored account profile keyed by the identity provider uid
type User struct {
	UID     string  `json:"uid"`
	Email   string  `json:"email"`
	Role    Role    `json:"role"`
	PilotID *string `json:"pilotId"`
}

// CreateUserRequest is the body accepted by POST /api/users
type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Role     Role    `json:"role" validate:"required,oneof=Administrator Pilot Viewer"`
	PilotID  *string `json:"pilotId"`
}

// UpdateUserRequest is the partial body accepted by PUT /api/users.
// PilotID distinguishes an absent field from an explicit null.
type UpdateUserRequest struct {
	Email   *string        `json:"email" validate:"omitempty,email"`
	Role    *Role          `json:"role" validate:"omitempty,oneof=Administrator Pilot Viewer"`
	PilotID NullableString `json:"pilotId"`
}

// NewUser creates a User profile document
func NewUser(uid, email string, role Role, pilotID *string) *User {
	return &User{
		UID:     uid,
		Email:   strings.ToLower(strings.TrimSpace(email)),
		Role:    role,
		PilotID: pilotID,
	}
}

// LinkedPilotID returns the linked pilot id or ""
func (u *User) LinkedPilotID() string {
	if u == nil || u.PilotID == nil {
		return ""
	}
	return *u.PilotID
}

// Identity converts the stored profile into a request identity
func (u *User) Identity() *Identity {
	return NewIdentity(u.UID, u.Email, u.Role, u.LinkedPilotID())
}

// EmailLocalPart returns the portion of the email before '@'
func (u *User) EmailLocalPart() string {
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
