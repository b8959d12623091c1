package models

import (
	"time"

	"github.com/whatifmusic/beatwave/libs/auth/roles"
)

// User is an identity record
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize password hash
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the application-level user record holding role and display metadata
type Profile struct {
	ID          string     `json:"id"`
	DisplayName *string    `json:"display_name"`
	AvatarURL   *string    `json:"avatar_url"`
	Role        roles.Role `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
}

// UserWithRole is a row of list-users-with-roles
type UserWithRole struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName *string    `json:"display_name"`
	AvatarURL   *string    `json:"avatar_url"`
	Role        roles.Role `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SignUpRequest represents a sign-up request
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// SignInRequest represents a sign-in request
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the current session
type SessionResponse struct {
	UserID  string   `json:"user_id"`
	Email   string   `json:"email"`
	Profile *Profile `json:"profile"`
}

// UpdateProfileRequest is the body of the profile update
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// ManageUserRoleRequest is the body of manage-user-roles
type ManageUserRoleRequest struct {
	TargetUserID string `json:"targetUserId"`
	NewRole      string `json:"newRole"`
}

// DeleteUserRequest is the body of delete-user
type DeleteUserRequest struct {
	TargetUserID string `json:"targetUserId"`
}
