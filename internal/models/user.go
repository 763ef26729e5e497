package models

import "time"

// Role represents the closed set of application roles.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleParent  Role = "PARENT"
)

// Valid reports whether the role belongs to the closed enum.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleParent:
		return true
	}
	return false
}

// UserStatus captures the account lifecycle.
type UserStatus string

const (
	UserStatusInvited  UserStatus = "INVITED"
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusDisabled UserStatus = "DISABLED"
)

// User represents an application account stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Language     string     `db:"language" json:"language"`
	Role         Role       `db:"role" json:"role"`
	Status       UserStatus `db:"status" json:"status"`
	AuthUserID   *string    `db:"auth_user_id" json:"auth_user_id,omitempty"`
	GuardianID   *string    `db:"guardian_id" json:"guardian_id,omitempty"`
	InvitedAt    *time.Time `db:"invited_at" json:"invited_at,omitempty"`
	ActivatedAt  *time.Time `db:"activated_at" json:"activated_at,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *Role
	Status   *UserStatus
	Search   string
	Page     int
	PageSize int
}

type CreateUserRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	FirstName string  `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string  `json:"last_name" validate:"required,min=1,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	Language  string  `json:"language" validate:"omitempty,oneof=fr en"`
	Role      Role    `json:"role" validate:"required"`
}

type InviteUserRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string  `json:"last_name" validate:"required,min=1,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	Language  string  `json:"language" validate:"omitempty,oneof=fr en"`
	Role      Role    `json:"role" validate:"required"`
}

type UpdateUserRequest struct {
	FirstName *string     `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string     `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone     *string     `json:"phone" validate:"omitempty,max=30"`
	Language  *string     `json:"language" validate:"omitempty,oneof=fr en"`
	Status    *UserStatus `json:"status"`
}

// Pagination describes list metadata in responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
