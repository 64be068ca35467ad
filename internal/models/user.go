package models

import "time"

const (
	RoleUser    = "user"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

func IsValidRole(role string) bool {
	return role == RoleUser ||
		role == RoleManager ||
		role == RoleAdmin
}

type User struct {
	ID        string
	Email     string
	Username  string
	Avatar    string
	Password  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
