package domain

import "strings"

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

func ParseRole(value string) (UserRole, bool) {
	role := UserRole(strings.ToLower(strings.TrimSpace(value)))
	switch role {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return role, true
	}
	return "", false
}
