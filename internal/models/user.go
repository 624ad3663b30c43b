package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the portal role of an acting user. Identity verification happens
// upstream; the engine only authorizes actions against the role.
type Role string

const (
	RoleStudent   Role = "student"
	RoleFaculty   Role = "faculty"
	RoleHoD       Role = "hod"
	RoleCommittee Role = "committee"
	RoleAdmin     Role = "admin"
	RoleOmbudsman Role = "ombudsman"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleHoD, RoleCommittee, RoleAdmin, RoleOmbudsman:
		return true
	}
	return false
}

// User is an acting identity supplied by the auth layer.
type User struct {
	ID         string `gorm:"primaryKey" json:"id"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
	Year       string `json:"year,omitempty"`
	RollNumber string `json:"rollNumber,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
	Email      string `gorm:"uniqueIndex" json:"email"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
