package model

import (
	"fmt"
	"strings"

	"inspection_log/internal/errs"
)

// Role is a user's role in the inspection workflow
type Role string

const (
	RoleOperator Role = "OPERATOR"
	RoleQA       Role = "QA"
	RoleAVP      Role = "AVP"
	RoleMaster   Role = "MASTER"
)

// Roles lists every valid role
var Roles = []Role{RoleOperator, RoleQA, RoleAVP, RoleMaster}

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range Roles {
		if r == v {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q: %w", s, errs.ErrValidation)
}

// User represents a user in the system
type User struct {
	BaseModel
	Username string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	// Password holds whatever the configured credential verifier stores.
	Password string `gorm:"type:varchar(255);not null" json:"-"`
	Name     string `gorm:"type:varchar(128);not null" json:"name"`
	Role     Role   `gorm:"type:varchar(16);not null;index" json:"role"`
	Active   bool   `gorm:"not null;default:true;index" json:"active"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
