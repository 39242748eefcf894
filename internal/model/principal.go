package model

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleAdmin     UserRole = "ADMIN"
	UserRoleManager   UserRole = "MANAGER"
	UserRoleWarehouse UserRole = "WAREHOUSE"
)

// Principal is an authenticated staff member.
type Principal struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Name   string
	Role   UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}

func (p Principal) IsManager() bool {
	return p.Role == UserRoleManager
}

func (p Principal) IsWarehouse() bool {
	return p.Role == UserRoleWarehouse
}

func (p Principal) Actor() Actor {
	return Actor{Kind: ActorStaff, ID: p.UserID.String(), Name: p.Name}
}
