package models

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RolePlanillero UserRole = "planillero"
	RoleViewer     UserRole = "viewer"
)
