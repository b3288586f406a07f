package domain

const (
	RoleAdmin     = "admin"
	RoleCaregiver = "caregiver"
)
