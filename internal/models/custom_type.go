package models

type UserRole string
type UserStatus uint8
type CandidateStatus uint8
type DeviceClass string

const (
	RoleVoter UserRole = "voter"
	RoleAdmin UserRole = "admin"
)

const (
	UserStatusActive UserStatus = iota
	UserStatusDisabled
)

const (
	CandidateStatusActive CandidateStatus = iota
	// CandidateStatusRetired keeps the row and its historical votes
	CandidateStatusRetired
)

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
	DeviceBot     DeviceClass = "bot"
	DeviceUnknown DeviceClass = "unknown"
)
