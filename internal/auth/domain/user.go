package domain

import "time"

// Roles assignable to a credential record.
const (
	RoleAdmin    = "ADMIN"
	RoleManager  = "MANAGER"
	RoleEmployee = "EMPLOYEE"
)

// User is the credential record for a StaffDesk account. The wider HR domain
// (departments, projects, tasks) references users by id; this subsystem only
// reads and writes the credential-security fields.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string // argon2id PHC encoded
	Role         string

	// MFA state. MFASecret holds the encrypted envelope
	// (base64(iv):base64(tag):base64(ciphertext)), nil when never enrolled.
	MFAEnabled bool
	MFASecret  *string

	// Lockout counters. FailedLoginAttempts and LockedUntil are
	// independent at rest; a successful login clears both together.
	FailedLoginAttempts int
	LockedUntil         *time.Time

	// PasswordTemporal forces a password change before MFA setup is
	// allowed (new-hire provisioning hands out temporary passwords).
	PasswordTemporal bool

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LoginAttemptUpdate is the set of fields the lockout policy asks the store
// to persist. The policy itself never writes.
type LoginAttemptUpdate struct {
	FailedLoginAttempts int
	LockedUntil         *time.Time
	UpdatedAt           time.Time
}
