package auth

import (
	"crypto/subtle"
	"strconv"

	"scms/backend/internal/apperr"
	"scms/backend/internal/config"
	"scms/backend/internal/models"
)

// Identity is the authenticated caller of a request.
// Admin identities are recognised by Role and carry Username; their ID is unused.
type Identity struct {
	ID        uint
	Role      string
	Name      string
	Email     string
	StudentID *string
	Username  string
}

func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

// Subject is the value stored in the token's sub claim.
func (i Identity) Subject() string {
	if i.IsAdmin() {
		return i.Username
	}
	return strconv.FormatUint(uint64(i.ID), 10)
}

// Owns reports whether the caller is the student who filed the complaint.
func (i Identity) Owns(c *models.Complaint) bool {
	return !i.IsAdmin() && c != nil && c.StudentID == i.ID
}

// FromUser builds the identity of a stored account.
func FromUser(u *models.User) Identity {
	return Identity{
		ID:        u.ID,
		Role:      u.Role,
		Name:      u.Name,
		Email:     u.Email,
		StudentID: u.StudentID,
	}
}

// RequireAdmin returns ErrForbidden unless the caller is the administrator.
func RequireAdmin(i Identity) error {
	if !i.IsAdmin() {
		return apperr.New(apperr.ErrForbidden, "Admin access required.")
	}
	return nil
}

// AdminAccount is the single statically configured administrator.
type AdminAccount struct {
	Username     string
	Password     string
	PasswordHash string
}

// Verify checks the admin credentials. A configured bcrypt hash takes precedence.
func (a AdminAccount) Verify(username, password string) bool {
	if a.Username == "" || subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) != 1 {
		return false
	}
	if a.PasswordHash != "" {
		return CheckPassword(a.PasswordHash, password)
	}
	return a.Password != "" && subtle.ConstantTimeCompare([]byte(password), []byte(a.Password)) == 1
}

// Identity returns the identity used for every admin request.
func (a AdminAccount) Identity() Identity {
	return Identity{
		Role:     models.RoleAdmin,
		Name:     config.AdminDisplayName,
		Username: a.Username,
	}
}
