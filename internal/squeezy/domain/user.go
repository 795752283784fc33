package domain

import "time"

type User struct {
	ID            string
	Name          string
	Email         string // lower-cased, unique
	PasswordHash  string // argon2 encoded
	EmailVerified bool
	MFAEnabled    bool
	MFASecret     *string // TOTP secret (nullable, base32 encoded)
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserView is the public projection of a User. It never carries the
// password hash or MFA secret.
type UserView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	MFAEnabled    bool      `json:"enable2FA"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (u User) View() UserView {
	return UserView{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		MFAEnabled:    u.MFAEnabled,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
