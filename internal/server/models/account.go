package models

import "time"

// Account is a registered user as persisted by the credential store.
// PasswordHash and RefreshToken never leave the server; see Public.
type Account struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	FullName     string    `db:"fullname"`
	Avatar       string    `db:"avatar"`
	CoverImage   string    `db:"cover_image"`
	PasswordHash string    `db:"password_hash"`
	RefreshToken string    `db:"refresh_token"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// PublicAccount is the client-facing view of an Account.
type PublicAccount struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public strips credentials from a.
func (a *Account) Public() *PublicAccount {
	if a == nil {
		return nil
	}
	return &PublicAccount{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		FullName:   a.FullName,
		Avatar:     a.Avatar,
		CoverImage: a.CoverImage,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// Sanitized returns a copy of a without the password hash and refresh token.
func (a *Account) Sanitized() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.PasswordHash = ""
	c.RefreshToken = ""
	return &c
}
