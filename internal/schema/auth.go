package schema

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const minPasswordLength = 6

// RegisterRequest creates a local account.
type RegisterRequest struct {
	Email    string  `json:"email" msgpack:"email"`
	Password string  `json:"password" msgpack:"password"`
	Name     string  `json:"name" msgpack:"name"`
	Phone    *string `json:"phone,omitempty" msgpack:"phone,omitempty"`
}

// Validate normalizes and checks the request.
func (r *RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if !validEmail(r.Email) {
		return invalid("email", "must be a valid email address")
	}
	if utf8.RuneCountInString(r.Password) < minPasswordLength {
		return invalid("password", "must be at least 6 characters")
	}
	if strings.TrimSpace(r.Name) == "" {
		return invalid("name", "is required")
	}
	if r.Phone != nil && *r.Phone == "" {
		return invalid("phone", "must not be empty when provided")
	}
	return nil
}

// LoginRequest authenticates a local account.
type LoginRequest struct {
	Email    string `json:"email" msgpack:"email"`
	Password string `json:"password" msgpack:"password"`
}

// Validate normalizes and checks the request.
func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if !validEmail(r.Email) {
		return invalid("email", "must be a valid email address")
	}
	if r.Password == "" {
		return invalid("password", "is required")
	}
	return nil
}

// UserIDResponse is returned after register and login.
type UserIDResponse struct {
	UserID int64 `json:"userId" msgpack:"userId"`
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
