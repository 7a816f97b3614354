// Package auth is a local stand-in for account sign-in. It validates input
// the way the sign-up form does and remembers the signed in user in the
// cache store. No credentials are checked.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"tableflip.dev/procure/pkg/store"
)

var (
	// ErrNotAuthenticated is returned by commands that need a signed in user.
	ErrNotAuthenticated = errors.New("not signed in, run `procure login` first")

	ErrInvalidEmail    = errors.New("auth: a valid email is required")
	ErrInvalidPassword = errors.New("auth: password must be at least 6 characters")
	ErrInvalidPhone    = errors.New("auth: phone must be in international format, e.g. +421900123456")
)

const (
	minPasswordLength = 6
	tokenPrefix       = "dummy-token-"
	// loginPhone is recorded for users who sign in without registering.
	loginPhone = "+421900123456"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// User is the persisted signed in user.
type User struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Token string `json:"token"`
}

// Service keeps the current user in p under store.KeyUser.
type Service struct {
	p store.Persistence
}

func New(p store.Persistence) *Service {
	return &Service{p: p}
}

// Register validates the form fields and signs the user in.
func (s *Service) Register(email, password, phone string) (*User, error) {
	if err := validate(email, password); err != nil {
		return nil, err
	}
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhone
	}
	return s.signIn(User{Email: strings.TrimSpace(email), Phone: phone})
}

// Login validates the form fields and signs the user in.
func (s *Service) Login(email, password string) (*User, error) {
	if err := validate(email, password); err != nil {
		return nil, err
	}
	return s.signIn(User{Email: strings.TrimSpace(email), Phone: loginPhone})
}

// Logout forgets the current user.
func (s *Service) Logout() error {
	return s.p.Erase(store.KeyUser)
}

// CurrentUser returns the signed in user or ErrNotAuthenticated.
func (s *Service) CurrentUser() (*User, error) {
	raw, err := s.p.Read(store.KeyUser)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	u := &User{}
	if err := json.Unmarshal(raw, u); err != nil || u.Email == "" {
		return nil, ErrNotAuthenticated
	}
	return u, nil
}

func (s *Service) IsAuthenticated() bool {
	_, err := s.CurrentUser()
	return err == nil
}

// Require returns ErrNotAuthenticated unless a user is signed in.
func (s *Service) Require() error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

func (s *Service) signIn(u User) (*User, error) {
	u.Token = tokenPrefix + uuid.NewString()
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	if err := s.p.Write(store.KeyUser, raw); err != nil {
		return nil, fmt.Errorf("auth: saving user: %w", err)
	}
	return &u, nil
}

func validate(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}
