package auth

import (
	"errors"
	"strings"
	"testing"

	"tableflip.dev/procure/pkg/store"
)

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		phone    string
		want     error
	}{
		{name: "ok", email: "buyer@example.com", password: "secret1", phone: "+421900123456"},
		{name: "ok without plus", email: "buyer@example.com", password: "secret1", phone: "421900123456"},
		{name: "missing email", password: "secret1", phone: "+421900123456", want: ErrInvalidEmail},
		{name: "malformed email", email: "buyer", password: "secret1", phone: "+421900123456", want: ErrInvalidEmail},
		{name: "display name email", email: "Buyer <buyer@example.com>", password: "secret1", phone: "+421900123456", want: ErrInvalidEmail},
		{name: "short password", email: "buyer@example.com", password: "12345", phone: "+421900123456", want: ErrInvalidPassword},
		{name: "phone leading zero", email: "buyer@example.com", password: "secret1", phone: "+0421900", want: ErrInvalidPhone},
		{name: "phone letters", email: "buyer@example.com", password: "secret1", phone: "call me", want: ErrInvalidPhone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(store.NewMemory())
			got, err := s.Register(tc.email, tc.password, tc.phone)
			if tc.want != nil {
				if !errors.Is(err, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, err)
				}
				if s.IsAuthenticated() {
					t.Fatalf("failed registration must not sign in")
				}
				return
			}
			if err != nil {
				t.Fatalf("register: %v", err)
			}
			if !strings.HasPrefix(got.Token, tokenPrefix) || got.Email != tc.email {
				t.Fatalf("unexpected session %+v", got)
			}
		})
	}
}

func TestLoginLogout(t *testing.T) {
	p := store.NewMemory()
	s := New(p)
	if err := s.Require(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated before login, got %v", err)
	}
	sess, err := s.Login("buyer@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Phone != loginPhone {
		t.Fatalf("expected default phone, got %q", sess.Phone)
	}

	// A second service over the same store sees the user.
	u, err := New(p).CurrentUser()
	if err != nil || u.Email != "buyer@example.com" || u.Token != sess.Token {
		t.Fatalf("expected persisted user, got %+v (%v)", u, err)
	}

	if err := s.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.IsAuthenticated() {
		t.Fatalf("expected signed out")
	}
}

func TestCorruptUserIsNotAuthenticated(t *testing.T) {
	p := store.NewMemory()
	_ = p.Write(store.KeyUser, []byte("{"))
	if New(p).IsAuthenticated() {
		t.Fatalf("corrupt user record must not authenticate")
	}
}

func TestTokensAreUnique(t *testing.T) {
	s := New(store.NewMemory())
	a, _ := s.Login("buyer@example.com", "secret1")
	b, _ := s.Login("buyer@example.com", "secret1")
	if a.Token == b.Token {
		t.Fatalf("expected distinct tokens")
	}
}
