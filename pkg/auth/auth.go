// Package auth decides who may see and change what.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Anonymous is the user name requests run as when no users are configured.
const Anonymous = "anonymous"

// User is one entry of the "users" config list.
type User struct {
	Username     string   `mapstructure:"username"`
	PasswordHash string   `mapstructure:"password_hash"`
	Superuser    bool     `mapstructure:"superuser"`
	Permissions  []string `mapstructure:"permissions"`
}

type Policy struct {
	users map[string]User
}

func NewPolicy(users []User) (*Policy, error) {
	p := &Policy{users: make(map[string]User, len(users))}
	for _, u := range users {
		u.Username = strings.TrimSpace(u.Username)
		if u.Username == "" {
			return nil, errors.New("user without a username")
		}
		if _, dup := p.users[u.Username]; dup {
			return nil, fmt.Errorf("user %q configured twice", u.Username)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("user %q: password_hash is not a bcrypt hash: %w", u.Username, err)
		}
		p.users[u.Username] = u
	}
	return p, nil
}

// Enabled is false when no users are configured; everyone is then a superuser.
func (p *Policy) Enabled() bool {
	return len(p.users) > 0
}

// Authenticate checks username and password and returns the matching user.
func (p *Policy) Authenticate(username, password string) (*User, bool) {
	u, ok := p.users[username]
	if !ok {
		// Compare anyway so unknown names take as long as bad passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, false
	}
	return &u, true
}

// HasPermission reports whether username may perform action on entityType,
// e.g. ("add", "dcim.manufacturer") needs "dcim.add_manufacturer".
func (p *Policy) HasPermission(username, action, entityType string) bool {
	if !p.Enabled() {
		return true
	}
	u, ok := p.users[username]
	if !ok {
		return false
	}
	if u.Superuser {
		return true
	}
	want := PermissionName(action, entityType)
	for _, perm := range u.Permissions {
		if perm == want || perm == "*" {
			return true
		}
	}
	return false
}

// PermissionName builds "<app>.<action>_<model>" from an "<app>.<model>" entity type.
func PermissionName(action, entityType string) string {
	app, model, ok := strings.Cut(entityType, ".")
	if !ok {
		return action + "_" + entityType
	}
	return app + "." + action + "_" + model
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("welcome-wizard"), bcrypt.DefaultCost)
