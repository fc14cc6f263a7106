package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestPermissionName(t *testing.T) {
	assert.Equal(t, "dcim.add_manufacturer", PermissionName("add", "dcim.manufacturer"))
	assert.Equal(t, "welcome_wizard.view_statusentry", PermissionName("view", "welcome_wizard.statusentry"))
	assert.Equal(t, "add_thing", PermissionName("add", "thing"))
}

func TestDisabledPolicyAllowsEverything(t *testing.T) {
	p, err := NewPolicy(nil)
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.True(t, p.HasPermission(Anonymous, "add", "dcim.devicetype"))
}

func TestPolicy(t *testing.T) {
	p, err := NewPolicy([]User{
		{Username: "admin", PasswordHash: hash(t, "root"), Superuser: true},
		{Username: "ops", PasswordHash: hash(t, "ops"), Permissions: []string{"dcim.add_manufacturer", "welcome_wizard.view_manufacturerimport"}},
	})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	u, ok := p.Authenticate("ops", "ops")
	require.True(t, ok)
	assert.Equal(t, "ops", u.Username)
	_, ok = p.Authenticate("ops", "wrong")
	assert.False(t, ok)
	_, ok = p.Authenticate("ghost", "ops")
	assert.False(t, ok)

	assert.True(t, p.HasPermission("ops", "add", "dcim.manufacturer"))
	assert.False(t, p.HasPermission("ops", "add", "dcim.devicetype"))
	assert.True(t, p.HasPermission("admin", "add", "dcim.devicetype"))
	assert.False(t, p.HasPermission("ghost", "view", "welcome_wizard.statusentry"))
}

func TestNewPolicyRejectsBadUsers(t *testing.T) {
	_, err := NewPolicy([]User{{Username: "", PasswordHash: hash(t, "x")}})
	assert.Error(t, err)
	_, err = NewPolicy([]User{{Username: "a", PasswordHash: "plaintext"}})
	assert.Error(t, err)
	h := hash(t, "x")
	_, err = NewPolicy([]User{{Username: "a", PasswordHash: h}, {Username: "a", PasswordHash: h}})
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("s3cret")))
	_, err = HashPassword("")
	assert.Error(t, err)
}
