package account

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Normalize(t *testing.T) {
	t.Run("coalesces _id onto id", func(t *testing.T) {
		u := User{AltID: "u-1", Name: "Ada"}
		got := u.Normalize()
		assert.Equal(t, "u-1", got.ID)
	})

	t.Run("idempotent", func(t *testing.T) {
		u := User{ID: "u-2", AltID: "u-2"}
		once := u.Normalize()
		assert.Equal(t, once, once.Normalize())
	})
}

func TestAuthResponse_UnmarshalJSON(t *testing.T) {
	t.Run("token field", func(t *testing.T) {
		var res AuthResponse
		require.NoError(t, json.Unmarshal([]byte(`{"token":"t1","user":{"id":"u1","role":"bidder"}}`), &res))
		assert.Equal(t, "t1", res.Token)
		require.NotNil(t, res.User)
		assert.Equal(t, RoleBidder, res.User.Role)
	})

	t.Run("accessToken fallback, no user", func(t *testing.T) {
		var res AuthResponse
		require.NoError(t, json.Unmarshal([]byte(`{"accessToken":"t2"}`), &res))
		assert.Equal(t, "t2", res.Token)
		assert.Nil(t, res.User)
	})
}

func TestCredentials_Validate(t *testing.T) {
	assert.NoError(t, Credentials{Email: "a@b.co", Password: "secret"}.Validate())
	assert.Error(t, Credentials{Email: "not-an-email", Password: "secret"}.Validate())
	assert.Error(t, Credentials{Email: "a@b.co"}.Validate())
}

func TestRegistration_Validate(t *testing.T) {
	valid := Registration{Name: "Ada", Email: "a@b.co", Password: "longenough", Role: RoleIssuer}
	assert.NoError(t, valid.Validate())

	short := valid
	short.Password = "short"
	assert.Error(t, short.Validate())

	badRole := valid
	badRole.Role = "superuser"
	assert.Error(t, badRole.Validate())
}

func TestRole_Is(t *testing.T) {
	assert.True(t, Role("Bidder").Is(RoleBidder))
	assert.False(t, Role("issuer").Is(RoleBidder))
}
