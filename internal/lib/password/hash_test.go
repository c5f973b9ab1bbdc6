package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGetHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "ascii password", password: "password123"},
		{name: "special chars", password: "p@ssw0rd!@#$%^&*()"},
		{name: "chinese password", password: "随机生活2025"},
		{name: "longer than bcrypt limit", password: strings.Repeat("x", 73), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := GetHash(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.NoError(t, CompareHash(hash, tt.password))
		})
	}
}

func TestCompareHash_Mismatch(t *testing.T) {
	hash, err := GetHash("correct_password")
	require.NoError(t, err)

	err = CompareHash(hash, "wrong_password")
	assert.ErrorIs(t, err, bcrypt.ErrMismatchedHashAndPassword)

	assert.Error(t, CompareHash("not-a-hash", "correct_password"))
}
