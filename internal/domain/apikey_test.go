package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyIsRevoked(t *testing.T) {
	key := &APIKey{ID: "key-1"}
	assert.False(t, key.IsRevoked())

	revokedAt := time.Now()
	key.RevokedAt = &revokedAt
	assert.True(t, key.IsRevoked())
}

func TestValidateAPIKey(t *testing.T) {
	valid := func() *APIKey {
		return &APIKey{
			ID:      "key-1",
			OrgID:   "org-1",
			UserID:  "user-1",
			Name:    "ci key",
			KeyHash: "hash123",
		}
	}

	tests := []struct {
		name    string
		mutate  func(a *APIKey)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid api key",
			mutate:  func(a *APIKey) {},
			wantErr: false,
		},
		{
			name:    "missing ID",
			mutate:  func(a *APIKey) { a.ID = "" },
			wantErr: true,
			errMsg:  "ID",
		},
		{
			name:    "missing OrgID",
			mutate:  func(a *APIKey) { a.OrgID = "" },
			wantErr: true,
			errMsg:  "OrgID",
		},
		{
			name:    "missing UserID",
			mutate:  func(a *APIKey) { a.UserID = "" },
			wantErr: true,
			errMsg:  "UserID",
		},
		{
			name:    "missing Name",
			mutate:  func(a *APIKey) { a.Name = "" },
			wantErr: true,
			errMsg:  "Name",
		},
		{
			name:    "missing KeyHash",
			mutate:  func(a *APIKey) { a.KeyHash = "" },
			wantErr: true,
			errMsg:  "KeyHash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := valid()
			tt.mutate(key)
			err := ValidateAPIKey(key)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAPIKeyNil(t *testing.T) {
	err := ValidateAPIKey(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}
