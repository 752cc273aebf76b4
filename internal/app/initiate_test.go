package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnforcer(t *testing.T) {
	e, err := newEnforcer([]string{"admin:*:*", "broken-entry", "seller:catalog.product:write"})
	require.NoError(t, err)

	tests := []struct {
		sub, obj, act string
		want          bool
	}{
		{"customer", "accounts.profile", "read", true},
		{"seller", "accounts.profile", "read", true},
		{"deliveryboy", "accounts.profile", "read", true},
		{"customer", "accounts.profile", "write", false},
		{"seller", "catalog.product", "write", true},
		{"admin", "anything", "delete", true},
		{"auditor", "accounts.profile", "read", false},
	}

	for _, tt := range tests {
		t.Run(tt.sub+"/"+tt.obj+"/"+tt.act, func(t *testing.T) {
			ok, err := e.Enforce(tt.sub, tt.obj, tt.act)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
