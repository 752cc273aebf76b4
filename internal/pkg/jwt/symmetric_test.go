package jwt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/clovigo/internal/pkg/clock"
	"github.com/shandysiswandi/clovigo/internal/pkg/uid"
)

func newTestJWT(t *testing.T, clk *clock.Manual) *Symmetric {
	t.Helper()

	s, err := NewHS512(Config{
		Secret:     []byte(strings.Repeat("k", 64)),
		Issuer:     "clovigo",
		Audiences:  []string{"clovigo-app"},
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Clock:      clk,
		UUID:       uid.NewUUID(),
	})
	require.NoError(t, err)
	return s
}

func TestNewHS512_ShortKey(t *testing.T) {
	_, err := NewHS512(Config{Secret: []byte("short")})
	assert.ErrorIs(t, err, ErrSigningKeyTooShort)
}

func TestSymmetric_IssueVerify(t *testing.T) {
	clk := clock.NewManual(time.Now())
	s := newTestJWT(t, clk)

	pair, err := s.Issue(Subject{UserID: 42, Username: "alice", Role: "seller"})
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access, pair.Refresh)
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))

	claims, err := s.Verify(pair.Access, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "seller", claims.Role)
	assert.Equal(t, "42", claims.Subject)

	_, err = s.Verify(pair.Refresh, KindAccess)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	_, err = s.Verify(pair.Refresh, KindRefresh)
	assert.NoError(t, err)
}

func TestSymmetric_Expired(t *testing.T) {
	clk := clock.NewManual(time.Now())
	s := newTestJWT(t, clk)

	pair, err := s.Issue(Subject{UserID: 1, Username: "bob", Role: "customer"})
	require.NoError(t, err)

	clk.Advance(16 * time.Minute)

	_, err = s.Verify(pair.Access, KindAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSymmetric_Tampered(t *testing.T) {
	s := newTestJWT(t, clock.NewManual(time.Now()))

	pair, err := s.Issue(Subject{UserID: 1, Username: "bob", Role: "customer"})
	require.NoError(t, err)

	_, err = s.Verify(pair.Access+"x", KindAccess)
	assert.Error(t, err)
}

func TestAuthContext(t *testing.T) {
	assert.Nil(t, GetAuth(context.Background()))

	ctx := SetAuth(context.Background(), Claims{UserID: 7, Role: "customer"})
	got := GetAuth(ctx)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.UserID)
}
