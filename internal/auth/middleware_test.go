package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/book-store-service/internal/domain"
	"github.com/spec-kit/book-store-service/internal/observability"
)

func newTestGate(f *fixture, metrics *observability.Metrics) *Gate {
	return NewGate(f.sessions, NewCookies(false), nil, metrics)
}

func loginPair(t *testing.T, f *fixture, identity domain.Identity) domain.TokenPair {
	t.Helper()
	pair, err := f.sessions.Login(context.Background(), identity)
	require.NoError(t, err)
	return pair
}

func assertCleared(t *testing.T, res gateResult) {
	t.Helper()
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		ck, ok := res.cookies[name]
		require.True(t, ok, "expected %s to be cleared", name)
		assert.Empty(t, ck.Value)
		assert.True(t, ck.Expires.Before(time.Unix(1, 0)), "expected %s to expire at the epoch", name)
	}
}

func assertRefreshed(t *testing.T, f *fixture, res gateResult, previous string) {
	t.Helper()
	ck, ok := res.cookies[AccessCookieName]
	require.True(t, ok, "expected a new access cookie")
	assert.NotEqual(t, previous, ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, "/", ck.Path)
	assert.Equal(t, int(time.Hour/time.Second), ck.MaxAge)

	payload, err := f.codec.VerifyKind(ck.Value, domain.TokenKindAccess)
	require.NoError(t, err)
	assert.Equal(t, "u1", payload.UserID)

	_, refreshSet := res.cookies[RefreshCookieName]
	assert.False(t, refreshSet, "refresh cookie must not be rewritten")
}

func TestGateNoRefreshToken(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	res := callGate(t, app, "", "")
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "NO_REFRESH_TOKEN", res.code)

	res = callGate(t, app, pair.Access.Token, "")
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "NO_REFRESH_TOKEN", res.code)
	assert.Zero(t, f.store.size())
}

func TestGateInvalidRefreshToken(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	res := callGate(t, app, pair.Access.Token, "garbage")
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", res.code)
	assertCleared(t, res)
	assert.True(t, f.store.has(pair.Access.Token), "the authentic access token is revoked with the session")
}

func TestGateAccessTokenInRefreshSlot(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	res := callGate(t, app, pair.Access.Token, pair.Access.Token)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", res.code)
	assertCleared(t, res)
}

func TestGateExpiredRefreshToken(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	f.clock.Advance(24 * time.Hour)

	res := callGate(t, app, pair.Access.Token, pair.Refresh.Token)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "REFRESH_TOKEN_EXPIRED", res.code)
	assertCleared(t, res)
	assert.Zero(t, f.store.size(), "expired tokens are not blacklisted")
}

func TestGateMissingAccessTokenIsRefreshed(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	res := callGate(t, app, "", pair.Refresh.Token)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, testIdentity, res.user)
	assertRefreshed(t, f, res, "")
}

func TestGateInvalidAccessTokenIsRefreshed(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	for _, access := range []string{"garbage", tamperSignature(pair.Access.Token), pair.Refresh.Token} {
		res := callGate(t, app, access, pair.Refresh.Token)
		require.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, "u1", res.user.UserID)
		assertRefreshed(t, f, res, access)
	}
}

func TestGateUserMismatch(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	mine := loginPair(t, f, testIdentity)
	theirs := loginPair(t, f, domain.Identity{UserID: "u2", Name: "Grace", Email: "grace@gmail.com"})

	res := callGate(t, app, theirs.Access.Token, mine.Refresh.Token)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "TOKEN_MISMATCH", res.code)
	assertCleared(t, res)
	assert.True(t, f.store.has(theirs.Access.Token))
	assert.True(t, f.store.has(mine.Refresh.Token))
}

func TestGateUserMismatchWithExpiredAccess(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	theirs := loginPair(t, f, domain.Identity{UserID: "u2", Name: "Grace", Email: "grace@gmail.com"})
	f.clock.Advance(2 * time.Hour)
	mine := loginPair(t, f, testIdentity)

	res := callGate(t, app, theirs.Access.Token, mine.Refresh.Token)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "TOKEN_MISMATCH", res.code)
}

func TestGateExpiredAccessTokenIsRefreshed(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	f.clock.Advance(time.Hour + time.Second)

	res := callGate(t, app, pair.Access.Token, pair.Refresh.Token)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, testIdentity, res.user)
	assertRefreshed(t, f, res, pair.Access.Token)
}

func TestGateValidSessionPassesThrough(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	res := callGate(t, app, pair.Access.Token, pair.Refresh.Token)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, testIdentity, res.user)
	assert.Empty(t, res.cookies)
}

func TestGateBlacklistOutranksEverything(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	require.NoError(t, f.sessions.Revoke(context.Background(), pair.Access.Token))

	res := callGate(t, app, pair.Access.Token, pair.Refresh.Token)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "TOKEN_BLACKLISTED", res.code)
	assert.Empty(t, res.cookies)

	// a revoked refresh token is forbidden even without an access token
	require.NoError(t, f.sessions.Revoke(context.Background(), pair.Refresh.Token))
	res = callGate(t, app, "", pair.Refresh.Token)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "TOKEN_BLACKLISTED", res.code)
}

func TestGateRejectsReencodedRevokedRefreshToken(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	require.NoError(t, f.sessions.Logout(context.Background(), pair.Access.Token, pair.Refresh.Token))

	replayed := flipLowBit(pair.Refresh.Token, len(pair.Refresh.Token)-1)
	require.False(t, f.store.has(replayed))

	res := callGate(t, app, "", replayed)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", res.code)
	assertCleared(t, res)

	_, err := f.sessions.RefreshAccess(context.Background(), replayed)
	require.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestGateChecksTheSessionStore(t *testing.T) {
	f := newFixture(t)
	gate := newTestGate(f, nil)
	assert.Equal(t, RevocationStore(f.store), gate.store)

	app := newGateApp(gate)
	pair := loginPair(t, f, testIdentity)
	require.NoError(t, f.sessions.Revoke(context.Background(), pair.Refresh.Token))

	res := callGate(t, app, pair.Access.Token, pair.Refresh.Token)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, 1, f.store.size())
}

func TestGateFailsClosedOnStoreError(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	f.store.failRead = errors.New("connection refused")

	res := callGate(t, app, pair.Access.Token, pair.Refresh.Token)
	assert.Equal(t, http.StatusInternalServerError, res.status)
	assert.Equal(t, "AUTH_ERROR", res.code)
}

func TestGateRefreshFailure(t *testing.T) {
	f := newFixture(t)
	pair := loginPair(t, f, testIdentity)

	verifyOnly := NewTokenCodec(NewKeyProvider(nil, &rsaKey(t).PublicKey), WithClock(f.clock.Now))
	sessions, err := NewSessionManager(verifyOnly, f.store, nil, nil, SessionConfig{AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour})
	require.NoError(t, err)
	app := newGateApp(NewGate(sessions, NewCookies(false), nil, nil))

	res := callGate(t, app, "", pair.Refresh.Token)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "TOKEN_REFRESH_FAILED", res.code)
	_, accessSet := res.cookies[AccessCookieName]
	assert.False(t, accessSet)
}

func TestGateSecureCookiesInProduction(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(NewGate(f.sessions, NewCookies(true), nil, nil))
	pair := loginPair(t, f, testIdentity)

	res := callGate(t, app, "", pair.Refresh.Token)
	require.Equal(t, http.StatusOK, res.status)
	assert.True(t, res.cookies[AccessCookieName].Secure)
}

func TestGateRecordsOutcomes(t *testing.T) {
	f := newFixture(t)
	metrics := observability.NewMetrics()
	app := newGateApp(newTestGate(f, metrics))
	pair := loginPair(t, f, testIdentity)

	callGate(t, app, pair.Access.Token, pair.Refresh.Token)
	callGate(t, app, "", pair.Refresh.Token)
	callGate(t, app, "", "")

	assert.Equal(t, 1.0, outcomeCount(t, metrics, "accepted"))
	assert.Equal(t, 1.0, outcomeCount(t, metrics, "refreshed_missing_access"))
	assert.Equal(t, 1.0, outcomeCount(t, metrics, "no_refresh_token"))
}

func TestSessionLifecycleThroughGate(t *testing.T) {
	f := newFixture(t)
	app := newGateApp(newTestGate(f, nil))
	pair := loginPair(t, f, testIdentity)

	res := callGate(t, app, pair.Access.Token, pair.Refresh.Token)
	require.Equal(t, http.StatusOK, res.status)

	// access expires, the gate mints a replacement
	f.clock.Advance(time.Hour + time.Minute)
	res = callGate(t, app, pair.Access.Token, pair.Refresh.Token)
	require.Equal(t, http.StatusOK, res.status)
	refreshed := res.cookies[AccessCookieName].Value

	res = callGate(t, app, refreshed, pair.Refresh.Token)
	require.Equal(t, http.StatusOK, res.status)
	assert.Empty(t, res.cookies)

	require.NoError(t, f.sessions.Logout(context.Background(), refreshed, pair.Refresh.Token))

	// replaying the logged out cookies is forbidden
	res = callGate(t, app, refreshed, pair.Refresh.Token)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "TOKEN_BLACKLISTED", res.code)

	// the stale access token alone cannot revive the session
	res = callGate(t, app, pair.Access.Token, pair.Refresh.Token)
	assert.Equal(t, http.StatusForbidden, res.status)
}

func outcomeCount(t *testing.T, metrics *observability.Metrics, outcome string) float64 {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "auth_gate_outcomes_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
