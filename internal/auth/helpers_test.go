package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/book-store-service/internal/domain"
	apperrors "github.com/spec-kit/book-store-service/pkg/util"
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return testKey
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type memStore struct {
	mu       sync.Mutex
	records  map[string]domain.RevocationRecord
	lookups  int
	failRead error
	now      func() time.Time
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{records: make(map[string]domain.RevocationRecord), now: now}
}

func (m *memStore) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.failRead != nil {
		return false, m.failRead
	}
	rec, ok := m.records[token]
	return ok && m.now().Before(rec.ExpiresAt), nil
}

func (m *memStore) Revoke(ctx context.Context, record domain.RevocationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[record.Token]; exists {
		return nil
	}
	m.records[record.Token] = record
	return nil
}

func (m *memStore) has(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[token]
	return ok
}

func (m *memStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type fixture struct {
	clock    *fakeClock
	codec    *TokenCodec
	store    *memStore
	sessions *SessionManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newFakeClock()
	codec := NewTokenCodec(NewKeyProvider(rsaKey(t), nil), WithClock(clock.Now))
	store := newMemStore(clock.Now)
	sessions, err := NewSessionManager(codec, store, nil, nil, SessionConfig{
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	return &fixture{clock: clock, codec: codec, store: store, sessions: sessions}
}

var testIdentity = domain.Identity{UserID: "u1", Name: "Ada", Email: "ada@gmail.com"}

func errorHandler(c *fiber.Ctx, err error) error {
	de := apperrors.ToDomainError(err)
	return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "message": de.Message}})
}

func newGateApp(gate *Gate) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Get("/protected", gate.Handle, func(c *fiber.Ctx) error {
		identity, ok := IdentityFromFiber(c)
		if !ok {
			return errors.New("identity missing")
		}
		if _, ok := IdentityFromContext(c.UserContext()); !ok {
			return errors.New("identity missing from context")
		}
		return c.JSON(identity)
	})
	return app
}

type gateResult struct {
	status  int
	code    string
	user    domain.Identity
	cookies map[string]*http.Cookie
}

func callGate(t *testing.T, app *fiber.App, access, refresh string) gateResult {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "/protected", nil)
	require.NoError(t, err)
	if access != "" {
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: access})
	}
	if refresh != "" {
		req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: refresh})
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	res := gateResult{status: resp.StatusCode, cookies: map[string]*http.Cookie{}}
	for _, ck := range resp.Cookies() {
		res.cookies[ck.Name] = ck
	}
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, &res.user))
		return res
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	res.code = envelope.Error.Code
	return res
}
