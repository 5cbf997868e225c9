package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatehouse/internal/auth/audit"
	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/secrets"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/idx"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
)

const (
	testIssuer   = "https://auth.test"
	testPassword = "correct horse battery staple"
)

// clock is a settable time source shared by the MFA components.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	t       *testing.T
	mr      *miniredis.Miniredis
	store   *sqlite.Store
	secrets secrets.Store
	clock   *clock
	audit   *audit.ChannelSink
	hasher  *cryptox.Hasher

	creds  *CredentialVerifier
	mfa    *MFAController
	tokens *TokenService
	login  *LoginService
	users  *UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sec := secrets.NewRedis(client, "test")

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		VerifyOptions: jwtx.VerifyOptions{Issuer: testIssuer, Audience: []string{"gatehouse"}},
	})
	require.NoError(t, err)

	sealer, err := cryptox.NewSealer([]byte("test sealing key material"))
	require.NoError(t, err)

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	sink := audit.NewChannelSink(256)
	hasher := cryptox.NewHasher("pepper")

	h := &harness{t: t, mr: mr, store: st, secrets: sec, clock: clk, audit: sink, hasher: hasher}
	h.creds = &CredentialVerifier{Store: st, Hasher: hasher, Audit: sink, Now: clk.Now}
	h.mfa = &MFAController{
		Store:       st,
		Secrets:     sec,
		Sealer:      sealer,
		Credentials: h.creds,
		Audit:       sink,
		Issuer:      "Gatehouse",
		MaxAttempts: DefaultMaxMFAAttempts,
		Now:         clk.Now,
	}
	h.tokens = &TokenService{
		KeyManager: km,
		Store:      st,
		Secrets:    sec,
		Audit:      sink,
		Issuer:     testIssuer,
		Audience:   []string{"gatehouse"},
	}
	h.login = &LoginService{Store: st, Credentials: h.creds, MFA: h.mfa, Tokens: h.tokens, Audit: sink}
	h.users = &UserService{Store: st, MFA: h.mfa}
	return h
}

func (h *harness) seedUser(email string) domain.User {
	h.t.Helper()
	hash, err := h.hasher.Hash(testPassword)
	require.NoError(h.t, err)

	u := domain.User{
		ID:           idx.New().String(),
		TenantID:     "tenant-a",
		Email:        email,
		PasswordHash: hash,
		Role:         "operator",
		Active:       true,
		SiteScope:    []string{"site-1"},
		FirstName:    "Ada",
		LastName:     "Lovelace",
	}
	require.NoError(h.t, h.store.Users().CreateUser(context.Background(), u))
	return u
}

// advance moves both the service clock and the secret store TTLs.
func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.mr.FastForward(d)
}

func (h *harness) code(secret string) string {
	h.t.Helper()
	code, err := totp.GenerateCode(secret, h.clock.Now())
	require.NoError(h.t, err)
	return code
}

// wrongCode returns a well-formed code that differs from the current one.
func (h *harness) wrongCode(secret string) string {
	n, err := strconv.Atoi(h.code(secret))
	require.NoError(h.t, err)
	return fmt.Sprintf("%06d", (n+500000)%1000000)
}

// enableMFA runs a full enrollment and leaves the clock one TOTP step later
// so the next code differs from the confirmation code.
func (h *harness) enableMFA(userID string) domain.Enrollment {
	h.t.Helper()
	ctx := context.Background()

	enr, err := h.mfa.StartEnrollment(ctx, userID)
	require.NoError(h.t, err)
	require.NoError(h.t, h.mfa.ConfirmEnrollment(ctx, userID, h.code(enr.Secret)))
	h.advance(30 * time.Second)
	return enr
}

func (h *harness) events(typ string) []audit.Event {
	var out []audit.Event
	for _, e := range h.audit.Drain() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
