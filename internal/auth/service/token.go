package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/audit"
	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/secrets"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

func blacklistKey(refreshToken string) string {
	return "token:blacklist:" + cryptox.FingerprintToken(refreshToken)
}

// TokenService issues access and refresh JWTs and rotates refresh tokens.
// Refresh tokens are stateless; a used or logged-out token is tombstoned in
// the secret store for the rest of its natural lifetime.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Store      store.Store
	Secrets    secrets.Store
	Audit      audit.Sink

	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Now func() time.Time
}

// Issue mints a new access and refresh pair for id.
func (s *TokenService) Issue(ctx context.Context, id domain.Identity, mfaVerified bool) (domain.TokenPair, error) {
	return s.issue(ctx, id, mfaVerified, amrFor(id.Method, mfaVerified, ""))
}

// IssueAfterMFA is Issue for a login completed with the given MFA method.
func (s *TokenService) IssueAfterMFA(ctx context.Context, id domain.Identity, mfaMethod string) (domain.TokenPair, error) {
	return s.issue(ctx, id, true, amrFor(id.Method, true, mfaMethod))
}

func (s *TokenService) issue(ctx context.Context, id domain.Identity, mfaVerified bool, amr []string) (domain.TokenPair, error) {
	now := s.now()
	p := jwtx.Principal{
		UserID:   id.UserID,
		TenantID: id.TenantID,
		Role:     id.Role,
		Sites:    id.SiteScope,
		Email:    id.Email,
	}

	access, err := s.KeyManager.Sign(jwtx.NewClaims(jwtx.TypeAccess, p, mfaVerified, amr, s.accessTTL(), s.Issuer, s.Audience, now))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to sign access token", slog.Any("err", err))
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.KeyManager.Sign(jwtx.NewClaims(jwtx.TypeRefresh, p, mfaVerified, amr, s.refreshTTL(), s.Issuer, s.Audience, now))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to sign refresh token", slog.Any("err", err))
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL(),
	}, nil
}

// Refresh exchanges a refresh token for a new pair. Each refresh token is
// accepted once: the blacklist insert is the claim, so of two concurrent
// calls with the same token exactly one succeeds.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.verify(refreshToken, jwtx.TypeRefresh)
	if err != nil {
		s.emit(ctx, audit.EventRefresh, claims, false, "invalid")
		return domain.TokenPair{}, ErrTokenInvalid
	}

	ttl := claims.Remaining(s.now())
	if ttl <= 0 {
		return domain.TokenPair{}, ErrTokenInvalid
	}

	key := blacklistKey(refreshToken)
	claimed, err := s.Secrets.SetNX(ctx, key, []byte(domain.RevokedRotated), ttl)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("claim refresh token: %w", err)
	}
	if !claimed {
		s.emit(ctx, audit.EventRefresh, claims, false, "revoked")
		return domain.TokenPair{}, ErrTokenRevoked
	}

	// From here on an internal failure releases the claim so the caller can
	// retry with the same token.
	release := func() {
		if err := s.Secrets.Delete(ctx, key); err != nil {
			l.Warn("failed to release refresh claim", slog.Any("err", err))
		}
	}

	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.emit(ctx, audit.EventRefresh, claims, false, "user_missing")
			return domain.TokenPair{}, ErrUserInactive
		}
		release()
		return domain.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.Active {
		s.emit(ctx, audit.EventRefresh, claims, false, "inactive")
		return domain.TokenPair{}, ErrUserInactive
	}

	id := u.Identity(methodFromAMR(claims.AMR))
	pair, err := s.issue(ctx, id, claims.MFAVerified, claims.AMR)
	if err != nil {
		release()
		return domain.TokenPair{}, err
	}

	s.emit(ctx, audit.EventRefresh, claims, true, "")
	return pair, nil
}

// Revoke tombstones a refresh token for its remaining lifetime. Revoking an
// expired or already revoked token is a no-op.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.verify(refreshToken, jwtx.TypeRefresh)
	if errors.Is(err, jwtx.ErrExpired) {
		return nil
	}
	if err != nil {
		return ErrTokenInvalid
	}

	ttl := claims.Remaining(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.Secrets.Set(ctx, blacklistKey(refreshToken), []byte(domain.RevokedLogout), ttl); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	s.emit(ctx, audit.EventLogout, claims, true, "")
	return nil
}

// Authenticate verifies an access token. Refresh tokens are rejected.
func (s *TokenService) Authenticate(_ context.Context, accessToken string) (jwtx.Claims, error) {
	claims, err := s.verify(accessToken, jwtx.TypeAccess)
	if err != nil {
		return jwtx.Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

// IsRevoked reports whether a refresh token has been rotated or logged out.
func (s *TokenService) IsRevoked(ctx context.Context, refreshToken string) (bool, error) {
	_, err := s.Secrets.Get(ctx, blacklistKey(refreshToken))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, secrets.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// verify checks signature, registered claims and token type. An expired but
// authentic token returns its claims together with jwtx.ErrExpired.
func (s *TokenService) verify(raw, typ string) (jwtx.Claims, error) {
	claims, err := s.KeyManager.Verifier.Verify(raw)
	if err != nil {
		return claims, err
	}
	if err := claims.ValidateType(typ); err != nil {
		return jwtx.Claims{}, err
	}
	return claims, nil
}

func (s *TokenService) emit(ctx context.Context, typ string, c jwtx.Claims, ok bool, reason string) {
	audit.Emit(ctx, s.Audit, audit.Event{
		Type:     typ,
		UserID:   c.Subject,
		TenantID: c.TenantID,
		Success:  ok,
		Reason:   reason,
	})
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// amrFor lists the authentication methods behind a session.
func amrFor(method string, mfaVerified bool, mfaMethod string) []string {
	var amr []string
	switch method {
	case domain.MethodSAML:
		amr = append(amr, jwtx.AMRSAML)
	case domain.MethodOIDC:
		amr = append(amr, jwtx.AMROIDC)
	default:
		amr = append(amr, jwtx.AMRPassword)
	}
	switch mfaMethod {
	case domain.MFAMethodTOTP:
		amr = append(amr, jwtx.AMROTP)
	case domain.MFAMethodBackupCode:
		amr = append(amr, jwtx.AMRBackupCode)
	}
	if mfaVerified {
		amr = append(amr, jwtx.AMRMFA)
	}
	return amr
}

func methodFromAMR(amr []string) string {
	for _, m := range amr {
		switch m {
		case jwtx.AMRSAML:
			return domain.MethodSAML
		case jwtx.AMROIDC:
			return domain.MethodOIDC
		}
	}
	return domain.MethodPassword
}

var _ httpx.Authenticator = (*TokenService)(nil)
