package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/gatehouse/internal/auth/audit"
	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/sso"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// LoginService sequences first factor, optional MFA challenge and token
// issuance. Local and federated logins converge once the first factor is
// checked; no state is held between calls other than the MFA challenge.
type LoginService struct {
	Store       store.Store
	Credentials *CredentialVerifier
	MFA         *MFAController
	Tokens      *TokenService
	Audit       audit.Sink
}

// Login checks email and password. Accounts with MFA get a challenge instead
// of tokens.
func (s *LoginService) Login(ctx context.Context, email, password string) (domain.LoginResult, error) {
	id, err := s.Credentials.Verify(ctx, email, password)
	if err != nil {
		return domain.LoginResult{}, err
	}
	return s.afterFirstFactor(ctx, id, audit.EventLogin)
}

// LoginFederated continues a login whose first factor was asserted by an
// external IdP. The asserted email must belong to an existing account of the
// same tenant.
func (s *LoginService) LoginFederated(ctx context.Context, fid domain.FederatedIdentity) (domain.LoginResult, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, fid.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(ctx, audit.EventSSO, "", fid.TenantID, fid.Provider, "unknown_email")
		return domain.LoginResult{}, &sso.FederationError{
			Reason: sso.ReasonIdentity,
			Err:    errors.New("no account for asserted email"),
		}
	case err != nil:
		return domain.LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if u.TenantID != fid.TenantID {
		s.fail(ctx, audit.EventSSO, u.ID, fid.TenantID, fid.Provider, "tenant_mismatch")
		return domain.LoginResult{}, &sso.FederationError{
			Reason: sso.ReasonIdentity,
			Err:    errors.New("no account for asserted email"),
		}
	}
	if !u.Active {
		s.fail(ctx, audit.EventSSO, u.ID, u.TenantID, fid.Provider, "inactive")
		return domain.LoginResult{}, ErrAccountInactive
	}

	return s.afterFirstFactor(ctx, u.Identity(fid.Provider), audit.EventSSO)
}

// VerifyMFA completes a login that stopped at the MFA challenge.
func (s *LoginService) VerifyMFA(ctx context.Context, userID, challengeToken, code string) (domain.LoginResult, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrMFAChallengeExpired
		}
		return domain.LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.Active {
		s.fail(ctx, audit.EventMFAVerify, u.ID, u.TenantID, "", "inactive")
		return domain.LoginResult{}, ErrAccountInactive
	}

	res, err := s.MFA.Verify(ctx, userID, challengeToken, code)
	if err != nil {
		s.fail(ctx, audit.EventMFAVerify, u.ID, u.TenantID, "", reasonFor(err))
		return domain.LoginResult{}, err
	}

	id := u.Identity(res.FirstFactor)
	pair, err := s.Tokens.IssueAfterMFA(ctx, id, res.Method)
	if err != nil {
		return domain.LoginResult{}, err
	}
	s.complete(ctx, audit.EventMFAVerify, id, res.Method)
	return domain.LoginResult{Tokens: &pair, Identity: id}, nil
}

func (s *LoginService) afterFirstFactor(ctx context.Context, id domain.Identity, event string) (domain.LoginResult, error) {
	if id.MFAEnabled {
		ch, err := s.MFA.ChallengeAfter(ctx, id.UserID, id.Method)
		if err != nil {
			return domain.LoginResult{}, err
		}
		audit.Emit(ctx, s.Audit, audit.Event{
			Type:     event,
			UserID:   id.UserID,
			TenantID: id.TenantID,
			Method:   id.Method,
			Success:  true,
			Metadata: map[string]string{"stage": "mfa_required"},
		})
		return domain.LoginResult{Identity: id, Challenge: &ch}, nil
	}

	pair, err := s.Tokens.Issue(ctx, id, false)
	if err != nil {
		return domain.LoginResult{}, err
	}
	s.complete(ctx, event, id, "")
	return domain.LoginResult{Tokens: &pair, Identity: id}, nil
}

func (s *LoginService) complete(ctx context.Context, event string, id domain.Identity, mfaMethod string) {
	if err := s.Credentials.RecordLogin(ctx, id.UserID); err != nil {
		slogx.FromContext(ctx).Warn("failed to record last login", slog.String("user_id", id.UserID), slog.Any("err", err))
	}
	e := audit.Event{
		Type:     event,
		UserID:   id.UserID,
		TenantID: id.TenantID,
		Method:   id.Method,
		Success:  true,
	}
	if mfaMethod != "" {
		e.Metadata = map[string]string{"mfa_method": mfaMethod}
	}
	audit.Emit(ctx, s.Audit, e)
}

func (s *LoginService) fail(ctx context.Context, event, userID, tenantID, method, reason string) {
	audit.Emit(ctx, s.Audit, audit.Event{
		Type:     event,
		UserID:   userID,
		TenantID: tenantID,
		Method:   method,
		Success:  false,
		Reason:   reason,
	})
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrMFAChallengeExpired):
		return "challenge_expired"
	case errors.Is(err, ErrInvalidMFACode):
		return "invalid_code"
	case errors.Is(err, ErrMFAAttemptsExceeded):
		return "attempts_exceeded"
	default:
		return "error"
	}
}
