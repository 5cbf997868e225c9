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

// FederationService resolves a tenant's IdP settings and hands verified
// federated identities to the login orchestrator.
type FederationService struct {
	Store store.Store
	SAML  *sso.SAMLProvider
	OIDC  *sso.OIDCProvider
	Login *LoginService
}

// SAMLMetadata renders the SP metadata for tenant.
func (s *FederationService) SAMLMetadata(ctx context.Context, tenant string) ([]byte, error) {
	cfg, err := s.config(ctx, tenant, domain.ProtocolSAML)
	if err != nil {
		return nil, err
	}
	return s.SAML.Metadata(cfg)
}

// SAMLLoginURL starts an SP-initiated SAML login.
func (s *FederationService) SAMLLoginURL(ctx context.Context, tenant, relayState string) (string, error) {
	cfg, err := s.config(ctx, tenant, domain.ProtocolSAML)
	if err != nil {
		return "", err
	}
	return s.SAML.AuthnRequestURL(ctx, cfg, relayState)
}

// SAMLAssertion consumes a SAMLResponse posted to the ACS.
func (s *FederationService) SAMLAssertion(ctx context.Context, tenant, samlResponse string) (domain.LoginResult, error) {
	cfg, err := s.config(ctx, tenant, domain.ProtocolSAML)
	if err != nil {
		return domain.LoginResult{}, err
	}
	fid, err := s.SAML.Authenticate(ctx, cfg, samlResponse)
	if err != nil {
		return domain.LoginResult{}, s.rejected(ctx, tenant, domain.ProtocolSAML, err)
	}
	return s.Login.LoginFederated(ctx, fid)
}

// OIDCAuthorizeURL starts an OpenID Connect login.
func (s *FederationService) OIDCAuthorizeURL(ctx context.Context, tenant string) (string, error) {
	cfg, err := s.config(ctx, tenant, domain.ProtocolOIDC)
	if err != nil {
		return "", err
	}
	return s.OIDC.AuthorizeURL(ctx, cfg)
}

// OIDCCallback redeems the authorization code returned by the IdP.
func (s *FederationService) OIDCCallback(ctx context.Context, tenant, state, code string) (domain.LoginResult, error) {
	cfg, err := s.config(ctx, tenant, domain.ProtocolOIDC)
	if err != nil {
		return domain.LoginResult{}, err
	}
	fid, err := s.OIDC.Authenticate(ctx, cfg, state, code)
	if err != nil {
		return domain.LoginResult{}, s.rejected(ctx, tenant, domain.ProtocolOIDC, err)
	}
	return s.Login.LoginFederated(ctx, fid)
}

func (s *FederationService) config(ctx context.Context, tenant, protocol string) (domain.FederationConfig, error) {
	cfg, err := s.Store.FederationConfigs().GetFederationConfig(ctx, tenant, protocol)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.FederationConfig{}, &sso.FederationError{
				Reason: sso.ReasonConfig,
				Err:    fmt.Errorf("no %s federation for tenant %q", protocol, tenant),
			}
		}
		return domain.FederationConfig{}, fmt.Errorf("load federation config: %w", err)
	}
	return cfg, nil
}

func (s *FederationService) rejected(ctx context.Context, tenant, protocol string, err error) error {
	reason := sso.ReasonOf(err)
	if reason == "" {
		reason = "error"
	}
	slogx.FromContext(ctx).Warn("federated login rejected",
		slog.String("tenant_id", tenant),
		slog.String("protocol", protocol),
		slog.String("reason", reason),
		slog.Any("err", err),
	)
	s.Login.fail(ctx, audit.EventSSO, "", tenant, protocol, reason)
	return err
}
