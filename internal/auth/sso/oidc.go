package sso

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/secrets"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
)

// OIDCStateTTL is how long an authorization request stays redeemable.
const OIDCStateTTL = 10 * time.Minute

func oidcStateKey(state string) string { return "sso:oidc:state:" + state }

// oidcState is what AuthorizeURL remembers for the callback.
type oidcState struct {
	Tenant   string `json:"tenant"`
	Nonce    string `json:"nonce"`
	Verifier string `json:"verifier"`
}

// OIDCProvider is an OpenID Connect relying party. Discovery documents are
// fetched once per tenant and issuer and cached for the life of the process.
type OIDCProvider struct {
	Secrets secrets.Store

	// HTTPClient is used for discovery, token and userinfo calls.
	HTTPClient *http.Client
	// Timeout bounds the outbound calls of one operation.
	Timeout time.Duration
	// Now overrides the clock used for ID token expiry checks.
	Now func() time.Time

	mu        sync.RWMutex
	providers map[string]*oidc.Provider
}

// AuthorizeURL builds the redirect to the IdP's authorization endpoint. State,
// nonce and PKCE verifier are remembered for OIDCStateTTL.
func (p *OIDCProvider) AuthorizeURL(ctx context.Context, cfg domain.FederationConfig) (string, error) {
	oc, err := oidcConfig(cfg)
	if err != nil {
		return "", err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	provider, err := p.provider(ctx, cfg.TenantID, oc.IssuerURL)
	if err != nil {
		return "", err
	}

	nonce, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("generate oidc nonce: %w", err)
	}
	state, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("generate oidc state: %w", err)
	}
	st := oidcState{
		Tenant:   cfg.TenantID,
		Nonce:    nonce,
		Verifier: oauth2.GenerateVerifier(),
	}

	b, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("encode oidc state: %w", err)
	}
	if err := p.Secrets.Set(ctx, oidcStateKey(state), b, OIDCStateTTL); err != nil {
		return "", fmt.Errorf("store oidc state: %w", err)
	}

	return oauth2Config(oc, provider).AuthCodeURL(state,
		oidc.Nonce(st.Nonce),
		oauth2.S256ChallengeOption(st.Verifier),
	), nil
}

// Authenticate redeems the authorization code returned to the callback. The
// state is single use: a second call with the same state fails with
// ReasonProtocol.
func (p *OIDCProvider) Authenticate(ctx context.Context, cfg domain.FederationConfig, state, code string) (domain.FederatedIdentity, error) {
	oc, err := oidcConfig(cfg)
	if err != nil {
		return domain.FederatedIdentity{}, err
	}
	if state == "" || code == "" {
		return domain.FederatedIdentity{}, failf(ReasonProtocol, "missing state or code")
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	raw, err := p.Secrets.Take(ctx, oidcStateKey(state))
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return domain.FederatedIdentity{}, failf(ReasonProtocol, "unknown or expired state")
		}
		return domain.FederatedIdentity{}, fmt.Errorf("load oidc state: %w", err)
	}
	var st oidcState
	if err := json.Unmarshal(raw, &st); err != nil {
		return domain.FederatedIdentity{}, fmt.Errorf("decode oidc state: %w", err)
	}
	if st.Tenant != cfg.TenantID {
		return domain.FederatedIdentity{}, failf(ReasonProtocol, "state issued for another tenant")
	}

	provider, err := p.provider(ctx, cfg.TenantID, oc.IssuerURL)
	if err != nil {
		return domain.FederatedIdentity{}, err
	}
	conf := oauth2Config(oc, provider)

	tok, err := conf.Exchange(p.clientContext(ctx), code, oauth2.VerifierOption(st.Verifier))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return domain.FederatedIdentity{}, fail(ReasonProtocol, err)
		}
		return domain.FederatedIdentity{}, fail(ReasonTransport, err)
	}

	rawID, ok := tok.Extra("id_token").(string)
	if !ok || rawID == "" {
		return domain.FederatedIdentity{}, failf(ReasonProtocol, "token response carries no id_token")
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: oc.ClientID, Now: p.Now})
	idToken, err := verifier.Verify(p.clientContext(ctx), rawID)
	if err != nil {
		return domain.FederatedIdentity{}, classifyVerifyError(err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return domain.FederatedIdentity{}, fail(ReasonProtocol, err)
	}
	if nonce, _ := claims["nonce"].(string); nonce != st.Nonce {
		return domain.FederatedIdentity{}, failf(ReasonNonce, "nonce mismatch")
	}

	info, err := provider.UserInfo(p.clientContext(ctx), conf.TokenSource(ctx, tok))
	if err != nil {
		return domain.FederatedIdentity{}, fail(ReasonTransport, err)
	}
	if info.Subject != idToken.Subject {
		return domain.FederatedIdentity{}, failf(ReasonIdentity, "userinfo subject does not match id token")
	}
	var extra map[string]any
	if err := info.Claims(&extra); err != nil {
		return domain.FederatedIdentity{}, fail(ReasonProtocol, err)
	}
	// Userinfo wins over the ID token for profile claims.
	for k, v := range extra {
		claims[k] = v
	}

	fid := domain.FederatedIdentity{
		TenantID:  cfg.TenantID,
		Provider:  domain.ProtocolOIDC,
		Subject:   idToken.Subject,
		Email:     stringClaim(claims, "email"),
		FirstName: stringClaim(claims, "given_name"),
		LastName:  stringClaim(claims, "family_name"),
		Groups:    stringsClaim(claims, groupsClaim(oc)),
	}
	if fid.Email == "" {
		return domain.FederatedIdentity{}, failf(ReasonIdentity, "no email asserted")
	}
	if v, ok := claims["email_verified"].(bool); ok && !v {
		return domain.FederatedIdentity{}, failf(ReasonIdentity, "email not verified")
	}
	return fid, nil
}

func (p *OIDCProvider) provider(ctx context.Context, tenant, issuer string) (*oidc.Provider, error) {
	key := tenant + "|" + issuer

	p.mu.RLock()
	provider, ok := p.providers[key]
	p.mu.RUnlock()
	if ok {
		return provider, nil
	}

	provider, err := oidc.NewProvider(p.clientContext(ctx), issuer)
	if err != nil {
		if strings.Contains(err.Error(), "did not match the issuer") {
			return nil, fail(ReasonIssuer, err)
		}
		return nil, fail(ReasonTransport, err)
	}

	p.mu.Lock()
	if p.providers == nil {
		p.providers = make(map[string]*oidc.Provider)
	}
	p.providers[key] = provider
	p.mu.Unlock()
	return provider, nil
}

func (p *OIDCProvider) clientContext(ctx context.Context) context.Context {
	if p.HTTPClient == nil {
		return ctx
	}
	// oidc.ClientContext and oauth2.HTTPClient share the same context key.
	return oidc.ClientContext(ctx, p.HTTPClient)
}

func (p *OIDCProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	t := p.Timeout
	if t <= 0 {
		t = DefaultTimeout
	}
	return context.WithTimeout(ctx, t)
}

func oidcConfig(cfg domain.FederationConfig) (*domain.OIDCConfig, error) {
	if cfg.Protocol != domain.ProtocolOIDC || cfg.OIDC == nil {
		return nil, failf(ReasonConfig, "tenant %q has no oidc configuration", cfg.TenantID)
	}
	if cfg.OIDC.IssuerURL == "" || cfg.OIDC.ClientID == "" || cfg.OIDC.RedirectURL == "" {
		return nil, failf(ReasonConfig, "tenant %q oidc configuration incomplete", cfg.TenantID)
	}
	return cfg.OIDC, nil
}

func oauth2Config(oc *domain.OIDCConfig, provider *oidc.Provider) *oauth2.Config {
	scopes := oc.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	return &oauth2.Config{
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  oc.RedirectURL,
		Scopes:       scopes,
	}
}

func groupsClaim(oc *domain.OIDCConfig) string {
	if oc.GroupsClaim != "" {
		return oc.GroupsClaim
	}
	return "groups"
}

func classifyVerifyError(err error) *FederationError {
	var expired *oidc.TokenExpiredError
	if errors.As(err, &expired) {
		return fail(ReasonExpiry, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "audience"):
		return fail(ReasonAudience, err)
	case strings.Contains(msg, "issued by a different provider"):
		return fail(ReasonIssuer, err)
	case strings.Contains(msg, "before the nbf"), strings.Contains(msg, "used before"):
		return fail(ReasonExpiry, err)
	case strings.Contains(msg, "fetching keys"):
		return fail(ReasonTransport, err)
	default:
		return fail(ReasonSignature, err)
	}
}

func stringClaim(claims map[string]any, name string) string {
	s, _ := claims[name].(string)
	return s
}

func stringsClaim(claims map[string]any, name string) []string {
	switch v := claims[name].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
