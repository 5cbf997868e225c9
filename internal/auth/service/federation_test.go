package service

import (
	"context"
	"encoding/pem"
	"testing"

	dsig "github.com/russellhaering/goxmldsig"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatehouse/internal/auth/audit"
	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/sso"
)

func newFederation(h *harness) *FederationService {
	return &FederationService{
		Store: h.store,
		SAML:  &sso.SAMLProvider{Secrets: h.secrets, Now: h.clock.Now},
		OIDC:  &sso.OIDCProvider{Secrets: h.secrets, Now: h.clock.Now},
		Login: h.login,
	}
}

func TestFederationMissingConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	fed := newFederation(h)

	_, err := fed.SAMLMetadata(ctx, "tenant-x")
	require.Equal(t, sso.ReasonConfig, sso.ReasonOf(err))

	_, err = fed.SAMLLoginURL(ctx, "tenant-x", "")
	require.Equal(t, sso.ReasonConfig, sso.ReasonOf(err))

	_, err = fed.SAMLAssertion(ctx, "tenant-x", "PHg+")
	require.Equal(t, sso.ReasonConfig, sso.ReasonOf(err))

	_, err = fed.OIDCAuthorizeURL(ctx, "tenant-x")
	require.Equal(t, sso.ReasonConfig, sso.ReasonOf(err))

	_, err = fed.OIDCCallback(ctx, "tenant-x", "state", "code")
	require.Equal(t, sso.ReasonConfig, sso.ReasonOf(err))
}

func TestFederationRejectionIsAudited(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	fed := newFederation(h)

	_, certDER, err := dsig.RandomKeyStoreForTest().GetKeyPair()
	require.NoError(t, err)
	certPEM := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}))

	require.NoError(t, h.store.FederationConfigs().UpsertFederationConfig(ctx, domain.FederationConfig{
		TenantID: "tenant-a",
		Protocol: domain.ProtocolSAML,
		SAML: &domain.SAMLConfig{
			IdPEntityID: "https://idp.example.com/saml",
			IdPSSOURL:   "https://idp.example.com/sso",
			IdPCertPEM:  certPEM,
			SPEntityID:  "https://auth.test/saml",
			ACSURL:      "https://auth.test/v1/auth/sso/saml/tenant-a/acs",
		},
	}))

	_, err = fed.SAMLAssertion(ctx, "tenant-a", "%%% not base64 %%%")
	require.Equal(t, sso.ReasonProtocol, sso.ReasonOf(err))

	events := h.events(audit.EventSSO)
	require.Len(t, events, 1)
	require.False(t, events[0].Success)
	require.Equal(t, "tenant-a", events[0].TenantID)
	require.Equal(t, sso.ReasonProtocol, events[0].Reason)

	url, err := fed.SAMLLoginURL(ctx, "tenant-a", "/after")
	require.NoError(t, err)
	require.Contains(t, url, "https://idp.example.com/sso?SAMLRequest=")
}
