package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatehouse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "gatehouse", cfg.Issuer)
	assert.Equal(t, []string{"gatehouse"}, cfg.Audience)
	assert.Equal(t, "gatehouse", cfg.RedisPrefix)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "Gatehouse", cfg.MFAIssuer)
	assert.Equal(t, service.DefaultMaxMFAAttempts, cfg.MFAMaxAttempts)
	assert.Equal(t, service.MaxEnrollmentTTL, cfg.MFAEnrollTTL)
	assert.Equal(t, service.MaxChallengeTTL, cfg.MFAChallengeTTL)
	assert.Equal(t, 8080, cfg.Port)
	assert.Nil(t, cfg.Bootstrap)
	assert.Empty(t, cfg.Federation)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("AUTH_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUTH_AUDIENCE", "web, mobile ,")
	t.Setenv("AUTH_ACCESS_TTL", "5")
	t.Setenv("AUTH_REFRESH_TTL", "24h")
	t.Setenv("AUTH_MFA_CHALLENGE_TTL", "1h")
	t.Setenv("AUTH_PUBLIC_URL", "https://auth.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"web", "mobile"}, cfg.Audience)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL, "bare integers are minutes")
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, service.MaxChallengeTTL, cfg.MFAChallengeTTL, "capped")
	assert.Equal(t, "https://auth.example.com", cfg.PublicURL)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing redis",
			env:  map[string]string{},
			want: "AUTH_REDIS_URL must be set",
		},
		{
			name: "access outlives refresh",
			env:  map[string]string{"AUTH_ACCESS_TTL": "2h", "AUTH_REFRESH_TTL": "1h"},
			want: "must be shorter than AUTH_REFRESH_TTL",
		},
		{
			name: "bad port",
			env:  map[string]string{"PORT": "70000"},
			want: "invalid PORT",
		},
		{
			name: "relative public url",
			env:  map[string]string{"AUTH_PUBLIC_URL": "auth.example.com"},
			want: "is not an absolute URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name != "missing redis" {
				t.Setenv("AUTH_REDIS_URL", "redis://localhost:6379/0")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
auth_issuer: from-file
bootstrap:
  tenant: acme
  email: root@acme.test
  password: "S3cret!pass"
  sites: [hq, depot]
federation:
  - tenant: acme
    protocol: saml
    saml:
      idp_entity_id: https://idp.acme.test
      idp_sso_url: https://idp.acme.test/sso
  - tenant: globex
    protocol: oidc
    oidc:
      issuer_url: https://login.globex.test
      client_id: gatehouse
      client_secret: shh
      scopes: [openid, email]
`)
	t.Setenv("AUTH_CONFIG_FILE", path)
	t.Setenv("AUTH_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUTH_PUBLIC_URL", "https://auth.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Issuer)

	require.NotNil(t, cfg.Bootstrap)
	assert.Equal(t, domain.BootstrapAccount{
		TenantID:  "acme",
		Email:     "root@acme.test",
		Password:  "S3cret!pass",
		SiteScope: []string{"hq", "depot"},
	}, *cfg.Bootstrap)

	require.Len(t, cfg.Federation, 2)

	saml := cfg.Federation[0]
	require.NotNil(t, saml.SAML)
	assert.Equal(t, "https://auth.example.com/v1/auth/sso/saml/acme/acs", saml.SAML.ACSURL)
	assert.Equal(t, "https://auth.example.com/v1/auth/sso/saml/metadata?tenant=acme", saml.SAML.SPEntityID)

	oidc := cfg.Federation[1]
	require.NotNil(t, oidc.OIDC)
	assert.Equal(t, "https://auth.example.com/v1/auth/sso/oidc/globex/callback", oidc.OIDC.RedirectURL)
	assert.Equal(t, []string{"openid", "email"}, oidc.OIDC.Scopes)
}

func TestLoadConfigFileEnvWins(t *testing.T) {
	path := writeConfig(t, "auth_issuer: from-file\n")
	t.Setenv("AUTH_CONFIG_FILE", path)
	t.Setenv("AUTH_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUTH_ISSUER", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Issuer)
}

func TestLoadConfigFileErrors(t *testing.T) {
	t.Setenv("AUTH_REDIS_URL", "redis://localhost:6379/0")

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("AUTH_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("unknown protocol", func(t *testing.T) {
		t.Setenv("AUTH_CONFIG_FILE", writeConfig(t, `
federation:
  - tenant: acme
    protocol: ldap
`))
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown protocol "ldap"`)
	})

	t.Run("missing tenant", func(t *testing.T) {
		t.Setenv("AUTH_CONFIG_FILE", writeConfig(t, `
federation:
  - protocol: saml
`))
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no tenant")
	})
}

func TestApplyFederationDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		PublicURL: "https://auth.example.com",
		Federation: []domain.FederationConfig{{
			TenantID: "acme",
			Protocol: domain.ProtocolSAML,
			SAML: &domain.SAMLConfig{
				ACSURL:     "https://elsewhere.test/acs",
				SPEntityID: "urn:acme:sp",
			},
		}},
	}
	cfg.applyFederationDefaults()

	assert.Equal(t, "https://elsewhere.test/acs", cfg.Federation[0].SAML.ACSURL)
	assert.Equal(t, "urn:acme:sp", cfg.Federation[0].SAML.SPEntityID)
}
