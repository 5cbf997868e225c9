package auth_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestSAMLMetadata verifies the SP metadata of the tenant from the config
// file, including the endpoints derived from AUTH_PUBLIC_URL.
func TestSAMLMetadata(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	resp, err := http.Get(baseURL + "/v1/auth/sso/saml/metadata?tenant=" + adminTenant)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/samlmetadata+xml", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), "http://localhost:8080/v1/auth/sso/saml/"+adminTenant+"/acs")
}

// TestSAMLLoginRedirect verifies SP initiated login points at the IdP.
func TestSAMLLoginRedirect(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet,
		baseURL+"/v1/auth/sso/saml/"+adminTenant+"/login", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out authsdk.RedirectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, strings.HasPrefix(out.RedirectURL, "https://idp.example.com/sso?SAMLRequest="))
}

// TestSSOUnknownTenant verifies tenants without federation settings are
// reported as not found.
func TestSSOUnknownTenant(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	resp, err := http.Get(baseURL + "/v1/auth/sso/oidc/no-such-tenant/authorize")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var apiErr authsdk.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	require.Equal(t, authsdk.ErrorCodeFederation, apiErr.Code)
}
