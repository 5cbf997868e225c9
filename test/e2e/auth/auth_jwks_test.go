package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// TestJWKSVerification verifies that tokens issued by the service can be
// verified offline with the published JWKS:
// 1. Login with the seeded admin
// 2. Fetch JWKS
// 3. Verify the access token and check its claims
func TestJWKSVerification(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	session := performLogin(t, client)
	accessToken := session.AccessToken()
	t.Logf("Login successful, got access token")

	jwksResp, err := client.GetJWKS(t.Context())
	require.NoError(t, err, "Should fetch JWKS successfully")
	require.NotEmpty(t, jwksResp.Keys, "JWKS should contain at least one key")

	keySet := jwtx.NewKeySet()
	for _, key := range jwksResp.Keys {
		require.NoError(t, keySet.AddJWK(key), "Should load JWK %s", key.Kid)
	}

	verifier := jwtx.NewVerifierEdDSA(keySet, jwtx.VerifyOptions{
		Issuer:   testIssuer,
		Audience: []string{"gatehouse"},
	})

	claims, err := verifier.Verify(accessToken)
	require.NoError(t, err, "Should verify access token successfully")

	require.NotEmpty(t, claims.Subject, "Subject should contain user ID")
	require.Equal(t, jwtx.TypeAccess, claims.Type)
	require.Equal(t, adminTenant, claims.TenantID)
	require.Equal(t, adminEmail, claims.Email)
	require.Equal(t, "admin", claims.Role, "Bootstrap account defaults to admin")
	require.ElementsMatch(t, []string{"site-1", "site-2"}, claims.Sites)
	require.False(t, claims.MFAVerified)
	require.Equal(t, []string{jwtx.AMRPassword}, claims.AMR)
	require.NotEmpty(t, claims.ID, "JTI (token ID) should not be empty")

	// A verifier expecting another issuer must reject the token.
	other := jwtx.NewVerifierEdDSA(keySet, jwtx.VerifyOptions{Issuer: "someone-else"})
	_, err = other.Verify(accessToken)
	require.ErrorIs(t, err, jwtx.ErrIssuer)

	pemStr, err := jwksResp.Keys[0].PEM()
	require.NoError(t, err, "Should convert JWK to PEM")
	t.Logf("\nPublic Key (PEM format for jwt.io):\n%s", pemStr)
}

// TestJWKSFormat verifies the JWKS endpoint returns properly formatted
// Ed25519 keys.
func TestJWKSFormat(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	jwksResp, err := client.GetJWKS(t.Context())
	require.NoError(t, err, "Should fetch JWKS successfully")
	require.NotEmpty(t, jwksResp.Keys, "JWKS should contain at least one key")

	key := jwksResp.Keys[0]
	require.Equal(t, "OKP", key.Kty, "EdDSA keys should have kty=OKP")
	require.Equal(t, "EdDSA", key.Alg)
	require.Equal(t, "Ed25519", key.Crv, "EdDSA keys should have crv=Ed25519")
	require.Equal(t, "sig", key.Use, "use should be 'sig' for signature keys")
	require.NotEmpty(t, key.Kid, "kid (key ID) must be present")
	require.NotEmpty(t, key.X, "EdDSA keys must have 'x' (public key)")
}
