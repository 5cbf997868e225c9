/*
Package authsdk provides a client SDK for the Gatehouse authentication service.

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: unauthenticated operations and login flows that create Sessions
  - Session: authenticated operations with automatic token refresh

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.Login(ctx, "ada@example.com", password)
	var mfa *authsdk.MFARequiredError
	if errors.As(err, &mfa) {
		session, err = client.VerifyMFA(ctx, mfa, totpCode)
	}

	profile, err := session.Me(ctx)

# Token Rotation

Refresh tokens are single use. Every refresh returns a new refresh token and
the old one is rejected with TOKEN_REVOKED from then on. A Session keeps the
latest pair and refreshes the access token shortly before it expires, so one
Session must be shared rather than copied between goroutines.

# Federated Login

SAML and OIDC logins are browser redirects and end at the service's callback
endpoints. Their token responses can be wrapped with
SDKClient.NewSessionFromTokens.

# Errors

Failed calls return *APIError with the stable code from the server:

	if authsdk.IsCode(err, authsdk.ErrorCodeInvalidCredentials) { ... }

The same type is used by the server to write its error responses.
*/
package authsdk
