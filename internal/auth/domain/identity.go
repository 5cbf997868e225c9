package domain

// Authentication methods recorded on an Identity.
const (
	MethodPassword = "password"
	MethodSAML     = "saml"
	MethodOIDC     = "oidc"
)

// Identity is what a successful first factor yields. The user id is the
// reference later steps use to re-read anything they need.
type Identity struct {
	UserID     string
	TenantID   string
	Email      string
	Role       string
	SiteScope  []string
	FirstName  string
	LastName   string
	MFAEnabled bool
	Method     string
}

// FederatedIdentity is the normalized identity asserted by an external IdP.
type FederatedIdentity struct {
	TenantID  string
	Provider  string // saml | oidc
	Subject   string
	Email     string
	FirstName string
	LastName  string
	Groups    []string
}
