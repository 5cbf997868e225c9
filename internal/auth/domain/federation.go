package domain

// Federation protocols.
const (
	ProtocolSAML = "saml"
	ProtocolOIDC = "oidc"
)

// FederationConfig holds one tenant's IdP settings for one protocol. It is
// loaded per request and not mutated afterwards.
type FederationConfig struct {
	TenantID string      `json:"tenantId" mapstructure:"tenant"`
	Protocol string      `json:"protocol" mapstructure:"protocol"`
	SAML     *SAMLConfig `json:"saml,omitempty" mapstructure:"saml"`
	OIDC     *OIDCConfig `json:"oidc,omitempty" mapstructure:"oidc"`
}

// SAMLConfig describes a SAML 2.0 IdP and our SP registration with it.
type SAMLConfig struct {
	IdPEntityID  string `json:"idpEntityId" mapstructure:"idp_entity_id"`
	IdPSSOURL    string `json:"idpSsoUrl" mapstructure:"idp_sso_url"`
	IdPCertPEM   string `json:"idpCertificate" mapstructure:"idp_certificate"`
	SPEntityID   string `json:"spEntityId" mapstructure:"sp_entity_id"`
	ACSURL       string `json:"acsUrl" mapstructure:"acs_url"`
	SPKeyPEM     string `json:"spKey,omitempty" mapstructure:"sp_key"`
	SPCertPEM    string `json:"spCertificate,omitempty" mapstructure:"sp_certificate"`
	NameIDFormat string `json:"nameIdFormat,omitempty" mapstructure:"name_id_format"`

	// Attribute names; empty values fall back to common defaults.
	EmailAttr     string `json:"emailAttribute,omitempty" mapstructure:"email_attribute"`
	FirstNameAttr string `json:"firstNameAttribute,omitempty" mapstructure:"first_name_attribute"`
	LastNameAttr  string `json:"lastNameAttribute,omitempty" mapstructure:"last_name_attribute"`
	GroupsAttr    string `json:"groupsAttribute,omitempty" mapstructure:"groups_attribute"`
}

// OIDCConfig describes an OpenID Connect provider registration.
type OIDCConfig struct {
	IssuerURL    string   `json:"issuerUrl" mapstructure:"issuer_url"`
	ClientID     string   `json:"clientId" mapstructure:"client_id"`
	ClientSecret string   `json:"clientSecret" mapstructure:"client_secret"`
	RedirectURL  string   `json:"redirectUrl" mapstructure:"redirect_url"`
	Scopes       []string `json:"scopes,omitempty" mapstructure:"scopes"`
	GroupsClaim  string   `json:"groupsClaim,omitempty" mapstructure:"groups_claim"`
}
