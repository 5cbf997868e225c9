package sso

import (
	"bytes"
	"compress/flate"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/russellhaering/goxmldsig/etreeutils"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/secrets"
	"github.com/aussiebroadwan/gatehouse/pkg/idx"
)

// SAML namespaces, bindings and identifiers.
const (
	nsProtocol  = "urn:oasis:names:tc:SAML:2.0:protocol"
	nsAssertion = "urn:oasis:names:tc:SAML:2.0:assertion"
	nsMetadata  = "urn:oasis:names:tc:SAML:2.0:metadata"

	bindingHTTPPost = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST"

	statusSuccess       = "urn:oasis:names:tc:SAML:2.0:status:Success"
	confirmationBearer  = "urn:oasis:names:tc:SAML:2.0:cm:bearer"
	nameIDEmailAddress  = "urn:oasis:names:tc:SAML:1.1:nameid-format:emailAddress"
	samlTimeLayout      = "2006-01-02T15:04:05.000Z"
	maxSAMLResponseSize = 1 << 20
)

const (
	// SAMLRequestTTL is how long an AuthnRequest id is accepted in InResponseTo.
	SAMLRequestTTL = 10 * time.Minute
	// DefaultClockSkew is tolerated on every assertion time bound.
	DefaultClockSkew = 2 * time.Minute
)

func samlRequestKey(id string) string { return "sso:saml:request:" + id }

func samlAssertionKey(tenantID, id string) string {
	return "sso:saml:assertion:" + tenantID + ":" + id
}

// Attribute names tried, in order, when the configuration does not name one.
var (
	emailAttrs = []string{
		"email", "mail", "emailAddress",
		"urn:oid:0.9.2342.19200300.100.1.3",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress",
	}
	firstNameAttrs = []string{
		"firstName", "givenName", "given_name",
		"urn:oid:2.5.4.42",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/givenname",
	}
	lastNameAttrs = []string{
		"lastName", "sn", "surname", "family_name",
		"urn:oid:2.5.4.4",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/surname",
	}
	groupsAttrs = []string{
		"groups", "memberOf",
		"http://schemas.xmlsoap.org/claims/Group",
		"http://schemas.microsoft.com/ws/2008/06/identity/claims/groups",
	}
)

// SAMLProvider is a SAML 2.0 service provider using the HTTP-Redirect binding
// for requests and the HTTP-POST binding for responses.
type SAMLProvider struct {
	Secrets secrets.Store

	// ClockSkew tolerated on NotBefore and NotOnOrAfter. Zero means
	// DefaultClockSkew.
	ClockSkew time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Metadata renders the SP EntityDescriptor for cfg.
func (p *SAMLProvider) Metadata(cfg domain.FederationConfig) ([]byte, error) {
	sc, err := samlConfig(cfg)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	ed := doc.CreateElement("md:EntityDescriptor")
	ed.CreateAttr("xmlns:md", nsMetadata)
	ed.CreateAttr("entityID", sc.SPEntityID)

	sp := ed.CreateElement("md:SPSSODescriptor")
	sp.CreateAttr("AuthnRequestsSigned", fmt.Sprint(sc.SPKeyPEM != ""))
	sp.CreateAttr("WantAssertionsSigned", "true")
	sp.CreateAttr("protocolSupportEnumeration", nsProtocol)

	if sc.SPCertPEM != "" {
		der, err := certDER(sc.SPCertPEM)
		if err != nil {
			return nil, fail(ReasonConfig, err)
		}
		kd := sp.CreateElement("md:KeyDescriptor")
		kd.CreateAttr("use", "signing")
		ki := kd.CreateElement("ds:KeyInfo")
		ki.CreateAttr("xmlns:ds", dsig.Namespace)
		ki.CreateElement("ds:X509Data").
			CreateElement("ds:X509Certificate").
			SetText(base64.StdEncoding.EncodeToString(der))
	}

	sp.CreateElement("md:NameIDFormat").SetText(nameIDFormat(sc))

	acs := sp.CreateElement("md:AssertionConsumerService")
	acs.CreateAttr("Binding", bindingHTTPPost)
	acs.CreateAttr("Location", sc.ACSURL)
	acs.CreateAttr("index", "0")
	acs.CreateAttr("isDefault", "true")

	doc.Indent(2)
	return doc.WriteToBytes()
}

// AuthnRequestURL builds the HTTP-Redirect URL that starts an SP-initiated
// login. The request id is remembered for SAMLRequestTTL so the response can
// be matched to it.
func (p *SAMLProvider) AuthnRequestURL(ctx context.Context, cfg domain.FederationConfig, relayState string) (string, error) {
	sc, err := samlConfig(cfg)
	if err != nil {
		return "", err
	}
	if sc.IdPSSOURL == "" {
		return "", failf(ReasonConfig, "tenant %q has no idp sso url", cfg.TenantID)
	}

	id := idx.XMLID()

	doc := etree.NewDocument()
	req := doc.CreateElement("samlp:AuthnRequest")
	req.CreateAttr("xmlns:samlp", nsProtocol)
	req.CreateAttr("xmlns:saml", nsAssertion)
	req.CreateAttr("ID", id)
	req.CreateAttr("Version", "2.0")
	req.CreateAttr("IssueInstant", p.now().UTC().Format(samlTimeLayout))
	req.CreateAttr("Destination", sc.IdPSSOURL)
	req.CreateAttr("AssertionConsumerServiceURL", sc.ACSURL)
	req.CreateAttr("ProtocolBinding", bindingHTTPPost)
	req.CreateElement("saml:Issuer").SetText(sc.SPEntityID)
	policy := req.CreateElement("samlp:NameIDPolicy")
	policy.CreateAttr("Format", nameIDFormat(sc))
	policy.CreateAttr("AllowCreate", "true")

	raw, err := doc.WriteToBytes()
	if err != nil {
		return "", fmt.Errorf("encode authn request: %w", err)
	}

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("deflate authn request: %w", err)
	}
	if _, err := fw.Write(raw); err != nil {
		return "", fmt.Errorf("deflate authn request: %w", err)
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("deflate authn request: %w", err)
	}

	// The signed string is order sensitive, so the query is assembled by hand.
	query := "SAMLRequest=" + url.QueryEscape(base64.StdEncoding.EncodeToString(buf.Bytes()))
	if relayState != "" {
		query += "&RelayState=" + url.QueryEscape(relayState)
	}
	if sc.SPKeyPEM != "" {
		key, err := rsaKey(sc.SPKeyPEM)
		if err != nil {
			return "", fail(ReasonConfig, err)
		}
		signer, err := dsig.NewSigningContext(key, nil)
		if err != nil {
			return "", fail(ReasonConfig, err)
		}
		query += "&SigAlg=" + url.QueryEscape(signer.GetSignatureMethodIdentifier())
		sig, err := signer.SignString(query)
		if err != nil {
			return "", fmt.Errorf("sign authn request: %w", err)
		}
		query += "&Signature=" + url.QueryEscape(base64.StdEncoding.EncodeToString(sig))
	}

	if err := p.Secrets.Set(ctx, samlRequestKey(id), []byte(cfg.TenantID), SAMLRequestTTL); err != nil {
		return "", fmt.Errorf("store authn request id: %w", err)
	}

	sep := "?"
	if strings.Contains(sc.IdPSSOURL, "?") {
		sep = "&"
	}
	return sc.IdPSSOURL + sep + query, nil
}

// Authenticate validates a base64 encoded SAMLResponse posted to the ACS and
// maps the asserted attributes to a FederatedIdentity.
func (p *SAMLProvider) Authenticate(ctx context.Context, cfg domain.FederationConfig, samlResponse string) (domain.FederatedIdentity, error) {
	sc, err := samlConfig(cfg)
	if err != nil {
		return domain.FederatedIdentity{}, err
	}
	certs, err := idpCertificates(sc.IdPCertPEM)
	if err != nil {
		return domain.FederatedIdentity{}, fail(ReasonConfig, err)
	}

	if len(samlResponse) > maxSAMLResponseSize {
		return domain.FederatedIdentity{}, failf(ReasonProtocol, "response too large")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(samlResponse))
	if err != nil {
		return domain.FederatedIdentity{}, failf(ReasonProtocol, "decode response: %v", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return domain.FederatedIdentity{}, failf(ReasonProtocol, "parse response: %v", err)
	}
	for _, tok := range doc.Child {
		if _, ok := tok.(*etree.Directive); ok {
			return domain.FederatedIdentity{}, failf(ReasonProtocol, "document type declarations are not allowed")
		}
	}

	resp := doc.Root()
	if resp == nil || resp.Tag != "Response" || resp.NamespaceURI() != nsProtocol {
		return domain.FederatedIdentity{}, failf(ReasonProtocol, "not a samlp:Response")
	}

	if code := statusCode(resp); code != statusSuccess {
		return domain.FederatedIdentity{}, failf(ReasonProtocol, "idp returned status %q", code)
	}
	if dest := resp.SelectAttrValue("Destination", ""); dest != "" && dest != sc.ACSURL {
		return domain.FederatedIdentity{}, failf(ReasonProtocol, "unexpected destination %q", dest)
	}
	if len(children(resp, nsAssertion, "EncryptedAssertion")) > 0 {
		return domain.FederatedIdentity{}, failf(ReasonProtocol, "encrypted assertions are not supported")
	}
	if n := len(children(resp, nsAssertion, "Assertion")); n != 1 {
		return domain.FederatedIdentity{}, failf(ReasonProtocol, "expected one assertion, got %d", n)
	}

	now := p.now()
	assertion, err := verifiedAssertion(resp, certs, now)
	if err != nil {
		return domain.FederatedIdentity{}, err
	}

	if iss := child(resp, nsAssertion, "Issuer"); iss != nil && sc.IdPEntityID != "" && strings.TrimSpace(iss.Text()) != sc.IdPEntityID {
		return domain.FederatedIdentity{}, failf(ReasonIssuer, "response issuer %q", strings.TrimSpace(iss.Text()))
	}
	iss := child(assertion, nsAssertion, "Issuer")
	if iss == nil {
		return domain.FederatedIdentity{}, failf(ReasonIssuer, "assertion has no issuer")
	}
	if sc.IdPEntityID != "" && strings.TrimSpace(iss.Text()) != sc.IdPEntityID {
		return domain.FederatedIdentity{}, failf(ReasonIssuer, "assertion issuer %q", strings.TrimSpace(iss.Text()))
	}

	if err := p.checkConditions(assertion, sc, now); err != nil {
		return domain.FederatedIdentity{}, err
	}

	subject := child(assertion, nsAssertion, "Subject")
	if subject == nil {
		return domain.FederatedIdentity{}, failf(ReasonIdentity, "assertion has no subject")
	}
	inResponseTo, err := p.checkSubjectConfirmation(subject, sc, now)
	if err != nil {
		return domain.FederatedIdentity{}, err
	}
	if rt := resp.SelectAttrValue("InResponseTo", ""); rt != "" {
		if inResponseTo != "" && inResponseTo != rt {
			return domain.FederatedIdentity{}, failf(ReasonProtocol, "InResponseTo mismatch")
		}
		inResponseTo = rt
	}
	if inResponseTo != "" {
		if err := p.claimRequest(ctx, cfg.TenantID, inResponseTo); err != nil {
			return domain.FederatedIdentity{}, err
		}
	}

	var nameID string
	if el := child(subject, nsAssertion, "NameID"); el != nil {
		nameID = strings.TrimSpace(el.Text())
	}
	if nameID == "" {
		return domain.FederatedIdentity{}, failf(ReasonIdentity, "assertion has no NameID")
	}

	attrs := attributes(assertion)
	fid := domain.FederatedIdentity{
		TenantID:  cfg.TenantID,
		Provider:  domain.ProtocolSAML,
		Subject:   nameID,
		Email:     firstValue(attrs, sc.EmailAttr, emailAttrs),
		FirstName: firstValue(attrs, sc.FirstNameAttr, firstNameAttrs),
		LastName:  firstValue(attrs, sc.LastNameAttr, lastNameAttrs),
		Groups:    allValues(attrs, sc.GroupsAttr, groupsAttrs),
	}
	if fid.Email == "" && strings.Contains(nameID, "@") {
		fid.Email = nameID
	}
	if fid.Email == "" {
		return domain.FederatedIdentity{}, failf(ReasonIdentity, "no email asserted")
	}

	if err := p.claimAssertion(ctx, cfg.TenantID, assertion, now); err != nil {
		return domain.FederatedIdentity{}, err
	}
	return fid, nil
}

// verifiedAssertion returns the assertion as covered by a valid signature,
// either its own or the enclosing response's. Data is only ever read from the
// element returned by the validator.
func verifiedAssertion(resp *etree.Element, certs []*x509.Certificate, now time.Time) (*etree.Element, error) {
	vctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{Roots: certs})
	vctx.Clock = dsig.NewFakeClockAt(now)

	signedResponse := false
	if child(resp, dsig.Namespace, dsig.SignatureTag) != nil {
		validated, err := vctx.Validate(resp)
		if err != nil {
			return nil, fail(ReasonSignature, err)
		}
		resp = validated
		signedResponse = true
	}

	assertionEl := child(resp, nsAssertion, "Assertion")
	if assertionEl == nil {
		return nil, failf(ReasonProtocol, "signed content has no assertion")
	}

	if child(assertionEl, dsig.Namespace, dsig.SignatureTag) == nil {
		if !signedResponse {
			return nil, fail(ReasonSignature, dsig.ErrMissingSignature)
		}
		return assertionEl, nil
	}

	// Carry the namespace declarations of the enclosing response onto a
	// detached copy before validating the assertion on its own.
	nsctx, err := etreeutils.NSBuildParentContext(assertionEl)
	if err != nil {
		return nil, fail(ReasonProtocol, err)
	}
	detached, err := etreeutils.NSDetatch(nsctx, assertionEl)
	if err != nil {
		return nil, fail(ReasonProtocol, err)
	}
	validated, err := vctx.Validate(detached)
	if err != nil {
		return nil, fail(ReasonSignature, err)
	}
	return validated, nil
}

func (p *SAMLProvider) checkConditions(assertion *etree.Element, sc *domain.SAMLConfig, now time.Time) error {
	cond := child(assertion, nsAssertion, "Conditions")
	if cond == nil {
		return failf(ReasonAudience, "assertion has no conditions")
	}
	skew := p.skew()

	if v := cond.SelectAttrValue("NotBefore", ""); v != "" {
		t, err := parseSAMLTime(v)
		if err != nil {
			return fail(ReasonProtocol, err)
		}
		if now.Add(skew).Before(t) {
			return failf(ReasonExpiry, "assertion not valid before %s", v)
		}
	}
	if v := cond.SelectAttrValue("NotOnOrAfter", ""); v != "" {
		t, err := parseSAMLTime(v)
		if err != nil {
			return fail(ReasonProtocol, err)
		}
		if !now.Add(-skew).Before(t) {
			return failf(ReasonExpiry, "assertion expired at %s", v)
		}
	}

	restrictions := children(cond, nsAssertion, "AudienceRestriction")
	if len(restrictions) == 0 {
		return failf(ReasonAudience, "assertion has no audience restriction")
	}
	// Every restriction must name us.
	for _, r := range restrictions {
		found := false
		for _, a := range children(r, nsAssertion, "Audience") {
			if strings.TrimSpace(a.Text()) == sc.SPEntityID {
				found = true
				break
			}
		}
		if !found {
			return failf(ReasonAudience, "assertion not intended for %q", sc.SPEntityID)
		}
	}
	return nil
}

// checkSubjectConfirmation requires a bearer confirmation for our ACS that has
// not expired. It returns the InResponseTo it carries, if any.
func (p *SAMLProvider) checkSubjectConfirmation(subject *etree.Element, sc *domain.SAMLConfig, now time.Time) (string, error) {
	skew := p.skew()
	var lastErr error = failf(ReasonProtocol, "no bearer subject confirmation")

	for _, conf := range children(subject, nsAssertion, "SubjectConfirmation") {
		if conf.SelectAttrValue("Method", "") != confirmationBearer {
			continue
		}
		data := child(conf, nsAssertion, "SubjectConfirmationData")
		if data == nil {
			lastErr = failf(ReasonProtocol, "bearer confirmation has no data")
			continue
		}
		if r := data.SelectAttrValue("Recipient", ""); r != "" && r != sc.ACSURL {
			lastErr = failf(ReasonAudience, "bearer confirmation for recipient %q", r)
			continue
		}
		v := data.SelectAttrValue("NotOnOrAfter", "")
		if v == "" {
			lastErr = failf(ReasonProtocol, "bearer confirmation has no NotOnOrAfter")
			continue
		}
		t, err := parseSAMLTime(v)
		if err != nil {
			lastErr = fail(ReasonProtocol, err)
			continue
		}
		if !now.Add(-skew).Before(t) {
			lastErr = failf(ReasonExpiry, "bearer confirmation expired at %s", v)
			continue
		}
		return data.SelectAttrValue("InResponseTo", ""), nil
	}
	return "", lastErr
}

// claimAssertion records the assertion ID until the assertion could no
// longer be accepted anyway. Solicited or not, each assertion logs in once.
func (p *SAMLProvider) claimAssertion(ctx context.Context, tenantID string, assertion *etree.Element, now time.Time) error {
	id := assertion.SelectAttrValue("ID", "")
	if id == "" {
		return failf(ReasonProtocol, "assertion has no ID")
	}

	ttl := assertionExpiry(assertion, now).Add(p.skew()).Sub(now)
	if ttl <= 0 {
		ttl = p.skew()
	}

	fresh, err := p.Secrets.SetNX(ctx, samlAssertionKey(tenantID, id), []byte("1"), ttl)
	if err != nil {
		return fmt.Errorf("record assertion id: %w", err)
	}
	if !fresh {
		return failf(ReasonProtocol, "assertion %q was already used", id)
	}
	return nil
}

// assertionExpiry is the latest NotOnOrAfter found on the conditions or a
// subject confirmation. Without one the AuthnRequest lifetime applies.
func assertionExpiry(assertion *etree.Element, now time.Time) time.Time {
	var latest time.Time
	consider := func(el *etree.Element) {
		if el == nil {
			return
		}
		if t, err := parseSAMLTime(el.SelectAttrValue("NotOnOrAfter", "")); err == nil && t.After(latest) {
			latest = t
		}
	}

	consider(child(assertion, nsAssertion, "Conditions"))
	if subject := child(assertion, nsAssertion, "Subject"); subject != nil {
		for _, conf := range children(subject, nsAssertion, "SubjectConfirmation") {
			consider(child(conf, nsAssertion, "SubjectConfirmationData"))
		}
	}

	if latest.IsZero() {
		return now.Add(SAMLRequestTTL)
	}
	return latest
}

// claimRequest consumes a remembered AuthnRequest id. Each id answers once.
func (p *SAMLProvider) claimRequest(ctx context.Context, tenantID, id string) error {
	tenant, err := p.Secrets.Take(ctx, samlRequestKey(id))
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return failf(ReasonProtocol, "unknown or replayed InResponseTo %q", id)
		}
		return fmt.Errorf("load authn request: %w", err)
	}
	if string(tenant) != tenantID {
		return failf(ReasonProtocol, "request %q was issued for another tenant", id)
	}
	return nil
}

func (p *SAMLProvider) skew() time.Duration {
	if p.ClockSkew > 0 {
		return p.ClockSkew
	}
	return DefaultClockSkew
}

func (p *SAMLProvider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func samlConfig(cfg domain.FederationConfig) (*domain.SAMLConfig, error) {
	if cfg.Protocol != domain.ProtocolSAML || cfg.SAML == nil {
		return nil, failf(ReasonConfig, "tenant %q has no saml configuration", cfg.TenantID)
	}
	if cfg.SAML.SPEntityID == "" || cfg.SAML.ACSURL == "" {
		return nil, failf(ReasonConfig, "tenant %q saml configuration incomplete", cfg.TenantID)
	}
	return cfg.SAML, nil
}

func nameIDFormat(sc *domain.SAMLConfig) string {
	if sc.NameIDFormat != "" {
		return sc.NameIDFormat
	}
	return nameIDEmailAddress
}

func statusCode(resp *etree.Element) string {
	status := child(resp, nsProtocol, "Status")
	if status == nil {
		return ""
	}
	code := child(status, nsProtocol, "StatusCode")
	if code == nil {
		return ""
	}
	return code.SelectAttrValue("Value", "")
}

// attributes collects AttributeStatement values by attribute Name.
func attributes(assertion *etree.Element) map[string][]string {
	out := make(map[string][]string)
	for _, st := range children(assertion, nsAssertion, "AttributeStatement") {
		for _, attr := range children(st, nsAssertion, "Attribute") {
			name := attr.SelectAttrValue("Name", "")
			if name == "" {
				continue
			}
			for _, v := range children(attr, nsAssertion, "AttributeValue") {
				if s := strings.TrimSpace(v.Text()); s != "" {
					out[name] = append(out[name], s)
				}
			}
		}
	}
	return out
}

func firstValue(attrs map[string][]string, configured string, defaults []string) string {
	if vs := allValues(attrs, configured, defaults); len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func allValues(attrs map[string][]string, configured string, defaults []string) []string {
	if configured != "" {
		return attrs[configured]
	}
	for _, name := range defaults {
		if vs := attrs[name]; len(vs) > 0 {
			return vs
		}
	}
	return nil
}

// child returns the first direct child of el with the given namespace and
// local name.
func child(el *etree.Element, ns, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag && c.NamespaceURI() == ns {
			return c
		}
	}
	return nil
}

func children(el *etree.Element, ns, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == tag && c.NamespaceURI() == ns {
			out = append(out, c)
		}
	}
	return out
}

func parseSAMLTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid saml time %q: %w", v, err)
	}
	return t, nil
}

func idpCertificates(pemData string) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := []byte(strings.TrimSpace(pemData))
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse idp certificate: %w", err)
		}
		certs = append(certs, c)
	}
	if len(certs) == 0 {
		return nil, errors.New("no idp certificate configured")
	}
	return certs, nil
}

func certDER(pemData string) ([]byte, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("sp certificate is not a PEM certificate")
	}
	return block.Bytes, nil
}

func rsaKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("sp key is not PEM encoded")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("sp key is not an RSA key")
		}
		return rk, nil
	default:
		return nil, fmt.Errorf("unsupported sp key type %q", block.Type)
	}
}
