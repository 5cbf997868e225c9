package app

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
)

type Config struct {
	Issuer    string   // Issuer claim for tokens (default: gatehouse)
	Audience  []string // Audience claim, comma separated in AUTH_AUDIENCE (default: gatehouse)
	PublicURL string   // Optional: external base URL, used to derive SSO endpoints

	DatabaseFile   string // Path to SQLite database file (default: ./auth.db)
	RedisURL       string // Required: redis:// URL of the secret store
	RedisPrefix    string // Key prefix in the secret store (default: gatehouse)
	PepperFile     string // Path to file containing pepper for password hashing (default: ./pepper)
	MasterKeyPath  string // Path to key material sealing TOTP secrets at rest (default: ./master.key)
	SigningKeyFile string // Optional: PEM Ed25519 key shared by all instances
	NumKeys        int    // Ephemeral signing keys when SigningKeyFile is empty (default: 1, max: 10)

	AccessTTL       time.Duration // Access token lifetime (default: 15m)
	RefreshTTL      time.Duration // Refresh token lifetime (default: 7d)
	MFAIssuer       string        // Issuer label in authenticator apps (default: Gatehouse)
	MFAMaxAttempts  int           // Failed codes per challenge (default: 5)
	MFAEnrollTTL    time.Duration // Pending enrollment lifetime (default and cap: 10m)
	MFAChallengeTTL time.Duration // Login challenge lifetime (default and cap: 5m)
	SSOTimeout      time.Duration // Outbound IdP call timeout (default: 10s)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	// From the AUTH_CONFIG_FILE document only.
	Bootstrap  *domain.BootstrapAccount
	Federation []domain.FederationConfig
}

// fileConfig is the structured part of AUTH_CONFIG_FILE.
type fileConfig struct {
	Bootstrap  *domain.BootstrapAccount  `mapstructure:"bootstrap"`
	Federation []domain.FederationConfig `mapstructure:"federation"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("AUTH_ISSUER", "gatehouse")
	v.SetDefault("AUTH_AUDIENCE", "gatehouse")
	v.SetDefault("AUTH_PUBLIC_URL", "")
	v.SetDefault("AUTH_DATABASE_FILE", "auth.db")
	v.SetDefault("AUTH_REDIS_URL", "")
	v.SetDefault("AUTH_REDIS_PREFIX", "gatehouse")
	v.SetDefault("AUTH_PEPPER_FILE", "pepper")
	v.SetDefault("AUTH_MASTER_KEY_PATH", "master.key")
	v.SetDefault("AUTH_SIGNING_KEY_FILE", "")
	v.SetDefault("AUTH_NUM_KEYS", 1)
	v.SetDefault("AUTH_ACCESS_TTL", "15m")
	v.SetDefault("AUTH_REFRESH_TTL", "168h")
	v.SetDefault("AUTH_MFA_ISSUER", "Gatehouse")
	v.SetDefault("AUTH_MFA_MAX_ATTEMPTS", service.DefaultMaxMFAAttempts)
	v.SetDefault("AUTH_MFA_ENROLL_TTL", service.MaxEnrollmentTTL.String())
	v.SetDefault("AUTH_MFA_CHALLENGE_TTL", service.MaxChallengeTTL.String())
	v.SetDefault("SSO_TIMEOUT", "10s")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("PORT", 8080)
	v.SetDefault("SHUTDOWN_GRACE_PERIOD", "10s")
	v.SetDefault("HOUSEKEEPING_INTERVAL", "1h")
}

// LoadConfig reads the environment and, when AUTH_CONFIG_FILE is set, the
// YAML document it points at. Flat settings may appear in either; the
// environment wins.
func LoadConfig() (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	var file fileConfig
	if path := v.GetString("AUTH_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := v.Unmarshal(&file); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	cfg := Config{
		Issuer:         v.GetString("AUTH_ISSUER"),
		Audience:       splitList(v.GetString("AUTH_AUDIENCE")),
		PublicURL:      strings.TrimSuffix(v.GetString("AUTH_PUBLIC_URL"), "/"),
		DatabaseFile:   v.GetString("AUTH_DATABASE_FILE"),
		RedisURL:       v.GetString("AUTH_REDIS_URL"),
		RedisPrefix:    v.GetString("AUTH_REDIS_PREFIX"),
		PepperFile:     v.GetString("AUTH_PEPPER_FILE"),
		MasterKeyPath:  v.GetString("AUTH_MASTER_KEY_PATH"),
		SigningKeyFile: v.GetString("AUTH_SIGNING_KEY_FILE"),
		NumKeys:        v.GetInt("AUTH_NUM_KEYS"),

		AccessTTL:       duration(v, "AUTH_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:      duration(v, "AUTH_REFRESH_TTL", 7*24*time.Hour),
		MFAIssuer:       v.GetString("AUTH_MFA_ISSUER"),
		MFAMaxAttempts:  v.GetInt("AUTH_MFA_MAX_ATTEMPTS"),
		MFAEnrollTTL:    min(duration(v, "AUTH_MFA_ENROLL_TTL", service.MaxEnrollmentTTL), service.MaxEnrollmentTTL),
		MFAChallengeTTL: min(duration(v, "AUTH_MFA_CHALLENGE_TTL", service.MaxChallengeTTL), service.MaxChallengeTTL),
		SSOTimeout:      duration(v, "SSO_TIMEOUT", 10*time.Second),

		Env:                  v.GetString("ENV"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		Port:                 v.GetInt("PORT"),
		ShutdownGracePeriod:  duration(v, "SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: duration(v, "HOUSEKEEPING_INTERVAL", time.Hour),

		Bootstrap:  file.Bootstrap,
		Federation: file.Federation,
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.applyFederationDefaults()
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Issuer == "" {
		errs = append(errs, errors.New("config: AUTH_ISSUER must be set"))
	}
	if len(c.Audience) == 0 {
		errs = append(errs, errors.New("config: AUTH_AUDIENCE must be set"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("config: AUTH_REDIS_URL must be set"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("config: token lifetimes must be positive"))
	}
	if c.AccessTTL >= c.RefreshTTL {
		errs = append(errs, errors.New("config: AUTH_ACCESS_TTL must be shorter than AUTH_REFRESH_TTL"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: invalid PORT %d", c.Port))
	}
	if c.PublicURL != "" {
		if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: AUTH_PUBLIC_URL %q is not an absolute URL", c.PublicURL))
		}
	}
	for i, f := range c.Federation {
		if f.TenantID == "" {
			errs = append(errs, fmt.Errorf("config: federation[%d] has no tenant", i))
		}
		if f.Protocol != domain.ProtocolSAML && f.Protocol != domain.ProtocolOIDC {
			errs = append(errs, fmt.Errorf("config: federation[%d] has unknown protocol %q", i, f.Protocol))
		}
	}
	return errors.Join(errs...)
}

// applyFederationDefaults fills SP endpoints that can be derived from
// AUTH_PUBLIC_URL.
func (c *Config) applyFederationDefaults() {
	if c.PublicURL == "" {
		return
	}
	for i := range c.Federation {
		f := &c.Federation[i]
		base := c.PublicURL + "/v1/auth/sso/" + f.Protocol + "/" + url.PathEscape(f.TenantID)

		switch {
		case f.Protocol == domain.ProtocolSAML && f.SAML != nil:
			if f.SAML.ACSURL == "" {
				f.SAML.ACSURL = base + "/acs"
			}
			if f.SAML.SPEntityID == "" {
				f.SAML.SPEntityID = c.PublicURL + "/v1/auth/sso/saml/metadata?tenant=" + url.QueryEscape(f.TenantID)
			}
		case f.Protocol == domain.ProtocolOIDC && f.OIDC != nil:
			if f.OIDC.RedirectURL == "" {
				f.OIDC.RedirectURL = base + "/callback"
			}
		}
	}
}

// duration accepts Go durations ("90s", "1h") and, for compatibility, bare
// integers as minutes. Unparsable values fall back to def.
func duration(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if minutes, err := strconv.Atoi(raw); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
