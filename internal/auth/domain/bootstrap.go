package domain

// BootstrapAccount seeds the first account into an empty identity store.
type BootstrapAccount struct {
	TenantID  string   `mapstructure:"tenant"`
	Email     string   `mapstructure:"email"`
	Password  string   `mapstructure:"password"`
	Role      string   `mapstructure:"role"`
	FirstName string   `mapstructure:"first_name"`
	LastName  string   `mapstructure:"last_name"`
	SiteScope []string `mapstructure:"sites"`
}
