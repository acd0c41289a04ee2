package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Store    StoreConfig    `mapstructure:"store"    validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Google   GoogleConfig   `mapstructure:"google"`
	Limits   LimitsConfig   `mapstructure:"limits"   validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                  int    `mapstructure:"port"                    validate:"required,gt=0,lt=65536"`
	LogLevel              string `mapstructure:"log_level"               validate:"required,oneof=debug info warn error"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// URL is only required when the postgres store driver is selected.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required_if=Driver postgres"`
	Driver       string `mapstructure:"driver"         validate:"required,oneof=postgres memory"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// StoreConfig bounds every store round trip.
type StoreConfig struct {
	OperationTimeoutMillis int `mapstructure:"operation_timeout_millis" validate:"gt=0"`
	MaxTxRetries           int `mapstructure:"max_tx_retries"           validate:"gte=0,lte=10"`
	// ReconcileTimeoutMillis bounds one follower-count reconciliation pass.
	ReconcileTimeoutMillis int `mapstructure:"reconcile_timeout_millis" validate:"gt=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost           int    `mapstructure:"bcrypt_cost"            validate:"gte=4,lte=31"`
}

// GoogleConfig configures the OAuth client used for federated login.
// Leaving ClientID empty disables the Google callback route.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret" validate:"required_with=ClientID"`
	RedirectURL  string `mapstructure:"redirect_url"  validate:"omitempty,url"`
	IssuerURL    string `mapstructure:"issuer_url"    validate:"required,url"`
}

// LimitsConfig controls the per-client rate limit on authentication routes.
type LimitsConfig struct {
	AuthRequestsPerMinute int `mapstructure:"auth_requests_per_minute" validate:"gt=0"`
	AuthBurst             int `mapstructure:"auth_burst"               validate:"gt=0"`
}

// Enabled reports whether federated login is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != ""
}
