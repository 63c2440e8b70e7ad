package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Ledger backends
const (
	BackendEngine   = "engine"
	BackendContract = "contract"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration. An empty host selects the in-memory store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// NATSConfig holds NATS JetStream configuration. An empty URL disables the event stream.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	ConsumerName   string        `mapstructure:"consumer_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
	AckWait        time.Duration `mapstructure:"ack_wait"`
	MaxDeliver     int           `mapstructure:"max_deliver"`
	MaxAge         time.Duration `mapstructure:"max_age"`
}

// EthereumConfig holds the escrow contract connection
type EthereumConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"` // ws:// or wss:// for log subscriptions
	ContractAddress string        `mapstructure:"contract_address"`
	PrivateKey      string        `mapstructure:"private_key"` // hex; empty means read-only
	StartBlock      uint64        `mapstructure:"start_block"`
	ConfirmTimeout  time.Duration `mapstructure:"confirm_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int      `mapstructure:"idle_timeout"`  // in seconds
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"` // "<key>=<address>"
}

// ReconcilerConfig holds projection refresh configuration
type ReconcilerConfig struct {
	EventTypes  []string      `mapstructure:"event_types"` // empty means every type
	ScanTimeout time.Duration `mapstructure:"scan_timeout"`
}

// VerifyConfig holds verification pool configuration
type VerifyConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// EmitterConfig holds cursor persistence configuration
type EmitterConfig struct {
	CursorSaveFreq  uint64        `mapstructure:"cursor_save_freq"`
	CursorSaveDelay time.Duration `mapstructure:"cursor_save_delay"`
}

// LedgerAPIConfig holds configuration for ledger-api
type LedgerAPIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Backend    string           `mapstructure:"backend"`
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Ethereum   EthereumConfig   `mapstructure:"ethereum"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Verify     VerifyConfig     `mapstructure:"verify"`
}

// ContractEmitterConfig holds configuration for contract-event-emitter
type ContractEmitterConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Ethereum   EthereumConfig `mapstructure:"ethereum"`
	Emitter    EmitterConfig  `mapstructure:"emitter"`
}

// CLIConfig holds configuration for escrowctl
type CLIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Backend    string           `mapstructure:"backend"`
	Caller     string           `mapstructure:"caller"` // acting address for the engine backend
	Database   DatabaseConfig   `mapstructure:"database"`
	Ethereum   EthereumConfig   `mapstructure:"ethereum"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Verify     VerifyConfig     `mapstructure:"verify"`
}

// LoadLedgerAPIConfig loads configuration for ledger-api
func LoadLedgerAPIConfig(configFile string, envPath string) (*LedgerAPIConfig, error) {
	v := configureViper("ledger-api", configFile, envPath)

	setDatabaseDefaults(v)
	setEthereumDefaults(v)
	v.SetDefault("debug", false)
	v.SetDefault("backend", BackendEngine)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "LEDGER_EVENTS")
	v.SetDefault("nats.consumer_name", "ledger-api")
	v.SetDefault("nats.ack_wait", "30s")
	v.SetDefault("nats.max_deliver", 3)
	v.SetDefault("reconciler.scan_timeout", "30s")
	v.SetDefault("verify.concurrency", 8)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config LedgerAPIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateBackend(config.Backend, config.Ethereum); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadContractEmitterConfig loads configuration for contract-event-emitter
func LoadContractEmitterConfig(configFile string, envPath string) (*ContractEmitterConfig, error) {
	v := configureViper("contract-event-emitter", configFile, envPath)

	setDatabaseDefaults(v)
	setEthereumDefaults(v)
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "LEDGER_EVENTS")
	v.SetDefault("emitter.cursor_save_freq", 100)
	v.SetDefault("emitter.cursor_save_delay", "30s")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config ContractEmitterConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if config.Ethereum.RPCURL == "" {
		return nil, errors.New("ethereum.rpc_url is required")
	}
	if config.Ethereum.ContractAddress == "" {
		return nil, errors.New("ethereum.contract_address is required")
	}
	if config.NATS.URL == "" {
		return nil, errors.New("nats.url is required")
	}

	return &config, nil
}

// LoadCLIConfig loads configuration for escrowctl
func LoadCLIConfig(configFile string, envPath string) (*CLIConfig, error) {
	v := configureViper("escrowctl", configFile, envPath)

	setDatabaseDefaults(v)
	setEthereumDefaults(v)
	v.SetDefault("backend", BackendContract)
	v.SetDefault("reconciler.scan_timeout", "30s")
	v.SetDefault("verify.concurrency", 8)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config CLIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateBackend(config.Backend, config.Ethereum); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
}

func setEthereumDefaults(v *viper.Viper) {
	v.SetDefault("ethereum.confirm_timeout", "2m")
	v.SetDefault("ethereum.poll_interval", "2s")
}

func validateBackend(backend string, eth EthereumConfig) error {
	switch backend {
	case BackendEngine:
		return nil
	case BackendContract:
		if eth.RPCURL == "" {
			return errors.New("ethereum.rpc_url is required for the contract backend")
		}
		if eth.ContractAddress == "" {
			return errors.New("ethereum.contract_address is required for the contract backend")
		}
		return nil
	}
	return fmt.Errorf("unknown backend %q: use %s or %s", backend, BackendEngine, BackendContract)
}

// readConfig reads the config file; a missing file falls back to environment variables
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("ESCROW_LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"backend",
		"caller",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.consumer_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.ack_wait",
		"nats.max_deliver",
		"nats.max_age",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.contract_address",
		"ethereum.private_key",
		"ethereum.start_block",
		"ethereum.confirm_timeout",
		"ethereum.poll_interval",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.cors_origins",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Reconciler and verification
		"reconciler.event_types",
		"reconciler.scan_timeout",
		"verify.concurrency",
		// Emitter
		"emitter.cursor_save_freq",
		"emitter.cursor_save_delay",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // later files override earlier ones
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Enabled reports whether a Postgres database is configured
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}
