package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Escrow       EscrowConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.FeatureFlags.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"MKULIMA_APP_ENV" required:"true"`
	Port         string   `envconfig:"MKULIMA_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"MKULIMA_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"MKULIMA_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"MKULIMA_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"MKULIMA_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MKULIMA_DB_DSN"`
	Driver string `envconfig:"MKULIMA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MKULIMA_DB_HOST"`
	Port     int    `envconfig:"MKULIMA_DB_PORT" default:"5432"`
	User     string `envconfig:"MKULIMA_DB_USER"`
	Password string `envconfig:"MKULIMA_DB_PASSWORD"`
	Name     string `envconfig:"MKULIMA_DB_NAME"`
	SSLMode  string `envconfig:"MKULIMA_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"MKULIMA_SQLITE_PATH" default:"mkulima.db"`

	MaxOpenConns    int           `envconfig:"MKULIMA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MKULIMA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MKULIMA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MKULIMA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MKULIMA_REDIS_URL"`
	Address      string        `envconfig:"MKULIMA_REDIS_ADDR"`
	Password     string        `envconfig:"MKULIMA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MKULIMA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MKULIMA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MKULIMA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MKULIMA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MKULIMA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MKULIMA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"MKULIMA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MKULIMA_JWT_ISSUER" default:"mkulima-express"`
	ExpirationMinutes int    `envconfig:"MKULIMA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MKULIMA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MKULIMA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MKULIMA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MKULIMA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MKULIMA_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite       bool   `envconfig:"MKULIMA_USE_SQLITE" default:"false"`
	AutoMigrate     bool   `envconfig:"MKULIMA_AUTO_MIGRATE" default:"false"`
	RealtimeBackend string `envconfig:"MKULIMA_REALTIME_BACKEND" default:"local"`
}

func (f FeatureFlagsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(f.RealtimeBackend)) {
	case RealtimeBackendLocal, RealtimeBackendRedis:
		return nil
	default:
		return fmt.Errorf("%s must be one of %q or %q", EnvRealtimeBackend, RealtimeBackendLocal, RealtimeBackendRedis)
	}
}

// UsesRedisRealtime reports whether message inserts fan out over redis pub/sub.
func (f FeatureFlagsConfig) UsesRedisRealtime() bool {
	return strings.EqualFold(strings.TrimSpace(f.RealtimeBackend), RealtimeBackendRedis)
}

type EscrowConfig struct {
	LockTTL         time.Duration `envconfig:"MKULIMA_ESCROW_LOCK_TTL" default:"30s"`
	RealtimeChannel string        `envconfig:"MKULIMA_REALTIME_CHANNEL" default:"messages.inserted"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"MKULIMA_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"MKULIMA_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	EscrowTopic        string `envconfig:"MKULIMA_PUBSUB_ESCROW_TOPIC" default:"mk-escrow-events"`
	EscrowSubscription string `envconfig:"MKULIMA_PUBSUB_ESCROW_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MKULIMA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MKULIMA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MKULIMA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval returns the configured poll interval as a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 0
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		if strings.TrimSpace(db.SQLitePath) == "" {
			return fmt.Errorf("%s is required when %s is set", EnvSQLitePath, EnvUseSQLite)
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
