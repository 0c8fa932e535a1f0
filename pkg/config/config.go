package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Uploads       UploadsConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Razorpay      RazorpayConfig
	Fees          FeesConfig
	OTP           OTPConfig
	Notifications NotificationsConfig
	Cron          CronConfig
}

// Load reads the CAMPUSPRINT_* environment. A bare host/user/name triple is
// accepted in place of CAMPUSPRINT_DB_DSN.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	for _, check := range []func() error{cfg.DB.resolveDSN, cfg.Fees.validate} {
		if err := check(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CAMPUSPRINT_APP_ENV" required:"true"`
	Port         string `envconfig:"CAMPUSPRINT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CAMPUSPRINT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CAMPUSPRINT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CAMPUSPRINT_LOG_FORMAT" default:"json"`
}

// LogConsole reports whether logs should use the human readable writer.
func (a AppConfig) LogConsole() bool {
	return strings.EqualFold(strings.TrimSpace(a.LogFormat), "console")
}

// IsDev gates dev-only conveniences such as running migrations on boot.
func (a AppConfig) IsDev() bool { return strings.EqualFold(strings.TrimSpace(a.Env), AppEnvDev) }

type ServiceConfig struct {
	Kind       string `envconfig:"CAMPUSPRINT_SERVICE_KIND" default:"api"`
	InstanceID string `envconfig:"CAMPUSPRINT_INSTANCE_ID"`
}

// Instance names this replica in logs. It falls back to the hostname, which
// is the pod name on Cloud Run and Kubernetes.
func (s ServiceConfig) Instance() string {
	if id := strings.TrimSpace(s.InstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return s.Kind + "-0"
}

type DBConfig struct {
	DSN    string `envconfig:"CAMPUSPRINT_DB_DSN"`
	Driver string `envconfig:"CAMPUSPRINT_DB_DRIVER" default:"postgres"`

	// Parts used only when DSN is empty.
	Host     string `envconfig:"CAMPUSPRINT_DB_HOST"`
	Port     int    `envconfig:"CAMPUSPRINT_DB_PORT" default:"5432"`
	User     string `envconfig:"CAMPUSPRINT_DB_USER"`
	Password string `envconfig:"CAMPUSPRINT_DB_PASSWORD"`
	Name     string `envconfig:"CAMPUSPRINT_DB_NAME"`
	SSLMode  string `envconfig:"CAMPUSPRINT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CAMPUSPRINT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CAMPUSPRINT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CAMPUSPRINT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CAMPUSPRINT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQuery logs statements slower than this at warn level; zero disables it.
	SlowQuery       time.Duration `envconfig:"CAMPUSPRINT_DB_SLOW_QUERY" default:"500ms"`
	ConnectAttempts int           `envconfig:"CAMPUSPRINT_DB_CONNECT_ATTEMPTS" default:"5"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CAMPUSPRINT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CAMPUSPRINT_REDIS_ADDR"`
	Password     string        `envconfig:"CAMPUSPRINT_REDIS_PASSWORD"`
	DB           int           `envconfig:"CAMPUSPRINT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CAMPUSPRINT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CAMPUSPRINT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CAMPUSPRINT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CAMPUSPRINT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CAMPUSPRINT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CAMPUSPRINT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CAMPUSPRINT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CAMPUSPRINT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CAMPUSPRINT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL is zero when unset or negative.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(max(j.RefreshTokenTTLMinutes, 0)) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CAMPUSPRINT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CAMPUSPRINT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CAMPUSPRINT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CAMPUSPRINT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CAMPUSPRINT_ARGON_KEY_LEN" default:"32"`
}

// RateLimitConfig sets the fixed windows guarding login, registration and
// checkout. A zero limit disables that counter.
type RateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CAMPUSPRINT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CAMPUSPRINT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CAMPUSPRINT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CAMPUSPRINT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CAMPUSPRINT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CAMPUSPRINT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	CheckoutWindow     time.Duration `envconfig:"CAMPUSPRINT_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutUserLimit  int           `envconfig:"CAMPUSPRINT_RATE_LIMIT_CHECKOUT_USER_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"CAMPUSPRINT_AUTO_MIGRATE" default:"false"`
	AnalyticsSink bool `envconfig:"CAMPUSPRINT_FEATURE_ANALYTICS_SINK" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CAMPUSPRINT_CORS_ALLOWED_ORIGINS" default:"*"`
	MaxAgeSeconds  int      `envconfig:"CAMPUSPRINT_CORS_MAX_AGE_SECONDS" default:"300"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"CAMPUSPRINT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookEventTTL      time.Duration `envconfig:"CAMPUSPRINT_EVENTING_WEBHOOK_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CAMPUSPRINT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CAMPUSPRINT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CAMPUSPRINT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"CAMPUSPRINT_GCS_BUCKET_NAME" required:"true"`
	PublicBase string `envconfig:"CAMPUSPRINT_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type UploadsConfig struct {
	MaxUploadMB  int      `envconfig:"CAMPUSPRINT_MAX_UPLOAD_MB" default:"25"`
	AllowedTypes []string `envconfig:"CAMPUSPRINT_UPLOAD_ALLOWED_TYPES" default:"application/pdf,image/jpeg,image/png"`
	KeyPrefix    string   `envconfig:"CAMPUSPRINT_UPLOAD_KEY_PREFIX" default:"cart"`
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (u UploadsConfig) MaxUploadBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 0
	}
	return int64(u.MaxUploadMB) << 20
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"CAMPUSPRINT_PUBSUB_ORDERS_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"CAMPUSPRINT_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription    string `envconfig:"CAMPUSPRINT_PUBSUB_ANALYTICS_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Dataset     string `envconfig:"CAMPUSPRINT_BIGQUERY_DATASET" default:"campusprint"`
	OrdersTable string `envconfig:"CAMPUSPRINT_BIGQUERY_ORDERS_TABLE" default:"order_events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"CAMPUSPRINT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"CAMPUSPRINT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"CAMPUSPRINT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"CAMPUSPRINT_OUTBOX_RETENTION" default:"720h"`
}

type RazorpayConfig struct {
	KeyID         string        `envconfig:"CAMPUSPRINT_RAZORPAY_KEY_ID" required:"true"`
	KeySecret     string        `envconfig:"CAMPUSPRINT_RAZORPAY_KEY_SECRET" required:"true"`
	WebhookSecret string        `envconfig:"CAMPUSPRINT_RAZORPAY_WEBHOOK_SECRET" required:"true"`
	BaseURL       string        `envconfig:"CAMPUSPRINT_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Currency      string        `envconfig:"CAMPUSPRINT_RAZORPAY_CURRENCY" default:"INR"`
	Timeout       time.Duration `envconfig:"CAMPUSPRINT_RAZORPAY_TIMEOUT" default:"10s"`
}

// FeesConfig holds whole-unit amounts applied at checkout and reconciliation.
type FeesConfig struct {
	DeliveryFee    int64 `envconfig:"CAMPUSPRINT_FEES_DELIVERY" default:"20"`
	PlatformFee    int64 `envconfig:"CAMPUSPRINT_FEES_PLATFORM" default:"5"`
	CommissionRate int64 `envconfig:"CAMPUSPRINT_FEES_COMMISSION_RATE" default:"5"`
}

func (f FeesConfig) validate() error {
	if f.DeliveryFee < 0 || f.PlatformFee < 0 {
		return fmt.Errorf("%s and %s must not be negative", EnvFeesDelivery, EnvFeesPlatform)
	}
	if f.CommissionRate < 0 || f.CommissionRate > 100 {
		return fmt.Errorf("%s must be between 0 and 100", EnvFeesCommissionRate)
	}
	return nil
}

type OTPConfig struct {
	EmailTTL        time.Duration `envconfig:"CAMPUSPRINT_OTP_EMAIL_TTL" default:"10m"`
	EmailMaxRetries int           `envconfig:"CAMPUSPRINT_OTP_EMAIL_MAX_RETRIES" default:"5"`
}

// NotificationsConfig controls the email sender and the realtime channel names.
// An empty RealtimePrefix publishes to bare stationary_<id> channels.
type NotificationsConfig struct {
	FromEmail      string `envconfig:"CAMPUSPRINT_NOTIFICATIONS_FROM_EMAIL" default:"no-reply@campusprint.app"`
	RealtimePrefix string `envconfig:"CAMPUSPRINT_NOTIFICATIONS_REALTIME_PREFIX"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"CAMPUSPRINT_CRON_INTERVAL" default:"1m"`
	PendingOrderTTL   time.Duration `envconfig:"CAMPUSPRINT_CRON_PENDING_ORDER_TTL" default:"30m"`
	PendingOrderBatch int           `envconfig:"CAMPUSPRINT_CRON_PENDING_ORDER_BATCH" default:"100"`
	RetentionInterval time.Duration `envconfig:"CAMPUSPRINT_CRON_RETENTION_INTERVAL" default:"24h"`
}

func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}
	var missing []string
	for env, v := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if v == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("set %s or all of %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   "/" + db.Name,
	}
	if db.Password != "" {
		dsn.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
