package config

const EnvPrefix = "CAMPUSPRINT"

const AppEnvDev = "dev"

const (
	EnvAppEnv = "CAMPUSPRINT_APP_ENV"
	EnvPort   = "CAMPUSPRINT_APP_PORT"

	EnvDBDSN  = "CAMPUSPRINT_DB_DSN"
	EnvDBHost = "CAMPUSPRINT_DB_HOST"
	EnvDBUser = "CAMPUSPRINT_DB_USER"
	EnvDBName = "CAMPUSPRINT_DB_NAME"

	EnvRedisURL = "CAMPUSPRINT_REDIS_URL"

	EnvJWTSecret              = "CAMPUSPRINT_JWT_SECRET"
	EnvJWTIssuer              = "CAMPUSPRINT_JWT_ISSUER"
	EnvJWTExpMins             = "CAMPUSPRINT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CAMPUSPRINT_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "CAMPUSPRINT_GCP_PROJECT_ID"
	EnvGCSBucket    = "CAMPUSPRINT_GCS_BUCKET_NAME"

	EnvPubSubOrdersTopic       = "CAMPUSPRINT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubNotificationSub   = "CAMPUSPRINT_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub      = "CAMPUSPRINT_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvRazorpayKeyID           = "CAMPUSPRINT_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret       = "CAMPUSPRINT_RAZORPAY_KEY_SECRET"
	EnvRazorpayWebhookSecret   = "CAMPUSPRINT_RAZORPAY_WEBHOOK_SECRET"
	EnvFeesDelivery            = "CAMPUSPRINT_FEES_DELIVERY"
	EnvFeesPlatform            = "CAMPUSPRINT_FEES_PLATFORM"
	EnvFeesCommissionRate      = "CAMPUSPRINT_FEES_COMMISSION_RATE"
	EnvCORSAllowedOrigins      = "CAMPUSPRINT_CORS_ALLOWED_ORIGINS"
	EnvNotificationsRealtimePx = "CAMPUSPRINT_NOTIFICATIONS_REALTIME_PREFIX"
)
