package config

import "time"

// Application constants for the DealPulse underwriting service
const (
	// Application Info
	AppName    = "DealPulse"
	AppVersion = "1.0.0"

	// Server
	DefaultServerPort = 8080

	// Security
	DefaultMinPasswordLength = 12
	DefaultRateLimitRPS      = 100.0
	DefaultRateLimitBurst    = 50

	// Engine Timeouts
	DefaultCalculationTimeout = 30 * time.Second
	SensitivitySweepTimeout   = 2 * time.Minute
	RentRollParseTimeout      = 1 * time.Minute

	// Engine Parallelism
	DefaultSensitivityParallel = 4

	// Job Queue
	DefaultJobWorkers   = 2
	DefaultJobQueueSize = 64
	DefaultJobTimeout   = 10 * time.Minute
	DefaultJobRetention = 24 * time.Hour

	// Rent-Roll Uploads
	MaxUploadBytes    = 10 << 20 // 10MB
	UploadFilePattern = `(?i)\.xlsx?$`

	// File Paths (relative to working directory)
	DefaultDataDir = "data"
	DefaultLogsDir = "logs"

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// API endpoints (internal)
const (
	APIBasePath         = "/api/v1"
	UnderwriteEndpoint  = "/api/v1/underwrite"
	SensitivityEndpoint = "/api/v1/underwrite/sensitivity"
	DealsEndpoint       = "/api/v1/deals"
	RentRollEndpoint    = "/api/v1/rentroll"
	JobsEndpoint        = "/api/v1/jobs"
	HealthEndpoint      = "/api/v1/health"
	MetricsEndpoint     = "/metrics"
	WebSocketEndpoint   = "/ws"
)
