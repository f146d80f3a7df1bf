package config

import "time"

// Application constants - hardcoded values for the ESG Board system
const (
	// Loader Limits
	DefaultFetchTimeout   = 10 * time.Second
	DefaultMaxUploadBytes = 10 << 20 // 10MB
	DefaultMaxFetchBytes  = 20 << 20 // 20MB

	// Chart Rendering
	DefaultChartWidth  = 1000
	DefaultChartHeight = 600

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
