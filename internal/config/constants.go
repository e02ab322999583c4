package config

import "time"

// Application constants
const (
	AppName    = "optexec"
	AppVersion = "1.0.0"

	// Rate limiting
	DefaultRateLimit = 100 // requests per second per client
	DefaultBurstSize = 50

	// WebSocket keepalive
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// Report output, relative to the working directory
	DefaultReportsDir = "reports"
	DefaultLogsDir    = "logs"
)
