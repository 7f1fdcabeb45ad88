package config

import "time"

// Application constants
const (
	AppName    = "hilirisasi"
	AppVersion = "1.0.0"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// WebSocket
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// File Paths (relative to the base directory)
	DefaultDataDir   = "data"
	DefaultExportDir = "exports"
	DefaultLogsDir   = "logs"

	// Log Settings
	DefaultLogLevel = "info"

	// DefaultReportYear is assumed for legacy rows without a Tahun column.
	DefaultReportYear = 2025

	// DefaultWatchDebounce coalesces the burst of events an editor save makes.
	DefaultWatchDebounce = 250 * time.Millisecond

	// Spreadsheet extensions accepted as dataset sources
	ExcelExtension      = ".xlsx"
	ExcelMacroExtension = ".xlsm"
)
