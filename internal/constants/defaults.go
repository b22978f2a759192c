package constants

// Default API client configuration values
const (
	DefaultHTTPTimeoutSec      = 30
	DefaultUploadTimeoutSec    = 120
	DefaultGracefulShutdownSec = 10
)

// Default media configuration values
const (
	DefaultMaxImageSizeMB    = 10
	DefaultMaxVideoSizeMB    = 100
	DefaultMaxDocumentSizeMB = 10

	// DefaultChunkSizeBytes is both the chunk size and the single-request
	// threshold for the upload pipeline. Files at or below this size go up
	// in one request.
	DefaultChunkSizeBytes = 5 * 1024 * 1024
)

// Default development server timeouts
const (
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
)

// Default local store configuration values
const (
	DefaultStoreRetryAttempts = 3
	DefaultBackoffInitialMs   = 500
	DefaultBackoffMaxMs       = 5000
	DefaultCacheRetentionDays = 30
)

// External document viewer endpoints
const (
	OfficeViewerBaseURL = "https://view.officeapps.live.com/op/view.aspx?src="
	DocsViewerBaseURL   = "https://docs.google.com/gview?embedded=true&url="
)

// Realtime channel event names. These are part of the wire contract with the
// marketplace backend and must not be renamed.
const (
	EventJoin         = "join"
	EventSendMessage  = "sendMessage"
	EventOnlineStatus = "onlineStatus"
	EventMessageSeen  = "messageSeen"
)

// Privacy settings for log masking
const (
	DefaultIDMaskLength = 8
)
