// Package constants holds the defaults shared by the engine, the source
// adapters and the CLI.
package constants

import "time"

// Matching.
const (
	// SingleStudioThreshold applies when the host UI syncs one studio.
	SingleStudioThreshold = 95
	// BatchThreshold applies to manual and scheduled batch runs.
	BatchThreshold        = 85
)

// Deadlines. SourceTimeout covers one studio lookup against one source,
// retries included; the others bound a single request.
const (
	SourceTimeout   = 30 * time.Second
	QueryTimeout    = 15 * time.Second
	MutationTimeout = 60 * time.Second
	TPDBTimeout     = 10 * time.Second
)

// Retry policy for transient HTTP failures (429 and 5xx).
const (
	MaxRetries      = 5
	RetryBackoff    = time.Second
	MaxRetryBackoff = 30 * time.Second
)

const (
	// MaxConcurrentSources is how many sources one studio lookup fans out to.
	MaxConcurrentSources = 4

	// MaxResponseBytes caps a response body read from any remote API.
	MaxResponseBytes = 16 << 20
)

// ThePornDB is configured like a stash-box but answers over REST. Its stash
// ids are stored under TPDBEndpoint whichever API produced them.
const (
	TPDBEndpoint   = "https://theporndb.net/graphql"
	TPDBAPIURL     = "https://api.theporndb.net"
	TPDBHostMarker = "theporndb.net"
)

// Local files.
const (
	DefaultLockFile    = "studiosync.pid"
	DefaultJournalPath = "studiosync.db"

	DirPermissions  = 0o755
	FilePermissions = 0o644
)

// TimeFormatLog is the timestamp layout of file logs.
const TimeFormatLog = "2006-01-02 15:04:05.000"
