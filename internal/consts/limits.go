package consts

import "time"

// Buffer sizes for various operations
const (
	// BufferSize1KB is 1 kilobyte
	BufferSize1KB = 1024
	// BufferSize64KB is 64 kilobytes
	BufferSize64KB = 64 * 1024
	// BufferSize1MB is 1 megabyte
	BufferSize1MB = 1024 * 1024
)

// LLM default configurations
const (
	// DefaultModelID is used when no model is configured.
	DefaultModelID = "gpt-4o"
	// DefaultMaxTokens is the default maximum tokens for LLM responses
	DefaultMaxTokens = 4096
	// DefaultTemperature keeps tool selection deterministic.
	DefaultTemperature = 0.0
)

// GitHub REST API
const (
	GitHubAPIURL     = "https://api.github.com"
	GitHubAPIVersion = "2022-11-28"
	// DefaultSearchResults bounds code search result pages.
	DefaultSearchResults = 5
)

// Timeouts for various operations
const (
	// Timeout10Seconds is a 10 second timeout
	Timeout10Seconds = 10 * time.Second
	// Timeout30Seconds is a 30 second timeout
	Timeout30Seconds = 30 * time.Second
	// Timeout60Seconds is a 60 second timeout (1 minute)
	Timeout60Seconds = 60 * time.Second
	// Timeout2Minutes is a 2 minute timeout
	Timeout2Minutes = 2 * time.Minute
	// Timeout30Minutes bounds a whole resolution run.
	Timeout30Minutes = 30 * time.Minute
)

// Retry and attempt limits
const (
	// DefaultMaxRetries is the default number of quota retries per operation
	DefaultMaxRetries = 5
	// PrimaryRateLimitBuffer is added on top of the published reset time.
	PrimaryRateLimitBuffer = 5 * time.Second
	// SecondaryRateLimitWait is used when Retry-After is absent.
	SecondaryRateLimitWait = 60 * time.Second
	// MaxRateLimitWait caps a single backoff sleep.
	MaxRateLimitWait = 1 * time.Hour
)

// Resolution loop limits
const (
	// DefaultMaxIterations caps EXPLORE/SEARCH/COMMIT rounds.
	DefaultMaxIterations = 20
	// DefaultOscillationThreshold is the retry_count that must be exceeded to stop.
	DefaultOscillationThreshold = 3
	// ProgressLoopStart is the percentage reported once planning completes.
	ProgressLoopStart = 40
	// ProgressStep is added after each phase that invoked a tool.
	ProgressStep = 5
	// ProgressCeiling is the maximum percentage before the final report.
	ProgressCeiling = 95
	// ProgressDone is reported with the final message.
	ProgressDone = 100
	// MaxPullFiles caps the changed files inlined into a review's input message.
	MaxPullFiles = 20
	// MaxPullFileBytes caps each inlined pull request file.
	MaxPullFileBytes = 16 * 1024
)
