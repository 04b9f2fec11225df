package docstore

import "time"

// Configuration constants for docstore operations
const (
	// DefaultIDProperty is the document property that holds the identifier
	DefaultIDProperty = "_id"

	// DefaultIndexBatchSize is the number of documents scanned per batch
	// during index backfill
	DefaultIndexBatchSize = 100

	// Optimistic engine retry configuration
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 100 * time.Millisecond
	DefaultJitterPercent  = 0.5 // 50% jitter to avoid thundering herd
)

// Reserved backing map names. Document and index maps are derived from the
// collection name; the catalog and generator maps are shared singletons.
const (
	catalogMapName = "docstore:catalog"
	idGenMapName   = "docstore:idgen"
)

func collectionMapName(name string) string {
	return "collection:" + name
}

func indexMapName(collection, selector string) string {
	return "index:" + collection + ":" + selector
}

// RetryConfig holds configuration for optimistic update retries with
// exponential backoff
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	JitterPercent  float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		JitterPercent:  DefaultJitterPercent,
	}
}

// Validate checks if the RetryConfig is valid
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "MaxRetries",
			"value":  c.MaxRetries,
			"reason": "must be non-negative",
		})
	}
	if c.InitialBackoff <= 0 {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "InitialBackoff",
			"value":  c.InitialBackoff,
			"reason": "must be positive",
		})
	}
	if c.JitterPercent < 0 || c.JitterPercent > 1 {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "JitterPercent",
			"value":  c.JitterPercent,
			"reason": "must be between 0 and 1",
		})
	}
	return nil
}

// backoffFor computes the sleep before retry attempt i (zero-based),
// exponential growth with deterministic jitter.
func (c RetryConfig) backoffFor(i int) time.Duration {
	backoff := c.InitialBackoff * time.Duration(1<<uint(i))
	jitter := time.Duration(float64(backoff) * c.JitterPercent * (1.0 - (float64(i%2) * 0.5)))
	return backoff + jitter
}
