// Package metrics provides constants used across metric definitions.
package metrics

// Namespace prefixes every metric name.
const Namespace = "esxtool"

// Operation names recorded by the command pipeline.
const (
	// OpLoad covers reading the bundle and decoding its documents.
	OpLoad = "load"
	// OpIndex covers building the relational index.
	OpIndex = "index"
	// OpAnonymize covers MAC and serial pseudonymization.
	OpAnonymize = "anonymize"
	// OpMapping covers applying a mapping file.
	OpMapping = "mapping"
	// OpTagKeys covers adding tag keys.
	OpTagKeys = "tag_keys"
	// OpReport covers projecting and writing the measurement report.
	OpReport = "report"
	// OpDeploy covers projecting and writing the deployment table.
	OpDeploy = "deploy"
	// OpWrite covers writing a modified bundle.
	OpWrite = "write"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Pseudonym kinds.
const (
	KindMAC    = "mac"
	KindSerial = "serial"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~16s range).
	BucketStart1ms = 0.001
	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)
