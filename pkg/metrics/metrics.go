// Package metrics holds the prometheus collectors exported by the api and
// cron-worker processes. Every recorder is nil safe so callers can skip wiring
// metrics in tests.
package metrics

const namespace = "academy"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
