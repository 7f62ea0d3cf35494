package instance

import (
	"os"

	"github.com/kineticlab/physio-academy-backend/pkg/env"
)

// GetID identifies this process for lock ownership and logs: WORKER_ID, then
// DYNO, then the hostname.
func GetID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker-0"
	}
	return env.First(host, "WORKER_ID", "DYNO")
}
