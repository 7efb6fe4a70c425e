package instance

import (
	"os"

	"github.com/withmetravel/withme-backend/pkg/env"
)

// GetID identifies this process for lock ownership and log fields. It prefers
// WITHME_INSTANCE_ID, then the platform dyno name, then the hostname.
func GetID() string {
	if id := env.First("WITHME_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "withme-0"
}
