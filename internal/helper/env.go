package helper

import (
	"os"
	"strconv"
)

// GetEnvAsInt reads an integer env var with a fallback for unset or bad
// values.
func GetEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
