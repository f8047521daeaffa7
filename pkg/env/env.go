// Package env reads optional environment variables with fallbacks, for the
// few settings that sit outside the envconfig structs.
package env

import "os"

// Get returns the variable's value, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
