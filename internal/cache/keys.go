package cache

import "fmt"

// Key builders for the three cache-able resource kinds. Callers never build
// raw keys by hand; routing every key through these keeps kinds from
// colliding in the shared store.

// RepoKey is the cache key for repository metadata.
func RepoKey(owner, name string) string {
	return fmt.Sprintf("repo:%s/%s", owner, name)
}

// MetricsKey is the cache key for normalized project metrics.
func MetricsKey(owner, name string) string {
	return fmt.Sprintf("metrics:%s/%s", owner, name)
}

// HealthKey is the cache key for the derived health score.
func HealthKey(owner, name string) string {
	return fmt.Sprintf("health:%s/%s", owner, name)
}
