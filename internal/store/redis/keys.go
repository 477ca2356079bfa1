package redis

const (
	// KeySnapshot holds the JSON of the last published snapshot.
	KeySnapshot = "proxydeck:snapshot"
)

// SnapshotKey returns the Redis key for the mirrored snapshot.
func SnapshotKey() string {
	return KeySnapshot
}
