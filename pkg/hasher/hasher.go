package hasher

import "github.com/google/uuid"

// namespace anchors every derived accessory ID. Changing it would orphan all
// previously registered accessories, so it is fixed for the lifetime of the
// project.
var namespace = uuid.MustParse("9a0d7e1c-54c3-4b7a-9f3e-2c8d11a6b0e4")

// DeterministicID derives a stable UUID from a serial key. The same input
// always yields the same ID across processes and restarts.
func DeterministicID(serialKey string) string {
	return uuid.NewSHA1(namespace, []byte(serialKey)).String()
}
