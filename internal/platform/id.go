package platform

import "github.com/google/uuid"

// NewID returns the identifier assigned to a cluster when it is created.
func NewID() string {
	return uuid.New().String()
}

// TempName returns a unique name for a scratch file next to target, used to
// write a snapshot before it is renamed into place.
func TempName(target string) string {
	return target + ".tmp-" + uuid.NewString()
}
