package mvcc

import "github.com/google/uuid"

// ContainerID is a stable identity for whatever object a TimelyResource
// attaches to (a B-tree handle, in the original design; any container in
// this package, since the buffer pool/page layer is out of scope here).
// It lets logs refer to a container by a short, comparable value instead
// of the container object itself. The Engine Registry does not use it.
//
// Grounded on storage.ParseUUID/UUIDToBytes.
type ContainerID uuid.UUID

// NewContainerID mints a fresh random container identity.
func NewContainerID() ContainerID {
	return ContainerID(uuid.New())
}

// String renders the container ID in canonical UUID form.
func (id ContainerID) String() string {
	return uuid.UUID(id).String()
}

// ParseContainerID parses a canonical UUID string into a ContainerID.
func ParseContainerID(s string) (ContainerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ContainerID{}, err
	}
	return ContainerID(u), nil
}
