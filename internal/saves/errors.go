package saves

import "fmt"

// EntityRecordNotFoundError is returned when the per-player record is absent.
type EntityRecordNotFoundError struct {
	EntityID string
	Path     string
}

func (e *EntityRecordNotFoundError) Error() string {
	return fmt.Sprintf("entity record for %s not found: %s", e.EntityID, e.Path)
}

// WorldRecordNotFoundError is returned when level.<ext> is absent.
type WorldRecordNotFoundError struct {
	World string
	Path  string
}

func (e *WorldRecordNotFoundError) Error() string {
	return fmt.Sprintf("world record for %q not found: %s", e.World, e.Path)
}

// InvalidEntityIDError is returned for ids that are not UUIDs.
type InvalidEntityIDError struct {
	ID  string
	Err error
}

func (e *InvalidEntityIDError) Error() string {
	return fmt.Sprintf("invalid entity id %q: %v", e.ID, e.Err)
}

func (e *InvalidEntityIDError) Unwrap() error { return e.Err }
