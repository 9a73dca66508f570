package settings

import "fmt"

// PersistenceError reports a failed storage read or write. The canonical
// in-memory value is never changed by an operation that returns one.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("settings persistence (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ImportError reports a malformed backup blob. Canonical settings are left
// untouched when one is returned.
type ImportError struct {
	Reason string
}

func (e *ImportError) Error() string {
	return "import settings: " + e.Reason
}

// ValidationError reports a structurally unusable caller-supplied update,
// for example an unrecognized settings key on the control surface.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid settings update: " + e.Reason
}

// DeliveryResult records one fan-out delivery attempt. A failed delivery is
// an expected race (context closed mid-broadcast), isolated per target and
// never surfaced to the user.
type DeliveryResult struct {
	Target string
	OK     bool
	Err    error
}
