package workspace

import "errors"

// Gateway errors. Filesystem NotFound/IO errors propagate wrapped from the
// underlying operation and are matched with os.IsNotExist / errors.As.
var (
	// ErrNoWorkspace is returned when no root directory is configured.
	ErrNoWorkspace = errors.New("no workspace configured")

	// ErrAccessDenied is returned when a path touches an ignored directory
	// or escapes the workspace root.
	ErrAccessDenied = errors.New("access denied")

	// ErrSearchNotFound is returned when a replace target is absent.
	ErrSearchNotFound = errors.New("search text not found")

	// ErrExec is returned when a command process could not be started.
	ErrExec = errors.New("command could not be started")
)
