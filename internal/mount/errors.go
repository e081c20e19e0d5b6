package mount

import "errors"

// These are process-level mount failures, distinct from abi.ServiceError:
// they never cross the plugin ABI, they stop a single file from becoming a
// Plugin. Grounded on the original core's loader.rs LoaderError enum,
// which is likewise kept separate from ServiceError.
var (
	ErrInvalidName        = errors.New("plugin name is empty, contains ':', or equals \"core\"")
	ErrDuplicateName      = errors.New("a plugin with this name is already mounted")
	ErrApiVersionMismatch = errors.New("plugin api version is incompatible with the host")
	ErrNilInitHandler     = errors.New("plugin manifest has a nil init_handler")
)
