package flatfs

import (
	"errors"

	"github.com/mwantia/flatfs/data"
)

var (
	ErrClosed = errors.New("flatfs: file already closed")

	// Aliases of the error kinds in data, so callers of the facade only
	// need a single import to match them.
	ErrNotExist      = data.ErrNotExist
	ErrExist         = data.ErrExist
	ErrInvalid       = data.ErrInvalid
	ErrBusy          = data.ErrBusy
	ErrUnsupported   = data.ErrUnsupported
	ErrBadDescriptor = data.ErrBadDescriptor
	ErrIsDirectory   = data.ErrIsDirectory
	ErrNotDirectory  = data.ErrNotDirectory
	ErrNotMounted    = data.ErrNotMounted
)
