package data

// AccessMode represents the access flags a stream was opened with.
type AccessMode int

const (
	AccessModeRead   AccessMode = 1 << iota // O_RDONLY: open for reading
	AccessModeWrite                         // O_WRONLY: open for writing
	AccessModeAppend                        // O_APPEND: writes go to the end of the object
	AccessModeCreate                        // O_CREATE: create if not exists
	AccessModeTrunc                         // O_TRUNC:  truncate on open
	AccessModeExcl                          // O_EXCL:   fail if it exists (with CREATE)

	AccessModeReadWrite = AccessModeRead | AccessModeWrite
)

// CanRead reports whether the mode allows reading.
func (m AccessMode) CanRead() bool {
	return m&AccessModeRead != 0
}

// CanWrite reports whether the mode allows writing.
func (m AccessMode) CanWrite() bool {
	return m&AccessModeWrite != 0
}

func (m AccessMode) HasAppend() bool {
	return m&AccessModeAppend != 0
}

func (m AccessMode) HasCreate() bool {
	return m&AccessModeCreate != 0
}

func (m AccessMode) HasTrunc() bool {
	return m&AccessModeTrunc != 0
}

func (m AccessMode) HasExcl() bool {
	return m&AccessModeExcl != 0
}
