package data

import "time"

const (
	// BlockSize is the fixed block size reported for every node.
	BlockSize int64 = 4096
	// DirectorySize is the nominal size reported for directories.
	DirectorySize int64 = 4096
)

// Attributes is the POSIX-style metadata of a node.
// Access, modify and change time always carry the same timestamp.
type Attributes struct {
	Dev   uint64   `json:"dev"`
	Ino   uint64   `json:"ino"`
	Mode  FileMode `json:"mode"`
	Nlink uint32   `json:"nlink"`
	UID   uint32   `json:"uid"`
	GID   uint32   `json:"gid"`
	Rdev  uint64   `json:"rdev"`
	Size  int64    `json:"size"`

	AccessTime time.Time `json:"access_time"`
	ModifyTime time.Time `json:"modify_time"`
	ChangeTime time.Time `json:"change_time"`

	BlockSize int64 `json:"block_size"`
	Blocks    int64 `json:"blocks"`
}

// BlockCount returns ceil(size / BlockSize).
func BlockCount(size int64) int64 {
	if size <= 0 {
		return 0
	}

	return (size + BlockSize - 1) / BlockSize
}
