package flatfs

import (
	"time"

	"github.com/mwantia/flatfs/data"
)

// FileInfo describes a file or directory of the filesystem.
type FileInfo struct {
	Name    string        // Base name of the file
	Path    string        // Full slash separated path
	Size    int64         // Length in bytes for regular files
	Mode    data.FileMode // File mode bits
	ModTime time.Time     // Modification time
	IsDir   bool          // Abbreviation for Mode.IsDir()
	Ino     uint64
	Blocks  int64
}

func newFileInfo(name, path string, attr *data.Attributes) *FileInfo {
	return &FileInfo{
		Name:    name,
		Path:    path,
		Size:    attr.Size,
		Mode:    attr.Mode,
		ModTime: attr.ModifyTime,
		IsDir:   attr.Mode.IsDir(),
		Ino:     attr.Ino,
		Blocks:  attr.Blocks,
	}
}
