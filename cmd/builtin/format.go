package builtin

import (
	"fmt"

	"github.com/mwantia/flatfs"
)

type fileInfo struct {
	*flatfs.FileInfo
}

func (fi *fileInfo) short() string {
	if fi.IsDir {
		return fi.Name + "/"
	}
	return fi.Name
}

func (fi *fileInfo) long() string {
	return fmt.Sprintf("%s %10d %s %s", fi.Mode, fi.Size, fi.ModTime.Format("2006-01-02 15:04"), fi.short())
}
