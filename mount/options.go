package mount

import (
	"github.com/mwantia/flatfs/handles"
	"github.com/mwantia/flatfs/log"
)

type MountOptions struct {
	Logger *log.Logger
	Cache  *handles.Cache

	LossyRename bool // Force-close an open rename destination instead of failing with busy
}

type MountOption func(*MountOptions) error

func newDefaultMountOptions() *MountOptions {
	return &MountOptions{
		LossyRename: false,
	}
}

func WithLogger(logger *log.Logger) MountOption {
	return func(mo *MountOptions) error {
		mo.Logger = logger
		return nil
	}
}

// WithCache injects the handle cache shared by this mount.
// By default every mount owns a new cache over its store.
func WithCache(cache *handles.Cache) MountOption {
	return func(mo *MountOptions) error {
		mo.Cache = cache
		return nil
	}
}

// WithLossyRename lets rename clobber a destination that is still open.
// Holders of the clobbered handle observe closed-handle errors afterwards.
func WithLossyRename() MountOption {
	return func(mo *MountOptions) error {
		mo.LossyRename = true
		return nil
	}
}
