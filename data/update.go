package data

import "time"

// AttrUpdateMask controls which fields of an AttrUpdate are applied.
type AttrUpdateMask int

const (
	AttrUpdateMode      AttrUpdateMask = 1 << iota // Update Mode (permissions)
	AttrUpdateTimestamp                            // Update the logical timestamp
	AttrUpdateSize                                 // Truncate or extend the object

	AttrUpdateAll = ^AttrUpdateMask(0)
)

// AttrUpdate represents a partial update to a node.
type AttrUpdate struct {
	Mask      AttrUpdateMask `json:"mask"`
	Mode      FileMode       `json:"mode"`
	Timestamp time.Time      `json:"timestamp"`
	Size      int64          `json:"size"`
}

func (u *AttrUpdate) Has(mask AttrUpdateMask) bool {
	return u != nil && u.Mask&mask != 0
}

// WithMode returns an update that only changes the mode.
func WithMode(mode FileMode) *AttrUpdate {
	return &AttrUpdate{Mask: AttrUpdateMode, Mode: mode}
}

// WithTimestamp returns an update that only changes the timestamp.
func WithTimestamp(ts time.Time) *AttrUpdate {
	return &AttrUpdate{Mask: AttrUpdateTimestamp, Timestamp: ts}
}

// WithSize returns an update that only truncates or extends the object.
func WithSize(size int64) *AttrUpdate {
	return &AttrUpdate{Mask: AttrUpdateSize, Size: size}
}
