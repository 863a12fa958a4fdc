package data

import (
	"errors"
	"syscall"
	"testing"
)

func TestErrnoError_Matching(t *testing.T) {
	cause := errors.New("locked by backend")
	err := Busy("unlink", "_file", cause)

	if !errors.Is(err, ErrBusy) {
		t.Error("expected error to match ErrBusy")
	}
	if !errors.Is(err, cause) {
		t.Error("expected error to match its cause")
	}
	if !errors.Is(err, syscall.EBUSY) {
		t.Error("expected error to match EBUSY")
	}
	if errors.Is(err, ErrNotExist) {
		t.Error("error must not match ErrNotExist")
	}
	if got := Errno(err); got != syscall.EBUSY {
		t.Errorf("expected EBUSY, got %v", got)
	}
}

func TestUnsupported_Errno(t *testing.T) {
	err := Unsupported("mmap", "_file", syscall.EOPNOTSUPP)

	if !errors.Is(err, ErrUnsupported) {
		t.Error("expected error to match ErrUnsupported")
	}
	if got := Errno(err); got != syscall.EOPNOTSUPP {
		t.Errorf("expected EOPNOTSUPP, got %v", got)
	}
}

func TestErrors_Join(t *testing.T) {
	errs := Errors{}
	if errs.Errors() != nil {
		t.Fatal("expected nil for empty collection")
	}

	errs.Add(nil)
	errs.Add(ErrBusy)
	errs.Add(ErrIO)

	err := errs.Errors()
	if !errors.Is(err, ErrBusy) || !errors.Is(err, ErrIO) {
		t.Errorf("expected joined error to contain both kinds, got %v", err)
	}
}

func TestBlockCount(t *testing.T) {
	tests := map[int64]int64{0: 0, 1: 1, 4096: 1, 4097: 2, 8192: 2}
	for size, expected := range tests {
		if got := BlockCount(size); got != expected {
			t.Errorf("BlockCount(%d): expected %d, got %d", size, expected, got)
		}
	}
}
