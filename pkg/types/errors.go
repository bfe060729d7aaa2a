package types

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedSnapshotVersion is returned when importing a snapshot with an unknown version tag
	ErrUnsupportedSnapshotVersion = errors.New("unsupported snapshot version")
	// ErrCorruptSnapshot is returned when a snapshot blob cannot be decoded
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrBuildInProgress is returned when a build is requested while another is running
	ErrBuildInProgress = errors.New("build already in progress")
)

// SkippableFileError reports a single file that could not be read or parsed.
// It is logged and counted; it never aborts a build.
type SkippableFileError struct {
	Path string
	Err  error
}

func (e *SkippableFileError) Error() string {
	return fmt.Sprintf("skipping %s: %v", e.Path, e.Err)
}

func (e *SkippableFileError) Unwrap() error {
	return e.Err
}
