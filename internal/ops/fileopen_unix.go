//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/nutrilog/internal/errors"
)

// openFileNoFollow opens path with O_NOFOLLOW|O_CLOEXEC, so a symlink in the
// final component fails instead of being followed. Directory components are
// covered by ValidatePath.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		switch {
		case stderrors.Is(err, syscall.ELOOP):
			return nil, errors.NewInvalidRequest("path must not be a symlink")
		case stderrors.Is(err, syscall.ENOENT) && flag&os.O_CREATE == 0:
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

func openFileNoFollowRead(path string) (*os.File, error) {
	return openFileNoFollow(path, os.O_RDONLY, 0)
}
