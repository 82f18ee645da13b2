//go:build unix

package cache

import (
	"errors"
	"syscall"
)

func isAccessDenied(err error) bool {
	return errors.Is(err, syscall.EACCES)
}

func isOutOfSpace(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}

// isUnusableDir reports errors that disable the cache instead of failing:
// no permission, a read-only home, or a file where a directory should be.
func isUnusableDir(err error) bool {
	return errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.EROFS) ||
		errors.Is(err, syscall.ENOTDIR)
}
