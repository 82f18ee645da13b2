//go:build windows

package cache

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
)

func isAccessDenied(err error) bool {
	return errors.Is(err, windows.ERROR_ACCESS_DENIED)
}

func isOutOfSpace(err error) bool {
	return errors.Is(err, windows.ERROR_DISK_FULL) ||
		errors.Is(err, windows.ERROR_HANDLE_DISK_FULL)
}

// isUnusableDir reports errors that disable the cache instead of failing:
// no permission, a write-protected volume, or a file where a directory
// should be.
func isUnusableDir(err error) bool {
	return errors.Is(err, windows.ERROR_ACCESS_DENIED) ||
		errors.Is(err, windows.ERROR_WRITE_PROTECT) ||
		errors.Is(err, syscall.ENOTDIR)
}
