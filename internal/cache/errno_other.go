//go:build !unix && !windows

package cache

import (
	"errors"
	"io/fs"
)

func isAccessDenied(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}

func isOutOfSpace(error) bool {
	return false
}

func isUnusableDir(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}
