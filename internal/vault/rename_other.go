//go:build !linux

package vault

import (
	"errors"
	"syscall"
)

func renameNoReplace(src, dst string) error {
	return renameIfAbsent(src, dst)
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
