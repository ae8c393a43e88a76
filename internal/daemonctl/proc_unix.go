//go:build unix

package daemonctl

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

func detachedAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
