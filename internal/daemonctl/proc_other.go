//go:build !unix

package daemonctl

import "syscall"

func detachedAttrs() *syscall.SysProcAttr { return nil }

// processAlive cannot probe without signals; report alive so a recorded
// daemon is never started twice.
func processAlive(int) bool { return true }
