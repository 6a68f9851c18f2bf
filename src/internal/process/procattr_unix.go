//go:build !windows

package process

import "syscall"

// detachedAttr starts the child in its own session so it survives the launcher
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true,
	}
}
