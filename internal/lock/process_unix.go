//go:build !windows

package lock

import "syscall"

// alive probes pid with signal 0. EPERM means the process exists but belongs
// to another user.
func alive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
