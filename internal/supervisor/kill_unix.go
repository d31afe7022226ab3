//go:build !windows

package supervisor

import "syscall"

// killTree sends SIGKILL to the child's process group, taking down any
// grandchildren the script spawned. Falls back to signaling the single pid
// when the group signal fails (e.g. the child never got its own group).
func killTree(pid int) (string, error) {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
			return "", err
		}
	}
	return "", nil
}
