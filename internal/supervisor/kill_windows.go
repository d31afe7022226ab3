//go:build windows

package supervisor

import (
	"os/exec"
	"strconv"
	"strings"
)

// killTree terminates the child and its whole tree via taskkill, keyed by
// pid. The command's combined output is returned so the caller can journal
// the result.
func killTree(pid int) (string, error) {
	// taskkill /PID <pid> /F /T forcefully terminates the process tree
	out, err := exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/F", "/T").CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
