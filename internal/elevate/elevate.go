// Package elevate handles running the guard with enough privilege to
// signal processes owned by other users.
package elevate

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// IsAdmin returns true if the current process is running as root.
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// Command returns the argv that re-launches the current executable as root,
// preferring pkexec over sudo.
func Command(exe string, args []string) ([]string, error) {
	argv := append([]string{exe}, args...)
	if path, err := lookPath("pkexec"); err == nil {
		return append([]string{path}, argv...), nil
	}
	if path, err := lookPath("sudo"); err == nil {
		return append([]string{path, "--preserve-env=VPN_GUARD_TUNNEL_ID,VPN_GUARD_INTERFACE,VPN_GUARD_PROCESS,VPN_GUARD_TICK_INTERVAL"}, argv...), nil
	}
	return nil, fmt.Errorf("neither pkexec nor sudo found; please run as root")
}

// RunAsAdmin replaces the current process with a privileged copy of itself.
// It only returns on error.
func RunAsAdmin() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	argv, err := Command(exe, os.Args[1:])
	if err != nil {
		return err
	}
	return syscall.Exec(argv[0], argv, os.Environ())
}
