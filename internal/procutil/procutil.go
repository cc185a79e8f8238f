// Package procutil finds processes by name and delivers job-control signals to them.
package procutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Controller signals processes located under a procfs root.
type Controller struct {
	procRoot string
	kill     func(pid int, sig unix.Signal) error
}

// NewController creates a controller for the live /proc.
func NewController() *Controller {
	return &Controller{
		procRoot: "/proc",
		kill:     unix.Kill,
	}
}

// FindPIDs returns the PIDs whose command name matches name, like pidof.
// The kernel truncates comm to 15 bytes, so the executable basename from
// cmdline is also compared.
func (c *Controller) FindPIDs(name string) ([]int, error) {
	entries, err := os.ReadDir(c.procRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.procRoot, err)
	}

	var pids []int
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() {
			continue
		}
		if c.matches(pid, name) {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

func (c *Controller) matches(pid int, name string) bool {
	dir := filepath.Join(c.procRoot, strconv.Itoa(pid))

	if comm, err := os.ReadFile(filepath.Join(dir, "comm")); err == nil {
		if strings.TrimSpace(string(comm)) == name {
			return true
		}
	}

	cmdline, err := os.ReadFile(filepath.Join(dir, "cmdline"))
	if err != nil || len(cmdline) == 0 {
		return false
	}
	argv0 := string(cmdline)
	if i := strings.IndexByte(argv0, 0); i >= 0 {
		argv0 = argv0[:i]
	}
	return filepath.Base(argv0) == name
}

// Signal delivers sig to every process named name and returns how many were signalled.
// Processes that exit between lookup and delivery are ignored.
func (c *Controller) Signal(name string, sig unix.Signal) (int, error) {
	pids, err := c.FindPIDs(name)
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for _, pid := range pids {
		if err := c.kill(pid, sig); err != nil {
			if errors.Is(err, unix.ESRCH) {
				continue
			}
			errs = append(errs, fmt.Errorf("pid %d: %w", pid, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// Stop suspends every process named name.
func (c *Controller) Stop(name string) (int, error) {
	return c.Signal(name, unix.SIGSTOP)
}

// Continue resumes every process named name.
func (c *Controller) Continue(name string) (int, error) {
	return c.Signal(name, unix.SIGCONT)
}
