package procutil

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type sent struct {
	pid int
	sig unix.Signal
}

func fakeProc(t *testing.T, procs map[int][2]string) (*Controller, *[]sent) {
	t.Helper()
	root := t.TempDir()
	for pid, p := range procs {
		dir := filepath.Join(root, strconv.Itoa(pid))
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte(p[0]+"\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte(p[1]), 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sys"), 0755))

	var log []sent
	c := &Controller{
		procRoot: root,
		kill: func(pid int, sig unix.Signal) error {
			if pid == 666 {
				return unix.ESRCH
			}
			log = append(log, sent{pid, sig})
			return nil
		},
	}
	return c, &log
}

func TestFindPIDs(t *testing.T) {
	c, _ := fakeProc(t, map[int][2]string{
		100: {"transmission-gt", "/usr/bin/transmission-gtk\x00--minimized\x00"},
		200: {"bash", "/bin/bash\x00"},
		300: {"qbittorrent", "qbittorrent\x00"},
	})

	pids, err := c.FindPIDs("transmission-gtk")
	require.NoError(t, err)
	require.Equal(t, []int{100}, pids)

	pids, err = c.FindPIDs("qbittorrent")
	require.NoError(t, err)
	require.Equal(t, []int{300}, pids)

	pids, err = c.FindPIDs("deluge")
	require.NoError(t, err)
	require.Empty(t, pids)
}

func TestStopAndContinue(t *testing.T) {
	c, log := fakeProc(t, map[int][2]string{
		100: {"transmission-gt", "/usr/bin/transmission-gtk\x00"},
		101: {"transmission-gt", "/usr/bin/transmission-gtk\x00"},
		666: {"transmission-gt", "/usr/bin/transmission-gtk\x00"},
	})

	n, err := c.Stop("transmission-gtk")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = c.Continue("transmission-gtk")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.ElementsMatch(t, []sent{
		{100, unix.SIGSTOP}, {101, unix.SIGSTOP},
		{100, unix.SIGCONT}, {101, unix.SIGCONT},
	}, *log)
}

func TestFindPIDsMissingRoot(t *testing.T) {
	c := &Controller{procRoot: filepath.Join(t.TempDir(), "absent")}
	_, err := c.FindPIDs("x")
	require.Error(t, err)
}
