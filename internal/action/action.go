// Package action carries out guard decisions: pausing and resuming the
// protected process and sounding the alert.
package action

import (
	"os/exec"
	"sync"

	"github.com/user/vpn-guard/internal/logger"
)

// ProcessControl suspends and resumes processes by name.
type ProcessControl interface {
	Stop(name string) (int, error)
	Continue(name string) (int, error)
}

// Runner executes the alert command and waits for it.
type Runner func(name string, args ...string) error

// Executor implements the guard's actions for one protected process.
type Executor struct {
	proc    ProcessControl
	process string

	alertEnabled bool
	alertCmd     string
	alertArgs    []string
	run          Runner

	// alarmMu is held while an alert plays; overlapping requests are dropped.
	alarmMu sync.Mutex
	wg      sync.WaitGroup
}

// Options configures an Executor.
type Options struct {
	Process      string
	AlertEnabled bool
	AlertCommand string
	AlertArgs    []string
	AlertSound   string
	Runner       Runner
}

// New creates an executor.
func New(proc ProcessControl, opts Options) *Executor {
	run := opts.Runner
	if run == nil {
		run = runCommand
	}
	args := append(append([]string{}, opts.AlertArgs...), opts.AlertSound)
	return &Executor{
		proc:         proc,
		process:      opts.Process,
		alertEnabled: opts.AlertEnabled,
		alertCmd:     opts.AlertCommand,
		alertArgs:    args,
		run:          run,
	}
}

// Pause suspends the protected process.
func (e *Executor) Pause() {
	n, err := e.proc.Stop(e.process)
	if err != nil {
		logger.Error("Failed to pause %s: %v", e.process, err)
		return
	}
	if n == 0 {
		logger.Debug("Pause: no running %s", e.process)
		return
	}
	logger.Info("Paused %s (%d processes)", e.process, n)
}

// Resume continues the protected process.
func (e *Executor) Resume() {
	n, err := e.proc.Continue(e.process)
	if err != nil {
		logger.Error("Failed to resume %s: %v", e.process, err)
		return
	}
	if n == 0 {
		logger.Debug("Resume: no running %s", e.process)
		return
	}
	logger.Info("Resumed %s (%d processes)", e.process, n)
}

// Alert plays the alert sound in the background. It returns false when
// alerts are disabled or one is already playing.
func (e *Executor) Alert() bool {
	if !e.alertEnabled {
		return false
	}
	if !e.alarmMu.TryLock() {
		logger.Debug("Alert already playing, not stacking another")
		return false
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.alarmMu.Unlock()
		defer logger.Recover("alert")
		if err := e.run(e.alertCmd, e.alertArgs...); err != nil {
			logger.Warning("Alert command %s failed: %v", e.alertCmd, err)
		}
	}()
	return true
}

// Wait blocks until an in-flight alert finishes.
func (e *Executor) Wait() {
	e.wg.Wait()
}

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}
