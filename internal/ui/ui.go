// Package ui provides the optional system tray indicator for the guard.
package ui

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/systray"

	"github.com/user/vpn-guard/internal/core"
	"github.com/user/vpn-guard/internal/guard"
	"github.com/user/vpn-guard/internal/logger"
)

var (
	mu     sync.Mutex
	runErr error

	mStatus  *systray.MenuItem
	mEpisode *systray.MenuItem
	mQuit    *systray.MenuItem
)

// Run starts the guard service together with the tray indicator and blocks
// until the service stops or the user picks Quit.
func Run(ctx context.Context, service *core.Service) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	service.SetStatusListener(func(status *core.StatusPayload) {
		updateUI(status)
	})

	onReady := func() {
		systray.SetIcon(GetIcon(guard.StateUnset.String()))
		systray.SetTitle("VPN Guard")
		systray.SetTooltip("VPN Guard: starting")

		mStatus = systray.AddMenuItem("State: unset", "")
		mStatus.Disable()
		mEpisode = systray.AddMenuItem("", "")
		mEpisode.Disable()
		mEpisode.Hide()
		systray.AddSeparator()
		mQuit = systray.AddMenuItem("Quit", "Stop guarding and resume the process")

		updateUI(service.GetStatusPayload())

		go func() {
			defer logger.Recover("guard-service")
			err := service.Run(ctx)
			mu.Lock()
			runErr = err
			mu.Unlock()
			close(done)
			systray.Quit()
		}()

		go func() {
			defer logger.Recover("systray-menu-loop")
			select {
			case <-mQuit.ClickedCh:
				logger.Info("Quit requested from tray")
				cancel()
			case <-done:
			}
		}()
	}

	onExit := func() {
		cancel()
		<-done
	}

	systray.Run(onReady, onExit)

	mu.Lock()
	defer mu.Unlock()
	return runErr
}

func updateUI(status *core.StatusPayload) {
	defer logger.Recover("updateUI")

	if status == nil || mStatus == nil {
		return
	}

	systray.SetIcon(GetIcon(status.State))
	mStatus.SetTitle("State: " + status.State)
	systray.SetTooltip(tooltip(status))

	if status.Episode != "" {
		mEpisode.SetTitle("Episode: " + status.Episode)
		mEpisode.Show()
	} else {
		mEpisode.Hide()
	}
}

func tooltip(status *core.StatusPayload) string {
	switch status.State {
	case guard.StateConnected.String():
		return fmt.Sprintf("VPN Guard: %s running behind %s", status.Process, status.Tunnel)
	case guard.StateConnectWhenSafe.String():
		return fmt.Sprintf("VPN Guard: %s paused, waiting for %s routes", status.Process, status.Tunnel)
	case guard.StateDisconnected.String():
		return fmt.Sprintf("VPN Guard: %s paused, %s is down", status.Process, status.Tunnel)
	}
	return "VPN Guard: waiting for network state"
}
