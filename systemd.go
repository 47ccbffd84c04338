/*
DESCRIPTION
  systemd.go implements NotifyReady and NotifyWatchdog, thin wrappers
  around the systemd readiness/watchdog notification protocol for
  callers running this library under a systemd unit with
  Type=notify/WatchdogSec set.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vpu

import "github.com/coreos/go-systemd/daemon"

// NotifyReady tells systemd this process has finished firmware load and
// is ready to serve, for units with Type=notify. It is a no-op (sent
// false, err nil) outside systemd, e.g. under a plain shell or in tests.
func NotifyReady() (sent bool, err error) {
	return daemon.SdNotify(false, daemon.SdNotifyReady)
}

// NotifyWatchdog pings systemd's watchdog, for units with WatchdogSec
// set. Callers running a decode/encode loop should call this on an
// interval shorter than WatchdogSec, e.g. from the same goroutine that
// drives PushEncodedFrame/Decode, to prove the loop is still live.
func NotifyWatchdog() (sent bool, err error) {
	return daemon.SdNotify(false, daemon.SdNotifyWatchdog)
}
