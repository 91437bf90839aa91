// Package network brings the wireless link up and tells the rest of the
// program whether it is usable.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrTimeout means the link did not come up within the association bound.
var ErrTimeout = errors.New("network: association timed out")

// Link reports whether the network is usable.
type Link interface {
	Connected() bool
}

// Interface is a Linux network interface, optionally joined to a WPA network
// through NetworkManager.
type Interface struct {
	name     string
	ssid     string
	password string
	log      *slog.Logger

	addrs func() ([]net.Addr, error)
	run   func(ctx context.Context, name string, args ...string) error
}

// NewInterface watches the interface called name. With an empty ssid Join
// leaves association to the system.
func NewInterface(name, ssid, password string, log *slog.Logger) *Interface {
	if log == nil {
		log = slog.Default()
	}
	i := &Interface{name: name, ssid: ssid, password: password, log: log}
	i.addrs = i.interfaceAddrs
	i.run = func(ctx context.Context, name string, args ...string) error {
		out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s: %w: %s", name, err, out)
		}
		return nil
	}
	return i
}

func (i *Interface) String() string { return i.name }

// Join asks NetworkManager to associate with the configured network. It
// returns as soon as the request is issued; use WaitConnected for the
// outcome.
func (i *Interface) Join(ctx context.Context) error {
	if i.ssid == "" {
		return nil
	}
	if i.password == "" {
		i.log.Info("joining open network", slog.String("ssid", i.ssid), slog.String("iface", i.name))
	} else {
		i.log.Info("joining WPA network", slog.String("ssid", i.ssid), slog.String("iface", i.name), slog.Int("passlen", len(i.password)))
	}
	args := []string{"--wait", "0", "device", "wifi", "connect", i.ssid, "ifname", i.name}
	if i.password != "" {
		args = append(args, "password", i.password)
	}
	if err := i.run(ctx, "nmcli", args...); err != nil {
		return fmt.Errorf("join %s: %w", i.ssid, err)
	}
	return nil
}

// Connected reports whether the interface holds a routable IPv4 address.
func (i *Interface) Connected() bool {
	addrs, err := i.addrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipn.IP.To4(); ip4 != nil && !ip4.IsLoopback() && !ip4.IsLinkLocalUnicast() {
			return true
		}
	}
	return false
}

func (i *Interface) interfaceAddrs() ([]net.Addr, error) {
	ifi, err := net.InterfaceByName(i.name)
	if err != nil {
		return nil, err
	}
	if ifi.Flags&net.FlagUp == 0 {
		return nil, nil
	}
	return ifi.Addrs()
}

// WaitConnected polls link every interval until it reports connected, the
// timeout elapses or ctx ends.
func WaitConnected(ctx context.Context, link Link, clock clockwork.Clock, timeout, interval time.Duration) error {
	if link.Connected() {
		return nil
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	deadline := clock.NewTimer(timeout)
	defer deadline.Stop()
	tick := clock.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.Chan():
			if link.Connected() {
				return nil
			}
			return fmt.Errorf("%w after %v", ErrTimeout, timeout)
		case <-tick.Chan():
			if link.Connected() {
				return nil
			}
		}
	}
}
