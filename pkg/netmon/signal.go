package netmon

import (
	"context"
	"net"
	"sync/atomic"
)

// Signal reports whether the host has any network path at all.
type Signal interface {
	Online(ctx context.Context) bool
}

// InterfaceSignal is online when an up, non-loopback interface has an address.
type InterfaceSignal struct{}

func (InterfaceSignal) Online(ctx context.Context) bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}

// StaticSignal is a switchable signal for tests and forced modes.
type StaticSignal struct {
	online atomic.Bool
}

func NewStaticSignal(online bool) *StaticSignal {
	s := &StaticSignal{}
	s.online.Store(online)
	return s
}

func (s *StaticSignal) Set(online bool) {
	s.online.Store(online)
}

func (s *StaticSignal) Online(context.Context) bool {
	return s.online.Load()
}
