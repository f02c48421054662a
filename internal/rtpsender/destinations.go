package rtpsender

import (
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/arung-agamani/disorder/internal/config"
)

// Destinations tracks where outgoing RTP packets are addressed,
// covering all four modes of spec.md §4.E "Destinations": a single
// configured broadcast/multicast/unicast address, or (in request mode)
// a dynamic set of unicast addresses registered and released by the
// rtp-request/rtp-cancel protocol commands.
type Destinations struct {
	mode   config.RTPMode
	static *net.UDPAddr

	mu      sync.RWMutex
	dynamic map[string]*net.UDPAddr // keyed by connection tag
}

// NewDestinations builds the destination set for mode, resolving a
// static address for broadcast/multicast/unicast from broadcast (a
// host:port string, spec.md §6 "broadcast"); request mode ignores
// broadcast and starts with an empty dynamic set.
func NewDestinations(mode config.RTPMode, broadcast string) (*Destinations, error) {
	static, err := resolveStaticDest(mode, broadcast)
	if err != nil {
		return nil, err
	}
	return &Destinations{mode: mode, static: static, dynamic: make(map[string]*net.UDPAddr)}, nil
}

// Targets returns the current set of addresses a packet should be sent
// to. For broadcast/multicast/unicast it is always the one configured
// address; for request mode it is whatever rtp-request has registered.
func (d *Destinations) Targets() []*net.UDPAddr {
	if d.mode != config.RTPRequest {
		if d.static == nil {
			return nil
		}
		return []*net.UDPAddr{d.static}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*net.UDPAddr, 0, len(d.dynamic))
	for _, a := range d.dynamic {
		out = append(out, a)
	}
	return out
}

// Register implements rtp-request: connTag registers addr as a unicast
// destination, replacing any address it previously registered. Returns
// an error outside request mode, since the destination set is fixed.
func (d *Destinations) Register(connTag string, addr *net.UDPAddr) error {
	if d.mode != config.RTPRequest {
		return fmt.Errorf("rtp-request is only valid in request mode")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dynamic[connTag] = addr
	return nil
}

// Unregister implements rtp-cancel, and is also called when the
// registering connection closes (spec.md §4.D "the destination is
// implicitly removed when the connection closes").
func (d *Destinations) Unregister(connTag string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.dynamic, connTag)
}

// ReportAddress implements rtp-address: the static destination's
// host/port, or "- -" in request mode (spec.md §4.D).
func (d *Destinations) ReportAddress() (host, port string) {
	if d.mode == config.RTPRequest || d.static == nil {
		return "-", "-"
	}
	return d.static.IP.String(), fmt.Sprintf("%d", d.static.Port)
}

// configureSocket applies the sockopts spec.md §4.E calls for: TTL and
// loopback on multicast sockets, SO_BROADCAST for broadcast, and an
// enlarged SO_SNDBUF (128 KiB) in all cases. There is no third-party
// socket-option library anywhere in the corpus (every UDP user in the
// pack sticks to plain net.ListenUDP/net.DialUDP); this is the one
// place low-level sockopts are unavoidable, so it goes through stdlib
// syscall against the conn's raw fd.
func configureSocket(conn *net.UDPConn, mode config.RTPMode, ttl int, loop bool) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("raw conn: %w", err)
	}

	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_SNDBUF, 128<<10); err != nil {
			sockErr = fmt.Errorf("SO_SNDBUF: %w", err)
			return
		}
		switch mode {
		case config.RTPMulticast:
			if ttl > 0 {
				if err := syscall.SetsockoptInt(int(fd), syscall.IPPROTO_IP, syscall.IP_MULTICAST_TTL, ttl); err != nil {
					sockErr = fmt.Errorf("IP_MULTICAST_TTL: %w", err)
					return
				}
			}
			loopVal := 0
			if loop {
				loopVal = 1
			}
			if err := syscall.SetsockoptInt(int(fd), syscall.IPPROTO_IP, syscall.IP_MULTICAST_LOOP, loopVal); err != nil {
				sockErr = fmt.Errorf("IP_MULTICAST_LOOP: %w", err)
				return
			}
		case config.RTPBroadcast:
			if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1); err != nil {
				sockErr = fmt.Errorf("SO_BROADCAST: %w", err)
				return
			}
		}
	})
	if ctrlErr != nil {
		return fmt.Errorf("control raw conn: %w", ctrlErr)
	}
	return sockErr
}

// resolveStaticDest resolves the configured destination for
// broadcast/multicast/unicast modes. Request mode has no static
// destination and returns (nil, nil).
func resolveStaticDest(mode config.RTPMode, broadcast string) (*net.UDPAddr, error) {
	if mode == config.RTPRequest {
		return nil, nil
	}
	if broadcast == "" {
		return nil, fmt.Errorf("rtp mode %q requires a destination address", mode)
	}
	addr, err := net.ResolveUDPAddr("udp", broadcast)
	if err != nil {
		return nil, fmt.Errorf("resolve rtp destination %q: %w", broadcast, err)
	}
	return addr, nil
}
