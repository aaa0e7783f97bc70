// Package libvirtvm implements vm.Source against a local libvirt daemon
// using the guest agent as the address source.
package libvirtvm

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/vm"
)

// DefaultSocket is the stock libvirtd system socket path.
const DefaultSocket = "/var/run/libvirt/libvirt-sock"

// Source talks to one libvirt daemon. It is not safe for concurrent use;
// the reconciler drives it from a single goroutine.
type Source struct {
	l   *libvirt.Libvirt
	log logr.Logger

	mu      sync.Mutex
	domains map[string]libvirt.Domain // populated by List, keyed by UUID string
}

// Dial connects to the libvirt daemon over its local unix socket.
func Dial(log logr.Logger, socket string, timeout time.Duration) (*Source, error) {
	if socket == "" {
		socket = DefaultSocket
	}
	c, err := net.DialTimeout("unix", socket, timeout)
	if err != nil {
		return nil, fmt.Errorf("libvirtvm: dial %s: %w", socket, err)
	}
	l := libvirt.New(c)
	if err := l.Connect(); err != nil {
		c.Close()
		return nil, fmt.Errorf("libvirtvm: connect: %w", err)
	}
	return &Source{l: l, log: log, domains: make(map[string]libvirt.Domain)}, nil
}

// Close disconnects from the daemon.
func (s *Source) Close() error {
	return s.l.Disconnect()
}

// List snapshots all defined domains, active and inactive.
func (s *Source) List(_ context.Context) ([]vm.VM, error) {
	domains, _, err := s.l.ConnectListAllDomains(1,
		libvirt.ConnectListDomainsActive|libvirt.ConnectListDomainsInactive)
	if err != nil {
		return nil, fmt.Errorf("libvirtvm: list domains: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains = make(map[string]libvirt.Domain, len(domains))

	out := make([]vm.VM, 0, len(domains))
	for _, d := range domains {
		state, _, err := s.l.DomainGetState(d, 0)
		if err != nil {
			return nil, fmt.Errorf("libvirtvm: state of %s: %w", d.Name, err)
		}
		id := formatUUID(d.UUID)
		s.domains[id] = d
		out = append(out, vm.VM{
			ID:     id,
			Name:   d.Name,
			Status: mapState(libvirt.DomainState(state)),
		})
	}
	return out, nil
}

// Interfaces queries the guest agent for the domain's addresses. It must
// be called after List in the same run.
func (s *Source) Interfaces(_ context.Context, id string) ([]vm.Addr, error) {
	s.mu.Lock()
	d, ok := s.domains[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("libvirtvm: unknown domain %s", id)
	}

	ifaces, err := s.l.DomainInterfaceAddresses(d,
		uint32(libvirt.DomainInterfaceAddressesSrcAgent), 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", vm.ErrAgentUnreachable, d.Name, err)
	}

	var addrs []vm.Addr
	for _, iface := range ifaces {
		for _, a := range iface.Addrs {
			addrs = append(addrs, vm.Addr{Type: mapAddrType(libvirt.IPAddrType(a.Type)), Value: a.Addr})
		}
	}
	s.log.V(1).Info("guest agent reported addresses", "domain", d.Name, "count", len(addrs))
	return addrs, nil
}

func mapState(state libvirt.DomainState) vm.Status {
	switch state {
	case libvirt.DomainRunning:
		return vm.StatusRunning
	case libvirt.DomainShutoff:
		return vm.StatusStopped
	default:
		return vm.StatusOther
	}
}

func mapAddrType(t libvirt.IPAddrType) vm.AddrType {
	switch t {
	case libvirt.IPAddrTypeIpv4:
		return vm.AddrIPv4
	case libvirt.IPAddrTypeIpv6:
		return vm.AddrIPv6
	default:
		return vm.AddrOther
	}
}

func formatUUID(u libvirt.UUID) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", u[0:4], u[4:6], u[6:8], u[8:10], u[10:16])
}
