package libvirtvm

import (
	"testing"

	"github.com/digitalocean/go-libvirt"

	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/vm"
)

func TestMapState(t *testing.T) {
	tests := []struct {
		state libvirt.DomainState
		want  vm.Status
	}{
		{libvirt.DomainRunning, vm.StatusRunning},
		{libvirt.DomainShutoff, vm.StatusStopped},
		{libvirt.DomainPaused, vm.StatusOther},
		{libvirt.DomainCrashed, vm.StatusOther},
		{libvirt.DomainNostate, vm.StatusOther},
	}
	for _, tt := range tests {
		if got := mapState(tt.state); got != tt.want {
			t.Errorf("mapState(%d) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestMapAddrType(t *testing.T) {
	if got := mapAddrType(libvirt.IPAddrTypeIpv4); got != vm.AddrIPv4 {
		t.Errorf("ipv4 mapped to %v", got)
	}
	if got := mapAddrType(libvirt.IPAddrTypeIpv6); got != vm.AddrIPv6 {
		t.Errorf("ipv6 mapped to %v", got)
	}
}

func TestFormatUUID(t *testing.T) {
	u := libvirt.UUID{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0,
		0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
	want := "12345678-9abc-def0-1122-334455667788"
	if got := formatUUID(u); got != want {
		t.Errorf("formatUUID = %q, want %q", got, want)
	}
}
