// Package vm defines the guest inventory model and the interface to a
// guest source such as libvirt.
package vm

import (
	"context"
	"errors"
)

// Status classifies a guest for reconciliation purposes.
type Status int

const (
	// StatusOther covers paused, blocked, crashed and transitional states.
	StatusOther Status = iota
	// StatusRunning means the guest is up and its agent may be queried.
	StatusRunning
	// StatusStopped means the guest is shut off.
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	default:
		return "other"
	}
}

// VM is one inventory entry. Entries are a snapshot valid for a single
// run; nothing here is persisted.
type VM struct {
	ID     string // opaque identifier, stable across runs
	Name   string // raw display name, not yet a DNS label
	Status Status
}

// AddrType tags the address family of a guest-reported address.
type AddrType int

const (
	AddrIPv4 AddrType = iota
	AddrIPv6
	AddrOther
)

// Addr is a single guest-agent-reported interface address.
type Addr struct {
	Type  AddrType
	Value string
}

// ErrAgentUnreachable marks interface queries that failed because the
// guest agent did not answer.
var ErrAgentUnreachable = errors.New("vm: guest agent unreachable")

// Source enumerates guests and their agent-reported addresses.
type Source interface {
	// List returns a consistent snapshot of all defined guests.
	List(ctx context.Context) ([]VM, error)
	// Interfaces returns the addresses the guest agent reports for the
	// given VM, preserving the agent's ordering. Errors wrap
	// ErrAgentUnreachable when the agent did not answer. Only called for
	// running guests.
	Interfaces(ctx context.Context, id string) ([]Addr, error)
}
