// Package reconcile computes and applies the minimal set of DNS
// mutations needed to match guest state.
package reconcile

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/cidr"
	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/dnsname"
	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/vm"
)

// ActionKind enumerates the per-name reconciliation outcomes.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionUpsert
	ActionDelete
)

// Action is the reconciliation decision for one name.
type Action struct {
	Kind ActionKind
	IP   string // set for ActionUpsert
}

// Decide applies the reconciliation rules, in priority order:
// a guest that is not running is left alone unless deleteStopped is set,
// in which case its records are deleted unconditionally; a running guest
// with no usable address is left alone so a transient agent failure
// never tears down a record; an up-to-date record is a no-op; anything
// else is an upsert. Decide is pure.
func Decide(status vm.Status, current string, hasCurrent bool, desired string, hasDesired bool, deleteStopped bool) Action {
	if status != vm.StatusRunning {
		if deleteStopped {
			return Action{Kind: ActionDelete}
		}
		return Action{Kind: ActionNone}
	}
	if !hasDesired {
		return Action{Kind: ActionNone}
	}
	if hasCurrent && current == desired {
		return Action{Kind: ActionNone}
	}
	return Action{Kind: ActionUpsert, IP: desired}
}

// Result aggregates one run's outcome.
type Result struct {
	Changed int // records upserted or deleted
	Skipped int // no-ops: unchanged, not running, unsanitizable name, no address
	Failed  int // per-guest failures: record query or update submission
}

// OK reports whether the run completed without per-guest failures.
func (r Result) OK() bool { return r.Failed == 0 }

// Reconciler drives one run over the full guest inventory.
type Reconciler struct {
	Log           logr.Logger
	Source        vm.Source
	DNS           dns.Provider
	Range         cidr.Range
	Zone          string
	TTL           int
	DeleteStopped bool
}

// Run processes every guest exactly once, in inventory order. A failure
// on one guest never prevents the others from being reconciled.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	guests, err := r.Source.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing guests: %w", err)
	}

	var res Result
	for _, g := range guests {
		r.reconcileOne(ctx, g, &res)
	}
	r.Log.Info("run complete", "changed", res.Changed, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

func (r *Reconciler) reconcileOne(ctx context.Context, g vm.VM, res *Result) {
	log := r.Log.WithValues("vm", g.Name, "id", g.ID)

	label, err := dnsname.Normalize(g.Name)
	if err != nil {
		log.Info("skipping guest with unsanitizable name")
		res.Skipped++
		return
	}
	fqdn := dnsname.Fqdn(label, r.Zone)
	log = log.WithValues("fqdn", fqdn)

	var desired string
	hasDesired := false
	if g.Status == vm.StatusRunning {
		desired, err = r.selectAddress(ctx, g.ID)
		switch {
		case err != nil:
			log.Info("guest agent query failed, leaving record untouched", "reason", err.Error())
		case desired == "":
			log.V(1).Info("no guest address inside target range", "range", r.Range.String())
		default:
			hasDesired = true
		}
	}

	// The current record only influences the running-with-address case;
	// skip the query otherwise.
	var current string
	hasCurrent := false
	if g.Status == vm.StatusRunning && hasDesired {
		current, hasCurrent, err = r.DNS.QueryA(ctx, fqdn)
		if err != nil {
			// Conflating a failed query with an absent record would force
			// a spurious upsert, so a query failure fails this guest.
			log.Error(err, "querying current record")
			res.Failed++
			return
		}
	}

	action := Decide(g.Status, current, hasCurrent, desired, hasDesired, r.DeleteStopped)
	switch action.Kind {
	case ActionNone:
		log.V(1).Info("nothing to do", "status", g.Status.String())
		res.Skipped++
	case ActionUpsert:
		if err := r.DNS.Submit(ctx, dns.BuildUpsert(fqdn, action.IP, r.TTL)); err != nil {
			log.Error(err, "submitting record update")
			res.Failed++
			return
		}
		log.Info("record updated", "ip", action.IP)
		res.Changed++
	case ActionDelete:
		if err := r.DNS.Submit(ctx, dns.BuildDelete(fqdn)); err != nil {
			log.Error(err, "submitting record deletion")
			res.Failed++
			return
		}
		log.Info("record deleted")
		res.Changed++
	}
}

// selectAddress returns the first agent-reported IPv4 address contained
// in the target range. Selection depends only on agent order and CIDR
// containment. An empty result with nil error means no address matched.
func (r *Reconciler) selectAddress(ctx context.Context, id string) (string, error) {
	addrs, err := r.Source.Interfaces(ctx, id)
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if a.Type != vm.AddrIPv4 {
			continue
		}
		ok, err := r.Range.Contains(a.Value)
		if err != nil {
			// Malformed agent-reported value, not a candidate.
			r.Log.V(1).Info("ignoring malformed guest address", "addr", a.Value)
			continue
		}
		if ok {
			return a.Value, nil
		}
	}
	return "", nil
}
