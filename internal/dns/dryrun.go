package dns

import (
	"context"

	"github.com/go-logr/logr"
)

// DryRun wraps a Provider so that reads pass through but submissions are
// logged and reported as successful without touching the server.
func DryRun(log logr.Logger, inner Provider) Provider {
	return &dryRun{log: log, inner: inner}
}

type dryRun struct {
	log   logr.Logger
	inner Provider
}

func (d *dryRun) QueryA(ctx context.Context, fqdn string) (string, bool, error) {
	return d.inner.QueryA(ctx, fqdn)
}

func (d *dryRun) Submit(_ context.Context, tx Transaction) error {
	for _, op := range tx.Ops {
		switch op.Kind {
		case OpDeleteRRset:
			d.log.Info("would delete A-records", "fqdn", op.Record.Fqdn)
		case OpAdd:
			d.log.Info("would add A-record", "fqdn", op.Record.Fqdn, "ip", op.Record.Value, "ttl", op.Record.TTL)
		}
	}
	return nil
}
