package dns

import "context"

// Record represents a single managed A-record.
type Record struct {
	Fqdn  string // fully qualified, trailing-dot-terminated
	Type  string // record type, "A"
	Value string // IPv4 address
	TTL   int
}

// Provider is the boundary to an authoritative DNS server: a short-timeout
// record reader plus an atomic dynamic-update transport.
type Provider interface {
	// QueryA returns the current A-record value for fqdn. found is false
	// when the server answers that no such record exists. A transport
	// failure is returned as an error so callers can tell "query failed"
	// apart from "record absent".
	QueryA(ctx context.Context, fqdn string) (ip string, found bool, err error)

	// Submit applies the transaction as one all-or-nothing update. On
	// error the server has either applied nothing or reported failure for
	// the whole transaction.
	Submit(ctx context.Context, tx Transaction) error
}
