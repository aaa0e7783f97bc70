package dns

// OpKind distinguishes the operations inside an update transaction.
type OpKind int

const (
	// OpDeleteRRset removes every A-record for a name.
	OpDeleteRRset OpKind = iota
	// OpAdd adds one A-record.
	OpAdd
)

// Op is a single operation inside a transaction.
type Op struct {
	Kind   OpKind
	Record Record
}

// Transaction is an ordered set of update operations for one name,
// applied by the server as a single atomic unit.
type Transaction struct {
	Fqdn string
	Ops  []Op
}

// BuildUpsert renders an upsert as delete-then-add. The ordering makes
// re-application converge on exactly one A-record for the name.
func BuildUpsert(fqdn, ip string, ttl int) Transaction {
	return Transaction{
		Fqdn: fqdn,
		Ops: []Op{
			{Kind: OpDeleteRRset, Record: Record{Fqdn: fqdn, Type: "A"}},
			{Kind: OpAdd, Record: Record{Fqdn: fqdn, Type: "A", Value: ip, TTL: ttl}},
		},
	}
}

// BuildDelete renders the removal of all A-records for a name. Deleting
// a name with no records is a server-side no-op.
func BuildDelete(fqdn string) Transaction {
	return Transaction{
		Fqdn: fqdn,
		Ops:  []Op{{Kind: OpDeleteRRset, Record: Record{Fqdn: fqdn, Type: "A"}}},
	}
}
