// Package rfc2136 implements the dns.Provider interface with RFC 2136
// dynamic updates authenticated by TSIG.
package rfc2136

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	mdns "github.com/miekg/dns"

	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/keyfile"
)

func init() {
	dns.Register("rfc2136", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

const defaultTimeout = 5 * time.Second

// Provider speaks to one authoritative server for one zone.
type Provider struct {
	server    string // host:port
	zone      string // trailing-dot-terminated
	keyName   string // trailing-dot-terminated
	algorithm string
	client    *mdns.Client
	log       logr.Logger
}

// New creates an RFC 2136 provider from the given settings map.
// Required settings: server, zone, and either key_file or
// key_name + key_secret.
// Optional settings: port (default 53), key_algorithm (default
// hmac-sha256), timeout in seconds (default 5), use_tcp (default false).
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	server := settings["server"]
	if server == "" {
		return nil, fmt.Errorf("rfc2136: missing required setting 'server'")
	}
	zone := settings["zone"]
	if zone == "" {
		return nil, fmt.Errorf("rfc2136: missing required setting 'zone'")
	}

	port := settings["port"]
	if port == "" {
		port = "53"
	}

	var key keyfile.Key
	if path := settings["key_file"]; path != "" {
		loaded, err := keyfile.Load(path)
		if err != nil {
			return nil, fmt.Errorf("rfc2136: %w", err)
		}
		key = loaded
	} else {
		key = keyfile.Key{
			Name:      settings["key_name"],
			Algorithm: settings["key_algorithm"],
			Secret:    settings["key_secret"],
		}
	}
	if key.Name == "" || key.Secret == "" {
		return nil, fmt.Errorf("rfc2136: missing TSIG credential (key_file or key_name/key_secret)")
	}
	algorithm, err := tsigAlgorithm(key.Algorithm)
	if err != nil {
		return nil, err
	}

	timeout := defaultTimeout
	if v := settings["timeout"]; v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("rfc2136: invalid timeout %q", v)
		}
		timeout = time.Duration(secs) * time.Second
	}

	proto := "udp"
	if settings["use_tcp"] == "true" {
		proto = "tcp"
	}

	keyName := mdns.Fqdn(key.Name)
	client := &mdns.Client{
		Net:        proto,
		Timeout:    timeout,
		TsigSecret: map[string]string{keyName: key.Secret},
	}

	return &Provider{
		server:    net.JoinHostPort(server, port),
		zone:      mdns.Fqdn(zone),
		keyName:   keyName,
		algorithm: algorithm,
		client:    client,
		log:       log,
	}, nil
}

func tsigAlgorithm(name string) (string, error) {
	if name == "" {
		name = keyfile.DefaultAlgorithm
	}
	switch strings.ToLower(strings.TrimSuffix(name, ".")) {
	case "hmac-sha1":
		return mdns.HmacSHA1, nil
	case "hmac-sha224":
		return mdns.HmacSHA224, nil
	case "hmac-sha256":
		return mdns.HmacSHA256, nil
	case "hmac-sha384":
		return mdns.HmacSHA384, nil
	case "hmac-sha512":
		return mdns.HmacSHA512, nil
	default:
		return "", fmt.Errorf("rfc2136: unsupported TSIG algorithm %q", name)
	}
}

// QueryA asks the authoritative server for fqdn's A-record. A server
// answer of NXDOMAIN or an empty answer section reports found=false; a
// transport failure is returned as an error.
func (p *Provider) QueryA(ctx context.Context, fqdn string) (string, bool, error) {
	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(fqdn), mdns.TypeA)

	r, err := p.exchange(ctx, m)
	if err != nil {
		return "", false, fmt.Errorf("rfc2136: query %s: %w", fqdn, err)
	}
	switch r.Rcode {
	case mdns.RcodeSuccess:
	case mdns.RcodeNameError:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("rfc2136: query %s: server returned %s", fqdn, mdns.RcodeToString[r.Rcode])
	}
	for _, rr := range r.Answer {
		if a, ok := rr.(*mdns.A); ok {
			return a.A.String(), true, nil
		}
	}
	return "", false, nil
}

// Submit signs and sends the transaction as one dynamic update message.
func (p *Provider) Submit(ctx context.Context, tx dns.Transaction) error {
	m, err := p.updateMsg(tx)
	if err != nil {
		return err
	}
	m.SetTsig(p.keyName, p.algorithm, 300, time.Now().Unix())

	r, err := p.exchange(ctx, m)
	if err != nil {
		return fmt.Errorf("rfc2136: update %s: %w", tx.Fqdn, err)
	}
	if r.Rcode != mdns.RcodeSuccess {
		return fmt.Errorf("rfc2136: update %s: server returned %s", tx.Fqdn, mdns.RcodeToString[r.Rcode])
	}
	p.log.V(1).Info("update accepted", "fqdn", tx.Fqdn, "ops", len(tx.Ops))
	return nil
}

// updateMsg renders the transaction into a single unsigned update message,
// preserving operation order.
func (p *Provider) updateMsg(tx dns.Transaction) (*mdns.Msg, error) {
	m := new(mdns.Msg)
	m.SetUpdate(p.zone)
	for _, op := range tx.Ops {
		switch op.Kind {
		case dns.OpDeleteRRset:
			m.RemoveRRset([]mdns.RR{&mdns.ANY{Hdr: mdns.RR_Header{
				Name:   mdns.Fqdn(op.Record.Fqdn),
				Rrtype: mdns.TypeA,
			}}})
		case dns.OpAdd:
			ip := net.ParseIP(op.Record.Value)
			if ip == nil || ip.To4() == nil {
				return nil, fmt.Errorf("rfc2136: update %s: %q is not an IPv4 address", tx.Fqdn, op.Record.Value)
			}
			m.Insert([]mdns.RR{&mdns.A{
				Hdr: mdns.RR_Header{
					Name:   mdns.Fqdn(op.Record.Fqdn),
					Rrtype: mdns.TypeA,
					Class:  mdns.ClassINET,
					Ttl:    uint32(op.Record.TTL),
				},
				A: ip.To4(),
			}})
		default:
			return nil, fmt.Errorf("rfc2136: update %s: unknown op kind %d", tx.Fqdn, op.Kind)
		}
	}
	return m, nil
}

// exchange sends the message, retrying once on a transport error. The
// retry budget stays at the transport layer; callers see one error.
func (p *Provider) exchange(ctx context.Context, m *mdns.Msg) (*mdns.Msg, error) {
	r, _, err := p.client.ExchangeContext(ctx, m, p.server)
	if err != nil && ctx.Err() == nil {
		p.log.V(1).Info("retrying exchange after transport error", "server", p.server, "reason", err.Error())
		r, _, err = p.client.ExchangeContext(ctx, m, p.server)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}
