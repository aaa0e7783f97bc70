package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/cidr"
	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/config"
	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/dns"
	_ "github.com/yuriy-kovalchuk/yk-virt-dns/internal/dns/rfc2136"
	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/keyfile"
	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/reconcile"
	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/runlock"
	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/vm/libvirtvm"
)

var Version = "dev"

const libvirtDialTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	overrides := config.Default()

	cmd := &cobra.Command{
		Use:   "yk-virt-dns",
		Short: "Reconcile libvirt guest addresses into DNS A-records",
		Long: "yk-virt-dns reconciles libvirt guest names and their agent-reported\n" +
			"IPv4 addresses against authoritative DNS A-records using RFC 2136\n" +
			"dynamic updates authenticated with TSIG. One invocation performs one\n" +
			"reconciliation run; scheduling is left to cron or a systemd timer.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			applyOverrides(cmd, cfg, overrides)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")
	f.StringVar(&overrides.Server, "server", overrides.Server, "target DNS server")
	f.IntVar(&overrides.Port, "port", overrides.Port, "target DNS port")
	f.StringVar(&overrides.Zone, "zone", overrides.Zone, "managed zone name")
	f.StringVar(&overrides.KeyName, "key-name", overrides.KeyName, "TSIG key name")
	f.StringVar(&overrides.KeySecret, "key-secret", overrides.KeySecret, "base64-encoded TSIG secret")
	f.StringVar(&overrides.KeyAlgorithm, "key-algorithm", overrides.KeyAlgorithm, "TSIG algorithm")
	f.StringVar(&overrides.CIDR, "cidr", overrides.CIDR, "target address range for guest addresses")
	f.IntVar(&overrides.TTL, "ttl", overrides.TTL, "record TTL in seconds")
	f.IntVar(&overrides.Timeout, "timeout", overrides.Timeout, "DNS exchange timeout in seconds")
	f.BoolVar(&overrides.UseTCP, "tcp", overrides.UseTCP, "use TCP for DNS exchanges")
	f.BoolVarP(&overrides.DryRun, "dry-run", "n", overrides.DryRun, "log intended updates without applying them")
	f.BoolVar(&overrides.DeleteStopped, "delete-stopped", overrides.DeleteStopped, "delete records of stopped guests")
	f.IntVarP(&overrides.Verbosity, "verbosity", "v", overrides.Verbosity, "log verbosity level")
	f.StringVar(&overrides.LibvirtSocket, "libvirt-socket", overrides.LibvirtSocket, "libvirt daemon socket path")
	f.StringVar(&overrides.LockFile, "lock-file", overrides.LockFile, "cross-run exclusivity lock file")

	return cmd
}

// applyOverrides copies every flag the user set on the command line over
// the file-loaded config.
func applyOverrides(cmd *cobra.Command, cfg, overrides *config.Config) {
	set := map[string]func(){
		"server":         func() { cfg.Server = overrides.Server },
		"port":           func() { cfg.Port = overrides.Port },
		"zone":           func() { cfg.Zone = overrides.Zone },
		"key-name":       func() { cfg.KeyName = overrides.KeyName },
		"key-secret":     func() { cfg.KeySecret = overrides.KeySecret },
		"key-algorithm":  func() { cfg.KeyAlgorithm = overrides.KeyAlgorithm },
		"cidr":           func() { cfg.CIDR = overrides.CIDR },
		"ttl":            func() { cfg.TTL = overrides.TTL },
		"timeout":        func() { cfg.Timeout = overrides.Timeout },
		"tcp":            func() { cfg.UseTCP = overrides.UseTCP },
		"dry-run":        func() { cfg.DryRun = overrides.DryRun },
		"delete-stopped": func() { cfg.DeleteStopped = overrides.DeleteStopped },
		"verbosity":      func() { cfg.Verbosity = overrides.Verbosity },
		"libvirt-socket": func() { cfg.LibvirtSocket = overrides.LibvirtSocket },
		"lock-file":      func() { cfg.LockFile = overrides.LockFile },
	}
	for name, apply := range set {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg.Verbosity)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	log.Info("starting yk-virt-dns", "version", Version, "zone", cfg.Zone,
		"cidr", cfg.CIDR, "dry_run", cfg.DryRun)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// At most one run at a time; a concurrent invocation fails fast
	// instead of queueing behind this one.
	release, err := runlock.Acquire(cfg.LockFile)
	if err != nil {
		return err
	}
	defer release()

	keyPath, cleanup, err := keyfile.Write(keyfile.Key{
		Name:      cfg.KeyName,
		Algorithm: cfg.KeyAlgorithm,
		Secret:    cfg.KeySecret,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	targetRange, err := cidr.Parse(cfg.CIDR)
	if err != nil {
		return err
	}

	source, err := libvirtvm.Dial(log.WithName("libvirt"), cfg.LibvirtSocket, libvirtDialTimeout)
	if err != nil {
		return err
	}
	defer source.Close()

	provider, err := dns.New("rfc2136", log.WithName("rfc2136"), map[string]string{
		"server":   cfg.Server,
		"port":     strconv.Itoa(cfg.Port),
		"zone":     cfg.Zone,
		"key_file": keyPath,
		"timeout":  strconv.Itoa(cfg.Timeout),
		"use_tcp":  strconv.FormatBool(cfg.UseTCP),
	})
	if err != nil {
		return err
	}
	if cfg.DryRun {
		provider = dns.DryRun(log.WithName("dry-run"), provider)
	}

	rec := &reconcile.Reconciler{
		Log:           log.WithName("reconcile"),
		Source:        source,
		DNS:           provider,
		Range:         targetRange,
		Zone:          cfg.Zone,
		TTL:           cfg.TTL,
		DeleteStopped: cfg.DeleteStopped,
	}
	res, err := rec.Run(ctx)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("run finished with %d failed guest(s) (changed=%d skipped=%d)",
			res.Failed, res.Changed, res.Skipped)
	}
	return nil
}

func newLogger(verbosity int) (logr.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// logr V-levels map to negative zap levels.
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))

	zl, err := zcfg.Build()
	if err != nil {
		return logr.Logger{}, err
	}
	return zapr.NewLogger(zl), nil
}
