package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tunping"
	"tunping/config"
	"tunping/logging"
)

// Version is set at build time
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "tunping",
		Short: "Answer ICMP echo requests on a virtual interface",
		Long: `tunping opens a TUN (or TAP) device and answers every ICMP echo
request it sees with an echo reply, without involving the kernel's
ICMP stack.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
}

func runCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the interface and serve echo replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("interface") {
				cfg.Interface.Name = overrides.Interface.Name
			}
			if flags.Changed("mode") {
				cfg.Interface.Mode = overrides.Interface.Mode
			}
			if flags.Changed("address") {
				cfg.Interface.Address = overrides.Interface.Address
			}
			if flags.Changed("mac") {
				cfg.Interface.MAC = overrides.Interface.MAC
			}
			if flags.Changed("cidr") {
				cfg.Interface.CIDR = overrides.Interface.CIDR
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = overrides.Log.Level
			}
			if flags.Changed("log-format") {
				cfg.Log.Format = overrides.Log.Format
			}
			if flags.Changed("metrics-address") {
				cfg.Metrics.Address = overrides.Metrics.Address
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
				return err
			}

			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVarP(&overrides.Interface.Name, "interface", "i", "tun0", "Name of the virtual interface")
	flags.StringVar(&overrides.Interface.Mode, "mode", config.ModeTun, "Interface mode: tun or tap")
	flags.StringVar(&overrides.Interface.Address, "address", "", "IPv4 address to answer ARP for (tap mode)")
	flags.StringVar(&overrides.Interface.MAC, "mac", "", "MAC address to answer ARP with (tap mode)")
	flags.StringVar(&overrides.Interface.CIDR, "cidr", "", "Address to assign to the kernel side of the device, e.g. 10.0.0.1/24")
	flags.StringVar(&overrides.Log.Level, "log-level", "info", "Log level: trace, debug, info, warn, error")
	flags.StringVar(&overrides.Log.Format, "log-format", "text", "Log format: text or json")
	flags.StringVar(&overrides.Metrics.Address, "metrics-address", "", "Serve Prometheus metrics on this address")

	return cmd
}

func run(cfg *config.Config) error {
	ifce, err := tunping.OpenInterface(cfg.Interface)
	if err != nil {
		return err
	}
	defer ifce.Close()

	reg := prometheus.NewRegistry()
	metrics := tunping.NewMetricsWithRegistry(reg)

	opts := []tunping.ResponderOption{
		tunping.WithName(ifce.Name()),
		tunping.WithMetrics(metrics),
	}
	if cfg.Interface.Mode == config.ModeTap {
		// validated in config
		mac, _ := cfg.Interface.HardwareAddr()
		opts = append(opts, tunping.WithLink(tunping.LinkTap{
			Arp: tunping.NewCapabilityArp(cfg.Interface.IP(), mac),
		}))
	}

	if cfg.Metrics.Address != "" {
		srv := tunping.ServeMetrics(cfg.Metrics.Address, reg)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
			tunping.AllSettled()
		}()
	}

	responder := tunping.NewResponder(ifce, opts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- responder.Serve()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		log.WithError(err).WithField("ifce", ifce.Name()).Error("responder stopped")
		return err
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
		return nil
	}
}
