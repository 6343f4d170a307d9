// Command node launches the peer-to-peer networking core as a standalone
// process: load configuration, open the chain store, and run the server
// until it exits via its admin KILL instruction or a signal.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/blaesus/ctbc/pkg/chain"
	"github.com/blaesus/ctbc/pkg/config"
	"github.com/blaesus/ctbc/pkg/network"
	"github.com/blaesus/ctbc/pkg/wire/payload"
)

func main() {
	app := cli.NewApp()
	app.Name = "ctbc-node"
	app.Usage = "run a peer-to-peer node"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "path to a YAML config file"},
		cli.StringFlag{Name: "datadir, d", Value: "./data", Usage: "directory for chain storage"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg := config.Default()
	if path := ctx.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("failed to load config: %w", err), 1)
		}
		cfg = loaded
	}

	log, err := zap.NewProduction()
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to initialize logger: %w", err), 1)
	}
	defer log.Sync()

	datadir := ctx.String("datadir")
	if err := os.MkdirAll(datadir, 0755); err != nil {
		return cli.NewExitError(fmt.Errorf("failed to create data directory: %w", err), 1)
	}

	store, err := chain.OpenStore(datadir + "/chain.db")
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to open chain store: %w", err), 1)
	}
	defer store.Close()

	metrics := network.NewMetrics(nil)
	server := network.NewServer(cfg, log, network.SystemClock, store, metrics)

	for _, seed := range cfg.SeedAddresses {
		addr, err := parseSeedAddress(seed, cfg.Services)
		if err != nil {
			log.Warn("ignoring malformed seed address", zap.String("address", seed), zap.Error(err))
			continue
		}
		server.SeedAddress(addr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("received shutdown signal")
		server.Stop()
	}()

	log.Info("starting node", zap.Int("admin_port", cfg.AdminPort))
	return server.Run()
}

func parseSeedAddress(hostPort string, services uint64) (payload.NetAddr, error) {
	host, port, err := splitHostPort(hostPort)
	if err != nil {
		return payload.NetAddr{}, err
	}
	ip := resolveIPv4(host)
	if ip == nil {
		return payload.NetAddr{}, fmt.Errorf("could not resolve %q to an IPv4 address", host)
	}
	var addr payload.NetAddr
	copy(addr.IP[:], ip)
	addr.Port = port
	addr.Services = services
	return addr, nil
}
