// Klingnet full node daemon.
//
// Usage:
//
//	klingnetd [--network=testnet] [--mine]
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/klingnet-chain/config"
	"github.com/Klingon-tech/klingnet-chain/internal/log"
	"github.com/Klingon-tech/klingnet-chain/internal/node"
)

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "klingnetd: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "klingnetd: init logging: %v\n", err)
		os.Exit(1)
	}

	genesis := config.GenesisFor(cfg.Network)
	if err := genesis.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid genesis configuration")
	}

	n, err := node.New(cfg, genesis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start node")
	}
	defer n.Close()

	log.Info().
		Str("network", string(cfg.Network)).
		Str("chain_id", genesis.ChainID).
		Uint64("height", n.Height()).
		Msg("klingnetd started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("klingnetd shutting down")
}
