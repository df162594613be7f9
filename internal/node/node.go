// Package node wires the chain manager, mempool, validator, fork
// table, checkpoints, and storage together into a runnable process.
package node

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-chain/config"
	"github.com/Klingon-tech/klingnet-chain/internal/chain"
	"github.com/Klingon-tech/klingnet-chain/internal/checkpoints"
	"github.com/Klingon-tech/klingnet-chain/internal/events"
	"github.com/Klingon-tech/klingnet-chain/internal/fork"
	"github.com/Klingon-tech/klingnet-chain/internal/log"
	"github.com/Klingon-tech/klingnet-chain/internal/mempool"
	"github.com/Klingon-tech/klingnet-chain/internal/storage"
	"github.com/Klingon-tech/klingnet-chain/pkg/block"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/bulletproof"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// Node owns the full set of wired components a running klingnetd
// process needs: the chain manager, the transaction pool, storage,
// and the event bus other subsystems observe.
type Node struct {
	cfg     *config.Config
	genesis *config.Genesis

	db    storage.DB
	bus   *events.Bus
	pool  *mempool.Pool
	core  *chain.Core
	fork  *fork.Manager
	ckpts *checkpoints.Table

	signer crypto.Scalar

	log zerolog.Logger
}

// New constructs a Node from configuration: opens storage, builds the
// fork table and checkpoint table from genesis, seeds the genesis
// block onto a fresh in-memory root segment, and wires the chain
// manager and pool together. Blocks stored in the database by earlier
// runs are not loaded back.
func New(cfg *config.Config, genesis *config.Genesis) (*Node, error) {
	db, err := storage.NewBadger(cfg.BlocksDir())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	forkMgr, err := fork.New(genesis.Protocol.Forks.Versions, genesis.Protocol.Forks.Heights)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build fork table: %w", err)
	}

	ckpts, err := loadCheckpoints(cfg, genesis)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load checkpoints: %w", err)
	}

	bus := events.NewBus()

	poolParams := mempool.Params{
		MaxFusionCount: cfg.Pool.MaxFusionCount,
		MaxLiveTime:    time.Duration(cfg.Pool.MaxLiveTimeMinutes) * time.Minute,
		MaxPoolBytes:   cfg.Pool.MaxPoolBytes,
	}
	pool := mempool.New(poolParams)

	root := chain.NewRootSegment(genesis.Protocol.CoinbaseUnlockWindow)
	if _, ok := root.Top(); !ok {
		if err := seedGenesis(root, genesis); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed genesis block: %w", err)
		}
	}

	params := chain.Params{
		CoinbaseUnlockWindow:       genesis.Protocol.CoinbaseUnlockWindow,
		MinMixin:                   genesis.Protocol.Mixin.Min,
		MaxMixin:                   genesis.Protocol.Mixin.Max,
		MedianWindow:               genesis.Protocol.MedianWindow,
		DifficultyWindow:           genesis.Protocol.DifficultyWindow,
		TargetBlockSeconds:         genesis.Protocol.TargetBlockSeconds,
		PowRounds:                  genesis.Protocol.PowRounds,
		CLSAGForkVersion:           genesis.Protocol.CLSAGForkVersion,
		BulletproofForkVersion:     genesis.Protocol.BulletproofForkVersion,
		BulletproofPlusForkVersion: genesis.Protocol.BulletproofPlusForkVersion,
		ReservedCoinbaseBlobSize:   genesis.Protocol.ReservedCoinbaseBlobSize,
		MaxParallelVerifications:   4,
		GeneratorCache:             bulletproof.NewGeneratorCache(),
		MoneySupply:                genesis.Protocol.Emission.MoneySupply,
		EmissionSpeedFactor:        genesis.Protocol.Emission.SpeedFactor,
		LeafPruneDepth:             1000,
	}

	core, err := chain.New(root, forkMgr, ckpts, pool, bus, db, params)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build chain manager: %w", err)
	}

	var signer crypto.Scalar
	if cfg.Checkpoints.SignerKeyFile != "" {
		if signer, err = loadSignerKey(cfg.Checkpoints.SignerKeyFile); err != nil {
			db.Close()
			return nil, fmt.Errorf("load checkpoint signer key: %w", err)
		}
	}

	return &Node{
		cfg:     cfg,
		genesis: genesis,
		db:      db,
		bus:     bus,
		pool:    pool,
		core:    core,
		fork:    forkMgr,
		ckpts:   ckpts,
		signer:  signer,
		log:     log.WithComponent("node"),
	}, nil
}

// seedGenesis pushes the zero-reward genesis block directly onto an
// empty root segment, bypassing chain.Core's validation path (there is
// no parent block to validate it against).
func seedGenesis(root *chain.Segment, genesis *config.Genesis) error {
	base := &tx.Transaction{
		Prefix: tx.Prefix{
			Version: 1,
			Inputs:  []tx.Input{{Base: &tx.BaseInput{BlockIndex: 0}}},
			Extra:   []byte(genesis.ExtraData),
		},
	}
	header := block.Header{MajorVersion: genesis.Protocol.Forks.Versions[0], Timestamp: genesis.Timestamp}
	tmpl, err := block.NewTemplate(header, nil, base, nil)
	if err != nil {
		return err
	}
	return root.PushBlock(tmpl, nil, len(tmpl.Bytes()), 1, 0)
}

func loadCheckpoints(cfg *config.Config, genesis *config.Genesis) (*checkpoints.Table, error) {
	entries := make([]checkpoints.Entry, 0, len(genesis.Protocol.Checkpoints))
	for _, c := range genesis.Protocol.Checkpoints {
		h, err := types.HexToHash(c.Hash)
		if err != nil {
			return nil, fmt.Errorf("genesis checkpoint at height %d: %w", c.Height, err)
		}
		entries = append(entries, checkpoints.Entry{Height: c.Height, Hash: h})
	}

	if cfg.Checkpoints.ManifestFile == "" {
		return checkpoints.New(entries), nil
	}

	data, err := os.ReadFile(cfg.Checkpoints.ManifestFile)
	if os.IsNotExist(err) {
		return checkpoints.New(entries), nil
	}
	if err != nil {
		return nil, err
	}
	var manifest checkpoints.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing checkpoint manifest: %w", err)
	}
	if genesis.Protocol.CheckpointSigner == "" {
		return nil, fmt.Errorf("checkpoint manifest configured but genesis has no checkpoint_signer")
	}
	signerBytes, err := hex.DecodeString(genesis.Protocol.CheckpointSigner)
	if err != nil {
		return nil, fmt.Errorf("genesis checkpoint_signer is not valid hex: %w", err)
	}
	signer, err := crypto.NewPoint(signerBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint signer key: %w", err)
	}
	table, err := checkpoints.Verify(manifest, signer)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !table.CheckBlock(e.Height, e.Hash) {
			return nil, fmt.Errorf("genesis checkpoint at height %d conflicts with signed manifest", e.Height)
		}
	}
	return table, nil
}

// SubmitTransaction validates and admits a transaction into the pool
// at the height one above the active tip.
func (n *Node) SubmitTransaction(ctx context.Context, t *tx.Transaction) (uint64, error) {
	v := n.core.ActiveValidator()
	return n.pool.Add(ctx, t, v, n.core.ActiveHeight()+1, uint64(time.Now().Unix()))
}

// SubmitBlock hands a freshly produced block to the chain manager.
func (n *Node) SubmitBlock(raw []byte) (chain.AddResult, error) {
	return n.core.SubmitBlock(raw)
}

// AddBlock hands a peer- or import-sourced block to the chain manager.
func (n *Node) AddBlock(raw []byte) (chain.AddResult, error) {
	return n.core.AddBlock(raw)
}

// Height returns the active chain's tip height.
func (n *Node) Height() uint64 {
	return n.core.ActiveHeight()
}

// Pool exposes the transaction pool for RPC-style inspection.
func (n *Node) Pool() *mempool.Pool {
	return n.pool
}

// Core exposes the chain manager for import/export tooling.
func (n *Node) Core() *chain.Core {
	return n.core
}

// Close releases the underlying storage handle.
func (n *Node) Close() error {
	return n.db.Close()
}
