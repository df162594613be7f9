package node

import (
	"context"
	"os"
	"testing"

	"github.com/Klingon-tech/klingnet-chain/config"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	dir, err := os.MkdirTemp("", "klingnet-node-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfg := config.DefaultTestnet()
	cfg.DataDir = dir
	genesis := config.TestnetGenesis()

	n, err := New(cfg, genesis)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { n.Close() })
	return n
}

func TestNewSeedsGenesisBlock(t *testing.T) {
	n := newTestNode(t)
	if n.Height() != 0 {
		t.Fatalf("expected genesis height 0, got %d", n.Height())
	}
}

func TestNewIsIdempotentAcrossReopen(t *testing.T) {
	dir, err := os.MkdirTemp("", "klingnet-node-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cfg := config.DefaultTestnet()
	cfg.DataDir = dir
	genesis := config.TestnetGenesis()

	n1, err := New(cfg, genesis)
	if err != nil {
		t.Fatal(err)
	}
	n1.Close()

	n2, err := New(cfg, genesis)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer n2.Close()
	if n2.Height() != 0 {
		t.Fatalf("expected genesis height 0 after reopen, got %d", n2.Height())
	}
}

func TestSubmitTransactionRejectsEmptyInputs(t *testing.T) {
	n := newTestNode(t)
	empty := &tx.Transaction{Prefix: tx.Prefix{Version: 1}}
	if _, err := n.SubmitTransaction(context.Background(), empty); err == nil {
		t.Fatal("expected error submitting a transaction with no inputs")
	}
}
