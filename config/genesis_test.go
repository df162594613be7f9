package config

import "testing"

func TestMainnetGenesisValid(t *testing.T) {
	g := MainnetGenesis()
	if err := g.Validate(); err != nil {
		t.Errorf("mainnet genesis should be valid: %v", err)
	}
}

func TestTestnetGenesisValid(t *testing.T) {
	g := TestnetGenesis()
	if err := g.Validate(); err != nil {
		t.Errorf("testnet genesis should be valid: %v", err)
	}
}

func TestGenesisValidateRejectsEmptyForkTable(t *testing.T) {
	g := MainnetGenesis()
	g.Protocol.Forks = ForkRules{}
	if err := g.Validate(); err == nil {
		t.Error("expected error for empty fork table")
	}
}

func TestGenesisValidateRejectsMismatchedForkLengths(t *testing.T) {
	g := MainnetGenesis()
	g.Protocol.Forks = ForkRules{Versions: []uint32{1, 2}, Heights: []uint64{0}}
	if err := g.Validate(); err == nil {
		t.Error("expected error for mismatched fork table lengths")
	}
}

func TestGenesisValidateRejectsUnsortedForkHeights(t *testing.T) {
	g := MainnetGenesis()
	g.Protocol.Forks = ForkRules{Versions: []uint32{1, 2}, Heights: []uint64{100, 0}}
	if err := g.Validate(); err == nil {
		t.Error("expected error for unsorted fork heights")
	}
}

func TestGenesisValidateRejectsInvertedMixinRange(t *testing.T) {
	g := MainnetGenesis()
	g.Protocol.Mixin = MixinRules{Min: 10, Max: 5}
	if err := g.Validate(); err == nil {
		t.Error("expected error for min > max mixin range")
	}
}

func TestGenesisValidateRejectsMalformedCheckpointHash(t *testing.T) {
	g := MainnetGenesis()
	g.Protocol.Checkpoints = []CheckpointEntry{{Height: 1000, Hash: "not-hex"}}
	if err := g.Validate(); err == nil {
		t.Error("expected error for malformed checkpoint hash")
	}
}

func TestGenesisHashDeterministic(t *testing.T) {
	a, err := MainnetGenesis().Hash()
	if err != nil {
		t.Fatal(err)
	}
	b, err := MainnetGenesis().Hash()
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("expected identical genesis configs to hash identically")
	}
}

func TestMainnetTestnetGenesisDiffer(t *testing.T) {
	a, err := MainnetGenesis().Hash()
	if err != nil {
		t.Fatal(err)
	}
	b, err := TestnetGenesis().Hash()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("expected mainnet and testnet genesis to hash differently")
	}
}
