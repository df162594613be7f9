package fork

import "testing"

func TestBlockMajorForStepsAtHeights(t *testing.T) {
	m, err := New([]uint32{1, 2, 3}, []uint64{0, 100, 250})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		height uint64
		want   uint32
	}{
		{0, 1}, {99, 1}, {100, 2}, {249, 2}, {250, 3}, {1_000_000, 3},
	}
	for _, c := range cases {
		if got := m.BlockMajorFor(c.height); got != c.want {
			t.Errorf("BlockMajorFor(%d) = %d, want %d", c.height, got, c.want)
		}
	}
}

func TestNewRejectsUnsortedTable(t *testing.T) {
	if _, err := New([]uint32{2, 1}, []uint64{0, 100}); err != ErrNotSorted {
		t.Fatalf("expected ErrNotSorted, got %v", err)
	}
	if _, err := New([]uint32{1, 2}, []uint64{100, 50}); err != ErrNotSorted {
		t.Fatalf("expected ErrNotSorted, got %v", err)
	}
}

func TestNewRejectsEmptyTable(t *testing.T) {
	if _, err := New(nil, nil); err != ErrEmptyTable {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

func TestVotingHeightFor(t *testing.T) {
	m, err := New([]uint32{1, 2}, []uint64{0, 500})
	if err != nil {
		t.Fatal(err)
	}
	h, ok := m.VotingHeightFor(2)
	if !ok || h != 500 {
		t.Fatalf("expected (500, true), got (%d, %v)", h, ok)
	}
	if _, ok := m.VotingHeightFor(9); ok {
		t.Fatal("expected unknown version to report false")
	}
}
