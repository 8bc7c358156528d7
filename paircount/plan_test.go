package paircount

import (
	"path/filepath"
	"testing"

	"github.com/cosmoslab/twopt/params"
)

func TestPlanPartition(t *testing.T) {
	idents := []string{"DD", "DR", "RR", "DS", "SS"}

	if got := Plan(idents, 0, 1); len(got) != len(idents) {
		t.Fatalf("Single rank must own everything, got %v", got)
	}

	ranks := 3
	owned := map[string]int{}
	for r := 0; r < ranks; r++ {
		for _, id := range Plan(idents, r, ranks) {
			owned[id]++
		}
	}
	if len(owned) != len(idents) {
		t.Fatalf("Expected all %d idents owned, got %d", len(idents), len(owned))
	}
	for id, n := range owned {
		if n != 1 {
			t.Errorf("Ident %s owned by %d ranks", id, n)
		}
	}

	// More ranks than idents leaves the surplus ranks idle.
	if got := Plan(idents[:2], 4, 8); got != nil {
		t.Errorf("Expected idle rank to own nothing, got %v", got)
	}
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	a := sampleTable(t, params.BinIso)
	b := sampleTable(t, params.BinIso)
	pa := filepath.Join(dir, "a.dat")
	pb := filepath.Join(dir, "b.txt")
	if err := a.Save(pa, params.FormatBinary); err != nil {
		t.Fatal(err)
	}
	if err := b.Save(pb, params.FormatASCII); err != nil {
		t.Fatal(err)
	}

	merged, err := MergeFiles([]string{pa, pb})
	if err != nil {
		t.Fatal(err)
	}
	for i := range merged.Raw {
		if merged.Raw[i] != a.Raw[i]+b.Raw[i] {
			t.Fatalf("Bin %d: expected %d, got %d", i, a.Raw[i]+b.Raw[i], merged.Raw[i])
		}
	}

	other := sampleTable(t, params.BinSMu)
	po := filepath.Join(dir, "o.dat")
	if err := other.Save(po, params.FormatBinary); err != nil {
		t.Fatal(err)
	}
	if _, err := MergeFiles([]string{pa, po}); err == nil {
		t.Error("Expected error merging mismatched shapes")
	}
	if _, err := MergeFiles(nil); err == nil {
		t.Error("Expected error for empty input")
	}
}
