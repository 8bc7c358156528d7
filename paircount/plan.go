package paircount

// Rank distribution. Pair identifiers are independent units of work:
// one identifier's count never splits across ranks, so cross-rank
// reduction is a straight sum of whole tables (see MergeFiles), run
// after every rank finishes.

// Plan returns the identifiers rank owns under a static round-robin
// partition of idents across ranks. Rank is zero-based.
func Plan(idents []string, rank, ranks int) []string {
	if ranks <= 1 {
		return idents
	}
	var mine []string
	for i, id := range idents {
		if i%ranks == rank {
			mine = append(mine, id)
		}
	}
	return mine
}

// MergeFiles sums per-rank table files of one identifier into a single
// table: the file-based equivalent of an all-reduce. All inputs must
// share the shape of the first.
func MergeFiles(paths []string) (*Table, error) {
	if len(paths) == 0 {
		return nil, ErrShapeMismatch
	}
	first, err := loadUnchecked(paths[0])
	if err != nil {
		return nil, err
	}
	for _, p := range paths[1:] {
		t, err := Load(p, first.Shape)
		if err != nil {
			return nil, err
		}
		if err := first.Merge(t); err != nil {
			return nil, err
		}
	}
	return first, nil
}
