package paircount

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cosmoslab/twopt/params"
)

// ASCII table layout: a '#' header block carrying the same metadata as
// the binary header (edges included, full float64 precision), then one
// line per bin with bin center(s), weighted count, raw count. Row order
// matches the binary layout.

func g17(v float64) string { return strconv.FormatFloat(v, 'g', 17, 64) }

func (t *Table) writeASCII(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# twopt pair counts\n")
	fmt.Fprintf(bw, "# ident = %s\n", t.Ident)
	fmt.Fprintf(bw, "# scheme = %s\n", t.Scheme)
	fmt.Fprintf(bw, "# periodic = %v\n", t.Periodic)
	fmt.Fprintf(bw, "# npoints = %d %d\n", t.NPoints1, t.NPoints2)
	fmt.Fprintf(bw, "# norm = %s\n", g17(t.Norm))
	fmt.Fprintf(bw, "# outside = %s %d\n", g17(t.OutsideW), t.OutsideRaw)
	fmt.Fprintf(bw, "# s_edges = %s\n", joinFloats(t.SEdges))
	switch t.Scheme {
	case params.BinSMu:
		fmt.Fprintf(bw, "# nmu = %d\n", t.NMu)
	case params.BinSpPi:
		fmt.Fprintf(bw, "# pi_edges = %s\n", joinFloats(t.PiEdges))
	}

	centers2 := t.secondCenters()
	for i := 0; i < t.NS; i++ {
		sc := 0.5 * (t.SEdges[i] + t.SEdges[i+1])
		for j := 0; j < t.N2; j++ {
			k := i*t.N2 + j
			if centers2 == nil {
				fmt.Fprintf(bw, "%s %s %d\n", g17(sc), g17(t.Weighted[k]), t.Raw[k])
			} else {
				fmt.Fprintf(bw, "%s %s %s %d\n", g17(sc), g17(centers2[j]), g17(t.Weighted[k]), t.Raw[k])
			}
		}
	}
	return bw.Flush()
}

// secondCenters returns the secondary-axis bin midpoints, nil for the
// isotropic scheme.
func (t *Table) secondCenters() []float64 {
	switch t.Scheme {
	case params.BinSMu:
		c := make([]float64, t.N2)
		d := 1.0 / float64(t.N2)
		for j := range c {
			c[j] = (float64(j) + 0.5) * d
		}
		return c
	case params.BinSpPi:
		c := make([]float64, t.N2)
		for j := range c {
			c[j] = 0.5 * (t.PiEdges[j] + t.PiEdges[j+1])
		}
		return c
	}
	return nil
}

func joinFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = g17(x)
	}
	return strings.Join(parts, " ")
}

func readASCII(r io.Reader) (*Table, error) {
	t := &Table{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<20)

	var weighted []float64
	var raw []uint64
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if err := t.parseASCIIHeader(line); err != nil {
				return nil, err
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("short table line %q", line)
		}
		w, err := strconv.ParseFloat(fields[len(fields)-2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad weighted count in %q: %w", line, err)
		}
		n, err := strconv.ParseUint(fields[len(fields)-1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad raw count in %q: %w", line, err)
		}
		weighted = append(weighted, w)
		raw = append(raw, n)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if t.NS == 0 {
		return nil, fmt.Errorf("table header missing s_edges")
	}
	if t.Scheme == params.BinSMu {
		t.NMu = t.N2
	}
	if len(weighted) != t.Len() {
		return nil, fmt.Errorf("%w: %d bin lines for %dx%d bins",
			ErrShapeMismatch, len(weighted), t.NS, t.N2)
	}
	t.Weighted = weighted
	t.Raw = raw
	return t, nil
}

func (t *Table) parseASCIIHeader(line string) error {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	key, val, ok := strings.Cut(body, "=")
	if !ok {
		return nil // freeform comment
	}
	key = strings.TrimSpace(key)
	val = strings.TrimSpace(val)
	switch key {
	case "ident":
		t.Ident = val
	case "scheme":
		switch val {
		case "iso":
			t.Scheme = params.BinIso
		case "smu":
			t.Scheme = params.BinSMu
		case "sppi":
			t.Scheme = params.BinSpPi
		default:
			return fmt.Errorf("unknown scheme %q", val)
		}
		if t.Scheme == params.BinIso {
			t.N2 = 1
		}
	case "periodic":
		t.Periodic = val == "true"
	case "npoints":
		if _, err := fmt.Sscanf(val, "%d %d", &t.NPoints1, &t.NPoints2); err != nil {
			return fmt.Errorf("bad npoints %q: %w", val, err)
		}
	case "norm":
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("bad norm %q: %w", val, err)
		}
		t.Norm = v
	case "outside":
		if _, err := fmt.Sscanf(val, "%f %d", &t.OutsideW, &t.OutsideRaw); err != nil {
			return fmt.Errorf("bad outside %q: %w", val, err)
		}
	case "s_edges":
		edges, err := splitFloats(val)
		if err != nil {
			return fmt.Errorf("bad s_edges: %w", err)
		}
		t.SEdges = edges
		t.NS = len(edges) - 1
	case "pi_edges":
		edges, err := splitFloats(val)
		if err != nil {
			return fmt.Errorf("bad pi_edges: %w", err)
		}
		t.PiEdges = edges
		t.N2 = len(edges) - 1
	case "nmu":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("bad nmu %q: %w", val, err)
		}
		t.N2 = n
	}
	return nil
}

func splitFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
