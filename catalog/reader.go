package catalog

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Readers for the two catalog layouts the CLI accepts. This is the
// ingestion collaborator: nothing below the catalog package opens
// files. Column-expression evaluation and richer tabular formats stay
// out; a preprocessing step can always emit these layouts.
//
// ASCII: whitespace-separated `x y z [w]`, '#' comments.
// JSON lines (.json/.jsonl): one object per line with numeric fields
// x, y, z and optional w.
// Either may be gzipped (.gz suffix).

// Read dispatches on the file extension.
func Read(label, path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", label, err)
	}
	defer f.Close()

	var r io.Reader = f
	name := path
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %s: %w", label, path, err)
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	switch filepath.Ext(name) {
	case ".json", ".jsonl", ".ndjson":
		return ReadJSONL(label, r)
	default:
		return ReadASCII(label, r)
	}
}

func ReadASCII(label string, r io.Reader) (*Catalog, error) {
	var x, y, z, w []float64
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("catalog %s line %d: want >= 3 columns, got %d",
				label, lineNo, len(fields))
		}
		var vals [4]float64
		nc := 3
		if len(fields) >= 4 {
			nc = 4
		}
		for i := 0; i < nc; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("catalog %s line %d column %d: %w", label, lineNo, i+1, err)
			}
			vals[i] = v
		}
		x = append(x, vals[0])
		y = append(y, vals[1])
		z = append(z, vals[2])
		if nc == 4 {
			w = append(w, vals[3])
		} else if w != nil {
			return nil, fmt.Errorf("catalog %s line %d: weight column missing", label, lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", label, err)
	}
	if w != nil && len(w) != len(x) {
		return nil, fmt.Errorf("%w: catalog %s: weights on %d of %d lines",
			ErrBadWeights, label, len(w), len(x))
	}
	return New(label, x, y, z, w)
}

func ReadJSONL(label string, r io.Reader) (*Catalog, error) {
	var x, y, z, w []float64
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		res := gjson.GetMany(line, "x", "y", "z", "w")
		for i := 0; i < 3; i++ {
			if !res[i].Exists() {
				return nil, fmt.Errorf("catalog %s line %d: missing %q", label, lineNo, "xyz"[i:i+1])
			}
		}
		x = append(x, res[0].Float())
		y = append(y, res[1].Float())
		z = append(z, res[2].Float())
		if res[3].Exists() {
			w = append(w, res[3].Float())
		} else if w != nil {
			return nil, fmt.Errorf("catalog %s line %d: missing weight", label, lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", label, err)
	}
	if w != nil && len(w) != len(x) {
		return nil, fmt.Errorf("%w: catalog %s: weights on %d of %d lines",
			ErrBadWeights, label, len(w), len(x))
	}
	return New(label, x, y, z, w)
}
