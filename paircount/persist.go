package paircount

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cosmoslab/twopt/params"
)

// Binary table layout, little-endian:
//
//	magic "TPPC", version u16, scheme u8, periodic u8,
//	ident [2]byte, pad u16, ns u32, n2 u32,
//	npoints1 u64, npoints2 u64, norm f64, outsideW f64, outsideRaw u64,
//	s edges (ns+1) f64, pi edges (n2+1) f64 (sppi only),
//	then one record per bin: weighted f64, raw u64,
//	row-major with the second axis fastest.
var binMagic = [4]byte{'T', 'P', 'P', 'C'}

const binVersion uint16 = 1

// Save writes the table atomically: a temp file in the target
// directory, renamed into place only on success.
func (t *Table) Save(path string, format params.OutFormat) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".twopt-*")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	var werr error
	if format == params.FormatASCII {
		werr = t.writeASCII(tmp)
	} else {
		werr = t.writeBinary(tmp)
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("save %s: %w", path, werr)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Load reads a persisted table, sniffing the format, and rejects it
// unless its shape matches want exactly. A mismatched table is never
// reshaped.
func Load(path string, want Shape) (*Table, error) {
	t, err := loadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if !t.Shape.Equal(want) {
		return nil, fmt.Errorf("%w: %s holds %+v, want %+v", ErrShapeMismatch, path, t.Shape, want)
	}
	return t, nil
}

func loadUnchecked(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	var t *Table
	if len(data) >= 4 && bytes.Equal(data[:4], binMagic[:]) {
		t, err = readBinary(bytes.NewReader(data))
	} else {
		t, err = readASCII(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Encode renders the table in the binary layout, for callers that
// persist somewhere other than a flat file (the results DB).
func (t *Table) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.writeBinary(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses an Encode result, validating its shape like Load.
func Decode(data []byte, want Shape) (*Table, error) {
	t, err := readBinary(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if !t.Shape.Equal(want) {
		return nil, fmt.Errorf("%w: encoded table holds %+v, want %+v", ErrShapeMismatch, t.Shape, want)
	}
	return t, nil
}

func (t *Table) writeBinary(w io.Writer) error {
	bw := bufio.NewWriter(w)
	head := []any{
		binMagic, binVersion, uint8(t.Scheme), boolByte(t.Periodic),
		[2]byte{t.Ident[0], t.Ident[1]}, uint16(0),
		uint32(t.NS), uint32(t.N2),
		t.NPoints1, t.NPoints2, t.Norm, t.OutsideW, t.OutsideRaw,
	}
	for _, v := range head {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, t.SEdges); err != nil {
		return err
	}
	if t.Scheme == params.BinSpPi {
		if err := binary.Write(bw, binary.LittleEndian, t.PiEdges); err != nil {
			return err
		}
	}
	for i := range t.Weighted {
		if err := binary.Write(bw, binary.LittleEndian, t.Weighted[i]); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, t.Raw[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func readBinary(r io.Reader) (*Table, error) {
	var (
		magic    [4]byte
		version  uint16
		scheme   uint8
		periodic uint8
		ident    [2]byte
		pad      uint16
		ns, n2   uint32
	)
	_ = pad
	t := &Table{}
	fields := []any{&magic, &version, &scheme, &periodic, &ident, &pad, &ns, &n2,
		&t.NPoints1, &t.NPoints2, &t.Norm, &t.OutsideW, &t.OutsideRaw}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return nil, err
		}
	}
	if magic != binMagic {
		return nil, fmt.Errorf("not a pair-count table (magic %q)", magic[:])
	}
	if version != binVersion {
		return nil, fmt.Errorf("unsupported table version %d", version)
	}
	t.Ident = string(ident[:])
	t.Scheme = params.BinScheme(scheme)
	t.Periodic = periodic != 0
	t.NS = int(ns)
	t.N2 = int(n2)

	t.SEdges = make([]float64, t.NS+1)
	if err := binary.Read(r, binary.LittleEndian, t.SEdges); err != nil {
		return nil, err
	}
	if t.Scheme == params.BinSpPi {
		t.PiEdges = make([]float64, t.N2+1)
		if err := binary.Read(r, binary.LittleEndian, t.PiEdges); err != nil {
			return nil, err
		}
	}
	if t.Scheme == params.BinSMu {
		t.NMu = t.N2
	}
	n := t.Len()
	t.Weighted = make([]float64, n)
	t.Raw = make([]uint64, n)
	for i := 0; i < n; i++ {
		if err := binary.Read(r, binary.LittleEndian, &t.Weighted[i]); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &t.Raw[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
