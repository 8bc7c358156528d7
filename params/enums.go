// Package params holds the configuration surface: the run Config value
// object, its enumerations, and validation. Everything below the cmd
// layer receives these values explicitly.
package params

import "fmt"

// DataStruct selects the spatial index the traversal runs over.
type DataStruct int

const (
	StructKDTree DataStruct = iota
	StructBallTree
)

func (d DataStruct) String() string {
	switch d {
	case StructKDTree:
		return "kdtree"
	case StructBallTree:
		return "balltree"
	}
	return fmt.Sprintf("DataStruct(%d)", int(d))
}

// BinScheme selects the pair-count binning: isotropic separation,
// separation and line-of-sight angle, or transverse and line-of-sight
// components.
type BinScheme int

const (
	BinIso BinScheme = iota
	BinSMu
	BinSpPi
)

func (b BinScheme) String() string {
	switch b {
	case BinIso:
		return "iso"
	case BinSMu:
		return "smu"
	case BinSpPi:
		return "sppi"
	}
	return fmt.Sprintf("BinScheme(%d)", int(b))
}

// OutFormat selects the persisted pair-count table encoding.
type OutFormat int

const (
	FormatBinary OutFormat = iota
	FormatASCII
)

func (f OutFormat) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatASCII:
		return "ascii"
	}
	return fmt.Sprintf("OutFormat(%d)", int(f))
}

// CachePolicy decides whether existing pair-count results are reused.
type CachePolicy int

const (
	// CacheTrust reuses any stored table whose shape matches exactly.
	CacheTrust CachePolicy = iota
	// CacheForce recounts everything, overwriting stored tables.
	CacheForce
)

func (p CachePolicy) String() string {
	switch p {
	case CacheTrust:
		return "trust"
	case CacheForce:
		return "force"
	}
	return fmt.Sprintf("CachePolicy(%d)", int(p))
}
