// Package compress defines the pluggable compression capability used by the
// frame codec. Algorithms are registered instances rather than a closed enum,
// so new encodings can be added without touching the codec.
package compress

// Provider implements one compression algorithm, identified by its encoding
// name. Names are case-sensitive and compared ordinally. Providers must be
// immutable after construction and safe for concurrent use.
type Provider interface {
	// Name returns the negotiated encoding name, e.g. "gzip".
	Name() string

	// Compress returns a new slice holding the compressed form of src.
	Compress(src []byte) ([]byte, error)

	// Decompress inverts Compress. src must be the output of a Compress
	// call from the same algorithm.
	Decompress(src []byte) ([]byte, error)
}

// BuiltIn returns the providers shipped with this module, in registration
// order: gzip, zstd, snappy.
func BuiltIn() []Provider {
	return []Provider{&Gzip{}, &Zstd{}, &Snappy{}}
}
