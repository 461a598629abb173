package compress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedProvider struct {
	name string
	tag  int
}

func (p *namedProvider) Name() string                      { return p.name }
func (p *namedProvider) Compress(b []byte) ([]byte, error) { return b, nil }
func (p *namedProvider) Decompress(b []byte) ([]byte, error) {
	return b, nil
}

func TestResolve_FirstRegisteredWins(t *testing.T) {
	t.Parallel()

	first := &namedProvider{name: "gzip", tag: 1}
	second := &namedProvider{name: "gzip", tag: 2}

	table := Resolve(first, second)

	got, ok := table.Lookup("gzip")
	require.True(t, ok)
	assert.Same(t, Provider(first), got)
}

func TestResolve_EmptyInput(t *testing.T) {
	t.Parallel()

	table := Resolve()
	assert.Empty(t, table)
	assert.Empty(t, table.Names())
}

func TestResolve_PreservesDistinctNames(t *testing.T) {
	t.Parallel()

	table := Resolve(BuiltIn()...)

	assert.Equal(t, []string{"gzip", "snappy", "zstd"}, table.Names())

	_, ok := table.Lookup("lz4")
	assert.False(t, ok)
}

func TestLookup_CaseSensitive(t *testing.T) {
	t.Parallel()

	table := Resolve(&Gzip{})

	_, ok := table.Lookup("Gzip")
	assert.False(t, ok)
}
