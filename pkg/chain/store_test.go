package chain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blaesus/ctbc/pkg/wire/payload"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.db")
	s, err := OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProcessHeaderAdvancesHeaderHeight(t *testing.T) {
	s := openTestStore(t)
	header := &payload.BlockHeader{Height: 5}
	require.NoError(t, s.ProcessHeader(header))
	require.Equal(t, uint32(5), s.HeaderHeight())
	require.Equal(t, uint32(0), s.BlockHeight())
	require.Equal(t, header.Hash(), s.TipHash())
}

func TestProcessBlockAdvancesBlockHeightAndClearsMissing(t *testing.T) {
	s := openTestStore(t)
	header := &payload.BlockHeader{Height: 3}
	require.NoError(t, s.ProcessHeader(header))
	require.Len(t, s.FindMissingBlocks(10), 1)

	require.NoError(t, s.ProcessBlock(&payload.BlockPayload{Header: *header}))
	require.Equal(t, uint32(3), s.BlockHeight())
	require.Empty(t, s.FindMissingBlocks(10))
}

func TestRecordPeerHeightOnlyIncreases(t *testing.T) {
	s := openTestStore(t)
	s.RecordPeerHeight(10)
	s.RecordPeerHeight(5)
	require.Equal(t, uint32(10), s.MaxFullBlockHeight())
}

func TestSaveChainDataPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.db")
	s, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ProcessHeader(&payload.BlockHeader{Height: 42}))
	require.NoError(t, s.SaveChainData())
	require.NoError(t, s.Close())

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, uint32(42), reopened.HeaderHeight())
}
