package chain

import (
	"encoding/binary"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/blaesus/ctbc/pkg/wire/payload"
)

var (
	bucketMeta   = []byte("meta")
	keyBlockHeight  = []byte("block_height")
	keyHeaderHeight = []byte("header_height")
)

// Store is a minimal bbolt-backed Chain implementation. It tracks only the
// height counters and peer-reported tip heights the network layer needs to
// drive IBD mode and getdata/getheaders pacing; actual block validation and
// the full chain index are out of scope here and would replace Store with a
// real implementation behind the same interface.
type Store struct {
	mu sync.Mutex

	db *bbolt.DB

	blockHeight  uint32
	headerHeight uint32
	peerMaxHeight uint32
	tipHash      payload.Hash

	missing []payload.Hash
}

// OpenStore opens (creating if necessary) a bbolt database at path and
// restores the last persisted height counters.
func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if v := b.Get(keyBlockHeight); v != nil {
			s.blockHeight = binary.LittleEndian.Uint32(v)
		}
		if v := b.Get(keyHeaderHeight); v != nil {
			s.headerHeight = binary.LittleEndian.Uint32(v)
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) BlockHeight() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockHeight
}

func (s *Store) HeaderHeight() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headerHeight
}

func (s *Store) TipHash() payload.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tipHash
}

func (s *Store) MaxFullBlockHeight() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerMaxHeight
}

func (s *Store) RecordPeerHeight(height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if height > s.peerMaxHeight {
		s.peerMaxHeight = height
	}
}

func (s *Store) FindMissingBlocks(limit int) []payload.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.missing) {
		limit = len(s.missing)
	}
	out := make([]payload.Hash, limit)
	copy(out, s.missing[:limit])
	return out
}

// ProcessHeader appends the header, advancing the header height and
// queuing its hash as a missing block until the matching full block
// arrives.
func (s *Store) ProcessHeader(h *payload.BlockHeader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.Height > s.headerHeight {
		s.headerHeight = h.Height
		s.tipHash = h.Hash()
	}
	s.missing = append(s.missing, h.Hash())
	return nil
}

// ProcessBlock advances the block height and removes the block's hash from
// the missing set, if present.
func (s *Store) ProcessBlock(b *payload.BlockPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.Header.Height > s.blockHeight {
		s.blockHeight = b.Header.Height
	}
	hash := b.Header.Hash()
	for i, h := range s.missing {
		if h == hash {
			s.missing = append(s.missing[:i], s.missing[i+1:]...)
			break
		}
	}
	return nil
}

// SaveChainData persists the height counters to the bbolt database.
func (s *Store) SaveChainData() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		var blockBuf, headerBuf [4]byte
		binary.LittleEndian.PutUint32(blockBuf[:], s.blockHeight)
		binary.LittleEndian.PutUint32(headerBuf[:], s.headerHeight)
		if err := b.Put(keyBlockHeight, blockBuf[:]); err != nil {
			return err
		}
		return b.Put(keyHeaderHeight, headerBuf[:])
	})
}

var _ Chain = (*Store)(nil)
