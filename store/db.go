/*
Package store persists the Source Ledger state in a bbolt database.

Every committed changeset is written in a single transaction: the modified
records replace the stored ones and the state version, hash and timestamp
are updated. Load returns the complete state so the ledger can verify the
state hash before resuming.
*/
package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/alphabill-org/alphabill-bridge-base/cbor"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

const FileName = "source.db"

var (
	bucketMeta       = []byte("meta")
	bucketTokenPairs = []byte("token_pairs_by_source")
	bucketTickets    = []byte("tickets_by_nonce")
	bucketBatches    = []byte("batches_by_start")

	keyVersion   = []byte("version")
	keyStateHash = []byte("state_hash")
	keyTimestamp = []byte("timestamp")
)

type DB struct {
	path string
	db   *bolt.DB
}

// Open opens (creating when missing) the database in the dataDir.
func Open(dataDir string) (*DB, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory required")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, FileName)
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}

	if err := bdb.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketMeta, bucketTokenPairs, bucketTickets, bucketBatches} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return &DB{path: path, db: bdb}, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Path() string { return d.path }

// Commit writes the changeset, its version must be greater than the version
// of the stored state.
func (d *DB) Commit(cs *types.Changeset) error {
	if cs == nil {
		return fmt.Errorf("changeset is nil")
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keyVersion); v != nil && binary.BigEndian.Uint64(v) >= cs.Version {
			return fmt.Errorf("stored state version %d is not older than changeset version %d", binary.BigEndian.Uint64(v), cs.Version)
		}

		for _, p := range cs.TokenPairs {
			if err := put(tx.Bucket(bucketTokenPairs), p.SourceToken.Bytes(), p); err != nil {
				return fmt.Errorf("storing token pair %s: %w", p.SourceToken, err)
			}
		}
		for _, t := range cs.Tickets {
			if err := put(tx.Bucket(bucketTickets), uint64Key(t.Nonce), t); err != nil {
				return fmt.Errorf("storing ticket %d: %w", t.Nonce, err)
			}
		}
		for _, b := range cs.Batches {
			if err := put(tx.Bucket(bucketBatches), uint64Key(b.StartNonce), b); err != nil {
				return fmt.Errorf("storing batch %s: %w", b.Range(), err)
			}
		}

		if err := meta.Put(keyVersion, uint64Key(cs.Version)); err != nil {
			return err
		}
		if err := meta.Put(keyTimestamp, uint64Key(cs.Timestamp)); err != nil {
			return err
		}
		return meta.Put(keyStateHash, cs.StateHash)
	})
}

// Load returns the stored state, nil when nothing has been committed yet.
// Tickets are ordered by nonce and batches by start nonce.
func (d *DB) Load() (*types.Changeset, error) {
	var cs *types.Changeset
	err := d.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		v := meta.Get(keyVersion)
		if v == nil {
			return nil
		}
		cs = &types.Changeset{
			Version:   binary.BigEndian.Uint64(v),
			StateHash: append([]byte(nil), meta.Get(keyStateHash)...),
		}
		if ts := meta.Get(keyTimestamp); ts != nil {
			cs.Timestamp = binary.BigEndian.Uint64(ts)
		}

		if err := tx.Bucket(bucketTokenPairs).ForEach(func(k, v []byte) error {
			p := &types.TokenPair{}
			if err := cbor.Unmarshal(v, p); err != nil {
				return fmt.Errorf("decoding token pair %x: %w", k, err)
			}
			cs.TokenPairs = append(cs.TokenPairs, p)
			return nil
		}); err != nil {
			return err
		}
		if err := tx.Bucket(bucketTickets).ForEach(func(k, v []byte) error {
			t := &types.TicketRecord{}
			if err := cbor.Unmarshal(v, t); err != nil {
				return fmt.Errorf("decoding ticket %d: %w", binary.BigEndian.Uint64(k), err)
			}
			cs.Tickets = append(cs.Tickets, t)
			return nil
		}); err != nil {
			return err
		}
		return tx.Bucket(bucketBatches).ForEach(func(k, v []byte) error {
			b := &types.BatchAuthorization{}
			if err := cbor.Unmarshal(v, b); err != nil {
				return fmt.Errorf("decoding batch %d: %w", binary.BigEndian.Uint64(k), err)
			}
			cs.Batches = append(cs.Batches, b)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

func put(b *bolt.Bucket, key []byte, v any) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func uint64Key(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}
