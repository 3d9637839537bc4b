// Package kv is the persistent key/value substrate used by the disk
// tier of the hybrid cache (internal/cache/hybrid) and by the
// key/value-bucket composite service (internal/service/kvbucket).
//
// It implements the teacher's generic KVDriver[K, M] contract from
// database/kvtypes (kept in the workspace as the grounding interface)
// specialised to K=string, M=[]byte, backed by go.etcd.io/bbolt, the
// maintained successor of boltdb/bolt that the examples pack also
// surfaces through dolthub-dolt.
package kv

import (
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"

	kvtypes "github.com/traktion/anttp/database/kvtypes"
)

// BoltDriver implements kvtypes.KVDriver[string, []byte] over a single
// bbolt bucket.
type BoltDriver struct {
	db     *bolt.DB
	bucket []byte
}

var _ kvtypes.KVDriver[string, []byte] = (*BoltDriver)(nil)

// Open opens (creating if necessary) a bbolt database at path and
// ensures the named bucket exists.
func Open(path, bucket string) (*BoltDriver, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", path, err)
	}

	d := &BoltDriver{db: db, bucket: []byte(bucket)}

	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(d.bucket)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: create bucket %s: %w", bucket, err)
	}

	return d, nil
}

func (d *BoltDriver) Close() error {
	return d.db.Close()
}

// New satisfies kvtypes.KVDriver; it returns the same instance since a
// bbolt handle is already a live, reusable driver rather than a
// stateless factory.
func (d *BoltDriver) New() kvtypes.KVDriver[string, []byte] {
	return d
}

func (d *BoltDriver) Get(key string, model *[]byte) error {
	return d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(d.bucket)
		v := b.Get([]byte(key))
		if v == nil {
			*model = nil
			return nil
		}
		*model = append([]byte(nil), v...)
		return nil
	})
}

func (d *BoltDriver) Set(key string, model []byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(d.bucket).Put([]byte(key), model)
	})
}

func (d *BoltDriver) Del(key string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(d.bucket).Delete([]byte(key))
	})
}

func (d *BoltDriver) List() ([]string, error) {
	var keys []string
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(d.bucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (d *BoltDriver) Search(pattern string) ([]string, error) {
	var keys []string
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(d.bucket).ForEach(func(k, _ []byte) error {
			if strings.Contains(string(k), pattern) {
				keys = append(keys, string(k))
			}
			return nil
		})
	})
	return keys, err
}

func (d *BoltDriver) Walk(fct kvtypes.FctWalk[string, []byte]) error {
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(d.bucket).ForEach(func(k, v []byte) error {
			if !fct(string(k), append([]byte(nil), v...)) {
				return errStopWalk
			}
			return nil
		})
	})
	if err == errStopWalk {
		return nil
	}
	return err
}

var errStopWalk = stopWalk{}

type stopWalk struct{}

func (stopWalk) Error() string { return "kv: walk stopped" }
