// Package textcache keeps extracted document text in Badger so searches and
// rebuilds do not re-parse PDFs. Entries are keyed by canonical document name
// and carry the file fingerprint they were extracted from; a fingerprint
// mismatch is a miss.
package textcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/hyperjump/docfind/pkg/utils"
	"go.uber.org/zap"
)

const keyPrefix = "text:"

// Cache is a persistent name → text store.
type Cache struct {
	db     *badger.DB
	logger *zap.Logger
}

type entry struct {
	Fingerprint string `json:"fp"`
	Text        string `json:"text"`
}

// badgerLogger routes Badger's internal logging into zap.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any)   { l.sugar.Errorf(msg, args...) }
func (l *badgerLogger) Warningf(msg string, args ...any) { l.sugar.Warnf(msg, args...) }
func (l *badgerLogger) Infof(msg string, args ...any)    { l.sugar.Debugf(msg, args...) }
func (l *badgerLogger) Debugf(msg string, args ...any)   { l.sugar.Debugf(msg, args...) }

// Open opens (or creates) the cache directory at path. An empty path opens an
// in-memory cache that is discarded on Close.
func Open(path string, logger *zap.Logger) (*Cache, error) {
	logger = utils.OrNop(logger).Named("textcache")
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("create text cache dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &badgerLogger{sugar: logger.Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open text cache: %w", err)
	}
	return &Cache{db: db, logger: logger}, nil
}

// Get returns the cached text for name if it was stored with fingerprint.
func (c *Cache) Get(name, fingerprint string) (string, bool, error) {
	var e entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read text cache %s: %w", name, err)
	}
	if e.Fingerprint != fingerprint {
		return "", false, nil
	}
	return e.Text, true, nil
}

// Put stores text for name under fingerprint, replacing any previous entry.
func (c *Cache) Put(name, fingerprint, text string) error {
	val, err := json.Marshal(entry{Fingerprint: fingerprint, Text: text})
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+name), val)
	})
}

// Delete drops the entry for name. Deleting an unknown name is not an error.
func (c *Cache) Delete(name string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + name))
	})
}

// Clear drops every cached entry.
func (c *Cache) Clear() error {
	return c.db.DropPrefix([]byte(keyPrefix))
}

// Len returns the number of cached entries.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
