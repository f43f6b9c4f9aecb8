// SPDX-License-Identifier: MIT

package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/lookupd/internal/log"
)

// keyField is the reserved first column of every KV collection table.
const keyField = "_key"

// KVStore persists KV-store lookup collections in badger. A collection is a
// field schema ("coll:<name>") plus JSON documents ("row:<name>:<key>").
type KVStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// OpenKVStore opens (or creates) the collection store at path.
func OpenKVStore(path string) (*KVStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}
	return &KVStore{db: db, logger: log.WithComponent("lookup.kvstore")}, nil
}

// Close releases the underlying database.
func (s *KVStore) Close() error { return s.db.Close() }

func collKey(name string) []byte  { return []byte("coll:" + name) }
func rowPrefix(name string) []byte { return []byte("row:" + name + ":") }
func rowKey(name, key string) []byte {
	return append(rowPrefix(name), []byte(key)...)
}

// CreateCollection registers a collection with the given field schema.
// Creating an existing collection replaces its schema but keeps its rows.
func (s *KVStore) CreateCollection(ctx context.Context, name string, fields []string) error {
	if name == "" {
		return fmt.Errorf("missing collection name")
	}
	buf, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(collKey(name), buf)
	})
	if err != nil {
		return fmt.Errorf("store schema: %w", err)
	}
	ctxLogger := log.FromContext(ctx)
	ctxLogger.Info().
		Str("event", "kvstore.collection_created").
		Str("collection", name).
		Int("fields", len(fields)).
		Msg("collection schema stored")
	return nil
}

// Fields returns the field schema of a collection.
func (s *KVStore) Fields(_ context.Context, name string) ([]string, error) {
	var fields []string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(collKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &fields)
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, fmt.Errorf("%w: collection %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return fields, nil
}

// PutRow stores a document under key, generating a key when empty, and
// returns the key used.
func (s *KVStore) PutRow(_ context.Context, name, key string, doc map[string]any) (string, error) {
	if key == "" {
		key = uuid.NewString()
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode row: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(collKey(name)); err != nil {
			return err
		}
		return txn.Set(rowKey(name, key), buf)
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return "", fmt.Errorf("%w: collection %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("store row: %w", err)
	}
	return key, nil
}

// DeleteRow removes one document from a collection.
func (s *KVStore) DeleteRow(_ context.Context, name, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(rowKey(name, key))
	})
}

// Rows renders a collection as a table. The header is the schema with _key
// prepended; each document is flattened to dotted keys and cells missing
// from a document stay blank so every row has header width.
func (s *KVStore) Rows(ctx context.Context, name string) ([][]string, error) {
	fields, err := s.Fields(ctx, name)
	if err != nil {
		return nil, err
	}

	header := append([]string{keyField}, fields...)
	table := [][]string{header}

	prefix := rowPrefix(name)
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), string(prefix))
			var doc map[string]any
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return err
			}

			flat := FlattenDoc(doc)
			row := make([]string, 0, len(header))
			row = append(row, key)
			for _, field := range fields {
				row = append(row, flat[field])
			}
			table = append(table, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	return table, nil
}

// FlattenDoc flattens nested objects into dotted keys so a document can be
// rendered as one table row. Scalars are stringified; arrays stay JSON.
func FlattenDoc(doc map[string]any) map[string]string {
	out := make(map[string]string, len(doc))
	flattenInto(out, "", doc)
	return out
}

func flattenInto(out map[string]string, prefix string, doc map[string]any) {
	for key, value := range doc {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flattenInto(out, full, v)
		case nil:
			out[full] = ""
		case string:
			out[full] = v
		case float64:
			// JSON numbers decode as float64; keep integers undecorated.
			if v == float64(int64(v)) {
				out[full] = fmt.Sprintf("%d", int64(v))
			} else {
				out[full] = fmt.Sprintf("%v", v)
			}
		case bool:
			out[full] = fmt.Sprintf("%t", v)
		default:
			if buf, err := json.Marshal(v); err == nil {
				out[full] = string(buf)
			} else {
				out[full] = fmt.Sprintf("%v", v)
			}
		}
	}
}
