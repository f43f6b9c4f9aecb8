// SPDX-License-Identifier: MIT

package lookup

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/ManuGH/lookupd/internal/fsutil"
	"github.com/ManuGH/lookupd/internal/log"
)

// ReplicationNotifier is invoked after a successful save so deployments with
// replicated peers can push the updated file. The default notifier only logs.
type ReplicationNotifier func(ctx context.Context, ref FileRef, path string)

// Editor reads and writes CSV lookup files through a Resolver.
type Editor struct {
	resolver *Resolver
	backups  *Backups
	notify   ReplicationNotifier
	logger   zerolog.Logger
}

// NewEditor wires an editor over the given resolver and backup store.
func NewEditor(resolver *Resolver, backups *Backups, notify ReplicationNotifier) *Editor {
	e := &Editor{
		resolver: resolver,
		backups:  backups,
		notify:   notify,
		logger:   log.WithComponent("lookup.editor"),
	}
	if e.notify == nil {
		e.notify = func(ctx context.Context, ref FileRef, path string) {
			ctxLogger := log.FromContext(ctx)
			ctxLogger.Debug().
				Str("lookup", ref.Name).
				Str("path", path).
				Msg("replication notify skipped (standalone deployment)")
		}
	}
	return e
}

// Get returns the rows of the lookup identified by ref. A set Version reads
// the corresponding backup. Files above MaxEditableSize are refused.
func (e *Editor) Get(ctx context.Context, ref FileRef) ([][]string, error) {
	path, err := e.resolver.Resolve(ref, true)
	if err != nil {
		return nil, err
	}

	if err := fsutil.IsRegularFile(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref.Name)
		}
		return nil, fmt.Errorf("open lookup: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat lookup: %w", err)
	}
	if info.Size() > MaxEditableSize {
		return nil, &TooBigError{Size: info.Size()}
	}

	loadLogger := log.FromContext(ctx)
	loadLogger.Info().
		Str("event", "lookup.load").
		Str("path", path).
		Int64("size", info.Size()).
		Msg("loading lookup file")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lookup: %w", err)
	}

	// The file is assumed to be UTF-8; anything that is not gets replaced
	// rather than failing the whole load.
	reader := csv.NewReader(strings.NewReader(strings.ToValidUTF8(string(data), "�")))
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// Save replaces the lookup's contents with rows, atomically. The previous
// file contents are backed up first; fully-empty rows are pruned.
func (e *Editor) Save(ctx context.Context, ref FileRef, rows [][]string) error {
	if ref.Version != "" {
		return fmt.Errorf("cannot save to a backup version")
	}

	path, err := e.resolver.Resolve(ref, false)
	if err != nil {
		return err
	}

	if e.backups != nil {
		if _, err := e.backups.Create(ctx, ref); err != nil {
			return fmt.Errorf("backup before save: %w", err)
		}
	}

	kept := pruneEmptyRows(rows)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	for _, row := range kept {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("encode csv: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create lookup directory: %w", err)
	}

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending lookup file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			e.logger.Debug().Err(err).Msg("cleanup pending lookup file")
		}
	}()

	if _, err := pending.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write lookup data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace lookup file: %w", err)
	}

	saveLogger := log.FromContext(ctx)
	saveLogger.Info().
		Str("event", "lookup.saved").
		Str("path", path).
		Int("rows", len(kept)).
		Int("pruned", len(rows)-len(kept)).
		Msg("lookup file saved")

	e.notify(ctx, ref, path)
	return nil
}

// pruneEmptyRows drops rows whose cells are all blank. The header row is
// never pruned implicitly; an all-blank header is as invalid as any other
// all-blank row.
func pruneEmptyRows(rows [][]string) [][]string {
	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		if !isEmptyRow(row) {
			kept = append(kept, row)
		}
	}
	return kept
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
