// SPDX-License-Identifier: MIT

package lookup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/ManuGH/lookupd/internal/fsutil"
	"github.com/ManuGH/lookupd/internal/log"
)

// BackupInfo describes one stored backup of a lookup file.
type BackupInfo struct {
	// Version is the backup identifier, a unix timestamp string usable as
	// FileRef.Version.
	Version string `json:"version"`
	Time    int64  `json:"time"`
	Size    int64  `json:"size"`
}

// Backups stores timestamped copies of lookup files before each save.
type Backups struct {
	resolver *Resolver
	logger   zerolog.Logger
}

// NewBackups creates a backup store over the resolver's backup root.
func NewBackups(resolver *Resolver) *Backups {
	return &Backups{
		resolver: resolver,
		logger:   log.WithComponent("lookup.backups"),
	}
}

// Create copies the current contents of ref into the backup directory and
// returns the new version. Backing up a lookup that does not exist yet is a
// no-op returning an empty version.
func (b *Backups) Create(ctx context.Context, ref FileRef) (string, error) {
	src, err := b.resolver.Resolve(ref, false)
	if err != nil {
		return "", err
	}

	if err := fsutil.IsRegularFile(src); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("source lookup not backupable: %w", err)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read lookup for backup: %w", err)
	}

	dir, err := b.resolver.backupDirFor(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	version := strconv.FormatInt(time.Now().Unix(), 10)
	dst := filepath.Join(dir, version)
	// Same-second saves overwrite their own backup rather than erroring.
	if err := renameio.WriteFile(dst, data, 0o640); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	ctxLogger := log.FromContext(ctx)
	ctxLogger.Info().
		Str("event", "lookup.backup_created").
		Str("lookup", ref.Name).
		Str("version", version).
		Int("size", len(data)).
		Msg("lookup backup created")
	return version, nil
}

// List returns the available backups for ref, newest first.
func (b *Backups) List(_ context.Context, ref FileRef) ([]BackupInfo, error) {
	dir, err := b.resolver.backupDirFor(ref)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			// Foreign files in the backup directory are ignored, not fatal.
			b.logger.Warn().Str("name", entry.Name()).Msg("ignoring non-backup file in backup directory")
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Version: entry.Name(),
			Time:    ts,
			Size:    info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].Time > backups[j].Time })
	return backups, nil
}
