// SPDX-License-Identifier: MIT

package lookup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/lookupd/internal/fsutil"
)

// MaxEditableSize is the largest lookup file the editor will load.
const MaxEditableSize = 10 * 1024 * 1024

// DefaultNamespace scopes lookups that do not name an app.
const DefaultNamespace = "lookup_editor"

// nobodyOwner marks app-scoped (non-user) lookups.
const nobodyOwner = "nobody"

// FileRef identifies one lookup file. Owner empty or "nobody" means the
// app-scoped file; Version selects a backup instead of the live file.
type FileRef struct {
	Name      string
	Namespace string
	Owner     string
	Version   string
}

func (r FileRef) normalized() (FileRef, error) {
	out := FileRef{
		Name:      fsutil.SanitizeComponent(r.Name),
		Namespace: fsutil.SanitizeComponent(r.Namespace),
		Owner:     fsutil.SanitizeComponent(r.Owner),
		Version:   fsutil.SanitizeComponent(r.Version),
	}
	if out.Name == "" {
		return out, fmt.Errorf("missing lookup name")
	}
	if out.Namespace == "" {
		out.Namespace = DefaultNamespace
	}
	if out.Owner == nobodyOwner {
		out.Owner = ""
	}
	return out, nil
}

// Resolver maps lookup references to confined filesystem paths underneath
// the configured roots. Layout mirrors the hosting platform:
//
//	<appsDir>/<namespace>/lookups/<name>            app-scoped
//	<usersDir>/<owner>/<namespace>/lookups/<name>   user-scoped
//	<backupDir>/<namespace>/<owner|nobody>/<name>/<version>
type Resolver struct {
	AppsDir   string
	UsersDir  string
	BackupDir string
}

// Resolve returns the absolute path for ref. With fallbackDefault set, a
// missing live file resolves to its ".default" sibling when that exists.
// Every user-supplied component is sanitized and the final path confined.
func (res *Resolver) Resolve(ref FileRef, fallbackDefault bool) (string, error) {
	ref, err := ref.normalized()
	if err != nil {
		return "", err
	}

	if ref.Version != "" {
		return res.backupPath(ref)
	}

	root, rel := res.livePath(ref)
	path, err := fsutil.ConfineRelPath(root, rel)
	if err != nil {
		return "", fmt.Errorf("resolve lookup %s: %w", ref.Name, err)
	}

	if fallbackDefault {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if def, defErr := fsutil.ConfineRelPath(root, rel+".default"); defErr == nil {
				if _, statErr := os.Stat(def); statErr == nil {
					return def, nil
				}
			}
		}
	}
	return path, nil
}

func (res *Resolver) livePath(ref FileRef) (root, rel string) {
	if ref.Owner != "" {
		return res.UsersDir, filepath.Join(ref.Owner, ref.Namespace, "lookups", ref.Name)
	}
	return res.AppsDir, filepath.Join(ref.Namespace, "lookups", ref.Name)
}

func (res *Resolver) backupPath(ref FileRef) (string, error) {
	owner := ref.Owner
	if owner == "" {
		owner = nobodyOwner
	}
	rel := filepath.Join(ref.Namespace, owner, ref.Name, ref.Version)
	path, err := fsutil.ConfineRelPath(res.BackupDir, rel)
	if err != nil {
		return "", fmt.Errorf("resolve backup %s@%s: %w", ref.Name, ref.Version, err)
	}
	return path, nil
}

// backupDirFor returns the directory holding all backups of ref.
func (res *Resolver) backupDirFor(ref FileRef) (string, error) {
	ref, err := ref.normalized()
	if err != nil {
		return "", err
	}
	owner := ref.Owner
	if owner == "" {
		owner = nobodyOwner
	}
	rel := filepath.Join(ref.Namespace, owner, ref.Name)
	return fsutil.ConfineRelPath(res.BackupDir, rel)
}
