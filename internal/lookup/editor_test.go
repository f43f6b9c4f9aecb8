// SPDX-License-Identifier: MIT

package lookup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	root := t.TempDir()
	res := &Resolver{
		AppsDir:   filepath.Join(root, "apps"),
		UsersDir:  filepath.Join(root, "users"),
		BackupDir: filepath.Join(root, "backups"),
	}
	for _, dir := range []string{res.AppsDir, res.UsersDir, res.BackupDir} {
		require.NoError(t, os.MkdirAll(dir, 0o750))
	}
	return res
}

func testEditor(t *testing.T) (*Editor, *Resolver) {
	t.Helper()
	res := testResolver(t)
	return NewEditor(res, NewBackups(res), nil), res
}

func seedLookup(t *testing.T, res *Resolver, ref FileRef, content string) string {
	t.Helper()
	path, err := res.Resolve(ref, false)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return path
}

func TestEditorGetReadsCSV(t *testing.T) {
	editor, res := testEditor(t)
	ref := FileRef{Name: "users.csv", Namespace: "search"}
	seedLookup(t, res, ref, "user,role\nalice,admin\nbob,viewer\n")

	rows, err := editor.Get(context.Background(), ref)
	require.NoError(t, err)

	want := [][]string{{"user", "role"}, {"alice", "admin"}, {"bob", "viewer"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestEditorGetMissingLookup(t *testing.T) {
	editor, _ := testEditor(t)
	_, err := editor.Get(context.Background(), FileRef{Name: "missing.csv"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditorGetReplacesInvalidUTF8(t *testing.T) {
	editor, res := testEditor(t)
	ref := FileRef{Name: "latin.csv", Namespace: "search"}
	seedLookup(t, res, ref, "name\n\xff\xfe\n")

	rows, err := editor.Get(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "��", rows[1][0])
}

func TestEditorGetRefusesOversizedFile(t *testing.T) {
	editor, res := testEditor(t)
	ref := FileRef{Name: "huge.csv", Namespace: "search"}
	path := seedLookup(t, res, ref, "a\n")
	require.NoError(t, os.Truncate(path, MaxEditableSize+1))

	_, err := editor.Get(context.Background(), ref)
	require.Error(t, err)
	assert.True(t, IsTooBig(err))
}

func TestEditorGetRejectsNonRegularFile(t *testing.T) {
	editor, res := testEditor(t)
	ref := FileRef{Name: "dir.csv", Namespace: "search"}
	path, err := res.Resolve(ref, false)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(path, 0o750))

	_, err = editor.Get(context.Background(), ref)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "a directory at the lookup path is an error, not a missing lookup")
}

func TestEditorGetDefaultFallback(t *testing.T) {
	editor, res := testEditor(t)
	ref := FileRef{Name: "seed.csv", Namespace: "search"}
	seedLookup(t, res, FileRef{Name: "seed.csv.default", Namespace: "search"}, "col\nfromdefault\n")

	rows, err := editor.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "fromdefault", rows[1][0])
}

func TestEditorSaveRoundTrip(t *testing.T) {
	editor, _ := testEditor(t)
	ref := FileRef{Name: "new.csv", Namespace: "search"}

	want := [][]string{{"host", "owner"}, {"web-1", "ops"}}
	require.NoError(t, editor.Save(context.Background(), ref, want))

	rows, err := editor.Get(context.Background(), ref)
	require.NoError(t, err)
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestEditorSavePrunesEmptyRows(t *testing.T) {
	editor, _ := testEditor(t)
	ref := FileRef{Name: "pruned.csv", Namespace: "search"}

	in := [][]string{{"a", "b"}, {"", "  "}, {"1", "2"}, {}}
	require.NoError(t, editor.Save(context.Background(), ref, in))

	rows, err := editor.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, rows)
}

func TestEditorSaveBacksUpPreviousContents(t *testing.T) {
	res := testResolver(t)
	backups := NewBackups(res)
	editor := NewEditor(res, backups, nil)
	ref := FileRef{Name: "versioned.csv", Namespace: "search"}

	require.NoError(t, editor.Save(context.Background(), ref, [][]string{{"v"}, {"1"}}))
	require.NoError(t, editor.Save(context.Background(), ref, [][]string{{"v"}, {"2"}}))

	list, err := backups.List(context.Background(), ref)
	require.NoError(t, err)
	require.NotEmpty(t, list, "second save must leave a backup of the first")

	old, err := editor.Get(context.Background(), FileRef{
		Name: "versioned.csv", Namespace: "search", Version: list[0].Version,
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"v"}, {"1"}}, old)
}

func TestEditorSaveRejectsVersionRef(t *testing.T) {
	editor, _ := testEditor(t)
	err := editor.Save(context.Background(), FileRef{Name: "x.csv", Version: "123"}, nil)
	assert.Error(t, err)
}

func TestEditorUserScopedLookup(t *testing.T) {
	editor, res := testEditor(t)
	ref := FileRef{Name: "mine.csv", Namespace: "search", Owner: "alice"}
	require.NoError(t, editor.Save(context.Background(), ref, [][]string{{"k"}, {"v"}}))

	path, err := res.Resolve(ref, false)
	require.NoError(t, err)
	assert.Contains(t, path, filepath.Join("users", "alice", "search", "lookups"))

	rows, err := editor.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
