// SPDX-License-Identifier: MIT

package restmap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "restmap.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const altConf = `[script:lookup_edit]
match = /data/lookup_edit
script = lookup_editor_rest_handler.py
scripttype = persist
handler = lookup_editor_rest_handler.LookupEditorHandler
requireAuthentication = true
output_modes = json
passPayload = true
passHttpHeaders = true
passHttpCookies = true

[script:lookup_backup]
match = /data/lookup_backup
script = lookup_editor_rest_handler.py
handler = lookup_editor_rest_handler.LookupEditorHandler
requireAuthentication = true
output_modes = json
`

func TestHolderReloadSwapsSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, string(DefaultConf()))

	initial, err := Load(path, nil)
	require.NoError(t, err)

	h := NewHolder(initial, path, nil)
	require.Equal(t, 1, h.Get().Len())

	require.NoError(t, os.WriteFile(path, []byte(altConf), 0o600))
	require.NoError(t, h.Reload(context.Background()))
	assert.Equal(t, 2, h.Get().Len())
}

func TestHolderReloadKeepsOldOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, string(DefaultConf()))

	initial, err := Load(path, nil)
	require.NoError(t, err)
	h := NewHolder(initial, path, nil)

	require.NoError(t, os.WriteFile(path, []byte("[script:x]\nbroken"), 0o600))
	assert.Error(t, h.Reload(context.Background()))
	assert.Equal(t, 1, h.Get().Len(), "previous snapshot must survive a bad reload")
}

func TestHolderNotifiesSubscribers(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, string(DefaultConf()))

	initial, err := Load(path, nil)
	require.NoError(t, err)
	h := NewHolder(initial, path, nil)

	ch := make(chan *Registry, 1)
	h.Subscribe(ch)

	require.NoError(t, h.Reload(context.Background()))
	select {
	case next := <-ch:
		assert.Equal(t, 1, next.Len())
	default:
		t.Fatal("expected a reload notification")
	}
}

func TestLoadFallsBackToEmbeddedDefault(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "missing.conf"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	reg, err = Load("", nil)
	require.NoError(t, err)
	_, ok := reg.ByRoute("/data/lookup_edit")
	assert.True(t, ok)
}
