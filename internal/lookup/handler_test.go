// SPDX-License-Identifier: MIT

package lookup

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/lookupd/internal/handler"
)

func testHandler(t *testing.T) *EditorHandler {
	t.Helper()
	res := testResolver(t)
	backups := NewBackups(res)
	editor := NewEditor(res, backups, nil)
	return NewEditorHandler(editor, backups, testKVStore(t))
}

func getRequest(subPath string, query map[string][]string) *handler.Request {
	return &handler.Request{
		Method:  http.MethodGet,
		Path:    "/data/lookup_edit",
		SubPath: subPath,
		Query:   query,
		User:    "tester",
	}
}

func TestHandlerSaveThenGet(t *testing.T) {
	h := testHandler(t)
	ctx := context.Background()

	payload, err := json.Marshal(savePayload{
		Name:      "hosts.csv",
		Namespace: "search",
		Contents:  [][]string{{"host"}, {"web-1"}},
	})
	require.NoError(t, err)

	resp, err := h.Handle(ctx, &handler.Request{
		Method:  http.MethodPost,
		Path:    "/data/lookup_edit",
		Payload: payload,
	})
	require.NoError(t, err)
	assert.Equal(t, "json", resp.OutputMode)

	resp, err = h.Handle(ctx, getRequest("", map[string][]string{
		"lookup_file": {"hosts.csv"},
		"namespace":   {"search"},
	}))
	require.NoError(t, err)
	rows, ok := resp.Body.([][]string)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"host"}, {"web-1"}}, rows)
}

func TestHandlerGetMissingLookupIs404(t *testing.T) {
	h := testHandler(t)

	resp, err := h.Handle(context.Background(), getRequest("", map[string][]string{
		"lookup_file": {"absent.csv"},
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestHandlerMissingQueryParamIs400(t *testing.T) {
	h := testHandler(t)

	resp, err := h.Handle(context.Background(), getRequest("", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestHandlerSaveWithoutPayloadIs400(t *testing.T) {
	h := testHandler(t)

	resp, err := h.Handle(context.Background(), &handler.Request{
		Method: http.MethodPost,
		Path:   "/data/lookup_edit",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestHandlerMalformedPayloadIs400(t *testing.T) {
	h := testHandler(t)

	resp, err := h.Handle(context.Background(), &handler.Request{
		Method:  http.MethodPost,
		Path:    "/data/lookup_edit",
		Payload: []byte("{not json"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

// User-scoped lookups are private: only the owning user may read or write
// them, everyone shares the app-scoped ("nobody") files.
func TestHandlerCrossOwnerAccessIs403(t *testing.T) {
	h := testHandler(t)
	ctx := context.Background()

	payload, err := json.Marshal(savePayload{
		Name:     "private.csv",
		Owner:    "alice",
		Contents: [][]string{{"k"}, {"v"}},
	})
	require.NoError(t, err)

	resp, err := h.Handle(ctx, &handler.Request{
		Method:  http.MethodPost,
		Path:    "/data/lookup_edit",
		Payload: payload,
		User:    "alice",
	})
	require.NoError(t, err)
	require.NotEqual(t, http.StatusForbidden, resp.Status, "owner saves their own lookup")

	query := map[string][]string{
		"lookup_file": {"private.csv"},
		"owner":       {"alice"},
	}

	req := getRequest("", query)
	req.User = "bob"
	resp, err = h.Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Status, "other users cannot read a private lookup")

	resp, err = h.Handle(ctx, &handler.Request{
		Method:  http.MethodPost,
		Path:    "/data/lookup_edit",
		Payload: payload,
		User:    "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Status, "other users cannot overwrite a private lookup")

	req = getRequest("backups", query)
	req.User = "bob"
	resp, err = h.Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Status, "backup listing honors ownership")

	req = getRequest("", query)
	req.User = "alice"
	resp, err = h.Handle(ctx, req)
	require.NoError(t, err)
	rows, ok := resp.Body.([][]string)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"k"}, {"v"}}, rows)
}

func TestHandlerBackupsList(t *testing.T) {
	h := testHandler(t)
	ctx := context.Background()

	for _, v := range []string{"1", "2"} {
		payload, err := json.Marshal(savePayload{
			Name:     "b.csv",
			Contents: [][]string{{"v"}, {v}},
		})
		require.NoError(t, err)
		_, err = h.Handle(ctx, &handler.Request{
			Method:  http.MethodPost,
			Path:    "/data/lookup_edit",
			Payload: payload,
		})
		require.NoError(t, err)
	}

	resp, err := h.Handle(ctx, getRequest("backups", map[string][]string{
		"lookup_file": {"b.csv"},
	}))
	require.NoError(t, err)
	backups, ok := resp.Body.([]BackupInfo)
	require.True(t, ok)
	assert.NotEmpty(t, backups)
}

func TestHandlerKVContents(t *testing.T) {
	h := testHandler(t)
	ctx := context.Background()

	require.NoError(t, h.kv.CreateCollection(ctx, "assets", []string{"host"}))
	_, err := h.kv.PutRow(ctx, "assets", "k1", map[string]any{"host": "web-1"})
	require.NoError(t, err)

	resp, err := h.Handle(ctx, getRequest("kv", map[string][]string{
		"collection": {"assets"},
	}))
	require.NoError(t, err)
	rows, ok := resp.Body.([][]string)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"_key", "host"}, {"k1", "web-1"}}, rows)
}

func TestHandlerUnknownOperationIs404(t *testing.T) {
	h := testHandler(t)

	resp, err := h.Handle(context.Background(), getRequest("flush", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}
