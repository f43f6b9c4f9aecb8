// SPDX-License-Identifier: MIT

package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ManuGH/lookupd/internal/handler"
	"github.com/ManuGH/lookupd/internal/log"
)

// HandlerSymbol is the registry symbol the restmap stanza binds to.
const HandlerSymbol = "lookup_editor_rest_handler.LookupEditorHandler"

// EditorHandler services the /data/lookup_edit endpoint. It is registered
// with scripttype=persist, so one instance is shared across requests; all
// state lives in the editor, backup store and KV store it wraps, which are
// safe for concurrent use.
type EditorHandler struct {
	editor  *Editor
	backups *Backups
	kv      *KVStore
}

// NewEditorHandler wires the REST handler over the lookup subsystems.
func NewEditorHandler(editor *Editor, backups *Backups, kv *KVStore) *EditorHandler {
	return &EditorHandler{editor: editor, backups: backups, kv: kv}
}

// Factory returns a handler.Factory producing this instance, for
// registration under HandlerSymbol.
func (h *EditorHandler) Factory() handler.Factory {
	return func() (handler.Handler, error) { return h, nil }
}

// savePayload is the JSON body of a save request.
type savePayload struct {
	Name      string     `json:"lookup_file"`
	Namespace string     `json:"namespace"`
	Owner     string     `json:"owner"`
	Contents  [][]string `json:"contents"`
}

type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

// Handle dispatches the endpoint's operations by sub-path:
//
//	GET  ""          lookup contents (CSV file or KV collection)
//	POST ""          save lookup contents
//	GET  "backups"   list backups of a lookup
//	GET  "kv"        KV collection contents as a table
func (h *EditorHandler) Handle(ctx context.Context, req *handler.Request) (*handler.Response, error) {
	resp, err := h.dispatch(ctx, req)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			ctxLogger := log.FromContext(ctx)
			ctxLogger.Warn().
				Err(se.err).
				Int("status", se.status).
				Str("op", req.SubPath).
				Msg("lookup operation rejected")
			return &handler.Response{
				Status:     se.status,
				OutputMode: "json",
				Body:       map[string]string{"error": se.err.Error()},
			}, nil
		}
		return nil, err
	}
	return resp, nil
}

func (h *EditorHandler) dispatch(ctx context.Context, req *handler.Request) (*handler.Response, error) {
	switch req.SubPath {
	case "":
		switch req.Method {
		case http.MethodGet:
			return h.handleContents(ctx, req)
		case http.MethodPost:
			return h.handleSave(ctx, req)
		}
	case "backups":
		if req.Method == http.MethodGet {
			return h.handleBackups(ctx, req)
		}
	case "kv":
		if req.Method == http.MethodGet {
			return h.handleKV(ctx, req)
		}
	}
	return nil, &statusError{
		status: http.StatusNotFound,
		err:    fmt.Errorf("unknown operation %s %s", req.Method, req.SubPath),
	}
}

// authorizeOwner guards user-scoped lookups: only the owning user may read
// or write them. App-scoped lookups (owner empty or "nobody") are shared
// across all authenticated users.
func authorizeOwner(req *handler.Request, owner string) error {
	if owner == "" || owner == nobodyOwner {
		return nil
	}
	if req.User != owner {
		return fmt.Errorf("%w: lookup belongs to %s", ErrPermissionDenied, owner)
	}
	return nil
}

func refFromQuery(req *handler.Request) (FileRef, error) {
	ref := FileRef{
		Name:      queryValue(req, "lookup_file"),
		Namespace: queryValue(req, "namespace"),
		Owner:     queryValue(req, "owner"),
		Version:   queryValue(req, "version"),
	}
	if ref.Name == "" {
		return ref, &statusError{
			status: http.StatusBadRequest,
			err:    fmt.Errorf("missing lookup_file parameter"),
		}
	}
	return ref, nil
}

func queryValue(req *handler.Request, key string) string {
	values := req.Query[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (h *EditorHandler) handleContents(ctx context.Context, req *handler.Request) (*handler.Response, error) {
	ref, err := refFromQuery(req)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(req, ref.Owner); err != nil {
		return nil, mapLookupError(err)
	}

	rows, err := h.editor.Get(ctx, ref)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return &handler.Response{OutputMode: "json", Body: rows}, nil
}

func (h *EditorHandler) handleSave(ctx context.Context, req *handler.Request) (*handler.Response, error) {
	if req.Payload == nil {
		return nil, &statusError{
			status: http.StatusBadRequest,
			err:    fmt.Errorf("missing request payload"),
		}
	}

	var payload savePayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return nil, &statusError{
			status: http.StatusBadRequest,
			err:    fmt.Errorf("malformed payload: %w", err),
		}
	}
	if payload.Name == "" {
		return nil, &statusError{
			status: http.StatusBadRequest,
			err:    fmt.Errorf("missing lookup_file in payload"),
		}
	}

	if err := authorizeOwner(req, payload.Owner); err != nil {
		return nil, mapLookupError(err)
	}

	ref := FileRef{Name: payload.Name, Namespace: payload.Namespace, Owner: payload.Owner}
	if err := h.editor.Save(ctx, ref, payload.Contents); err != nil {
		return nil, mapLookupError(err)
	}

	return &handler.Response{
		OutputMode: "json",
		Body:       map[string]string{"lookup_file": payload.Name, "status": "saved"},
	}, nil
}

func (h *EditorHandler) handleBackups(ctx context.Context, req *handler.Request) (*handler.Response, error) {
	ref, err := refFromQuery(req)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(req, ref.Owner); err != nil {
		return nil, mapLookupError(err)
	}

	backups, err := h.backups.List(ctx, ref)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if backups == nil {
		backups = []BackupInfo{}
	}
	return &handler.Response{OutputMode: "json", Body: backups}, nil
}

func (h *EditorHandler) handleKV(ctx context.Context, req *handler.Request) (*handler.Response, error) {
	name := queryValue(req, "collection")
	if name == "" {
		return nil, &statusError{
			status: http.StatusBadRequest,
			err:    fmt.Errorf("missing collection parameter"),
		}
	}

	rows, err := h.kv.Rows(ctx, name)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return &handler.Response{OutputMode: "json", Body: rows}, nil
}

func mapLookupError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return &statusError{status: http.StatusNotFound, err: err}
	case errors.Is(err, ErrPermissionDenied):
		return &statusError{status: http.StatusForbidden, err: err}
	case IsTooBig(err):
		return &statusError{status: http.StatusRequestEntityTooLarge, err: err}
	default:
		return err
	}
}
