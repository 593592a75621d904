package ckanapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sei-protocol/ckanpatch/entity"
)

type call struct {
	action string
	auth   string
	body   map[string]any
}

func fakeCKAN(t *testing.T, handler func(action string, body map[string]any) (int, string)) (*Client, *[]call) {
	t.Helper()
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		action := r.URL.Path[len("/api/3/action/"):]
		calls = append(calls, call{action: action, auth: r.Header.Get("Authorization"), body: body})
		status, resp := handler(action, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, WithAPIKey("secret"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c, &calls
}

func TestPatchThroughActionAPI(t *testing.T) {
	client, calls := fakeCKAN(t, func(action string, body map[string]any) (int, string) {
		switch action {
		case "package_show":
			return http.StatusOK, `{"success": true, "result": {
				"id": "d1", "name": "census", "title": "Census",
				"resources": [{"id": "r1", "name": "a"}, {"id": "r2", "name": "b"}]}}`
		case "package_update":
			out, _ := json.Marshal(map[string]any{"success": true, "result": body})
			return http.StatusOK, string(out)
		}
		return http.StatusBadRequest, `{"success": false, "error": {"__type": "Bad Request"}}`
	})
	p := entity.NewPatcher(entity.NewAllowList("admin"), entity.WithBackend(entity.Dataset, client.Backend(entity.Dataset)))

	result, err := p.Patch(context.Background(), entity.Dataset, entity.Caller{User: "admin"}, entity.Document{
		"id":        "census",
		"resources": []any{map[string]any{"id": "r2", "format": "CSV"}},
	})
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	assert.Equal(t, "package_show", (*calls)[0].action)
	assert.Equal(t, map[string]any{"id": "census"}, (*calls)[0].body)
	assert.Equal(t, "secret", (*calls)[0].auth)
	assert.Equal(t, "package_update", (*calls)[1].action)
	assert.Equal(t, "d1", result["id"])
	assert.Equal(t, []any{map[string]any{"id": "r2", "name": "b", "format": "CSV"}}, result["resources"])
}

func TestActionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"success": false, "error": {"__type": "Not Found Error", "message": "Not found"}}`,
			check: func(t *testing.T, err error) {
				var nf *entity.NotFoundError
				require.ErrorAs(t, err, &nf)
				assert.Equal(t, entity.Group, nf.Kind)
				assert.Equal(t, "g1", nf.ID)
			},
		},
		{
			name:   "authorization",
			status: http.StatusForbidden,
			body:   `{"success": false, "error": {"__type": "Authorization Error", "message": "Access denied"}}`,
			check: func(t *testing.T, err error) {
				var ae *entity.AuthorizationError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, "group_show", ae.Action)
				assert.Equal(t, "Access denied", ae.Reason)
			},
		},
		{
			name:   "validation",
			status: http.StatusConflict,
			body:   `{"success": false, "error": {"__type": "Validation Error", "name": ["That URL is already in use.", "Too short"]}}`,
			check: func(t *testing.T, err error) {
				var ve *entity.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, map[string]string{"name": "That URL is already in use.; Too short"}, ve.Fields)
			},
		},
		{
			name:   "other",
			status: http.StatusInternalServerError,
			body:   `{"success": false, "error": {"__type": "Internal Server Error", "message": "boom"}}`,
			check: func(t *testing.T, err error) {
				var ae *APIError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, http.StatusInternalServerError, ae.Status)
				assert.EqualError(t, err, "group_show: HTTP 500 Internal Server Error: boom")
			},
		},
		{
			name:   "not json",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			check: func(t *testing.T, err error) {
				var ae *APIError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, "<html>bad gateway</html>", ae.Message)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := fakeCKAN(t, func(string, map[string]any) (int, string) { return tt.status, tt.body })
			_, err := client.Backend(entity.Group).Show(context.Background(), entity.ReadContext{User: "admin"}, "g1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestCreate(t *testing.T) {
	client, calls := fakeCKAN(t, func(action string, body map[string]any) (int, string) {
		return http.StatusOK, `{"success": true, "result": {"id": "u1", "name": "jane"}}`
	})
	doc, err := client.Backend(entity.User).Create(context.Background(), "admin", entity.Document{"name": "jane"})
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.ID())
	assert.Equal(t, "user_create", (*calls)[0].action)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.org")
	assert.Error(t, err)
	_, err = New("://")
	assert.Error(t, err)
}
