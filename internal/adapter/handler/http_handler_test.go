package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHTTPHandler(newInventory(t), nil).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func doList(t *testing.T, srv *httptest.Server, path string) []map[string]any {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHTTP_AddAndUse(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/api/gelato/add", GelatoHTTPRequest{Location: "-18", Item: "Pistachio", Quantity: "4"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "4", body["quantity"])

	status, body = do(t, srv, http.MethodPost, "/api/gelato/add", GelatoHTTPRequest{Location: "-18", Item: " Pistachio ", Quantity: "3"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "7", body["quantity"])
	assert.Equal(t, "Pistachio", body["item"])

	status, body = do(t, srv, http.MethodPost, "/api/gelato/use", GelatoHTTPRequest{Location: "-18", Item: "Pistachio", Quantity: "10"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0", body["quantity"])
}

func TestHTTP_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		kind   string
	}{
		{name: "non-numeric quantity", path: "/api/gelato/add", body: GelatoHTTPRequest{Location: "-18", Item: "Mango", Quantity: "two"}, status: http.StatusBadRequest, kind: "validation"},
		{name: "huge exponent quantity", path: "/api/gelato/add", body: GelatoHTTPRequest{Location: "-18", Item: "Mango", Quantity: "1e99999999"}, status: http.StatusBadRequest, kind: "validation"},
		{name: "missing item", path: "/api/gelato/add", body: GelatoHTTPRequest{Location: "-18", Quantity: "2"}, status: http.StatusBadRequest, kind: "validation"},
		{name: "unknown freezer", path: "/api/gelato/add", body: GelatoHTTPRequest{Location: "0", Item: "Mango", Quantity: "2"}, status: http.StatusBadRequest, kind: "validation"},
		{name: "use missing flavor", path: "/api/gelato/use", body: GelatoHTTPRequest{Location: "-18", Item: "Mango", Quantity: "1"}, status: http.StatusNotFound, kind: "not_found"},
		{name: "switch same freezer", path: "/api/gelato/switch", body: SwitchFreezerHTTPRequest{From: "-18", To: "-18", Item: "Mango"}, status: http.StatusBadRequest, kind: "validation"},
		{name: "switch missing flavor", path: "/api/gelato/switch", body: SwitchFreezerHTTPRequest{From: "-18", To: "-12", Item: "Mango"}, status: http.StatusNotFound, kind: "not_found"},
		{name: "malformed body", path: "/api/gelato/add", body: "not an object", status: http.StatusBadRequest, kind: "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, srv, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, body["kind"])
		})
	}
}

func TestHTTP_SwitchFreezer(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/gelato/add", GelatoHTTPRequest{Location: "-18", Item: "Lemon", Quantity: "2.5"})
	do(t, srv, http.MethodPost, "/api/gelato/add", GelatoHTTPRequest{Location: "-12", Item: "Lemon", Quantity: "1"})

	status, body := do(t, srv, http.MethodPost, "/api/gelato/switch", SwitchFreezerHTTPRequest{From: "-18", To: "-12", Item: "Lemon"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2.5", body["moved"])

	assert.Empty(t, doList(t, srv, "/api/freezers/-18"))
	contents := doList(t, srv, "/api/freezers/-12")
	require.Len(t, contents, 1)
	assert.Equal(t, "3.5", contents[0]["quantity"])
}

func TestHTTP_ClearAndDeleteFreezer(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/gelato/add", GelatoHTTPRequest{Location: "-12", Item: "Mango", Quantity: "5"})
	do(t, srv, http.MethodPost, "/api/gelato/add", GelatoHTTPRequest{Location: "-12", Item: "Cherry", Quantity: "2"})

	status, body := do(t, srv, http.MethodPost, "/api/freezers/-12/clear", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2.0, body["rows"])

	contents := doList(t, srv, "/api/freezers/-12")
	require.Len(t, contents, 2)
	assert.Equal(t, "Cherry", contents[0]["item"])
	assert.Equal(t, "0", contents[0]["quantity"])

	status, body = do(t, srv, http.MethodDelete, "/api/freezers/-12", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2.0, body["rows"])
	assert.Empty(t, doList(t, srv, "/api/freezers/-12"))

	status, body = do(t, srv, http.MethodDelete, "/api/freezers/-12", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["kind"])

	status, _ = do(t, srv, http.MethodGet, "/api/freezers/-30", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHTTP_RefillSuggestions(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/gelato/add", GelatoHTTPRequest{Location: "-18", Item: "Vanilla", Quantity: "1"})
	do(t, srv, http.MethodPost, "/api/gelato/add", GelatoHTTPRequest{Location: "-18", Item: "Hazelnut", Quantity: "0"})
	do(t, srv, http.MethodPost, "/api/gelato/add", GelatoHTTPRequest{Location: "-12", Item: "Mango", Quantity: "3"})

	status, body := do(t, srv, http.MethodGet, "/api/refill", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"-18": []any{"Hazelnut", "Vanilla"}}, body)

	status, body = do(t, srv, http.MethodGet, "/api/refill?threshold=3", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"Mango"}, body["-12"])

	status, _ = do(t, srv, http.MethodGet, "/api/refill?threshold=-1", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHTTP_ListAllAndHealth(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/gelato/add", GelatoHTTPRequest{Location: "-18", Item: "Vanilla", Quantity: "1"})
	do(t, srv, http.MethodPost, "/api/gelato/add", GelatoHTTPRequest{Location: "-12", Item: "Mango", Quantity: "3"})

	all := doList(t, srv, "/api/inventory")
	require.Len(t, all, 2)
	assert.Equal(t, "-12", all[0]["location"])
	assert.Equal(t, "-18", all[1]["location"])

	status, body := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = do(t, srv, http.MethodPost, "/api/refresh", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["coerced_to_zero"])
}
