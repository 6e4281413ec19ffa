package sheet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type recordedCall struct {
	method string
	path   string
	query  map[string]string
	body   map[string]any
}

func newSheetsServer(t *testing.T) (*httptest.Server, *[]recordedCall) {
	var mu sync.Mutex
	var calls []recordedCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{method: r.Method, path: r.URL.Path, query: map[string]string{}}
		for k := range r.URL.Query() {
			call.query[k] = r.URL.Query().Get(k)
		}
		if r.Body != nil && r.Method != http.MethodGet {
			_ = json.NewDecoder(r.Body).Decode(&call.body)
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"range":"contenidos!A1:Z3","majorDimension":"ROWS","values":[["Título","Estado"],["Uno","si"],["Dos"]]}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newGoogleValues(t *testing.T, server *httptest.Server) *GoogleValues {
	svc, err := NewService(context.Background(), Credentials{},
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return NewGoogleValues(svc)
}

func TestNewService_RequiresCredentials(t *testing.T) {
	_, err := NewService(context.Background(), Credentials{})
	assert.ErrorContains(t, err, "credentials required")
}

func TestGoogleValues_Get(t *testing.T) {
	server, calls := newSheetsServer(t)
	g := newGoogleValues(t, server)

	values, err := g.Get(context.Background(), "sheet-id", "contenidos!A:Z")
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"Título", "Estado"}, {"Uno", "si"}, {"Dos"}}, values)
	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodGet, (*calls)[0].method)
	assert.Equal(t, "/v4/spreadsheets/sheet-id/values/contenidos!A:Z", (*calls)[0].path)
}

func TestGoogleValues_Update(t *testing.T) {
	server, calls := newSheetsServer(t)
	g := newGoogleValues(t, server)

	require.NoError(t, g.Update(context.Background(), "sheet-id", "contenidos!E2", [][]string{{"hecho"}}))

	call := (*calls)[0]
	assert.Equal(t, http.MethodPut, call.method)
	assert.Equal(t, "RAW", call.query["valueInputOption"])
	assert.Equal(t, []any{[]any{"hecho"}}, call.body["values"])
}

func TestGoogleValues_BatchUpdate(t *testing.T) {
	server, calls := newSheetsServer(t)
	g := newGoogleValues(t, server)

	err := g.BatchUpdate(context.Background(), "sheet-id", []ValueRange{
		{Range: "contenidos!E2", Values: [][]string{{"duplicado"}}},
		{Range: "contenidos!E3", Values: [][]string{{"error"}}},
	})
	require.NoError(t, err)

	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.True(t, strings.HasSuffix(call.path, "/values:batchUpdate"), call.path)
	assert.Equal(t, "RAW", call.body["valueInputOption"])
	data := call.body["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "contenidos!E3", data[1].(map[string]any)["range"])
}

func TestGoogleValues_Append(t *testing.T) {
	server, calls := newSheetsServer(t)
	g := newGoogleValues(t, server)

	require.NoError(t, g.Append(context.Background(), "sheet-id", "indice_contenido!A1", [][]string{{"T", "K"}}))

	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.True(t, strings.HasSuffix(call.path, ":append"), call.path)
	assert.Equal(t, "RAW", call.query["valueInputOption"])
	assert.Equal(t, "INSERT_ROWS", call.query["insertDataOption"])
}

func TestClientOverGoogleValues(t *testing.T) {
	server, _ := newSheetsServer(t)
	c := New(newGoogleValues(t, server), Config{SpreadsheetID: "sheet-id"}, nil)

	rows := c.RowsToProcess(context.Background())
	require.Len(t, rows, 1)
	assert.Equal(t, "Uno", rows[0].Title)
	assert.Equal(t, 2, rows[0].Number)
}
