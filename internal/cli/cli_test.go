package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "panic")
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEntitiesList_SendsFiltersAndPrintsRecords(t *testing.T) {
	var seen *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		_, _ = io.WriteString(w, `{"status":200,"data":{"items":[{"id":"m-1","name":"ORS"}],"total":1}}`)
	}))
	defer srv.Close()

	out, err := run(t, "", "entities", "list", "Medicine",
		"--base-url", srv.URL, "--token", "tok",
		"--filter", "category=Digestive", "--sort", "-price", "--limit", "3")
	require.NoError(t, err)

	assert.Equal(t, "/entities/Medicine", seen.URL.Path)
	assert.Equal(t, "Digestive", seen.URL.Query().Get("category"))
	assert.Equal(t, "Bearer tok", seen.Header.Get("Authorization"))

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "ORS", records[0]["name"])
}

func TestEntitiesList_FallsBackToSeedSamples(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	out, err := run(t, "", "entities", "list", "Doctor", "--base-url", srv.URL,
		"--filter", "specialty=Neurologist")
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Neurologist", records[0]["specialty"])
}

func TestEntitiesCreate_ReadsStdin(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["id"] = "lt-9"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": 201, "data": body})
	}))
	defer srv.Close()

	out, err := run(t, `{"name":"Ferritin","price":450}`, "entities", "create", "LabTest",
		"--base-url", srv.URL, "--data", "-")
	require.NoError(t, err)
	assert.Equal(t, "Ferritin", body["name"])
	assert.Contains(t, out, `"id": "lt-9"`)
}

func TestEntities_InvalidInput(t *testing.T) {
	_, err := run(t, "", "entities", "list", "Doctor", "--base-url", "http://127.0.0.1:1", "--filter", "specialty")
	assert.ErrorContains(t, err, "expected field=value")

	_, err = run(t, "", "entities", "create", "Doctor", "--base-url", "http://127.0.0.1:1")
	assert.ErrorContains(t, err, "--data is required")

	_, err = run(t, "", "entities", "get", "Doctor")
	assert.Error(t, err)
}

func TestEntitiesDelete_ReportsConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"status":409,"error":"Medicine is referenced"}`)
	}))
	defer srv.Close()

	_, err := run(t, "", "entities", "delete", "Medicine", "m-1", "--base-url", srv.URL)
	assert.ErrorContains(t, err, "referenced")
}
