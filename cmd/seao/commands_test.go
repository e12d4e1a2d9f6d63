package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/seao/pkg/client"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_StartAndStatusJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/scraper/start":
			var body client.StartJobRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "alice", body.Username)
			assert.Equal(t, "secret", body.Password)
			assert.Equal(t, []string{"toiture", "isolation"}, body.SearchTerms)
			_ = json.NewEncoder(w).Encode(client.StartJobResponse{Status: "success", JobID: "42", SessionID: "s-1"})
		case "/api/scraper/status/42":
			_ = json.NewEncoder(w).Encode(client.JobStatus{ID: "42", Status: "searching", Progress: 40})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out, err := runCLI(t, "--api-url", srv.URL, "--json", "start", "-u", "alice", "-p", "secret", "-s", "toiture", "-s", "isolation")
	require.NoError(t, err)
	var started client.StartJobResponse
	require.NoError(t, json.Unmarshal([]byte(out), &started))
	assert.Equal(t, "42", started.JobID)

	out, err = runCLI(t, "--api-url", srv.URL, "--json", "status", "42")
	require.NoError(t, err)
	var st client.JobStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "searching", st.Status)
	assert.Equal(t, 40, st.Progress)
}

func TestCLI_APIErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":"error","message":"Job non trouvé"}`))
	}))
	defer srv.Close()

	_, err := runCLI(t, "--api-url", srv.URL, "cancel", "nope")
	require.Error(t, err)
	assert.Equal(t, "Job non trouvé", err.Error())
}

func TestCLI_Arguments(t *testing.T) {
	_, err := runCLI(t, "status")
	assert.Error(t, err)

	_, err = runCLI(t, "verify-code", "123456")
	assert.Error(t, err, "--session is required")
}
