// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pdiddy/copyedit-engine/internal/request"
	"github.com/pdiddy/copyedit-engine/internal/store"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// scriptedBackend returns one canned reply and records every prompt.
type scriptedBackend struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Complete(_ context.Context, _, prompt string) (string, error) {
	b.mu.Lock()
	b.prompts = append(b.prompts, prompt)
	b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	return b.reply, nil
}

func newTestServer(t *testing.T, backend *scriptedBackend, st *store.Store) *httptest.Server {
	t.Helper()
	s := New(types.DefaultPipelineConfig(), st)
	s.newBackend = func(types.RequestConfig) (request.Backend, error) { return backend, nil }
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.NewStore(types.StoreConfig{
		RunsDir:    filepath.Join(t.TempDir(), "runs"),
		MaxResults: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) CorrectResponse {
	t.Helper()
	defer resp.Body.Close()
	var got CorrectResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return got
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &scriptedBackend{}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok\n" {
		t.Errorf("body = %q, want ok", string(body))
	}
}

func TestCorrectEndpoint(t *testing.T) {
	backend := &scriptedBackend{
		reply: `[{"id":1,"find":"We recieve your order","replace":"We receive your order","reason":"spelling"}]`,
	}
	ts := newTestServer(t, backend, nil)

	resp := postJSON(t, ts.URL+"/v1/correct", CorrectRequest{
		HTML: "<p>We recieve your order within two days.</p>",
		Task: "grammar",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got := decodeResponse(t, resp)
	if len(got.AppliedEdits) != 1 {
		t.Fatalf("got %d applied edits, want 1: %+v", len(got.AppliedEdits), got)
	}
	if !strings.Contains(got.HTML, "We receive your order") {
		t.Errorf("correction missing from output:\n%s", got.HTML)
	}
	if got.RunID != "" {
		t.Errorf("RunID = %q, want empty without save", got.RunID)
	}
	if len(backend.prompts) != 1 {
		t.Errorf("backend called %d times, want 1", len(backend.prompts))
	}
}

func TestCorrectValidation(t *testing.T) {
	ts := newTestServer(t, &scriptedBackend{reply: "[]"}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty html", `{"html":"","task":"grammar"}`},
		{"unknown task", `{"html":"<p>x</p>","task":"haiku"}`},
		{"invalid json", `{"html":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/v1/correct", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestCorrectBackendFatal(t *testing.T) {
	backend := &scriptedBackend{
		err: &request.BackendError{Status: http.StatusUnauthorized, Body: "bad key"},
	}
	ts := newTestServer(t, backend, nil)

	resp := postJSON(t, ts.URL+"/v1/correct", CorrectRequest{
		HTML: "<p>Some copy.</p>",
		Task: "grammar",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestApplyEndpoint(t *testing.T) {
	// No backend: apply mode must never call one.
	ts := newTestServer(t, &scriptedBackend{err: io.EOF}, nil)

	resp := postJSON(t, ts.URL+"/v1/apply", ApplyRequest{
		HTML: "<p>Contact us befor noon.</p>",
		Edits: []types.ProposedChange{
			{Find: "befor", Replace: "before", Reason: "spelling"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got := decodeResponse(t, resp)
	if len(got.AppliedEdits) != 1 {
		t.Fatalf("got %d applied edits, want 1: %+v", len(got.AppliedEdits), got)
	}
	if got.AppliedEdits[0].ChangeType != "custom" {
		t.Errorf("ChangeType = %q, want custom", got.AppliedEdits[0].ChangeType)
	}
	if !strings.Contains(got.HTML, "before noon") {
		t.Errorf("edit missing from output:\n%s", got.HTML)
	}
}

func TestApplyRequiresEdits(t *testing.T) {
	ts := newTestServer(t, &scriptedBackend{}, nil)

	resp := postJSON(t, ts.URL+"/v1/apply", ApplyRequest{HTML: "<p>x</p>"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRunsEndpoints(t *testing.T) {
	backend := &scriptedBackend{
		reply: `[{"id":1,"find":"We recieve your order","replace":"We receive your order","reason":"spelling"}]`,
	}
	st := newTestStore(t)
	ts := newTestServer(t, backend, st)

	resp := postJSON(t, ts.URL+"/v1/correct", CorrectRequest{
		HTML: "<p>We recieve your order within two days.</p>",
		Task: "grammar",
		Save: true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decodeResponse(t, resp)
	if got.RunID == "" {
		t.Fatal("RunID should be set when save is requested")
	}

	// List.
	listResp, err := http.Get(ts.URL + "/v1/runs")
	if err != nil {
		t.Fatal(err)
	}
	var runs []store.Run
	if err := json.NewDecoder(listResp.Body).Decode(&runs); err != nil {
		t.Fatal(err)
	}
	listResp.Body.Close()
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].ID != got.RunID {
		t.Errorf("listed run = %q, want %q", runs[0].ID, got.RunID)
	}
	if runs[0].Source != "api" {
		t.Errorf("Source = %q, want api", runs[0].Source)
	}

	// Detail.
	detailResp, err := http.Get(ts.URL + "/v1/runs/" + got.RunID)
	if err != nil {
		t.Fatal(err)
	}
	var detail store.RunDetail
	if err := json.NewDecoder(detailResp.Body).Decode(&detail); err != nil {
		t.Fatal(err)
	}
	detailResp.Body.Close()
	if detail.Run.ID != got.RunID {
		t.Errorf("detail run = %q, want %q", detail.Run.ID, got.RunID)
	}
	if len(detail.Edits) != 1 {
		t.Errorf("got %d edits, want 1", len(detail.Edits))
	}

	// Unknown id.
	missingResp, err := http.Get(ts.URL + "/v1/runs/ffffffff")
	if err != nil {
		t.Fatal(err)
	}
	missingResp.Body.Close()
	if missingResp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", missingResp.StatusCode)
	}
}

func TestRunsNotConfigured(t *testing.T) {
	ts := newTestServer(t, &scriptedBackend{}, nil)

	resp, err := http.Get(ts.URL + "/v1/runs")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}
