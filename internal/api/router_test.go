package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/tdtp-deid/internal/infra"
	"github.com/ruslano69/tdtp-deid/internal/request"
	"github.com/ruslano69/tdtp-deid/pkg/plan"
)

const testArtifactYAML = `
name: patients
attributes:
  - {name: age, type: quasi_identifying, hierarchy: age}
  - {name: zip, type: quasi_identifying, hierarchy: zip}
  - {name: name, type: identifying}
hierarchies:
  age:
    kind: interval
    params: {widths: [10, 20]}
  zip:
    kind: mask
    params: {length: 5}
criteria:
  - kind: k_anonymity
    params: {k: 2}
  - kind: min_generalization
    params: {attribute: age, level: 1}
  - kind: min_generalization
    params: {attribute: zip, level: 2}
max_outliers: 0.05
`

const testSampleCSV = "name,age,zip\nAnn,34,94110\nBob,36,94117\nCid,51,10001\nDan,55,10002\n"

// newTestServer resolves a real plan with the lattice engine and serves the full router.
func newTestServer(t *testing.T) (*httptest.Server, *infra.Runtime) {
	t.Helper()
	dir := t.TempDir()
	artifactPath := filepath.Join(dir, "deid.yaml")
	samplePath := filepath.Join(dir, "sample.csv")
	if err := os.WriteFile(artifactPath, []byte(testArtifactYAML), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(samplePath, []byte(testSampleCSV), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := infra.DefaultConfig()
	cfg.Artifact.Location = artifactPath
	cfg.Sample.Type = "csv"
	cfg.Sample.Path = samplePath

	ctx := context.Background()
	inf, err := infra.Setup(ctx, cfg, true)
	if err != nil {
		t.Fatalf("infra.Setup() error = %v", err)
	}
	t.Cleanup(inf.Close)

	rt, err := infra.Bootstrap(ctx, cfg)
	if err != nil {
		t.Fatalf("infra.Bootstrap() error = %v", err)
	}

	srv := httptest.NewServer(NewRouter(cfg, inf, rt))
	t.Cleanup(srv.Close)
	return srv, rt
}

func TestRouter_TransformEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `[{"_id":"7","name":"Eve","age":34,"zip":94110},{"_id":"8","name":"Max","age":52,"zip":"10009"}]`
	resp, err := http.Post(srv.URL+"/transform", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /transform: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []map[string]any{
		{"_id": "7", "name": "*", "age": "30-39", "zip": "941**"},
		{"_id": "8", "name": "*", "age": "50-59", "zip": "100**"},
	}
	if len(out) != len(want) {
		t.Fatalf("got %d records, want %d", len(out), len(want))
	}
	for i := range want {
		for k, v := range want[i] {
			if out[i][k] != v {
				t.Errorf("record %d field %s = %v, want %v", i, k, out[i][k], v)
			}
		}
	}

	id := resp.Header.Get(requestIDHeader)
	reqResp, err := http.Get(srv.URL + "/requests/" + id)
	if err != nil {
		t.Fatalf("GET /requests: %v", err)
	}
	defer reqResp.Body.Close()
	if reqResp.StatusCode != http.StatusOK {
		t.Errorf("GET /requests/%s status = %d", id, reqResp.StatusCode)
	}
}

func TestRouter_Plan(t *testing.T) {
	srv, rt := newTestServer(t)

	resp, err := http.Get(srv.URL + "/plan")
	if err != nil {
		t.Fatalf("GET /plan: %v", err)
	}
	defer resp.Body.Close()

	var d plan.Description
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.ID != rt.Plan.ID() {
		t.Errorf("plan id = %q, want %q", d.ID, rt.Plan.ID())
	}
	if strings.Join(d.Header, ",") != "age,zip,name" {
		t.Errorf("header = %v", d.Header)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/healthz", http.StatusOK, `"status":"ok"`},
		{"/readyz", http.StatusOK, `"redis":"ok"`},
		{"/requests/missing", http.StatusNotFound, "request not found"},
		{"/metrics", http.StatusOK, "go_goroutines"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()

			var buf bytes.Buffer
			_, _ = buf.ReadFrom(resp.Body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("body %q does not contain %q", buf.String(), tt.contains)
			}
		})
	}
}

func TestGetRequest_StoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	inf := &infra.Infra{Requests: request.New(rdb)}

	r := chi.NewRouter()
	r.Get("/requests/{id}", handleGetRequest(inf))

	get := func(id string) *httptest.ResponseRecorder {
		rw := httptest.NewRecorder()
		r.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/requests/"+id, nil))
		return rw
	}

	if rw := get("missing"); rw.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rw.Code)
	}

	mr.Close()
	rw := get("missing")
	if rw.Code != http.StatusServiceUnavailable {
		t.Errorf("redis down: status = %d, want 503. Body: %s", rw.Code, rw.Body.String())
	}
	if !strings.Contains(rw.Body.String(), "request store unavailable") {
		t.Errorf("body = %s", rw.Body.String())
	}
}
