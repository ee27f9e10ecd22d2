package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ruslano69/tdtp-deid/pkg/criteria"
)

const testArtifact = `
name: patients
attributes:
  - name: age
    type: quasi_identifying
    hierarchy: age
  - name: zip
    type: quasi_identifying
    hierarchy: zip
  - name: city
    type: quasi_identifying
    hierarchy: city
  - name: name
    type: identifying
  - name: diagnosis
    type: sensitive
hierarchies:
  age:
    kind: interval
    params:
      widths: [10, 20]
  zip:
    kind: mask
    params:
      length: 5
  city:
    kind: table
    params:
      file: city.csv
  unused:
    kind: mask
    params:
      length: 3
criteria:
  - kind: k_anonymity
    params: {k: 5}
  - kind: min_generalization
    params: {attribute: age, level: 1}
max_outliers: 0.05
`

func writeArtifact(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "city.csv"), []byte("Omsk;Siberia;*\nTomsk;Siberia;*\n"), 0600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "deid.yaml")
	if err := os.WriteFile(path, []byte(testArtifact), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndBuild(t *testing.T) {
	path := writeArtifact(t)

	a, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Name != "patients" || a.BaseDir != filepath.Dir(path) {
		t.Errorf("artifact = %+v", a)
	}

	res, err := a.Build(nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := res.Schema.Names(); strings.Join(got, ",") != "age,zip,city,name,diagnosis" {
		t.Errorf("schema order = %v", got)
	}
	if len(res.Hierarchies) != 3 {
		t.Errorf("hierarchies = %d, want 3 (unused skipped)", len(res.Hierarchies))
	}
	if got, _ := res.Hierarchies["city"].Generalize("Tomsk", 1); got != "Siberia" {
		t.Errorf("city level 1 = %q", got)
	}
	if got, _ := res.Hierarchies["age"].Generalize("34", 1); got != "30-39" {
		t.Errorf("age level 1 = %q", got)
	}

	if !res.Criteria.Has(criteria.KindKAnonymity) || res.Criteria.MaxOutliers() != 0.05 {
		t.Errorf("criteria = %s", res.Criteria)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ``},
		{"no attributes", `max_outliers: 0.1`},
		{"unknown field", "attributes:\n  - name: a\nfoo: 1\n"},
		{"broken", "attributes: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "undefined hierarchy",
			yaml: "attributes:\n  - {name: age, type: quasi_identifying, hierarchy: age}\n",
			want: "not defined",
		},
		{
			name: "unknown criterion",
			yaml: "attributes:\n  - {name: a}\ncriteria:\n  - kind: delta_presence\n",
			want: "unknown criterion",
		},
		{
			name: "reserved name",
			yaml: "attributes:\n  - {name: _id}\n",
			want: "invalid schema",
		},
		{
			name: "bad outliers",
			yaml: "attributes:\n  - {name: a}\nmax_outliers: 1.5\n",
			want: "criteria",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			_, err = a.Build(nil, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Build() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deid.yaml" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "attributes:\n  - {name: city}\n")
	}))
	defer srv.Close()

	l := NewLoader(WithHTTPClient(srv.Client()))

	a, err := l.Load(context.Background(), srv.URL+"/deid.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(a.Attributes) != 1 || a.BaseDir != "" {
		t.Errorf("artifact = %+v", a)
	}

	if _, err := l.Load(context.Background(), srv.URL+"/missing.yaml"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		in      string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://configs/deid/patients.yaml", "configs", "deid/patients.yaml", false},
		{"s3://configs/", "", "", true},
		{"s3:///key", "", "", true},
		{"http://configs/key", "", "", true},
	}

	for _, tt := range tests {
		bucket, key, err := ParseS3URL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseS3URL(%q) error = %v", tt.in, err)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("ParseS3URL(%q) = %q, %q", tt.in, bucket, key)
		}
	}
}

// fakeS3 отдает объекты из памяти с учетом заголовка Range
type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}

	start, end := 0, len(data)-1
	if in.Range != nil {
		fmt.Sscanf(aws.ToString(in.Range), "bytes=%d-%d", &start, &end)
		if end >= len(data) {
			end = len(data) - 1
		}
	}
	body := data[start : end+1]

	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
		ContentRange:  aws.String(fmt.Sprintf("bytes %d-%d/%d", start, end, len(data))),
	}, nil
}

func TestFetchS3(t *testing.T) {
	content := []byte("attributes:\n  - {name: city}\n")
	l := NewLoader(WithS3Client(&fakeS3{objects: map[string][]byte{"configs/deid.yaml": content}}))

	data, baseDir, err := l.Fetch(context.Background(), "s3://configs/deid.yaml")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(data, content) || baseDir != "" {
		t.Errorf("Fetch = %q, %q", data, baseDir)
	}

	if _, _, err := l.Fetch(context.Background(), "s3://configs/missing.yaml"); err == nil {
		t.Error("expected error for missing object")
	}
}

func TestFetchEmptyLocation(t *testing.T) {
	if _, _, err := NewLoader().Fetch(context.Background(), ""); err == nil {
		t.Error("expected error")
	}
}
