package infra

import (
	"os"
	"path/filepath"
	"testing"
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

// writeInputs creates an artifact and a sample in a temp dir.
func writeInputs(t *testing.T) (artifactPath, samplePath string) {
	t.Helper()
	dir := t.TempDir()
	artifactPath = filepath.Join(dir, "deid.yaml")
	samplePath = filepath.Join(dir, "sample.csv")
	if err := os.WriteFile(artifactPath, []byte(testArtifactYAML), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(samplePath, []byte(testSampleCSV), 0600); err != nil {
		t.Fatal(err)
	}
	return artifactPath, samplePath
}
