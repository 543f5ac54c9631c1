// Package testsupport holds the fixture and golden file helpers shared by the
// key scenario tests and the rcache command tests.
package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// EnvUpdateGolden rewrites golden files with the actual output when set to 1.
const EnvUpdateGolden = "UPDATE_GOLDEN"

// LoadFixture returns the raw bytes of a testdata file, failing the test when
// it cannot be read. Relative paths resolve against the package under test.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON decodes a JSON fixture, such as the key scenario table, into
// dest.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	if err := json.Unmarshal(LoadFixture(t, path), dest); err != nil {
		t.Fatalf("decode fixture %s: %v", path, err)
	}
}

// WriteGolden stores expected command output at path. Missing parent
// directories are created.
func WriteGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create golden dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden %s: %v", path, err)
	}
}

// CompareWithGolden compares actual with the golden file at path. A missing
// golden file is created from actual, and UPDATE_GOLDEN=1 rewrites it.
func CompareWithGolden(t *testing.T, path string, actual []byte) {
	t.Helper()

	if os.Getenv(EnvUpdateGolden) == "1" {
		WriteGolden(t, path, actual)
		return
	}

	expected, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		t.Logf("creating golden %s", path)
		WriteGolden(t, path, actual)
		return
	case err != nil:
		t.Fatalf("read golden %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("%s differs from golden output\nwant:\n%s\ngot:\n%s", path, expected, actual)
	}
}

// FixturePath joins filename onto the package testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath joins filename onto testdata/golden.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
