package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.txt")
	if err := os.WriteFile(path, []byte("fixture content"), 0644); err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}

	if got := LoadFixture(t, path); string(got) != "fixture content" {
		t.Errorf("expected %q, got %q", "fixture content", got)
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.json")
	content := `{"namespace":"redis_cache","tags":["a","b"],"expectedKey":"redis_cache:00=a:00=b:11=f()"}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}

	var scenario struct {
		Namespace   string   `json:"namespace"`
		Tags        []string `json:"tags"`
		ExpectedKey string   `json:"expectedKey"`
	}
	LoadFixtureJSON(t, path, &scenario)

	if scenario.Namespace != "redis_cache" {
		t.Errorf("expected namespace redis_cache, got %q", scenario.Namespace)
	}
	if len(scenario.Tags) != 2 || scenario.Tags[1] != "b" {
		t.Errorf("unexpected tags %v", scenario.Tags)
	}
	if scenario.ExpectedKey != "redis_cache:00=a:00=b:11=f()" {
		t.Errorf("unexpected key %q", scenario.ExpectedKey)
	}
}

func TestWriteGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.golden")
	WriteGolden(t, path, []byte("keys\n"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read golden: %v", err)
	}
	if string(data) != "keys\n" {
		t.Errorf("expected %q, got %q", "keys\n", data)
	}
}

func TestCompareWithGolden(t *testing.T) {
	t.Setenv(EnvUpdateGolden, "")
	path := filepath.Join(t.TempDir(), "out.golden")

	CompareWithGolden(t, path, []byte("first"))
	if data, _ := os.ReadFile(path); string(data) != "first" {
		t.Fatalf("missing golden should be created, got %q", data)
	}

	CompareWithGolden(t, path, []byte("first"))

	t.Setenv(EnvUpdateGolden, "1")
	CompareWithGolden(t, path, []byte("second"))
	if data, _ := os.ReadFile(path); string(data) != "second" {
		t.Errorf("UPDATE_GOLDEN=1 should rewrite the golden, got %q", data)
	}
}

func TestPaths(t *testing.T) {
	if got := FixturePath("key_scenarios.json"); got != filepath.Join("testdata", "key_scenarios.json") {
		t.Errorf("FixturePath() = %q", got)
	}
	if got := GoldenPath("keys.golden"); got != filepath.Join("testdata", "golden", "keys.golden") {
		t.Errorf("GoldenPath() = %q", got)
	}
}
