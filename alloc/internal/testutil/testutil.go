// Package testutil provides shared test infrastructure for the allocator.
// It has no dependency on alloc/ so that alloc's own tests can import it.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// StudyFeatures is the feature order of the built-in sex/age study.
var StudyFeatures = []string{"male", "female", "age_30_40", "age_40_45", "age_45_55", "age_55_65", "age_65_80"}

// OneHot returns a feature vector over names with the listed features set to 1.
func OneHot(names []string, present ...string) map[string]int {
	v := make(map[string]int, len(names))
	for _, n := range names {
		v[n] = 0
	}
	for _, p := range present {
		v[p] = 1
	}
	return v
}

// WriteFile writes content into a file under t.TempDir() and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
