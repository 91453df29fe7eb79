package processor

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCleanGridZeroSentinel(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"grid"},
		{"0"},
		{"5"},
		{"what"},
	})

	out, err := CleanGrid(df)
	if err != nil {
		t.Fatalf("CleanGrid() error = %v", err)
	}

	clean := out.Col("grid_clean").Float()
	if !math.IsNaN(clean[0]) {
		t.Errorf("grid=0 should map to missing, got %v", clean[0])
	}
	if !almostEqual(clean[1], 5) {
		t.Errorf("grid=5 should stay 5, got %v", clean[1])
	}
	if !math.IsNaN(clean[2]) {
		t.Errorf("unparsable grid should map to missing, got %v", clean[2])
	}
}

func TestCleanGridMissingColumn(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"points"},
		{"10"},
	})

	_, err := CleanGrid(df)
	if err == nil {
		t.Fatal("CleanGrid() should fail without a grid column")
	}
	if !strings.Contains(err.Error(), "grid") || !strings.Contains(err.Error(), "points") {
		t.Errorf("error should name the missing column and the present ones, got %q", err)
	}
}

func TestAddRaceFeatures(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"grid", "positionOrder", "points"},
		{"5", "2", "18.0"},
		{"1", "10", "0.0"},
		{"0", "3", "15.0"},
	})

	out, err := AddRaceFeatures(df)
	if err != nil {
		t.Fatalf("AddRaceFeatures() error = %v", err)
	}

	gain := out.Col("position_gain").Float()
	if !almostEqual(gain[0], 3) {
		t.Errorf("gain[0] = %v, want 3 (started 5th, finished 2nd)", gain[0])
	}
	if !almostEqual(gain[1], -9) {
		t.Errorf("gain[1] = %v, want -9", gain[1])
	}
	if !math.IsNaN(gain[2]) {
		t.Errorf("gain with unknown grid should be missing, got %v", gain[2])
	}

	podium := out.Col("is_podium").Float()
	want := []float64{1, 0, 1}
	for i := range want {
		if !almostEqual(podium[i], want[i]) {
			t.Errorf("is_podium[%d] = %v, want %v", i, podium[i], want[i])
		}
	}
}

func TestAddRaceFeaturesMissingPosition(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"grid", "positionOrder", "points"},
		{"4", "NA", "0.0"},
	})

	out, err := AddRaceFeatures(df)
	if err != nil {
		t.Fatalf("AddRaceFeatures() error = %v", err)
	}
	if !math.IsNaN(out.Col("position_gain").Float()[0]) {
		t.Error("position_gain should be missing without a finishing position")
	}
	if got := out.Col("is_podium").Float()[0]; got != 0 {
		t.Errorf("is_podium without a finishing position = %v, want 0", got)
	}
}
