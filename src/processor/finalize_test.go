package processor

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func TestFinalizeZeroFill(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{math.NaN(), 12.5}, series.Float, "driver_avg_points_past"),
		series.New([]float64{math.NaN(), 40.0}, series.Float, "constructor_strength_past"),
		series.New([]int{5, 0}, series.Int, "grid"),
	)

	out, err := Finalize(df, nil)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	avg := out.Col("driver_avg_points_past").Float()
	if !almostEqual(avg[0], 0) {
		t.Errorf("missing prior average should zero-fill, got %v", avg[0])
	}
	if !almostEqual(avg[1], 12.5) {
		t.Errorf("present value must not change, got %v", avg[1])
	}
	if got := out.Col("constructor_strength_past").Float()[0]; !almostEqual(got, 0) {
		t.Errorf("missing constructor strength should zero-fill, got %v", got)
	}
}

func TestFinalizeOwnMedianFallback(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{math.NaN(), 1.0, 2.0, 6.0}, series.Float, "driver_consistency_past"),
		series.New([]int{1, 2, 3, 4}, series.Int, "grid"),
	)

	out, err := Finalize(df, nil)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if got := out.Col("driver_consistency_past").Float()[0]; !almostEqual(got, 2.0) {
		t.Errorf("fill = %v, want the column median 2.0", got)
	}
}

func TestFinalizeReferenceMedians(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{math.NaN(), 1.0, 9.0}, series.Float, "driver_consistency_past"),
		series.New([]int{1, 2, 3}, series.Int, "grid"),
	)

	out, err := Finalize(df, map[string]float64{"driver_consistency_past": 3.5})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if got := out.Col("driver_consistency_past").Float()[0]; !almostEqual(got, 3.5) {
		t.Errorf("fill = %v, want the supplied reference 3.5", got)
	}
}

func TestFinalizeAllMissingStaysMissing(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{math.NaN(), math.NaN()}, series.Float, "constructor_avg_finish_past"),
		series.New([]int{1, 2}, series.Int, "grid"),
	)

	out, err := Finalize(df, nil)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	for i, v := range out.Col("constructor_avg_finish_past").Float() {
		if !math.IsNaN(v) {
			t.Errorf("row %d: a column with no usable median must stay missing, got %v", i, v)
		}
	}
}

func TestFinalizeFlagCast(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{1, 0, math.NaN()}, series.Float, "is_finished"),
		series.New([]int{1, 2, 3}, series.Int, "grid"),
	)

	out, err := Finalize(df, nil)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	want := []float64{1, 0, 0}
	got := out.Col("is_finished").Float()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("is_finished[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFinalizeEnsuresGridClean(t *testing.T) {
	df := dataframe.New(
		series.New([]int{0, 7}, series.Int, "grid"),
	)

	out, err := Finalize(df, nil)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	clean := out.Col("grid_clean").Float()
	if !math.IsNaN(clean[0]) {
		t.Errorf("grid=0 should be missing in grid_clean, got %v", clean[0])
	}
	if !almostEqual(clean[1], 7) {
		t.Errorf("grid_clean[1] = %v, want 7", clean[1])
	}
}

func TestTrainMedians(t *testing.T) {
	df := dataframe.New(
		series.New([]int{2020, 2021, 2022, 2024}, series.Int, "year"),
		series.New([]float64{1.0, 3.0, 5.0, 100.0}, series.Float, "driver_consistency_past"),
	)

	medians, err := TrainMedians(df, 2020, 2022)
	if err != nil {
		t.Fatalf("TrainMedians() error = %v", err)
	}
	if got := medians["driver_consistency_past"]; !almostEqual(got, 3.0) {
		t.Errorf("training median = %v, want 3.0 (2024 row excluded)", got)
	}
}

func TestTrainMediansEmptyRange(t *testing.T) {
	df := dataframe.New(
		series.New([]int{2020, 2021}, series.Int, "year"),
		series.New([]float64{1.0, 3.0}, series.Float, "driver_consistency_past"),
	)

	_, err := TrainMedians(df, 1990, 1995)
	if err == nil {
		t.Fatal("TrainMedians() should fail when no rows fall in the year range")
	}
	if !strings.Contains(err.Error(), "1990") || !strings.Contains(err.Error(), "2 total rows") {
		t.Errorf("error should name the range and the row count, got %q", err)
	}
}
