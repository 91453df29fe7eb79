package processor

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"PredictingPoints/src/utils"
)

// Columns a first-time entrant has no history for, and how they are filled.
var (
	// No prior evidence means zero baseline strength.
	zeroFillColumns = []string{"driver_avg_points_past", "constructor_strength_past"}

	// Filled from a supplied training reference, or the column's own median.
	medianFillColumns = []string{"driver_consistency_past", "constructor_avg_finish_past"}
)

// Finalize handles entries with no history, such as a driver's first race.
//
// refMedians carries fill values computed elsewhere, typically from the
// training partition only (see TrainMedians). When a column has no
// reference value, its own median is used instead — that is a small,
// accepted leakage into the fill value and is fine for exploratory work,
// but real train/test evaluation should always pass the training medians.
// A median over zero usable values stays missing; the fill is a no-op then.
func Finalize(df dataframe.DataFrame, refMedians map[string]float64) (dataframe.DataFrame, error) {
	out := df

	for _, col := range zeroFillColumns {
		if !utils.HasColumn(out, col) {
			continue
		}
		values := utils.FloatColumn(out, col)
		for i, v := range values {
			if math.IsNaN(v) {
				values[i] = 0.0
			}
		}
		out = out.Mutate(series.New(values, series.Float, col))
	}

	for _, col := range medianFillColumns {
		if !utils.HasColumn(out, col) {
			continue
		}
		values := utils.FloatColumn(out, col)
		fill, ok := refMedians[col]
		if !ok {
			fill = utils.Median(values)
		}
		if !math.IsNaN(fill) {
			for i, v := range values {
				if math.IsNaN(v) {
					values[i] = fill
				}
			}
		}
		out = out.Mutate(series.New(values, series.Float, col))
	}

	if !utils.HasColumn(out, "grid_clean") {
		var err error
		out, err = CleanGrid(out)
		if err != nil {
			return df, err
		}
	}

	for _, col := range []string{"is_finished", "is_dnf", "is_dns", "is_podium"} {
		if !utils.HasColumn(out, col) {
			continue
		}
		values := utils.FloatColumn(out, col)
		flags := make([]int, len(values))
		for i, v := range values {
			if !math.IsNaN(v) && v != 0 {
				flags[i] = 1
			}
		}
		out = out.Mutate(series.New(flags, series.Int, col))
	}

	return out, out.Error()
}

// TrainMedians computes the median-fill reference values over the rows whose
// year falls inside the inclusive [loYear, hiYear] range. Restricting the
// medians to the training seasons keeps the test partition out of the fill
// values. An empty selection is an error, never an empty map: callers must
// know their year range matched nothing.
func TrainMedians(df dataframe.DataFrame, loYear, hiYear int) (map[string]float64, error) {
	if err := utils.RequireColumns(df, "year"); err != nil {
		return nil, err
	}

	years := utils.FloatColumn(df, "year")
	var idx []int
	for i, y := range years {
		if !math.IsNaN(y) && y >= float64(loYear) && y <= float64(hiYear) {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("no rows with year in [%d, %d] out of %d total rows, cannot compute training medians",
			loYear, hiYear, df.Nrow())
	}

	medians := make(map[string]float64, len(medianFillColumns))
	for _, col := range medianFillColumns {
		if !utils.HasColumn(df, col) {
			continue
		}
		values := utils.FloatColumn(df, col)
		subset := make([]float64, 0, len(idx))
		for _, i := range idx {
			subset = append(subset, values[i])
		}
		medians[col] = utils.Median(subset)
	}
	return medians, nil
}
