package processor

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"PredictingPoints/src/utils"
)

// CleanGrid adds grid_clean: the qualifying position as a numeric column with
// the 0 sentinel remapped to missing. The source data uses grid=0 when the
// grid slot is unknown or the car started from the pit lane, so 0 must never
// survive as a real position.
func CleanGrid(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := utils.RequireColumns(df, "grid"); err != nil {
		return df, err
	}

	grid := utils.FloatColumn(df, "grid")
	clean := make([]float64, len(grid))
	for i, v := range grid {
		if v == 0 {
			clean[i] = math.NaN()
		} else {
			clean[i] = v
		}
	}

	out := df.Mutate(series.New(grid, series.Float, "grid"))
	out = out.Mutate(series.New(clean, series.Float, "grid_clean"))
	return out, out.Error()
}

// AddRaceFeatures adds per-race descriptive columns.
//
// position_gain and is_podium are POST-RACE values: they are only knowable
// once the race has finished and must not be fed to any model that predicts
// points. They exist for exploratory analysis only.
func AddRaceFeatures(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := utils.RequireColumns(df, "positionOrder", "points"); err != nil {
		return df, err
	}

	out := df
	if !utils.HasColumn(out, "grid_clean") {
		var err error
		out, err = CleanGrid(out)
		if err != nil {
			return df, err
		}
	}

	pos := utils.FloatColumn(out, "positionOrder")
	pts := utils.FloatColumn(out, "points")
	out = out.Mutate(series.New(pos, series.Float, "positionOrder"))
	out = out.Mutate(series.New(pts, series.Float, "points"))

	gridClean := utils.FloatColumn(out, "grid_clean")
	gain := make([]float64, len(pos))
	podium := make([]int, len(pos))
	for i := range pos {
		gain[i] = gridClean[i] - pos[i] // positive = gained places
		if pos[i] <= 3 {
			podium[i] = 1
		}
	}

	out = out.Mutate(series.New(gain, series.Float, "position_gain"))
	out = out.Mutate(series.New(podium, series.Int, "is_podium"))
	return out, out.Error()
}
