package processor

import (
	"github.com/go-gota/gota/dataframe"
)

// PastFeatureColumns are the history-only columns that are safe to use as
// model inputs: every value is a function of strictly earlier races.
var PastFeatureColumns = []string{
	"driver_races_past",
	"driver_avg_points_past",
	"driver_consistency_past",
	"constructor_races_past",
	"constructor_strength_past",
	"constructor_avg_finish_past",
}

// EDAOnlyColumns are derived from the race's own outcome. They look like any
// other column in the table but are contractually forbidden as inputs to a
// points model. Plotting and sanity checks only.
var EDAOnlyColumns = []string{"position_gain", "is_podium"}

// BuildFeatures runs the full feature pipeline over a joined results table:
// grid cleaning, race-level features, status resolution, outcome flags, and
// the time-aware historical aggregates. Each stage returns a new augmented
// frame; the input is never modified. The result still contains missing
// values for first-time entrants — run Finalize to apply the fill policy.
func BuildFeatures(results, status dataframe.DataFrame) (dataframe.DataFrame, error) {
	out, err := CleanGrid(results)
	if err != nil {
		return results, err
	}
	out, err = AddRaceFeatures(out)
	if err != nil {
		return results, err
	}
	out, err = AttachStatusText(out, status)
	if err != nil {
		return results, err
	}
	out, err = AddOutcomeFlags(out)
	if err != nil {
		return results, err
	}
	out, err = AddHistory(out)
	if err != nil {
		return results, err
	}
	return out, nil
}
