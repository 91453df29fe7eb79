package processor

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"PredictingPoints/src/utils"
)

// AddHistory computes the historical feature set using ONLY past data. This
// is the one function where an off-by-one silently corrupts every model
// trained downstream, so the rules are spelled out:
//
//  1. Rows are processed in the global chronological order (SortChronological).
//  2. For row i of a group, aggregates cover that group's rows [0, i) and
//     nothing else — never the row itself, never anything from the same race.
//  3. Driver aggregates expand over the driver's own entries (safe: one row
//     per driver per race).
//  4. Constructor aggregates are collapsed to one synthetic row per
//     (constructor, race) BEFORE expanding. Expanding over raw driver rows
//     would leak one teammate's same-race result into the other's features.
//
// points is coerced to numeric with missing treated as 0.0; positionOrder is
// coerced with missing left missing, since imputing 0 would distort means and
// variances.
func AddHistory(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := utils.RequireColumns(df, "driverId", "constructorId", "raceId", "date", "points", "positionOrder"); err != nil {
		return df, err
	}

	out, err := SortChronological(df)
	if err != nil {
		return df, err
	}

	points := utils.FloatColumn(out, "points")
	for i, v := range points {
		if math.IsNaN(v) {
			points[i] = 0.0
		}
	}
	pos := utils.FloatColumn(out, "positionOrder")
	out = out.Mutate(series.New(points, series.Float, "points"))
	out = out.Mutate(series.New(pos, series.Float, "positionOrder"))

	drivers := out.Col("driverId").Records()
	constructors := out.Col("constructorId").Records()
	races := out.Col("raceId").Records()

	racesPast, avgPointsPast, consistencyPast := driverHistory(drivers, points, pos)
	out = out.Mutate(series.New(racesPast, series.Int, "driver_races_past"))
	out = out.Mutate(series.New(avgPointsPast, series.Float, "driver_avg_points_past"))
	out = out.Mutate(series.New(consistencyPast, series.Float, "driver_consistency_past"))

	consRacesPast, strengthPast, avgFinishPast := constructorHistory(constructors, races, points, pos)
	out = out.Mutate(series.New(consRacesPast, series.Int, "constructor_races_past"))
	out = out.Mutate(series.New(strengthPast, series.Float, "constructor_strength_past"))
	out = out.Mutate(series.New(avgFinishPast, series.Float, "constructor_avg_finish_past"))

	return out, out.Error()
}

// driverState carries the expanding aggregates for one driver. Finish
// positions use Welford's recurrence so the population variance of the prior
// entries is available at every step without a second pass.
type driverState struct {
	count     int
	pointsSum float64

	posCount int
	posMean  float64
	posM2    float64
}

func driverHistory(drivers []string, points, pos []float64) ([]int, []float64, []float64) {
	n := len(drivers)
	racesPast := make([]int, n)
	avgPointsPast := make([]float64, n)
	consistencyPast := make([]float64, n)

	states := make(map[string]*driverState)
	for i := 0; i < n; i++ {
		st := states[drivers[i]]
		if st == nil {
			st = &driverState{}
			states[drivers[i]] = st
		}

		// Emit BEFORE folding in the current row: index i sees [0, i) only.
		racesPast[i] = st.count
		if st.count > 0 {
			avgPointsPast[i] = st.pointsSum / float64(st.count)
		} else {
			avgPointsPast[i] = math.NaN()
		}
		if st.posCount > 0 {
			consistencyPast[i] = math.Sqrt(st.posM2 / float64(st.posCount))
		} else {
			consistencyPast[i] = math.NaN()
		}

		st.count++
		st.pointsSum += points[i]
		if !math.IsNaN(pos[i]) {
			st.posCount++
			delta := pos[i] - st.posMean
			st.posMean += delta / float64(st.posCount)
			st.posM2 += delta * (pos[i] - st.posMean)
		}
	}
	return racesPast, avgPointsPast, consistencyPast
}

// teamRace is the race-level aggregate for one constructor in one race: the
// expansion unit for constructor history.
type teamRace struct {
	constructor string
	race        string
	points      float64 // summed over teammates
	finishSum   float64 // positionOrder over teammates, missing excluded
	finishCount int
}

// constructorState carries the expanding aggregates over one constructor's
// synthetic race rows.
type constructorState struct {
	count     int
	pointsSum float64

	finishCount int
	finishSum   float64
}

func constructorHistory(constructors, races []string, points, pos []float64) ([]int, []float64, []float64) {
	n := len(constructors)

	// Phase 1 — collapse: one synthetic row per (constructor, race), built in
	// the order the races appear. The input is already chronologically sorted,
	// so first appearance order IS the (date, raceId) order.
	type pairKey struct{ constructor, race string }
	index := make(map[pairKey]int)
	var teamRaces []*teamRace
	for i := 0; i < n; i++ {
		key := pairKey{constructors[i], races[i]}
		j, ok := index[key]
		if !ok {
			j = len(teamRaces)
			index[key] = j
			teamRaces = append(teamRaces, &teamRace{constructor: key.constructor, race: key.race})
		}
		tr := teamRaces[j]
		tr.points += points[i]
		if !math.IsNaN(pos[i]) {
			tr.finishSum += pos[i]
			tr.finishCount++
		}
	}

	// Phase 2 — expand: per-constructor prior-only means over the synthetic
	// rows. A race where no teammate has a recorded finish still counts
	// toward constructor_races_past but contributes nothing to the finish
	// average.
	racesPast := make(map[pairKey]int, len(teamRaces))
	strengthPast := make(map[pairKey]float64, len(teamRaces))
	avgFinishPast := make(map[pairKey]float64, len(teamRaces))
	states := make(map[string]*constructorState)
	for _, tr := range teamRaces {
		st := states[tr.constructor]
		if st == nil {
			st = &constructorState{}
			states[tr.constructor] = st
		}

		key := pairKey{tr.constructor, tr.race}
		racesPast[key] = st.count
		if st.count > 0 {
			strengthPast[key] = st.pointsSum / float64(st.count)
		} else {
			strengthPast[key] = math.NaN()
		}
		if st.finishCount > 0 {
			avgFinishPast[key] = st.finishSum / float64(st.finishCount)
		} else {
			avgFinishPast[key] = math.NaN()
		}

		st.count++
		st.pointsSum += tr.points
		if tr.finishCount > 0 {
			st.finishCount++
			st.finishSum += tr.finishSum / float64(tr.finishCount)
		}
	}

	// Phase 3 — scatter: every teammate in the same race receives identical
	// constructor-history values by construction.
	outRaces := make([]int, n)
	outStrength := make([]float64, n)
	outAvgFinish := make([]float64, n)
	for i := 0; i < n; i++ {
		key := pairKey{constructors[i], races[i]}
		outRaces[i] = racesPast[key]
		outStrength[i] = strengthPast[key]
		outAvgFinish[i] = avgFinishPast[key]
	}
	return outRaces, outStrength, outAvgFinish
}
