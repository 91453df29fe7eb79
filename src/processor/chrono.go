package processor

import (
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"PredictingPoints/src/utils"
)

// SortChronological establishes the single global event ordering every
// historical aggregate depends on: date ascending, raceId ascending for races
// on the same date, stable beyond that. Rows with unparsable dates sort
// before any dated row. Every "past vs future" decision downstream rests on
// this order being reproducible.
func SortChronological(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := utils.RequireColumns(df, "date", "raceId"); err != nil {
		return df, err
	}

	n := df.Nrow()
	dateRecords := df.Col("date").Records()
	dates := make([]time.Time, n)
	dateOK := make([]bool, n)
	for i, s := range dateRecords {
		dates[i], dateOK[i] = utils.ParseDate(s)
	}
	raceIDs := utils.FloatColumn(df, "raceId")

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if dateOK[i] != dateOK[j] {
			return !dateOK[i] // missing dates first
		}
		if dateOK[i] && !dates[i].Equal(dates[j]) {
			return dates[i].Before(dates[j])
		}
		ri, rj := raceIDs[i], raceIDs[j]
		if math.IsNaN(ri) != math.IsNaN(rj) {
			return math.IsNaN(ri)
		}
		return ri < rj
	})

	out := df.Subset(idx)
	return out, out.Error()
}
