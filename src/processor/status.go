package processor

import (
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"PredictingPoints/src/utils"
)

// AttachStatusText joins the status lookup onto each entry so we know WHY a
// driver did not finish (engine failure, collision, etc.). Entries whose
// statusId has no lookup row get an empty status_text. Frames without a
// statusId column pass through unchanged.
func AttachStatusText(df, statusDF dataframe.DataFrame) (dataframe.DataFrame, error) {
	if !utils.HasColumn(df, "statusId") {
		return df, nil
	}
	if statusDF.Nrow() == 0 && statusDF.Ncol() == 0 {
		return df, nil // running without a status table
	}
	if err := utils.RequireColumns(statusDF, "statusId", "status"); err != nil {
		return df, err
	}

	lookup := make(map[string]string, statusDF.Nrow())
	ids := statusDF.Col("statusId").Records()
	texts := statusDF.Col("status").Records()
	for i, id := range ids {
		lookup[id] = texts[i]
	}

	entryIDs := df.Col("statusId").Records()
	statusText := make([]string, len(entryIDs))
	for i, id := range entryIDs {
		statusText[i] = lookup[id]
	}

	out := df.Mutate(series.New(statusText, series.String, "status_text"))
	return out, out.Error()
}

// AddOutcomeFlags classifies each entry as finished, did-not-finish or
// did-not-start from the status text. The three flags are mutually exclusive
// and exhaustive whenever a status text exists:
//
//	"finished" or "classified"      -> is_finished
//	contains "did not start"        -> is_dns
//	anything else (incl. no match)  -> is_dnf
//
// Without a status_text column the function falls back to a coarse rule:
// finished = positionOrder present, DNF/DNS left at 0. That fallback is a
// deliberate approximation for exports that ship without the status table.
func AddOutcomeFlags(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	n := df.Nrow()
	finished := make([]int, n)
	dnf := make([]int, n)
	dns := make([]int, n)

	switch {
	case utils.HasColumn(df, "status_text"):
		texts := df.Col("status_text").Records()
		for i, text := range texts {
			s := strings.ToLower(text)
			switch {
			case s == "finished" || s == "classified":
				finished[i] = 1
			case strings.Contains(s, "did not start"):
				dns[i] = 1
			default:
				dnf[i] = 1
			}
		}
	case utils.HasColumn(df, "positionOrder"):
		pos := utils.FloatColumn(df, "positionOrder")
		for i, v := range pos {
			if !math.IsNaN(v) {
				finished[i] = 1
			}
		}
	}

	out := df.Mutate(series.New(finished, series.Int, "is_finished"))
	out = out.Mutate(series.New(dnf, series.Int, "is_dnf"))
	out = out.Mutate(series.New(dns, series.Int, "is_dns"))
	return out, out.Error()
}
