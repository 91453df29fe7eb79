package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gota/gota/dataframe"

	"PredictingPoints/src/utils"
)

// TimeSplit partitions by season: rows with year in [trainLo, trainHi] train,
// rows with year in [testLo, testHi] test, both inclusive. Rows outside both
// ranges are dropped. Evaluating on seasons AFTER the training seasons is the
// honest protocol for historical features; a random split would let a model
// be scored on races older than ones it trained on.
//
// Either side coming out empty is an error that names the range and the row
// counts, so a typo in the configured years fails loudly instead of training
// on nothing.
func TimeSplit(df dataframe.DataFrame, trainLo, trainHi, testLo, testHi int) (train, test dataframe.DataFrame, err error) {
	if err := utils.RequireColumns(df, "year"); err != nil {
		return df, df, err
	}

	years := utils.FloatColumn(df, "year")
	var trainIdx, testIdx []int
	for i, y := range years {
		switch {
		case math.IsNaN(y):
		case y >= float64(trainLo) && y <= float64(trainHi):
			trainIdx = append(trainIdx, i)
		case y >= float64(testLo) && y <= float64(testHi):
			testIdx = append(testIdx, i)
		}
	}

	if len(trainIdx) == 0 {
		return df, df, fmt.Errorf("no training rows with year in [%d, %d] out of %d total rows", trainLo, trainHi, df.Nrow())
	}
	if len(testIdx) == 0 {
		return df, df, fmt.Errorf("no test rows with year in [%d, %d] out of %d total rows", testLo, testHi, df.Nrow())
	}

	train = df.Subset(trainIdx)
	test = df.Subset(testIdx)
	if train.Error() != nil {
		return df, df, train.Error()
	}
	if test.Error() != nil {
		return df, df, test.Error()
	}
	return train, test, nil
}

// RandomSplit holds out testFrac of the rows uniformly at random. Seeded so
// runs are reproducible. For real evaluation prefer TimeSplit; this exists
// for quick experiments.
func RandomSplit(df dataframe.DataFrame, testFrac float64, seed int64) (train, test dataframe.DataFrame, err error) {
	if testFrac <= 0 || testFrac >= 1 {
		return df, df, fmt.Errorf("test fraction %v must be in (0, 1)", testFrac)
	}
	n := df.Nrow()
	nTest := int(float64(n) * testFrac)
	if nTest == 0 || nTest == n {
		return df, df, fmt.Errorf("test fraction %v leaves an empty partition for %d rows", testFrac, n)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	testIdx := append([]int(nil), perm[:nTest]...)
	trainIdx := append([]int(nil), perm[nTest:]...)

	train = df.Subset(trainIdx)
	test = df.Subset(testIdx)
	if train.Error() != nil {
		return df, df, train.Error()
	}
	if test.Error() != nil {
		return df, df, test.Error()
	}
	return train, test, nil
}

// FrameMatrix extracts the given feature columns and the target column into
// dense rows for a Regressor. Unparsable cells come out as NaN and are left
// for the model's imputation policy; a missing TARGET makes the row
// unusable, so those rows are dropped.
func FrameMatrix(df dataframe.DataFrame, featureCols []string, targetCol string) ([][]float64, []float64, error) {
	cols := append(append([]string(nil), featureCols...), targetCol)
	if err := utils.RequireColumns(df, cols...); err != nil {
		return nil, nil, err
	}

	columns := make([][]float64, len(featureCols))
	for j, name := range featureCols {
		columns[j] = utils.FloatColumn(df, name)
	}
	target := utils.FloatColumn(df, targetCol)

	features := make([][]float64, 0, df.Nrow())
	kept := make([]float64, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		if math.IsNaN(target[i]) {
			continue
		}
		row := make([]float64, len(featureCols))
		for j := range featureCols {
			row[j] = columns[j][i]
		}
		features = append(features, row)
		kept = append(kept, target[i])
	}
	return features, kept, nil
}
