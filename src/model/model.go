package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"PredictingPoints/src/utils"
)

// Regressor is a minimal fit/predict model over dense feature rows.
type Regressor interface {
	Fit(features [][]float64, target []float64) error
	Predict(features [][]float64) ([]float64, error)
}

// Metrics summarises regression quality on a held-out partition.
type Metrics struct {
	MSE  float64
	RMSE float64
	MAE  float64
	R2   float64
}

func (m Metrics) String() string {
	return fmt.Sprintf("MSE=%.4f RMSE=%.4f MAE=%.4f R2=%.4f", m.MSE, m.RMSE, m.MAE, m.R2)
}

// Evaluate compares predictions against true targets.
func Evaluate(target, predicted []float64) (Metrics, error) {
	if len(target) != len(predicted) {
		return Metrics{}, fmt.Errorf("target has %d values but predictions have %d", len(target), len(predicted))
	}
	if len(target) == 0 {
		return Metrics{}, errors.New("cannot evaluate on zero rows")
	}

	n := float64(len(target))
	var sqSum, absSum float64
	for i := range target {
		d := predicted[i] - target[i]
		sqSum += d * d
		absSum += math.Abs(d)
	}

	mean := stat.Mean(target, nil)
	var totSum float64
	for _, y := range target {
		d := y - mean
		totSum += d * d
	}

	m := Metrics{
		MSE:  sqSum / n,
		MAE:  absSum / n,
	}
	m.RMSE = math.Sqrt(m.MSE)
	if totSum > 0 {
		m.R2 = 1 - sqSum/totSum
	} else {
		m.R2 = math.NaN()
	}
	return m, nil
}

// LinearRegression is ordinary least squares with an intercept, solved via a
// QR factorisation of the design matrix. Missing feature values are imputed
// with per-column medians learned at fit time, the same values being reused
// at predict time so train and inference see one imputation policy.
type LinearRegression struct {
	coef      []float64 // intercept first
	medians   []float64
	nFeatures int
}

func NewLinearRegression() *LinearRegression { return &LinearRegression{} }

func (lr *LinearRegression) Fit(features [][]float64, target []float64) error {
	rows := len(features)
	if rows == 0 {
		return errors.New("cannot fit on zero rows")
	}
	if rows != len(target) {
		return fmt.Errorf("%d feature rows but %d targets", rows, len(target))
	}
	cols := len(features[0])
	if cols == 0 {
		return errors.New("cannot fit on zero features")
	}
	if rows < cols+1 {
		return fmt.Errorf("%d rows cannot determine %d coefficients", rows, cols+1)
	}
	for i, row := range features {
		if len(row) != cols {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), cols)
		}
	}

	lr.nFeatures = cols
	lr.medians = columnMedians(features, cols)

	design := mat.NewDense(rows, cols+1, nil)
	for i, row := range features {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, lr.impute(j, v))
		}
	}

	var qr mat.QR
	qr.Factorize(design)
	coef := mat.NewDense(cols+1, 1, nil)
	if err := qr.SolveTo(coef, false, mat.NewDense(rows, 1, append([]float64(nil), target...))); err != nil {
		return fmt.Errorf("least squares solve: %w", err)
	}

	lr.coef = make([]float64, cols+1)
	mat.Col(lr.coef, 0, coef)
	return nil
}

func (lr *LinearRegression) Predict(features [][]float64) ([]float64, error) {
	if lr.coef == nil {
		return nil, errors.New("model has not been fitted")
	}
	out := make([]float64, len(features))
	for i, row := range features {
		if len(row) != lr.nFeatures {
			return nil, fmt.Errorf("row %d has %d features, model was fitted on %d", i, len(row), lr.nFeatures)
		}
		y := lr.coef[0]
		for j, v := range row {
			y += lr.coef[j+1] * lr.impute(j, v)
		}
		out[i] = y
	}
	return out, nil
}

// Coefficients returns the fitted weights, intercept first.
func (lr *LinearRegression) Coefficients() []float64 {
	return append([]float64(nil), lr.coef...)
}

func (lr *LinearRegression) impute(col int, v float64) float64 {
	if math.IsNaN(v) {
		return lr.medians[col]
	}
	return v
}

func columnMedians(features [][]float64, cols int) []float64 {
	medians := make([]float64, cols)
	column := make([]float64, 0, len(features))
	for j := 0; j < cols; j++ {
		column = column[:0]
		for _, row := range features {
			column = append(column, row[j])
		}
		m := utils.Median(column)
		if math.IsNaN(m) {
			m = 0
		}
		medians[j] = m
	}
	return medians
}

// mse over a slice of targets against their mean. Used for split scoring.
func varianceCost(target []float64) float64 {
	if len(target) == 0 {
		return 0
	}
	mean := floats.Sum(target) / float64(len(target))
	var s float64
	for _, y := range target {
		d := y - mean
		s += d * d
	}
	return s
}
