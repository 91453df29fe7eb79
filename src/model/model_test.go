package model

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func TestLinearRegressionRecoversLine(t *testing.T) {
	// y = 2 + 3*x0 - x1, exactly.
	features := [][]float64{
		{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2, 1}, {2, 3}, {4, 2}, {5, 5},
	}
	target := make([]float64, len(features))
	for i, row := range features {
		target[i] = 2 + 3*row[0] - row[1]
	}

	lr := NewLinearRegression()
	if err := lr.Fit(features, target); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	coef := lr.Coefficients()
	want := []float64{2, 3, -1}
	for i := range want {
		if !almostEqual(coef[i], want[i], 1e-8) {
			t.Errorf("coef[%d] = %v, want %v", i, coef[i], want[i])
		}
	}

	pred, err := lr.Predict([][]float64{{10, 4}})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if !almostEqual(pred[0], 28, 1e-8) {
		t.Errorf("prediction = %v, want 28", pred[0])
	}
}

func TestLinearRegressionImputesMissing(t *testing.T) {
	// Column 0 values {1, 2, 3, 4, NaN, 5}: the NaN must be imputed with the
	// fit-time median 3, not dropped and not zero.
	features := [][]float64{{1}, {2}, {3}, {4}, {math.NaN()}, {5}}
	target := []float64{2, 4, 6, 8, 6, 10} // y = 2x, NaN row consistent with x=3

	lr := NewLinearRegression()
	if err := lr.Fit(features, target); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	pred, err := lr.Predict([][]float64{{math.NaN()}})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if !almostEqual(pred[0], 6, 1e-6) {
		t.Errorf("prediction for imputed row = %v, want 6 (median x=3 under y=2x)", pred[0])
	}
}

func TestLinearRegressionUnderdetermined(t *testing.T) {
	lr := NewLinearRegression()
	if err := lr.Fit([][]float64{{1, 2, 3}}, []float64{1}); err == nil {
		t.Fatal("Fit() should refuse more coefficients than rows")
	}
}

func TestFitRejectsRaggedRows(t *testing.T) {
	// A short row must come back as an error from Fit, not a panic out of
	// the median pass.
	features := [][]float64{{1, 2}, {3}, {4, 5}, {6, 7}}
	target := []float64{1, 2, 3, 4}

	lr := NewLinearRegression()
	if err := lr.Fit(features, target); err == nil {
		t.Fatal("LinearRegression.Fit() should reject ragged rows")
	}
	dt := NewDecisionTree(4)
	if err := dt.Fit(features, target); err == nil {
		t.Fatal("DecisionTree.Fit() should reject ragged rows")
	}
}

func TestPredictBeforeFit(t *testing.T) {
	lr := NewLinearRegression()
	if _, err := lr.Predict([][]float64{{1}}); err == nil {
		t.Fatal("Predict() before Fit() should fail")
	}
	dt := NewDecisionTree(4)
	if _, err := dt.Predict([][]float64{{1}}); err == nil {
		t.Fatal("Predict() before Fit() should fail")
	}
}

func TestDecisionTreeStepFunction(t *testing.T) {
	// A step at x=10: 25 below, 1 above. A line cannot represent this; a
	// single split does it exactly.
	var features [][]float64
	var target []float64
	for x := 0.0; x < 20; x++ {
		features = append(features, []float64{x})
		if x < 10 {
			target = append(target, 25)
		} else {
			target = append(target, 1)
		}
	}

	dt := NewDecisionTree(3)
	if err := dt.Fit(features, target); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	pred, err := dt.Predict([][]float64{{2}, {15}})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if !almostEqual(pred[0], 25, 1e-9) {
		t.Errorf("pred below step = %v, want 25", pred[0])
	}
	if !almostEqual(pred[1], 1, 1e-9) {
		t.Errorf("pred above step = %v, want 1", pred[1])
	}
}

func TestDecisionTreeConstantTarget(t *testing.T) {
	features := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}, {9}, {10}}
	target := []float64{7, 7, 7, 7, 7, 7, 7, 7, 7, 7}

	dt := NewDecisionTree(5)
	if err := dt.Fit(features, target); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	pred, err := dt.Predict([][]float64{{100}})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if !almostEqual(pred[0], 7, 1e-9) {
		t.Errorf("constant target prediction = %v, want 7", pred[0])
	}
}

func TestEvaluate(t *testing.T) {
	target := []float64{1, 2, 3, 4}
	perfect := []float64{1, 2, 3, 4}
	m, err := Evaluate(target, perfect)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if m.MSE != 0 || m.MAE != 0 || m.RMSE != 0 {
		t.Errorf("perfect predictions should have zero error, got %+v", m)
	}
	if !almostEqual(m.R2, 1, 1e-12) {
		t.Errorf("R2 = %v, want 1", m.R2)
	}

	off := []float64{2, 3, 4, 5} // constant +1
	m, err = Evaluate(target, off)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !almostEqual(m.MSE, 1, 1e-12) || !almostEqual(m.MAE, 1, 1e-12) || !almostEqual(m.RMSE, 1, 1e-12) {
		t.Errorf("constant +1 predictions: got %+v, want all errors 1", m)
	}
}

func TestEvaluateLengthMismatch(t *testing.T) {
	if _, err := Evaluate([]float64{1, 2}, []float64{1}); err == nil {
		t.Fatal("Evaluate() should fail on length mismatch")
	}
}
