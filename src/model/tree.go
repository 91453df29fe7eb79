package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DecisionTree is a depth-limited regression tree using variance-reduction
// splits. It exists as the non-linear baseline next to LinearRegression;
// points scoring is step-shaped (25/18/15/...) and a tree captures that
// better than a line. Missing values follow the same median imputation
// policy as the linear model.
type DecisionTree struct {
	MaxDepth    int // default 8
	MinLeafRows int // default 5
	root        *treeNode
	medians     []float64
	nFeatures   int
}

type treeNode struct {
	feature   int
	threshold float64
	value     float64 // leaf prediction
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) isLeaf() bool { return n.left == nil }

func NewDecisionTree(maxDepth int) *DecisionTree {
	return &DecisionTree{MaxDepth: maxDepth, MinLeafRows: 5}
}

func (dt *DecisionTree) Fit(features [][]float64, target []float64) error {
	if len(features) == 0 {
		return errors.New("cannot fit on zero rows")
	}
	if len(features) != len(target) {
		return fmt.Errorf("%d feature rows but %d targets", len(features), len(target))
	}
	if dt.MaxDepth <= 0 {
		dt.MaxDepth = 8
	}
	if dt.MinLeafRows <= 0 {
		dt.MinLeafRows = 5
	}

	dt.nFeatures = len(features[0])
	for i, row := range features {
		if len(row) != dt.nFeatures {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), dt.nFeatures)
		}
	}
	dt.medians = columnMedians(features, dt.nFeatures)

	imputed := make([][]float64, len(features))
	for i, row := range features {
		r := make([]float64, dt.nFeatures)
		for j, v := range row {
			if math.IsNaN(v) {
				v = dt.medians[j]
			}
			r[j] = v
		}
		imputed[i] = r
	}

	idx := make([]int, len(imputed))
	for i := range idx {
		idx[i] = i
	}
	dt.root = dt.grow(imputed, target, idx, 0)
	return nil
}

func (dt *DecisionTree) Predict(features [][]float64) ([]float64, error) {
	if dt.root == nil {
		return nil, errors.New("model has not been fitted")
	}
	out := make([]float64, len(features))
	for i, row := range features {
		if len(row) != dt.nFeatures {
			return nil, fmt.Errorf("row %d has %d features, model was fitted on %d", i, len(row), dt.nFeatures)
		}
		node := dt.root
		for !node.isLeaf() {
			v := row[node.feature]
			if math.IsNaN(v) {
				v = dt.medians[node.feature]
			}
			if v <= node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		out[i] = node.value
	}
	return out, nil
}

func (dt *DecisionTree) grow(features [][]float64, target []float64, idx []int, depth int) *treeNode {
	leaf := &treeNode{value: meanAt(target, idx)}
	if depth >= dt.MaxDepth || len(idx) < 2*dt.MinLeafRows {
		return leaf
	}

	bestCost := math.Inf(1)
	bestFeature, bestSplit := -1, 0.0
	order := make([]int, len(idx))
	for feature := 0; feature < dt.nFeatures; feature++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return features[order[a]][feature] < features[order[b]][feature]
		})

		// Walk the sorted rows keeping running sums on both sides, so each
		// candidate threshold is scored in O(1).
		var leftSum, leftSq float64
		rightSum, rightSq := sumsAt(target, order)
		for i := 0; i < len(order)-1; i++ {
			y := target[order[i]]
			leftSum += y
			leftSq += y * y
			rightSum -= y
			rightSq -= y * y

			cur, next := features[order[i]][feature], features[order[i+1]][feature]
			if cur == next {
				continue // cannot split between equal values
			}
			nl, nr := i+1, len(order)-i-1
			if nl < dt.MinLeafRows || nr < dt.MinLeafRows {
				continue
			}
			cost := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if cost < bestCost {
				bestCost = cost
				bestFeature = feature
				bestSplit = (cur + next) / 2
			}
		}
	}
	if bestFeature < 0 {
		return leaf
	}
	if bestCost >= varianceCost(valuesAt(target, idx)) {
		return leaf // no split improves on the leaf
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if features[i][bestFeature] <= bestSplit {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	return &treeNode{
		feature:   bestFeature,
		threshold: bestSplit,
		value:     leaf.value,
		left:      dt.grow(features, target, leftIdx, depth+1),
		right:     dt.grow(features, target, rightIdx, depth+1),
	}
}

func meanAt(target []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var s float64
	for _, i := range idx {
		s += target[i]
	}
	return s / float64(len(idx))
}

func sumsAt(target []float64, idx []int) (sum, sq float64) {
	for _, i := range idx {
		sum += target[i]
		sq += target[i] * target[i]
	}
	return sum, sq
}

func valuesAt(target []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = target[j]
	}
	return out
}
