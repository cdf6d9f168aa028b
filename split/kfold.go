// Package split provides the fold partition machinery used by cross-fitting.
//
// A Fold is a pair of disjoint train/test index sets over the sample index
// set 0..n-1. The test sets of a partition need not cover every sample:
// uncovered samples simply never receive an out-of-fold nuisance value.
package split

import (
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Fold is one train/test partition of the sample index set.
type Fold struct {
	Train []int
	Test  []int
}

// Splitter generates a fold partition from the splitting input X and an
// optional stratification label column y (ignored by non-stratified splitters).
type Splitter interface {
	Split(X, y mat.Matrix) []Fold
	NSplits() int
}

// KFold implements a randomized k-fold splitter.
type KFold struct {
	K       int
	Shuffle bool
	Seed    int64
}

// NewKFold creates a new k-fold splitter.
func NewKFold(k int, shuffle bool, seed int64) *KFold {
	if k < 2 {
		k = 3 // EconML-style default
	}
	return &KFold{K: k, Shuffle: shuffle, Seed: seed}
}

// NSplits returns the number of folds.
func (kf *KFold) NSplits() int {
	return kf.K
}

// Split generates train/test indices for each fold. The label column is ignored.
func (kf *KFold) Split(X, _ mat.Matrix) []Fold {
	nSamples, _ := X.Dims()

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}

	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.Seed), uint64(kf.Seed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	// Fold sizes differ by at most one; the first (n mod k) folds get the extra sample.
	folds := make([]Fold, kf.K)
	foldSize := nSamples / kf.K
	remainder := nSamples % kf.K

	current := 0
	for i := 0; i < kf.K; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		test := make([]int, testSize)
		copy(test, indices[current:current+testSize])

		train := make([]int, 0, nSamples-testSize)
		train = append(train, indices[:current]...)
		train = append(train, indices[current+testSize:]...)

		folds[i] = Fold{Train: train, Test: test}
		current += testSize
	}

	return folds
}

// StratifiedKFold implements a k-fold splitter whose test partitions are
// balanced with respect to the values of a discrete label column.
type StratifiedKFold struct {
	K       int
	Shuffle bool
	Seed    int64
}

// NewStratifiedKFold creates a new stratified k-fold splitter.
func NewStratifiedKFold(k int, shuffle bool, seed int64) *StratifiedKFold {
	if k < 2 {
		k = 3
	}
	return &StratifiedKFold{K: k, Shuffle: shuffle, Seed: seed}
}

// NSplits returns the number of folds.
func (skf *StratifiedKFold) NSplits() int {
	return skf.K
}

// Split generates stratified train/test indices keyed on the first column of y.
// A class with fewer members than folds raises a StratificationWarning.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) []Fold {
	nSamples, _ := X.Dims()
	if y == nil {
		return NewKFold(skf.K, skf.Shuffle, skf.Seed).Split(X, nil)
	}

	// Group sample indices by label value.
	classIndices := make(map[float64][]int)
	labels := make([]float64, 0)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		if _, seen := classIndices[label]; !seen {
			labels = append(labels, label)
		}
		classIndices[label] = append(classIndices[label], i)
	}
	sort.Float64s(labels)

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(skf.Seed), uint64(skf.Seed)))
		for _, label := range labels {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	folds := make([]Fold, skf.K)

	// Distribute each class across the folds' test sets.
	for _, label := range labels {
		indices := classIndices[label]
		nClass := len(indices)
		if nClass < skf.K {
			errors.Warn(errors.NewStratificationWarning(label, nClass, skf.K))
		}

		foldSize := nClass / skf.K
		remainder := nClass % skf.K

		current := 0
		for i := 0; i < skf.K; i++ {
			testSize := foldSize
			if i < remainder {
				testSize++
			}
			folds[i].Test = append(folds[i].Test, indices[current:current+testSize]...)
			current += testSize
		}
	}

	// Train sets are the complements of the test sets.
	for i := 0; i < skf.K; i++ {
		inTest := make([]bool, nSamples)
		for _, idx := range folds[i].Test {
			inTest[idx] = true
		}
		train := make([]int, 0, nSamples-len(folds[i].Test))
		for j := 0; j < nSamples; j++ {
			if !inTest[j] {
				train = append(train, j)
			}
		}
		folds[i].Train = train
	}

	return folds
}

// FoldList is an externally supplied fold partition used verbatim.
// The caller fully controls fold semantics, including partial coverage
// and overlapping test sets.
type FoldList []Fold

// NSplits returns the number of folds.
func (fl FoldList) NSplits() int {
	return len(fl)
}

// Split returns the folds unmodified.
func (fl FoldList) Split(_, _ mat.Matrix) []Fold {
	return fl
}
