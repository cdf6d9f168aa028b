package crossfit

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
	"github.com/YuminosukeSato/causalgo/split"
	"gonum.org/v1/gonum/mat"
)

// NuisanceModel is the capability contract for first-stage models. Fit
// receives the dataset restricted to a fold's training rows; Predict
// receives the held-out rows and returns one or more nuisance outputs,
// each with one row per input sample.
type NuisanceModel interface {
	Fit(data *Dataset) error
	Predict(data *Dataset) ([]*mat.Dense, error)
}

// NuisanceFactory produces a fresh, independently owned model instance.
// One instance is created per fold; instances never share fitted state.
type NuisanceFactory func() NuisanceModel

// Result holds the output of one cross-fitting run.
type Result struct {
	// Nuisances has one matrix per nuisance output position, each with
	// n rows aligned to the original sample index set. Rows not covered
	// by any fold's test partition stay NaN.
	Nuisances []*mat.Dense

	// Models holds the fitted model instance of every fold, in fold
	// order, for inspection and out-of-sample re-scoring.
	Models []NuisanceModel

	// FittedIndices is the sorted, deduplicated union of all folds'
	// test indices. A sample's nuisance value is defined iff its index
	// appears here.
	FittedIndices []int
}

// Run executes the cross-fitting protocol over the given folds.
//
// For each fold in order, a fresh model from factory is fitted on the
// training rows and evaluated on the test rows; the test predictions are
// written into full-length NaN-initialized buffers allocated from the
// first fold's output shapes. If a caller-supplied partition has
// overlapping test sets, a later fold's write overwrites the earlier one.
//
// Any fit or predict error aborts the whole run immediately; there is no
// partial-fold recovery.
func Run(factory NuisanceFactory, folds []split.Fold, data *Dataset) (*Result, error) {
	if err := data.Validate("crossfit.Run"); err != nil {
		return nil, err
	}
	if len(folds) == 0 {
		return nil, errors.NewValueError("crossfit.Run", "no folds supplied")
	}

	n := data.NumSamples()
	if err := validateFolds(folds, n); err != nil {
		return nil, err
	}
	covered := make([]bool, n)

	res := &Result{Models: make([]NuisanceModel, 0, len(folds))}

	for foldIdx, fold := range folds {
		model := factory()

		if err := ValidateDeclared("crossfit.Run", model, data); err != nil {
			return nil, err
		}

		if err := model.Fit(data.Subset(fold.Train)); err != nil {
			return nil, errors.Wrapf(err, "crossfit: nuisance fit failed on fold %d", foldIdx)
		}

		preds, err := model.Predict(data.Subset(fold.Test))
		if err != nil {
			return nil, errors.Wrapf(err, "crossfit: nuisance predict failed on fold %d", foldIdx)
		}
		if len(preds) == 0 {
			return nil, errors.NewValueError("crossfit.Run", "nuisance model returned no outputs")
		}

		if foldIdx == 0 {
			// The first fold's output shapes fix the buffer layout.
			res.Nuisances = make([]*mat.Dense, len(preds))
			for it, p := range preds {
				_, cols := p.Dims()
				buf := mat.NewDense(n, cols, nil)
				for i := 0; i < n; i++ {
					for j := 0; j < cols; j++ {
						buf.Set(i, j, math.NaN())
					}
				}
				res.Nuisances[it] = buf
			}
		} else if len(preds) != len(res.Nuisances) {
			return nil, errors.NewDimensionError("crossfit.Run(outputs)", len(res.Nuisances), len(preds), 1)
		}

		for it, p := range preds {
			rows, cols := p.Dims()
			_, wantCols := res.Nuisances[it].Dims()
			if cols != wantCols {
				return nil, errors.NewDimensionError("crossfit.Run(output columns)", wantCols, cols, 1)
			}
			if rows != len(fold.Test) {
				return nil, errors.NewDimensionError("crossfit.Run(output rows)", len(fold.Test), rows, 0)
			}
			for i, idx := range fold.Test {
				for j := 0; j < cols; j++ {
					res.Nuisances[it].Set(idx, j, p.At(i, j))
				}
			}
		}

		for _, idx := range fold.Test {
			covered[idx] = true
		}

		res.Models = append(res.Models, model)
	}

	for i := 0; i < n; i++ {
		if covered[i] {
			res.FittedIndices = append(res.FittedIndices, i)
		}
	}

	return res, nil
}

// validateFolds rejects caller-supplied partitions that would panic further
// down: empty train/test sets and indices outside 0..n-1.
func validateFolds(folds []split.Fold, n int) error {
	for i, fold := range folds {
		if len(fold.Train) == 0 {
			return errors.NewValidationError("folds",
				fmt.Sprintf("fold %d has an empty train partition", i), nil)
		}
		if len(fold.Test) == 0 {
			return errors.NewValidationError("folds",
				fmt.Sprintf("fold %d has an empty test partition", i), nil)
		}
		for _, set := range [][]int{fold.Train, fold.Test} {
			for _, idx := range set {
				if idx < 0 || idx >= n {
					return errors.NewValidationError("folds",
						fmt.Sprintf("fold %d contains an index outside 0..%d", i, n-1), idx)
				}
			}
		}
	}
	return nil
}
