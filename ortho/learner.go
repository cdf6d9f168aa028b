// Package ortho implements the orthogonal learner orchestrator: the
// two-stage protocol that cross-fits a pluggable nuisance model over a fold
// partition and fits a final effect model on the out-of-fold nuisance
// estimates. Concrete estimators (see the dml package) only supply the
// nuisance/final model pair.
package ortho

import (
	"log/slog"
	"sync"

	"github.com/YuminosukeSato/causalgo/core/model"
	"github.com/YuminosukeSato/causalgo/crossfit"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
	"github.com/YuminosukeSato/causalgo/pkg/log"
	"github.com/YuminosukeSato/causalgo/preprocessing"
	"github.com/YuminosukeSato/causalgo/split"
	"gonum.org/v1/gonum/mat"
)

// FinalModel is the capability contract for the second-stage effect model.
// Fit receives the dataset restricted to the covered sample indices together
// with the assembled out-of-fold nuisance matrices. Predict returns the
// constant marginal effect for each row of X; when the learner was fitted
// without heterogeneity features, Predict is called with a nil X and returns
// a single constant effect row.
type FinalModel interface {
	Fit(data *crossfit.Dataset, nuisances []*mat.Dense) error
	Predict(X mat.Matrix) (*mat.Dense, error)
}

// FinalScorer is the optional scoring capability of a final model. A
// learner whose final model does not implement it fails Score with a
// CapabilityError at the point of use.
type FinalScorer interface {
	Score(data *crossfit.Dataset, nuisances []*mat.Dense) (float64, error)
}

// Learner wires the fold splitter, the crossfit engine, a nuisance model
// factory and a final model into a fitted CATE estimator.
type Learner struct {
	state *model.StateManager

	nuisanceFactory crossfit.NuisanceFactory
	finalModel      FinalModel

	discreteTreatment bool
	nSplits           int
	seed              int64
	splitter          split.Splitter // user-supplied, used verbatim
	folds             []split.Fold   // user-supplied, used verbatim

	encoder        *preprocessing.OneHotEncoder
	nuisanceModels []crossfit.NuisanceModel
	fittedIndices  []int
}

// New creates a Learner from a nuisance model factory and a final model.
func New(factory crossfit.NuisanceFactory, final FinalModel, opts ...Option) *Learner {
	l := &Learner{
		state:           model.NewStateManager(),
		nuisanceFactory: factory,
		finalModel:      final,
		nSplits:         3,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fit estimates the model: cross-fits the nuisance model over the fold
// partition, then fits the final model on the covered samples and their
// out-of-fold nuisance values. Calling Fit again discards all prior
// fitted state before anything else is touched.
func (l *Learner) Fit(data *crossfit.Dataset) error {
	if data == nil {
		return errors.NewValueError("Learner.Fit", "dataset must not be nil")
	}
	if err := data.Validate("Learner.Fit"); err != nil {
		return err
	}

	// A re-fit restarts from scratch; no partial re-use of prior state.
	l.state.Reset()
	l.encoder = nil
	l.nuisanceModels = nil
	l.fittedIndices = nil

	n := data.NumSamples()
	dX := -1
	if data.X != nil {
		_, dX = data.X.Dims()
	}

	work := *data

	// The raw label column keys stratification even though the nuisance
	// stage sees the encoded contrast matrix.
	var stratifyLabels mat.Matrix
	if l.discreteTreatment {
		enc := preprocessing.NewOneHotEncoder(true)
		encoded, err := enc.FitTransform(data.T)
		if err != nil {
			return err
		}
		l.encoder = enc
		stratifyLabels = data.T
		work.T = encoded
	}

	folds, err := l.buildFolds(&work, stratifyLabels)
	if err != nil {
		return err
	}

	_, dT := work.T.Dims()
	slog.Debug("starting crossfit",
		log.ModelNameKey, "Learner",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.TreatmentsKey, dT,
		log.FoldsKey, len(folds),
		log.RandomSeedKey, l.seed,
	)

	// sample_var is a final-stage-only input; the nuisance stage sees
	// (Y, T, X, W, Z, sample_weight).
	nuisanceData := work
	nuisanceData.SampleVar = nil

	res, err := crossfit.Run(l.nuisanceFactory, folds, &nuisanceData)
	if err != nil {
		return err
	}
	l.nuisanceModels = res.Models
	l.fittedIndices = res.FittedIndices

	slog.Debug("crossfit complete",
		log.ModelNameKey, "Learner",
		log.OperationKey, log.OperationFit,
		log.CoveredKey, len(res.FittedIndices),
	)

	// Samples without an out-of-fold nuisance value are dropped from the
	// final stage, not imputed.
	restricted := work.Subset(res.FittedIndices)
	nuisances := make([]*mat.Dense, len(res.Nuisances))
	for i, nu := range res.Nuisances {
		nuisances[i] = crossfit.SubsetRows(nu, res.FittedIndices)
	}

	if err := crossfit.ValidateDeclared("Learner.Fit", l.finalModel, restricted); err != nil {
		return err
	}
	if err := l.finalModel.Fit(restricted, nuisances); err != nil {
		return err
	}

	l.state.SetDimensions(dX, dT, n)
	l.state.SetFitted()
	return nil
}

// buildFolds resolves the fold partition: user-supplied folds or splitter
// pass through verbatim; otherwise a fresh splitter is constructed with the
// learner's seed and shuffling forced on, stratified when the treatment is
// discrete.
func (l *Learner) buildFolds(work *crossfit.Dataset, stratifyLabels mat.Matrix) ([]split.Fold, error) {
	if l.folds != nil {
		return l.folds, nil
	}

	input := work.SplitInput()
	if l.splitter != nil {
		return l.splitter.Split(input, stratifyLabels), nil
	}

	if l.discreteTreatment {
		return split.NewStratifiedKFold(l.nSplits, true, l.seed).Split(input, stratifyLabels), nil
	}
	return split.NewKFold(l.nSplits, true, l.seed).Split(input, nil), nil
}

// ConstMarginalEffect returns the fitted final model's constant marginal
// effect θ(X). X must match the feature dimensionality recorded at fit
// time; a learner fitted without X must be queried with a nil X and
// returns a single constant effect.
func (l *Learner) ConstMarginalEffect(X mat.Matrix) (*mat.Dense, error) {
	if err := l.state.RequireFitted("Learner", "ConstMarginalEffect"); err != nil {
		return nil, err
	}
	if err := l.checkFittedDims(X, "effect"); err != nil {
		return nil, err
	}
	return l.finalModel.Predict(X)
}

// Score evaluates the fitted estimator on a new dataset. The treatment is
// re-encoded with the frozen fit-time encoding; every per-fold nuisance
// model predicts on the entire dataset and the predictions are averaged
// element-wise across folds before being handed to the final model's Score.
func (l *Learner) Score(data *crossfit.Dataset) (float64, error) {
	if err := l.state.RequireFitted("Learner", "Score"); err != nil {
		return 0, err
	}
	if data == nil {
		return 0, errors.NewValueError("Learner.Score", "dataset must not be nil")
	}
	if err := data.Validate("Learner.Score"); err != nil {
		return 0, err
	}
	var x mat.Matrix
	if data.X != nil {
		x = data.X
	}
	if err := l.checkFittedDims(x, "scoring"); err != nil {
		return 0, err
	}

	work := *data
	work.SampleWeight = nil
	work.SampleVar = nil
	if l.discreteTreatment {
		encoded, err := l.encoder.Transform(data.T)
		if err != nil {
			return 0, err
		}
		work.T = encoded
	}

	// The per-fold nuisance models were fitted against a fixed treatment
	// width; a mismatch must fail here, not inside their predictions.
	_, dT := work.T.Dims()
	_, fittedDT, _ := l.state.GetDimensions()
	if dT != fittedDT {
		return 0, errors.NewDimensionError("Learner.Score(T)", fittedDT, dT, 1)
	}

	avg, err := l.averageNuisances(&work)
	if err != nil {
		return 0, err
	}

	scorer, ok := l.finalModel.(FinalScorer)
	if !ok {
		return 0, errors.NewCapabilityError("final model", "Score")
	}
	return scorer.Score(&work, avg)
}

// averageNuisances evaluates every per-fold nuisance model on the full
// dataset and averages the outputs element-wise across folds. Models are
// evaluated concurrently; the running sums are the only shared buffers and
// are guarded by a single mutex around the accumulate step.
func (l *Learner) averageNuisances(work *crossfit.Dataset) ([]*mat.Dense, error) {
	nModels := len(l.nuisanceModels)

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		sums []*mat.Dense
	)
	errs := make([]error, nModels)

	for i, m := range l.nuisanceModels {
		wg.Add(1)
		go func(idx int, m crossfit.NuisanceModel) {
			defer wg.Done()
			preds, err := m.Predict(work)
			if err != nil {
				errs[idx] = err
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if sums == nil {
				sums = make([]*mat.Dense, len(preds))
				for it, p := range preds {
					r, c := p.Dims()
					sums[it] = mat.NewDense(r, c, nil)
				}
			}
			if len(preds) != len(sums) {
				errs[idx] = errors.NewDimensionError("Learner.Score(outputs)", len(sums), len(preds), 1)
				return
			}
			for it, p := range preds {
				r, c := p.Dims()
				sr, sc := sums[it].Dims()
				if r != sr || c != sc {
					errs[idx] = errors.NewDimensionError("Learner.Score(output shape)", sc, c, 1)
					return
				}
				sums[it].Add(sums[it], p)
			}
		}(i, m)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	for _, s := range sums {
		s.Scale(1/float64(nModels), s)
	}
	return sums, nil
}

// NuisanceModels returns the per-fold fitted nuisance model instances in
// fold order.
func (l *Learner) NuisanceModels() []crossfit.NuisanceModel {
	return l.nuisanceModels
}

// FittedIndices returns the sample indices that received an out-of-fold
// nuisance value during the last Fit.
func (l *Learner) FittedIndices() []int {
	return l.fittedIndices
}

// IsFitted reports whether Fit has completed successfully.
func (l *Learner) IsFitted() bool {
	return l.state.IsFitted()
}

// checkFittedDims enforces the fit-time X dimensionality on query-time X,
// including the "both nil" case.
func (l *Learner) checkFittedDims(X mat.Matrix, phase string) error {
	dX, _, _ := l.state.GetDimensions()
	if X == nil {
		if dX != -1 {
			return errors.NewInputShapeError(phase, []int{dX}, nil)
		}
		return nil
	}
	_, c := X.Dims()
	if dX == -1 {
		return errors.NewInputShapeError(phase, nil, []int{c})
	}
	if c != dX {
		return errors.NewInputShapeError(phase, []int{dX}, []int{c})
	}
	return nil
}
