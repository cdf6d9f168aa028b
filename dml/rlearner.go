// Package dml provides the R-learner: a double machine learning estimator
// built on the ortho core. The first stage residualizes the outcome and the
// treatment against (X, W) with pluggable regression sub-models; the final
// stage fits a residual-on-residual regression whose coefficient is linear
// in the heterogeneity features, θ(x) = β₀ + β·x per treatment column.
package dml

import (
	"github.com/YuminosukeSato/causalgo/core/model"
	"github.com/YuminosukeSato/causalgo/crossfit"
	"github.com/YuminosukeSato/causalgo/metrics"
	"github.com/YuminosukeSato/causalgo/ortho"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ModelFactory produces a fresh regression sub-model instance. One outcome
// model and one treatment model per treatment column are created for every
// cross-fitting fold.
type ModelFactory func() model.Model

// RLearner estimates heterogeneous treatment effects by residualization.
// It embeds the orthogonal Learner; Fit, ConstMarginalEffect and Score have
// the orchestrator's semantics with the R-learner's model pair plugged in.
type RLearner struct {
	*ortho.Learner

	modelY ModelFactory
	modelT ModelFactory
}

// NewRLearner creates an RLearner. Both sub-model factories default to
// ordinary least squares.
func NewRLearner(opts ...RLearnerOption) *RLearner {
	cfg := &rlearnerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.modelY == nil {
		cfg.modelY = defaultRegression
	}
	if cfg.modelT == nil {
		cfg.modelT = defaultRegression
	}

	rl := &RLearner{modelY: cfg.modelY, modelT: cfg.modelT}
	factory := func() crossfit.NuisanceModel {
		return &residualNuisance{modelY: cfg.modelY, modelT: cfg.modelT}
	}
	rl.Learner = ortho.New(factory, &residualFinal{}, cfg.orthoOpts...)
	return rl
}

// Fit estimates the CATE model. The R-learner setting has no instrument;
// a non-nil Z is rejected before anything is fitted.
func (rl *RLearner) Fit(data *crossfit.Dataset) error {
	if data != nil && data.Z != nil {
		return errors.NewValueError("RLearner.Fit", "cannot accept instrument Z")
	}
	return rl.Learner.Fit(data)
}

// Score evaluates the fitted model on a new dataset: the MSE of the final
// residual-on-residual regression, with the nuisance residuals averaged
// across the per-fold fitted models.
func (rl *RLearner) Score(data *crossfit.Dataset) (float64, error) {
	if data != nil && data.Z != nil {
		return 0, errors.NewValueError("RLearner.Score", "cannot accept instrument Z")
	}
	return rl.Learner.Score(data)
}

// ModelsY returns the per-fold fitted outcome models.
func (rl *RLearner) ModelsY() []model.Model {
	out := make([]model.Model, 0, len(rl.NuisanceModels()))
	for _, m := range rl.NuisanceModels() {
		out = append(out, m.(*residualNuisance).fittedY)
	}
	return out
}

// ModelsT returns the per-fold fitted treatment models, one slice entry
// per fold holding one model per treatment column.
func (rl *RLearner) ModelsT() [][]model.Model {
	out := make([][]model.Model, 0, len(rl.NuisanceModels()))
	for _, m := range rl.NuisanceModels() {
		out = append(out, m.(*residualNuisance).fittedT)
	}
	return out
}

// residualNuisance fits the outcome model E[Y|X,W] and one treatment model
// E[T_j|X,W] per treatment column at fit time; at predict time it returns
// the residuals (Y - Ŷ, T - T̂) as two nuisance outputs.
type residualNuisance struct {
	modelY ModelFactory
	modelT ModelFactory

	fittedY model.Model
	fittedT []model.Model
}

func (nm *residualNuisance) Fit(data *crossfit.Dataset) error {
	_, dY := data.Y.Dims()
	if dY != 1 {
		return errors.NewValueError("RLearner", "multi-output Y is not supported")
	}

	features := regressors(data)

	nm.fittedY = nm.modelY()
	if err := fitSub(nm.fittedY, features, data.Y, data.SampleWeight); err != nil {
		return err
	}

	_, dT := data.T.Dims()
	nm.fittedT = make([]model.Model, dT)
	for j := 0; j < dT; j++ {
		nm.fittedT[j] = nm.modelT()
		if err := fitSub(nm.fittedT[j], features, metrics.ColVec(data.T, j), data.SampleWeight); err != nil {
			return err
		}
	}
	return nil
}

func (nm *residualNuisance) Predict(data *crossfit.Dataset) ([]*mat.Dense, error) {
	features := regressors(data)
	n, _ := features.Dims()

	yPred, err := nm.fittedY.Predict(features)
	if err != nil {
		return nil, err
	}
	yRes := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		yRes.Set(i, 0, data.Y.At(i, 0)-yPred.At(i, 0))
	}

	_, dT := data.T.Dims()
	tRes := mat.NewDense(n, dT, nil)
	for j := 0; j < dT; j++ {
		tPred, err := nm.fittedT[j].Predict(features)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			tRes.Set(i, j, data.T.At(i, j)-tPred.At(i, 0))
		}
	}

	return []*mat.Dense{yRes, tRes}, nil
}

// regressors builds the sub-model input hstack(X, W), or a constant column
// when neither is present so that intercept-only fits still work.
func regressors(data *crossfit.Dataset) *mat.Dense {
	parts := make([]*mat.Dense, 0, 2)
	if data.X != nil {
		parts = append(parts, data.X)
	}
	if data.W != nil {
		parts = append(parts, data.W)
	}
	if len(parts) == 0 {
		n := data.NumSamples()
		ones := mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			ones.Set(i, 0, 1)
		}
		return ones
	}
	return crossfit.HStack(parts...)
}

// fitSub fits a sub-model, requiring the weighted-fit capability whenever
// sample weights are present instead of silently dropping them.
func fitSub(m model.Model, X mat.Matrix, y mat.Matrix, weights *mat.VecDense) error {
	if weights == nil {
		return m.Fit(X, y)
	}
	wf, ok := m.(model.WeightedFitter)
	if !ok {
		return errors.NewCapabilityError("sub-model", "FitWeighted")
	}
	return wf.FitWeighted(X, y, weights)
}

// residualFinal fits Y_res = θ(X)·T_res + ε by least squares over the
// per-treatment blocks [T_res_j, T_res_j·X], without intercept. θ(x) for
// treatment column j is β_j0 + β_j·x; with no X the effect is constant.
type residualFinal struct {
	coefs *mat.VecDense
	dX    int // -1 when fitted without X
	dT    int
}

func (fm *residualFinal) Fit(data *crossfit.Dataset, nuisances []*mat.Dense) error {
	if len(nuisances) != 2 {
		return errors.NewValueError("RLearner final", "expected 2 nuisance outputs (Y_res, T_res)")
	}
	yRes, tRes := nuisances[0], nuisances[1]

	_, dYres := yRes.Dims()
	if dYres != 1 {
		return errors.NewValueError("RLearner final", "multi-output Y is not supported")
	}

	n, dT := tRes.Dims()
	fm.dT = dT
	fm.dX = -1
	if data.X != nil {
		_, fm.dX = data.X.Dims()
	}

	F := fm.design(data.X, tRes, n)

	yVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yVec.SetVec(i, yRes.At(i, 0))
	}

	var sol mat.VecDense
	if data.SampleWeight != nil {
		A, b := weightRows(F, yVec, data.SampleWeight)
		if err := sol.SolveVec(A, b); err != nil {
			return errors.NewModelError("RLearner final", "singular design", errors.ErrSingularMatrix)
		}
	} else {
		if err := sol.SolveVec(F, yVec); err != nil {
			return errors.NewModelError("RLearner final", "singular design", errors.ErrSingularMatrix)
		}
	}

	fm.coefs = &sol
	return nil
}

func (fm *residualFinal) Predict(X mat.Matrix) (*mat.Dense, error) {
	if fm.coefs == nil {
		return nil, errors.NewNotFittedError("RLearner final", "Predict")
	}

	p := 0
	if fm.dX > 0 {
		p = fm.dX
	}
	block := 1 + p

	if X == nil {
		out := mat.NewDense(1, fm.dT, nil)
		for j := 0; j < fm.dT; j++ {
			out.Set(0, j, fm.coefs.AtVec(j*block))
		}
		return out, nil
	}

	m, c := X.Dims()
	if c != p {
		return nil, errors.NewDimensionError("RLearner final.Predict", p, c, 1)
	}
	out := mat.NewDense(m, fm.dT, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < fm.dT; j++ {
			theta := fm.coefs.AtVec(j * block)
			for k := 0; k < p; k++ {
				theta += X.At(i, k) * fm.coefs.AtVec(j*block+1+k)
			}
			out.Set(i, j, theta)
		}
	}
	return out, nil
}

func (fm *residualFinal) Score(data *crossfit.Dataset, nuisances []*mat.Dense) (float64, error) {
	if fm.coefs == nil {
		return 0, errors.NewNotFittedError("RLearner final", "Score")
	}
	if len(nuisances) != 2 {
		return 0, errors.NewValueError("RLearner final", "expected 2 nuisance outputs (Y_res, T_res)")
	}
	yRes, tRes := nuisances[0], nuisances[1]
	n, dT := tRes.Dims()

	var effects *mat.Dense
	var err error
	if data.X != nil {
		effects, err = fm.Predict(data.X)
	} else {
		effects, err = fm.Predict(nil)
	}
	if err != nil {
		return 0, err
	}

	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, yRes.At(i, 0))
		var pred float64
		for j := 0; j < dT; j++ {
			theta := effects.At(0, j)
			if data.X != nil {
				theta = effects.At(i, j)
			}
			pred += theta * tRes.At(i, j)
		}
		yPred.SetVec(i, pred)
	}

	return metrics.WeightedMSE(yTrue, yPred, data.SampleWeight)
}

// design builds the final-stage regressor matrix: one block per treatment
// column, [T_res_j] when X is nil, [T_res_j, T_res_j·x₁ .. T_res_j·x_p] otherwise.
func (fm *residualFinal) design(X *mat.Dense, tRes *mat.Dense, n int) *mat.Dense {
	p := 0
	if fm.dX > 0 {
		p = fm.dX
	}
	block := 1 + p

	F := mat.NewDense(n, fm.dT*block, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < fm.dT; j++ {
			t := tRes.At(i, j)
			F.Set(i, j*block, t)
			for k := 0; k < p; k++ {
				F.Set(i, j*block+1+k, t*X.At(i, k))
			}
		}
	}
	return F
}

// weightRows scales each row of (F, y) by sqrt(wᵢ) for a weighted
// least-squares solve.
func weightRows(F *mat.Dense, y *mat.VecDense, w *mat.VecDense) (*mat.Dense, *mat.VecDense) {
	n, c := F.Dims()
	A := mat.NewDense(n, c, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		s := sqrt(w.AtVec(i))
		for j := 0; j < c; j++ {
			A.Set(i, j, s*F.At(i, j))
		}
		b.SetVec(i, s*y.AtVec(i))
	}
	return A, b
}
