// Package model provides the base estimator state machinery and the
// fit/predict interfaces shared by sub-models across the library.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is the interface for models that learn from (X, y) pairs.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for models that predict from features.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Model is the basic supervised-learning contract. Nuisance sub-models
// (outcome and treatment regressions) are plugged in through this interface.
type Model interface {
	Fitter
	Predictor
}

// WeightedFitter is implemented by models that support per-sample weights.
// Stages that carry a sample_weight vector require this capability from
// their sub-models rather than silently dropping the weights.
type WeightedFitter interface {
	FitWeighted(X, y mat.Matrix, weights *mat.VecDense) error
}

// Scorer is the interface for models that can compute a goodness-of-fit score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Transformer is the interface for stateful data transformations.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Regressor combines the interfaces a full regression model satisfies.
type Regressor interface {
	Model
	Scorer
}
