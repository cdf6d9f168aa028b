// Package log defines standard attribute keys for causal estimation operations.
//
// Using these keys across the library keeps log records analyzable: every fit,
// crossfit fold, and score emits the same dotted attribute names.
package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "OrthoLearner", "RLearner", "Regression"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score", "effect"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "ortho", "crossfit", "split", "preprocessing"
	ComponentKey = "ml.component"
)

// Data shape and cross-fitting context.
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of heterogeneity features (columns of X).
	FeaturesKey = "data.features"

	// TreatmentsKey indicates the number of treatment columns after encoding.
	TreatmentsKey = "data.treatments"

	// FoldsKey indicates the number of cross-fitting folds.
	FoldsKey = "cate.folds"

	// FoldKey indicates the index of the fold currently being fitted.
	FoldKey = "cate.fold"

	// CoveredKey indicates how many samples received an out-of-fold nuisance value.
	CoveredKey = "cate.covered_samples"
)

// Error context.
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	// Examples: "DIMENSION_MISMATCH", "NOT_FITTED", "UNKNOWN_CATEGORY"
	ErrorCodeKey = "error.code"
)

// Configuration.
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationEffect    = "effect"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorUnknownCategory   = "UNKNOWN_CATEGORY"
)
