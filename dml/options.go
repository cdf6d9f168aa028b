package dml

import (
	"math"

	"github.com/YuminosukeSato/causalgo/core/model"
	"github.com/YuminosukeSato/causalgo/linear"
	"github.com/YuminosukeSato/causalgo/ortho"
	"github.com/YuminosukeSato/causalgo/split"
)

func defaultRegression() model.Model {
	return linear.NewRegression()
}

func sqrt(v float64) float64 {
	return math.Sqrt(v)
}

type rlearnerConfig struct {
	modelY    ModelFactory
	modelT    ModelFactory
	orthoOpts []ortho.Option
}

// RLearnerOption is a function that configures an RLearner.
type RLearnerOption func(*rlearnerConfig)

// WithModelY sets the factory for the outcome model E[Y|X,W].
func WithModelY(factory ModelFactory) RLearnerOption {
	return func(c *rlearnerConfig) {
		c.modelY = factory
	}
}

// WithModelT sets the factory for the treatment model E[T|X,W].
func WithModelT(factory ModelFactory) RLearnerOption {
	return func(c *rlearnerConfig) {
		c.modelT = factory
	}
}

// WithNSplits sets the number of cross-fitting folds.
func WithNSplits(k int) RLearnerOption {
	return func(c *rlearnerConfig) {
		c.orthoOpts = append(c.orthoOpts, ortho.WithNSplits(k))
	}
}

// WithSeed sets the random seed for fold construction.
func WithSeed(seed int64) RLearnerOption {
	return func(c *rlearnerConfig) {
		c.orthoOpts = append(c.orthoOpts, ortho.WithSeed(seed))
	}
}

// WithDiscreteTreatment treats T as categorical labels, one-hot encoded
// with the smallest category as the dropped baseline.
func WithDiscreteTreatment(discrete bool) RLearnerOption {
	return func(c *rlearnerConfig) {
		c.orthoOpts = append(c.orthoOpts, ortho.WithDiscreteTreatment(discrete))
	}
}

// WithSplitter supplies an external fold splitter, used verbatim.
func WithSplitter(s split.Splitter) RLearnerOption {
	return func(c *rlearnerConfig) {
		c.orthoOpts = append(c.orthoOpts, ortho.WithSplitter(s))
	}
}

// WithFolds supplies an explicit fold partition, used verbatim.
func WithFolds(folds []split.Fold) RLearnerOption {
	return func(c *rlearnerConfig) {
		c.orthoOpts = append(c.orthoOpts, ortho.WithFolds(folds))
	}
}
