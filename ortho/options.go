package ortho

import "github.com/YuminosukeSato/causalgo/split"

// Option is a function that configures a Learner.
type Option func(*Learner)

// WithNSplits sets the number of cross-fitting folds for freshly
// constructed splitters.
func WithNSplits(k int) Option {
	return func(l *Learner) {
		l.nSplits = k
	}
}

// WithSeed sets the random seed threaded into freshly constructed
// splitters. Repeated fits with the same seed reproduce identical
// partitions.
func WithSeed(seed int64) Option {
	return func(l *Learner) {
		l.seed = seed
	}
}

// WithDiscreteTreatment treats T as categorical: labels are one-hot
// encoded with the smallest category dropped as baseline, and fold
// splitting is stratified on the raw labels.
func WithDiscreteTreatment(discrete bool) Option {
	return func(l *Learner) {
		l.discreteTreatment = discrete
	}
}

// WithSplitter supplies an external fold splitter, used verbatim: the
// learner does not force its shuffle flag or seed onto it.
func WithSplitter(s split.Splitter) Option {
	return func(l *Learner) {
		l.splitter = s
	}
}

// WithFolds supplies an explicit fold partition, used verbatim. The
// caller controls fold semantics, including partial coverage and
// overlapping test sets.
func WithFolds(folds []split.Fold) Option {
	return func(l *Learner) {
		l.folds = folds
	}
}
