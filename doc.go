// Package causalgo provides orthogonal/double machine learning estimators
// for heterogeneous treatment effect estimation in Go.
//
// CausalGo offers an EconML-like API on top of gonum: a generic cross-fitting
// core (ortho, crossfit, split) that partitions data into folds, fits cloned
// nuisance models out-of-fold, and fits a pluggable final effect model on the
// assembled residual statistics. Concrete estimators such as the R-learner
// (dml) only supply the nuisance/final model pair.
//
// # Quick start
//
// A double-ML estimate of a constant treatment effect:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/causalgo/crossfit"
//	    "github.com/YuminosukeSato/causalgo/dml"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    est := dml.NewRLearner(dml.WithNSplits(2), dml.WithSeed(42))
//	    if err := est.Fit(&crossfit.Dataset{Y: y, T: t, W: w}); err != nil {
//	        log.Fatal(err)
//	    }
//	    theta, _ := est.ConstMarginalEffect(nil)
//	    fmt.Println(theta.At(0, 0))
//	}
//
// The nuisance and final model contracts live in crossfit and ortho; any
// model satisfying them can be plugged into the same cross-fitting protocol.
package causalgo
