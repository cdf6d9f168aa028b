// Package crossfit implements the cross-fitting engine at the heart of
// orthogonal learning: fitting one clone of a nuisance model per fold on the
// training indices and evaluating it on the held-out test indices, so that
// every covered sample receives exactly one out-of-fold nuisance estimate.
package crossfit

import (
	"strings"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dataset is the named bundle of data arrays a causal estimation consumes.
// Y and T are required; every other field may be nil, and nil-ness must be
// consistent between fit-time and later score-time calls. All non-nil
// fields share the same number of rows.
type Dataset struct {
	Y *mat.Dense // outcomes, n×dY
	T *mat.Dense // treatments, n×dT (one-hot encoded when discrete)
	X *mat.Dense // heterogeneity features, optional
	W *mat.Dense // controls, optional
	Z *mat.Dense // instruments, optional

	SampleWeight *mat.VecDense // per-sample weights, optional
	SampleVar    *mat.VecDense // per-sample outcome variance, optional
}

// NumSamples returns the number of rows, 0 for an empty dataset.
func (d *Dataset) NumSamples() int {
	if d.Y == nil {
		return 0
	}
	r, _ := d.Y.Dims()
	return r
}

// Validate checks that Y and T are present and that every supplied array
// agrees on the sample count. op names the calling operation in errors.
func (d *Dataset) Validate(op string) error {
	if d.Y == nil {
		return errors.NewValueError(op, "Y must not be nil")
	}
	if d.T == nil {
		return errors.NewValueError(op, "T must not be nil")
	}
	n, _ := d.Y.Dims()
	if n == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}

	check := func(name string, m mat.Matrix) error {
		if m == nil || isNilMatrix(m) {
			return nil
		}
		r, _ := m.Dims()
		if r != n {
			return errors.NewDimensionError(op+"("+name+")", n, r, 0)
		}
		return nil
	}
	for _, it := range []struct {
		name string
		m    mat.Matrix
	}{
		{"T", matOrNil(d.T)},
		{"X", matOrNil(d.X)},
		{"W", matOrNil(d.W)},
		{"Z", matOrNil(d.Z)},
	} {
		if err := check(it.name, it.m); err != nil {
			return err
		}
	}
	if d.SampleWeight != nil && d.SampleWeight.Len() != n {
		return errors.NewDimensionError(op+"(sample_weight)", n, d.SampleWeight.Len(), 0)
	}
	if d.SampleVar != nil && d.SampleVar.Len() != n {
		return errors.NewDimensionError(op+"(sample_var)", n, d.SampleVar.Len(), 0)
	}
	return nil
}

// Subset returns a new Dataset restricted to the given row indices.
// Nil fields stay nil.
func (d *Dataset) Subset(indices []int) *Dataset {
	return &Dataset{
		Y:            subsetDense(d.Y, indices),
		T:            subsetDense(d.T, indices),
		X:            subsetDense(d.X, indices),
		W:            subsetDense(d.W, indices),
		Z:            subsetDense(d.Z, indices),
		SampleWeight: subsetVec(d.SampleWeight, indices),
		SampleVar:    subsetVec(d.SampleVar, indices),
	}
}

// SplitInput builds the matrix the fold splitter partitions on: the
// horizontal concatenation of whichever of (Z, W, X) are present, or a
// single constant column when none is.
func (d *Dataset) SplitInput() *mat.Dense {
	parts := make([]*mat.Dense, 0, 3)
	for _, m := range []*mat.Dense{d.Z, d.W, d.X} {
		if m != nil {
			parts = append(parts, m)
		}
	}
	if len(parts) == 0 {
		n := d.NumSamples()
		ones := mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			ones.Set(i, 0, 1)
		}
		return ones
	}
	return HStack(parts...)
}

// HStack concatenates matrices horizontally. All parts must share row count.
func HStack(parts ...*mat.Dense) *mat.Dense {
	rows, cols := 0, 0
	for _, p := range parts {
		r, c := p.Dims()
		rows = r
		cols += c
	}
	out := mat.NewDense(rows, cols, nil)
	off := 0
	for _, p := range parts {
		r, c := p.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, off+j, p.At(i, j))
			}
		}
		off += c
	}
	return out
}

// SubsetRows returns a copy of m restricted to the given rows, nil for nil.
func SubsetRows(m *mat.Dense, indices []int) *mat.Dense {
	return subsetDense(m, indices)
}

func subsetDense(m *mat.Dense, indices []int) *mat.Dense {
	if m == nil {
		return nil
	}
	_, c := m.Dims()
	out := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(idx, j))
		}
	}
	return out
}

func subsetVec(v *mat.VecDense, indices []int) *mat.VecDense {
	if v == nil {
		return nil
	}
	out := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		out.SetVec(i, v.AtVec(idx))
	}
	return out
}

func matOrNil(m *mat.Dense) mat.Matrix {
	if m == nil {
		return nil
	}
	return m
}

func isNilMatrix(m mat.Matrix) bool {
	d, ok := m.(*mat.Dense)
	return ok && d == nil
}

// Inputs declares which optional dataset fields a model consumes.
// It replaces the dynamic skip-absent-keyword dispatch of loosely typed
// estimator stacks with a capability descriptor that can be validated
// before any model is touched.
type Inputs uint8

const (
	UsesX Inputs = 1 << iota
	UsesW
	UsesZ
	UsesWeight
)

// Has reports whether the declaration includes the given input.
func (in Inputs) Has(flag Inputs) bool {
	return in&flag != 0
}

// String lists the declared inputs.
func (in Inputs) String() string {
	names := make([]string, 0, 4)
	if in.Has(UsesX) {
		names = append(names, "X")
	}
	if in.Has(UsesW) {
		names = append(names, "W")
	}
	if in.Has(UsesZ) {
		names = append(names, "Z")
	}
	if in.Has(UsesWeight) {
		names = append(names, "sample_weight")
	}
	return strings.Join(names, "|")
}

// InputDeclarer is implemented by models that declare which optional
// inputs they require. Declared-but-absent inputs fail validation up front.
type InputDeclarer interface {
	DeclaredInputs() Inputs
}

// ValidateDeclared checks a model's input declaration against the dataset.
func ValidateDeclared(op string, model interface{}, d *Dataset) error {
	decl, ok := model.(InputDeclarer)
	if !ok {
		return nil
	}
	in := decl.DeclaredInputs()
	if in.Has(UsesX) && d.X == nil {
		return errors.NewValidationError("X", op+": model declares X but none was supplied", nil)
	}
	if in.Has(UsesW) && d.W == nil {
		return errors.NewValidationError("W", op+": model declares W but none was supplied", nil)
	}
	if in.Has(UsesZ) && d.Z == nil {
		return errors.NewValidationError("Z", op+": model declares Z but none was supplied", nil)
	}
	if in.Has(UsesWeight) && d.SampleWeight == nil {
		return errors.NewValidationError("sample_weight", op+": model declares sample_weight but none was supplied", nil)
	}
	return nil
}
