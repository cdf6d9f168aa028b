package crossfit

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
	"github.com/YuminosukeSato/causalgo/split"
	"gonum.org/v1/gonum/mat"
)

// meanResidual is a minimal nuisance model: it memorizes the training means
// of Y and T and predicts the residuals against them.
type meanResidual struct {
	meanY, meanT float64
}

func (m *meanResidual) Fit(data *Dataset) error {
	n := data.NumSamples()
	for i := 0; i < n; i++ {
		m.meanY += data.Y.At(i, 0)
		m.meanT += data.T.At(i, 0)
	}
	m.meanY /= float64(n)
	m.meanT /= float64(n)
	return nil
}

func (m *meanResidual) Predict(data *Dataset) ([]*mat.Dense, error) {
	n := data.NumSamples()
	yRes := mat.NewDense(n, 1, nil)
	tRes := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		yRes.Set(i, 0, data.Y.At(i, 0)-m.meanY)
		tRes.Set(i, 0, data.T.At(i, 0)-m.meanT)
	}
	return []*mat.Dense{yRes, tRes}, nil
}

type failingModel struct {
	failFit bool
}

func (m *failingModel) Fit(*Dataset) error {
	if m.failFit {
		return errors.New("fit exploded")
	}
	return nil
}

func (m *failingModel) Predict(*Dataset) ([]*mat.Dense, error) {
	return nil, errors.New("predict exploded")
}

func makeDataset(n int) *Dataset {
	y := mat.NewDense(n, 1, nil)
	tr := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		y.Set(i, 0, float64(i))
		tr.Set(i, 0, float64(i%7))
	}
	return &Dataset{Y: y, T: tr}
}

func halves(n int) []split.Fold {
	first := make([]int, 0, n/2)
	second := make([]int, 0, n-n/2)
	for i := 0; i < n/2; i++ {
		first = append(first, i)
	}
	for i := n / 2; i < n; i++ {
		second = append(second, i)
	}
	return []split.Fold{
		{Train: second, Test: first},
		{Train: first, Test: second},
	}
}

func TestRun_CoversAllSamplesWithTwoFolds(t *testing.T) {
	data := makeDataset(100)
	folds := halves(100)

	res, err := Run(func() NuisanceModel { return &meanResidual{} }, folds, data)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.FittedIndices) != 100 {
		t.Fatalf("Expected all 100 indices covered, got %d", len(res.FittedIndices))
	}
	for i, idx := range res.FittedIndices {
		if idx != i {
			t.Fatalf("FittedIndices not sorted/deduplicated at %d: %d", i, idx)
		}
	}
	if len(res.Models) != 2 {
		t.Errorf("Expected 2 fitted models, got %d", len(res.Models))
	}
	if len(res.Nuisances) != 2 {
		t.Fatalf("Expected 2 nuisance outputs, got %d", len(res.Nuisances))
	}

	// Sample 0 is in fold 0's test set; its residual must use fold 0's
	// training mean (computed over samples 50..99).
	var trainMeanY float64
	for i := 50; i < 100; i++ {
		trainMeanY += data.Y.At(i, 0)
	}
	trainMeanY /= 50

	got := res.Nuisances[0].At(0, 0)
	want := data.Y.At(0, 0) - trainMeanY
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Expected out-of-fold residual %f, got %f", want, got)
	}
}

func TestRun_PartialCoverageLeavesNaN(t *testing.T) {
	data := makeDataset(100)

	// Only the first 50 samples ever appear in a test partition.
	train := make([]int, 0, 50)
	test := make([]int, 0, 50)
	for i := 0; i < 50; i++ {
		test = append(test, i)
		train = append(train, i+50)
	}
	folds := []split.Fold{{Train: train, Test: test}}

	res, err := Run(func() NuisanceModel { return &meanResidual{} }, folds, data)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.FittedIndices) != 50 {
		t.Fatalf("Expected 50 covered indices, got %d", len(res.FittedIndices))
	}
	for i := 0; i < 50; i++ {
		if math.IsNaN(res.Nuisances[0].At(i, 0)) {
			t.Errorf("Covered sample %d is NaN", i)
		}
	}
	for i := 50; i < 100; i++ {
		if !math.IsNaN(res.Nuisances[0].At(i, 0)) {
			t.Errorf("Uncovered sample %d should be NaN, got %f", i, res.Nuisances[0].At(i, 0))
		}
	}
}

func TestRun_OverlappingTestSetsLastWriteWins(t *testing.T) {
	data := makeDataset(10)

	// Both folds' test sets contain sample 0; fold training sets differ,
	// so the two folds write different residuals for it.
	folds := []split.Fold{
		{Train: []int{5, 6, 7, 8, 9}, Test: []int{0, 1, 2, 3, 4}},
		{Train: []int{1, 2, 3, 4}, Test: []int{0, 5, 6, 7, 8, 9}},
	}

	res, err := Run(func() NuisanceModel { return &meanResidual{} }, folds, data)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The second fold's value must stand.
	var mean float64
	for _, i := range []int{1, 2, 3, 4} {
		mean += data.Y.At(i, 0)
	}
	mean /= 4

	want := data.Y.At(0, 0) - mean
	if math.Abs(res.Nuisances[0].At(0, 0)-want) > 1e-12 {
		t.Errorf("Expected last fold's residual %f, got %f", want, res.Nuisances[0].At(0, 0))
	}

	// Still deduplicated in the covered set.
	if len(res.FittedIndices) != 10 {
		t.Errorf("Expected 10 covered indices, got %d", len(res.FittedIndices))
	}
}

func TestRun_Idempotent(t *testing.T) {
	data := makeDataset(40)
	folds := halves(40)
	factory := func() NuisanceModel { return &meanResidual{} }

	a, err := Run(factory, folds, data)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	b, err := Run(factory, folds, data)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	for it := range a.Nuisances {
		if !mat.EqualApprox(a.Nuisances[it], b.Nuisances[it], 0) {
			t.Errorf("Nuisance output %d differs between identical runs", it)
		}
	}
	for i := range a.Models {
		ma := a.Models[i].(*meanResidual)
		mb := b.Models[i].(*meanResidual)
		if ma.meanY != mb.meanY || ma.meanT != mb.meanT {
			t.Errorf("Fold %d fitted parameters differ between identical runs", i)
		}
	}
}

func TestRun_FitErrorAbortsImmediately(t *testing.T) {
	data := makeDataset(10)
	folds := halves(10)

	_, err := Run(func() NuisanceModel { return &failingModel{failFit: true} }, folds, data)
	if err == nil {
		t.Fatal("Expected fit error to propagate")
	}
}

func TestRun_PredictErrorAbortsImmediately(t *testing.T) {
	data := makeDataset(10)
	folds := halves(10)

	_, err := Run(func() NuisanceModel { return &failingModel{} }, folds, data)
	if err == nil {
		t.Fatal("Expected predict error to propagate")
	}
}

func TestRun_NoFolds(t *testing.T) {
	data := makeDataset(10)
	_, err := Run(func() NuisanceModel { return &meanResidual{} }, nil, data)
	if err == nil {
		t.Fatal("Expected an error for an empty fold list")
	}
}

func TestRun_OutOfRangeFoldIndexRejected(t *testing.T) {
	data := makeDataset(10)

	// Index 10 is one past the last valid row.
	folds := []split.Fold{
		{Train: []int{5, 6, 7, 8, 9}, Test: []int{0, 1, 2, 3, 10}},
	}

	_, err := Run(func() NuisanceModel { return &meanResidual{} }, folds, data)
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError for an out-of-range index, got %v", err)
	}

	folds = []split.Fold{
		{Train: []int{-1, 6, 7}, Test: []int{0, 1, 2}},
	}
	if _, err := Run(func() NuisanceModel { return &meanResidual{} }, folds, data); !errors.As(err, &ve) {
		t.Errorf("Expected ValidationError for a negative index, got %v", err)
	}
}

func TestRun_EmptyPartitionRejected(t *testing.T) {
	data := makeDataset(10)

	folds := []split.Fold{
		{Train: []int{5, 6, 7, 8, 9}, Test: nil},
	}
	_, err := Run(func() NuisanceModel { return &meanResidual{} }, folds, data)
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError for an empty test partition, got %v", err)
	}

	folds = []split.Fold{
		{Train: nil, Test: []int{0, 1, 2}},
	}
	if _, err := Run(func() NuisanceModel { return &meanResidual{} }, folds, data); !errors.As(err, &ve) {
		t.Errorf("Expected ValidationError for an empty train partition, got %v", err)
	}
}
