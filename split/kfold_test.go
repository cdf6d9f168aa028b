package split

import (
	"sort"
	"testing"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestKFold_PartitionCoversAllSamples(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	kf := NewKFold(3, false, 0)

	folds := kf.Split(X, nil)
	if len(folds) != 3 {
		t.Fatalf("Expected 3 folds, got %d", len(folds))
	}

	seen := make(map[int]int)
	for _, f := range folds {
		for _, idx := range f.Test {
			seen[idx]++
		}
	}
	if len(seen) != 10 {
		t.Errorf("Expected test sets to cover all 10 samples, covered %d", len(seen))
	}
	for idx, count := range seen {
		if count != 1 {
			t.Errorf("Sample %d appears in %d test sets, expected 1", idx, count)
		}
	}
}

func TestKFold_TrainTestDisjoint(t *testing.T) {
	X := mat.NewDense(17, 1, nil)
	kf := NewKFold(4, true, 99)

	for i, f := range kf.Split(X, nil) {
		inTest := make(map[int]bool)
		for _, idx := range f.Test {
			inTest[idx] = true
		}
		for _, idx := range f.Train {
			if inTest[idx] {
				t.Errorf("Fold %d: index %d in both train and test", i, idx)
			}
		}
		if len(f.Train)+len(f.Test) != 17 {
			t.Errorf("Fold %d: train+test = %d, expected 17", i, len(f.Train)+len(f.Test))
		}
	}
}

func TestKFold_SameSeedSamePartition(t *testing.T) {
	X := mat.NewDense(50, 2, nil)

	a := NewKFold(5, true, 42).Split(X, nil)
	b := NewKFold(5, true, 42).Split(X, nil)

	for i := range a {
		if len(a[i].Test) != len(b[i].Test) {
			t.Fatalf("Fold %d: test sizes differ", i)
		}
		for j := range a[i].Test {
			if a[i].Test[j] != b[i].Test[j] {
				t.Errorf("Fold %d: test index %d differs: %d vs %d", i, j, a[i].Test[j], b[i].Test[j])
			}
		}
	}
}

func TestKFold_DifferentSeedDifferentPartition(t *testing.T) {
	X := mat.NewDense(100, 1, nil)

	a := NewKFold(2, true, 1).Split(X, nil)
	b := NewKFold(2, true, 2).Split(X, nil)

	same := true
	for j := range a[0].Test {
		if a[0].Test[j] != b[0].Test[j] {
			same = false
			break
		}
	}
	if same {
		t.Error("Expected different seeds to shuffle differently")
	}
}

func TestStratifiedKFold_BalancedTestSets(t *testing.T) {
	// 40 samples of class 0, 20 of class 1
	X := mat.NewDense(60, 1, nil)
	y := mat.NewDense(60, 1, nil)
	for i := 40; i < 60; i++ {
		y.Set(i, 0, 1)
	}

	folds := NewStratifiedKFold(2, true, 7).Split(X, y)
	if len(folds) != 2 {
		t.Fatalf("Expected 2 folds, got %d", len(folds))
	}

	for i, f := range folds {
		var class0, class1 int
		for _, idx := range f.Test {
			if y.At(idx, 0) == 0 {
				class0++
			} else {
				class1++
			}
		}
		if class0 != 20 || class1 != 10 {
			t.Errorf("Fold %d: test set has %d/%d per class, expected 20/10", i, class0, class1)
		}
	}
}

func TestStratifiedKFold_WarnsOnTinyClass(t *testing.T) {
	var warned error
	errors.SetWarningHandler(func(w error) { warned = w })
	defer errors.SetWarningHandler(nil)

	X := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, nil)
	y.Set(9, 0, 1) // single member of class 1

	NewStratifiedKFold(3, false, 0).Split(X, y)

	if warned == nil {
		t.Fatal("Expected a StratificationWarning for the single-member class")
	}
	var sw *errors.StratificationWarning
	if !errors.As(warned, &sw) {
		t.Fatalf("Expected StratificationWarning, got %T", warned)
	}
	if sw.Label != 1 || sw.Members != 1 {
		t.Errorf("Unexpected warning contents: %+v", sw)
	}
}

func TestFoldList_PassesThroughUnmodified(t *testing.T) {
	fl := FoldList{
		{Train: []int{2, 3}, Test: []int{0, 1}},
		{Train: []int{0, 1}, Test: []int{2, 3}},
	}

	folds := fl.Split(nil, nil)
	if len(folds) != 2 {
		t.Fatalf("Expected 2 folds, got %d", len(folds))
	}
	if fl.NSplits() != 2 {
		t.Errorf("Expected NSplits 2, got %d", fl.NSplits())
	}
	got := append([]int{}, folds[0].Test...)
	sort.Ints(got)
	if got[0] != 0 || got[1] != 1 {
		t.Errorf("Fold 0 test set was modified: %v", folds[0].Test)
	}
}
