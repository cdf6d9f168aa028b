package errors

import (
	"strings"
	"testing"
)

func TestWarn_UsesHandler(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(func(w error) {})

	w := NewStratificationWarning(1, 2, 5)
	Warn(w)

	if got == nil {
		t.Fatal("Expected the handler to receive the warning")
	}
	var sw *StratificationWarning
	if !As(got, &sw) {
		t.Fatalf("Expected StratificationWarning, got %T", got)
	}
	if sw.Label != 1 || sw.Members != 2 || sw.NSplits != 5 {
		t.Errorf("Unexpected warning contents: %+v", sw)
	}
}

func TestWarn_ZerologFuncTakesPriority(t *testing.T) {
	var viaHandler, viaZerolog bool
	SetWarningHandler(func(w error) { viaHandler = true })
	SetZerologWarnFunc(func(w error) { viaZerolog = true })
	defer func() {
		SetWarningHandler(func(w error) {})
		SetZerologWarnFunc(nil)
	}()

	Warn(NewDataConversionWarning("int", "float64", "matrix storage"))

	if !viaZerolog {
		t.Error("Expected the zerolog warn func to be used")
	}
	if viaHandler {
		t.Error("Handler must not fire when the zerolog func is set")
	}
}

func TestNotFittedError_AsThroughStack(t *testing.T) {
	err := NewNotFittedError("Learner", "ConstMarginalEffect")

	var nfe *NotFittedError
	if !As(err, &nfe) {
		t.Fatalf("Expected NotFittedError through the stack wrapper, got %T", err)
	}
	if nfe.ModelName != "Learner" || nfe.Method != "ConstMarginalEffect" {
		t.Errorf("Unexpected fields: %+v", nfe)
	}
	if !strings.Contains(err.Error(), "not fitted") {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestDimensionError_Message(t *testing.T) {
	err := NewDimensionError("Regression.Fit", 3, 2, 1)
	var de *DimensionError
	if !As(err, &de) {
		t.Fatalf("Expected DimensionError, got %T", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "features") || !strings.Contains(msg, "Expected 3, got 2") {
		t.Errorf("Unexpected message: %s", msg)
	}

	rows := NewDimensionError("MSE", 4, 5, 0)
	if !strings.Contains(rows.Error(), "rows") {
		t.Errorf("Axis 0 must report rows: %s", rows.Error())
	}
}

func TestInputShapeError_Message(t *testing.T) {
	err := NewInputShapeError("scoring", []int{2}, []int{3})
	var ise *InputShapeError
	if !As(err, &ise) {
		t.Fatalf("Expected InputShapeError, got %T", err)
	}
	if ise.Phase != "scoring" {
		t.Errorf("Unexpected phase: %q", ise.Phase)
	}
	if !strings.Contains(err.Error(), "recorded at fit time") {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestModelError_UnwrapsSentinel(t *testing.T) {
	err := NewModelError("Regression.Fit", "empty data", ErrEmptyData)

	if !Is(err, ErrEmptyData) {
		t.Error("Expected Is to find ErrEmptyData through ModelError")
	}
	var me *ModelError
	if !As(err, &me) {
		t.Fatalf("Expected ModelError, got %T", err)
	}
	if me.Op != "Regression.Fit" {
		t.Errorf("Unexpected op: %q", me.Op)
	}
}

func TestCapabilityError_Message(t *testing.T) {
	err := NewCapabilityError("final model", "Score")
	if !strings.Contains(err.Error(), "does not implement Score") {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestUnknownCategoryError_Message(t *testing.T) {
	err := NewUnknownCategoryError("OneHotEncoder", "7")
	var uce *UnknownCategoryError
	if !As(err, &uce) {
		t.Fatalf("Expected UnknownCategoryError, got %T", err)
	}
	if uce.Encoder != "OneHotEncoder" || uce.Category != "7" {
		t.Errorf("Unexpected fields: %+v", uce)
	}
}

func TestWrap_PreservesTarget(t *testing.T) {
	base := NewValueError("RLearner.Fit", "cannot accept instrument Z")
	wrapped := Wrap(base, "outer context")

	var ve *ValueError
	if !As(wrapped, &ve) {
		t.Error("Expected ValueError through the wrapper")
	}
	if !strings.Contains(wrapped.Error(), "outer context") {
		t.Errorf("Unexpected message: %s", wrapped.Error())
	}
}
