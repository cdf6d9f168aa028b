package metrics

import (
	"math"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("MSE", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("MSE", n, yPred.Len(), 0)
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}

	return sum / float64(n), nil
}

// WeightedMSE はサンプル重み付きの平均二乗誤差を計算する
// 重みがnilの場合は通常のMSEと等価
func WeightedMSE(yTrue, yPred, weights *mat.VecDense) (float64, error) {
	if weights == nil {
		return MSE(yTrue, yPred)
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("WeightedMSE", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("WeightedMSE", n, yPred.Len(), 0)
	}
	if weights.Len() != n {
		return 0, errors.NewDimensionError("WeightedMSE", n, weights.Len(), 0)
	}

	// WMSE = Σ wᵢ(yᵢ - ŷᵢ)² / Σ wᵢ
	var sum, wsum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		w := weights.AtVec(i)
		sum += w * diff * diff
		wsum += w
	}
	if wsum == 0 {
		return 0, errors.NewValueError("WeightedMSE", "sum of weights is zero")
	}

	return sum / wsum, nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("R2Score", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("R2Score", n, yPred.Len(), 0)
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	// R² = 1 - RSS/TSS
	var tss, rss float64
	for i := 0; i < n; i++ {
		diffMean := yTrue.AtVec(i) - yMean
		diffPred := yTrue.AtVec(i) - yPred.AtVec(i)
		tss += diffMean * diffMean
		rss += diffPred * diffPred
	}

	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero")
	}

	return 1 - rss/tss, nil
}

// ColVec は行列のj列目をVecDenseとして取り出すヘルパー
func ColVec(m mat.Matrix, j int) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, j))
	}
	return v
}
