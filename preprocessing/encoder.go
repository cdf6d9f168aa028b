// Package preprocessing は処置変数のエンコーディングを提供します。
//
// 離散処置モードでは、生のカテゴリラベルを辞書順最小のカテゴリを
// ベースライン（全ゼロ行）として落としたone-hotコントラスト表現に変換します。
// 学習時に固定されたカテゴリ集合はtransform時に再利用され、
// 未知のカテゴリは必ずエラーになります。
package preprocessing

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/causalgo/core/model"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LabelEncoder は文字列ラベルをソート済みカテゴリのインデックスに変換する
type LabelEncoder struct {
	model.BaseEstimator

	// Classes はソート済みの一意なカテゴリ
	Classes []string

	index map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit はラベル集合から一意なカテゴリの辞書順マッピングを学習する
func (le *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	seen := make(map[string]bool)
	classes := make([]string, 0)
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)

	le.Classes = classes
	le.index = make(map[string]int, len(classes))
	for i, c := range classes {
		le.index[c] = i
	}

	le.SetFitted()
	return nil
}

// Transform は学習済みマッピングでラベルをインデックスに変換する
// 未知のラベルはUnknownCategoryErrorになる
func (le *LabelEncoder) Transform(labels []string) ([]float64, error) {
	if !le.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}

	out := make([]float64, len(labels))
	for i, l := range labels {
		idx, ok := le.index[l]
		if !ok {
			return nil, errors.NewUnknownCategoryError("LabelEncoder", l)
		}
		out[i] = float64(idx)
	}
	return out, nil
}

// FitTransform はFitとTransformを同時に実行する
func (le *LabelEncoder) FitTransform(labels []string) ([]float64, error) {
	if err := le.Fit(labels); err != nil {
		return nil, err
	}
	return le.Transform(labels)
}

// InverseTransform はインデックスを元のラベルに戻す
func (le *LabelEncoder) InverseTransform(indices []float64) ([]string, error) {
	if !le.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}

	out := make([]string, len(indices))
	for i, v := range indices {
		idx := int(v)
		if idx < 0 || idx >= len(le.Classes) || float64(idx) != v {
			return nil, errors.NewUnknownCategoryError("LabelEncoder", fmt.Sprintf("%g", v))
		}
		out[i] = le.Classes[idx]
	}
	return out, nil
}

// OneHotEncoder は離散的な数値ラベル列をone-hot行列に変換する
//
// DropFirstがtrueの場合、最小カテゴリの列を落としたコントラスト表現になり、
// そのカテゴリのサンプルは全ゼロ行（暗黙のベースライン）として表現される。
type OneHotEncoder struct {
	model.BaseEstimator

	// Categories はソート済みの一意なカテゴリ値
	Categories []float64

	// DropFirst は最小カテゴリの列を落とすかどうか
	DropFirst bool

	index map[float64]int
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder(dropFirst bool) *OneHotEncoder {
	return &OneHotEncoder{DropFirst: dropFirst}
}

// Fit はn×1のラベル列から一意なカテゴリ集合を学習する
func (oh *OneHotEncoder) Fit(T mat.Matrix) error {
	r, c := T.Dims()
	if r == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	if c != 1 {
		return errors.NewValueError("OneHotEncoder.Fit", "T must be a single label column")
	}

	seen := make(map[float64]bool)
	categories := make([]float64, 0)
	for i := 0; i < r; i++ {
		v := T.At(i, 0)
		if !seen[v] {
			seen[v] = true
			categories = append(categories, v)
		}
	}
	sort.Float64s(categories)

	if len(categories) < 2 {
		return errors.NewValueError("OneHotEncoder.Fit", "need at least 2 treatment categories")
	}

	oh.Categories = categories
	oh.index = make(map[float64]int, len(categories))
	for i, v := range categories {
		oh.index[v] = i
	}

	oh.SetFitted()
	return nil
}

// Transform は学習済みカテゴリ集合でラベル列をone-hot行列に変換する
// 未知のカテゴリはUnknownCategoryErrorになる（黙ってゼロ行を返すことはない）
func (oh *OneHotEncoder) Transform(T mat.Matrix) (*mat.Dense, error) {
	if !oh.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}

	r, c := T.Dims()
	if c != 1 {
		return nil, errors.NewValueError("OneHotEncoder.Transform", "T must be a single label column")
	}

	cols := len(oh.Categories)
	off := 0
	if oh.DropFirst {
		cols--
		off = 1
	}

	out := mat.NewDense(r, cols, nil)
	for i := 0; i < r; i++ {
		v := T.At(i, 0)
		idx, ok := oh.index[v]
		if !ok {
			return nil, errors.NewUnknownCategoryError("OneHotEncoder", fmt.Sprintf("%g", v))
		}
		// ベースラインカテゴリ（idx==0, DropFirst時）は全ゼロ行のまま
		if idx >= off {
			out.Set(i, idx-off, 1)
		}
	}
	return out, nil
}

// FitTransform はFitとTransformを同時に実行する
func (oh *OneHotEncoder) FitTransform(T mat.Matrix) (*mat.Dense, error) {
	if err := oh.Fit(T); err != nil {
		return nil, err
	}
	return oh.Transform(T)
}

// NumCategories は学習されたカテゴリ数を返す
func (oh *OneHotEncoder) NumCategories() int {
	return len(oh.Categories)
}
