package features

import "repomatch/internal/model"

const (
	// DefaultMaxFeatures caps the TF-IDF vocabulary.
	DefaultMaxFeatures = 100
	// NumericColumns is the number of scaled numeric columns (stars, age).
	NumericColumns = 2
)

// Matrix is a row-major feature matrix. Row i describes input record i.
// The column count is kept even when there are no rows.
type Matrix struct {
	rows [][]float64
	cols int
}

// NewMatrix wraps rows as a matrix with cols columns. Every row must have
// exactly cols entries.
func NewMatrix(cols int, rows [][]float64) Matrix {
	return Matrix{rows: rows, cols: cols}
}

// Rows is the number of records.
func (m Matrix) Rows() int { return len(m.rows) }

// Cols is the feature dimensionality.
func (m Matrix) Cols() int { return m.cols }

// Row returns row i. The slice is shared with the matrix.
func (m Matrix) Row(i int) []float64 { return m.rows[i] }

// Space is a fitted feature space: one vectorizer and one scaler shared by
// every group of records transformed through it. A Space is built per
// request and must not be shared across requests.
type Space struct {
	text    *Vectorizer
	numeric *MinMaxScaler
}

// FitSpace fits a feature space over the union of the given record groups.
func FitSpace(maxFeatures int, groups ...[]model.PreprocessedRecord) *Space {
	var all []model.PreprocessedRecord
	for _, g := range groups {
		all = append(all, g...)
	}
	return &Space{
		text:    NewVectorizer(maxFeatures).Fit(texts(all)),
		numeric: NewMinMaxScaler().Fit(numerics(all)),
	}
}

// Cols is the width of every matrix this space produces.
func (s *Space) Cols() int { return s.text.Len() + NumericColumns }

// Vocabulary returns the text columns in order.
func (s *Space) Vocabulary() []string { return s.text.Vocabulary() }

// Transform builds the feature matrix for records: TF-IDF columns followed
// by scaled stars and age.
func (s *Space) Transform(records []model.PreprocessedRecord) Matrix {
	text := s.text.Transform(texts(records))
	num := s.numeric.Transform(numerics(records))
	rows := make([][]float64, len(records))
	for i := range records {
		row := make([]float64, 0, s.Cols())
		row = append(row, text[i]...)
		row = append(row, num[i]...)
		rows[i] = row
	}
	return NewMatrix(s.Cols(), rows)
}

// Build fits one Space over user ∪ candidates and returns both matrices in
// that shared space.
func Build(user, candidates []model.PreprocessedRecord, maxFeatures int) (Matrix, Matrix) {
	s := FitSpace(maxFeatures, user, candidates)
	return s.Transform(user), s.Transform(candidates)
}

func texts(records []model.PreprocessedRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.CombinedText
	}
	return out
}

func numerics(records []model.PreprocessedRecord) [][]float64 {
	out := make([][]float64, len(records))
	for i, r := range records {
		out[i] = []float64{float64(r.Stars), float64(r.RepoAgeDays)}
	}
	return out
}
