package features

// MinMaxScaler rescales each column into [0,1] using the column minimum and
// maximum seen by Fit. A column with no spread scales to 0.
type MinMaxScaler struct {
	min []float64
	max []float64
}

// NewMinMaxScaler returns an unfitted scaler.
func NewMinMaxScaler() *MinMaxScaler { return &MinMaxScaler{} }

// Fit records per-column bounds over rows. Every row must have the same width.
func (s *MinMaxScaler) Fit(rows [][]float64) *MinMaxScaler {
	s.min, s.max = nil, nil
	if len(rows) == 0 {
		return s
	}
	width := len(rows[0])
	s.min = make([]float64, width)
	s.max = make([]float64, width)
	copy(s.min, rows[0])
	copy(s.max, rows[0])
	for _, r := range rows[1:] {
		for j := 0; j < width; j++ {
			if r[j] < s.min[j] {
				s.min[j] = r[j]
			}
			if r[j] > s.max[j] {
				s.max[j] = r[j]
			}
		}
	}
	return s
}

// Transform scales rows with the fitted bounds. Columns the scaler was not
// fitted on come out as 0.
func (s *MinMaxScaler) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		scaled := make([]float64, len(r))
		for j, x := range r {
			if j >= len(s.min) {
				continue
			}
			if span := s.max[j] - s.min[j]; span > 0 {
				scaled[j] = (x - s.min[j]) / span
			}
		}
		out[i] = scaled
	}
	return out
}
