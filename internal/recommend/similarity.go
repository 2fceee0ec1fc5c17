package recommend

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"repomatch/internal/features"
	"repomatch/internal/metrics"
)

// Method selects how a candidate vector is compared with a user vector.
type Method string

const (
	Cosine    Method = "cosine"
	Euclidean Method = "euclidean"
)

// ParseMethod accepts "cosine" or "euclidean" (case-insensitive, surrounding
// spaces ignored).
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case Cosine:
		return Cosine, nil
	case Euclidean:
		return Euclidean, nil
	}
	return "", &ConfigurationError{Field: "similarity_method", Value: s, Reason: "must be cosine or euclidean"}
}

// Ranked is one scored candidate. Index points into the candidate matrix.
type Ranked struct {
	Index int
	Score float64
}

// RankBySimilarity scores every candidate row by its mean similarity to the
// user rows and returns the n best, highest first. Equal scores keep the
// lower index first. Empty matrices yield an empty result.
func RankBySimilarity(user, candidates features.Matrix, method Method, n int) ([]Ranked, error) {
	sim, err := similarityFunc(method)
	if err != nil {
		return nil, err
	}
	if user.Rows() == 0 || candidates.Rows() == 0 || n <= 0 {
		return nil, nil
	}
	if user.Cols() != candidates.Cols() {
		return nil, &FeatureSpaceMismatchError{UserColumns: user.Cols(), CandidateColumns: candidates.Cols()}
	}

	ranked := make([]Ranked, candidates.Rows())
	for i := range ranked {
		c := candidates.Row(i)
		var sum float64
		for j := 0; j < user.Rows(); j++ {
			sum += sim(c, user.Row(j))
		}
		ranked[i] = Ranked{Index: i, Score: sum / float64(user.Rows())}
	}
	metrics.CandidatesScored.Observe(float64(len(ranked)))

	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Score > ranked[b].Score })
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func similarityFunc(m Method) (func(a, b []float64) float64, error) {
	m, err := ParseMethod(string(m))
	if err != nil {
		return nil, err
	}
	if m == Euclidean {
		return euclidean, nil
	}
	return cosine, nil
}

// cosine is 0 when either vector is all zeros. The result is clamped to
// [-1, 1] since rounding can push parallel vectors slightly past 1.
func cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, floats.Dot(a, b)/(na*nb)))
}

func euclidean(a, b []float64) float64 {
	return 1 / (1 + floats.Distance(a, b, 2))
}
