package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repomatch/internal/model"
)

var refTime = time.Date(2024, 1, 11, 12, 0, 0, 0, time.UTC)

func rec(owner, name, desc, lang string, stars int, created time.Time) model.RepositoryRecord {
	r := model.RepositoryRecord{OwnerUsername: owner, FullName: name, Stars: stars, CreatedAt: created}
	if desc != "" {
		r.Description = model.StringPtr(desc)
	}
	if lang != "" {
		r.Language = model.StringPtr(lang)
	}
	return r
}

func TestPreprocessDefaultsMissingFields(t *testing.T) {
	in := []model.RepositoryRecord{
		{OwnerUsername: "alice", FullName: "alice/bare", CreatedAt: refTime.Add(-10 * day)},
		rec("alice", "alice/full", "json parser", "Rust", 3, refTime.Add(-36*time.Hour)),
	}
	in[1].Topics = model.StringPtr("parsing serde")

	out := Preprocess(in, refTime)
	require.Len(t, out, 2)

	assert.Equal(t, "", out[0].Description)
	assert.Equal(t, "", out[0].Language)
	assert.Equal(t, "", out[0].Topics)
	assert.Equal(t, "alice/bare   ", out[0].CombinedText)
	assert.Equal(t, 10, out[0].RepoAgeDays)

	assert.Equal(t, "alice/full json parser Rust parsing serde", out[1].CombinedText)
	assert.Equal(t, 1, out[1].RepoAgeDays)
	assert.Equal(t, "alice/full", out[1].FullName)
}

func TestPreprocessAgeNeverNegative(t *testing.T) {
	out := Preprocess([]model.RepositoryRecord{
		rec("bob", "bob/future", "", "", 0, refTime.Add(48*time.Hour)),
		rec("bob", "bob/now", "", "", 0, refTime),
		{OwnerUsername: "bob", FullName: "bob/zero"},
	}, refTime)
	for _, r := range out {
		assert.Equal(t, 0, r.RepoAgeDays, r.FullName)
	}
}

func TestPreprocessEmptyInput(t *testing.T) {
	assert.Empty(t, Preprocess(nil, refTime))
}

func TestVectorizerWeightsAndNormalizes(t *testing.T) {
	v := NewVectorizer(0).Fit([]string{"apple banana", "apple cherry"})
	require.Equal(t, []string{"apple", "banana", "cherry"}, v.Vocabulary())

	rows := v.Transform([]string{"apple banana"})
	idfApple := 1.0
	idfBanana := math.Log(3.0/2.0) + 1
	norm := math.Sqrt(idfApple*idfApple + idfBanana*idfBanana)
	assert.InDelta(t, idfApple/norm, rows[0][0], 1e-9)
	assert.InDelta(t, idfBanana/norm, rows[0][1], 1e-9)
	assert.Equal(t, 0.0, rows[0][2])
}

func TestVectorizerCapsVocabularyByTermCount(t *testing.T) {
	v := NewVectorizer(2).Fit([]string{"alpha alpha beta", "gamma"})
	assert.Equal(t, []string{"alpha", "beta"}, v.Vocabulary())
}

func TestVectorizerDropsStopWords(t *testing.T) {
	v := NewVectorizer(100).Fit([]string{"the router of the web"})
	assert.Equal(t, []string{"router", "web"}, v.Vocabulary())
}

func TestVectorizerUnknownTermsGiveZeroRow(t *testing.T) {
	v := NewVectorizer(100).Fit([]string{"router"})
	rows := v.Transform([]string{"database"})
	assert.Equal(t, []float64{0}, rows[0])
}

func TestMinMaxScaler(t *testing.T) {
	s := NewMinMaxScaler().Fit([][]float64{{10, 1}, {20, 1}, {0, 1}})
	got := s.Transform([][]float64{{10, 1}, {20, 1}, {0, 1}})
	assert.Equal(t, [][]float64{{0.5, 0}, {1, 0}, {0, 0}}, got)
}

func TestMinMaxScalerUnfitted(t *testing.T) {
	got := NewMinMaxScaler().Fit(nil).Transform([][]float64{{3, 4}})
	assert.Equal(t, [][]float64{{0, 0}}, got)
}

func TestBuildSharesOneFeatureSpace(t *testing.T) {
	user := Preprocess([]model.RepositoryRecord{
		rec("me", "me/jsonfast", "fast json parser", "Rust", 5, refTime.Add(-100*day)),
		rec("me", "me/webkit", "web router toolkit", "Python", 50, refTime.Add(-10*day)),
	}, refTime)
	cands := Preprocess([]model.RepositoryRecord{
		rec("x", "x/jsonfast", "fast json parser", "Rust", 500, refTime.Add(-1000*day)),
		rec("y", "y/imaging", "image resize library", "C", 0, refTime.Add(-1*day)),
		{OwnerUsername: "z", FullName: "z/bare", CreatedAt: refTime},
	}, refTime)

	um, cm := Build(user, cands, DefaultMaxFeatures)
	require.Equal(t, 2, um.Rows())
	require.Equal(t, 3, cm.Rows())
	require.Equal(t, um.Cols(), cm.Cols())

	space := FitSpace(DefaultMaxFeatures, user, cands)
	assert.Equal(t, space.Cols(), um.Cols())
	assert.Equal(t, len(space.Vocabulary())+NumericColumns, um.Cols())

	// Identical text lands in identical text columns.
	textCols := um.Cols() - NumericColumns
	assert.Equal(t, um.Row(0)[:textCols], cm.Row(0)[:textCols])

	for i := 0; i < cm.Rows(); i++ {
		require.Len(t, cm.Row(i), cm.Cols())
		for _, x := range cm.Row(i) {
			assert.GreaterOrEqual(t, x, 0.0)
			assert.LessOrEqual(t, x, 1.0+1e-12)
		}
	}
	// Stars are scaled over the union: 500 is the max, 0 the min.
	assert.Equal(t, 1.0, cm.Row(0)[textCols])
	assert.Equal(t, 0.0, cm.Row(1)[textCols])
}

func TestBuildWithNoCandidatesKeepsWidth(t *testing.T) {
	user := Preprocess([]model.RepositoryRecord{
		rec("me", "me/tool", "cli tool", "Go", 1, refTime.Add(-5*day)),
	}, refTime)
	um, cm := Build(user, nil, DefaultMaxFeatures)
	assert.Equal(t, 1, um.Rows())
	assert.Equal(t, 0, cm.Rows())
	assert.Equal(t, um.Cols(), cm.Cols())
}
