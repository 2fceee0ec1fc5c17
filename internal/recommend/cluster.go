package recommend

import (
	"context"
	"fmt"
	"sort"

	"repomatch/internal/model"
)

// LanguageSource is the by-language candidate query used by the cluster path.
type LanguageSource interface {
	CandidatesByLanguage(ctx context.Context, username, language string, limit int) ([]model.RepositoryRecord, error)
}

// TopLanguages returns up to k languages ordered by how often they appear in
// records. An empty language is a bucket of its own. Ties go to the language
// seen first.
func TopLanguages(records []model.PreprocessedRecord, k int) []string {
	if k <= 0 {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		if _, ok := counts[r.Language]; !ok {
			order = append(order, r.Language)
		}
		counts[r.Language]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if k < len(order) {
		order = order[:k]
	}
	return order
}

// RecommendByLanguage fetches up to p of the most starred candidates for each
// of the user's k dominant languages and concatenates them in language order.
func RecommendByLanguage(ctx context.Context, src LanguageSource, username string, records []model.PreprocessedRecord, k, p int) ([]model.RepoSummary, error) {
	if p <= 0 {
		return nil, nil
	}
	var out []model.RepoSummary
	for _, lang := range TopLanguages(records, k) {
		recs, err := src.CandidatesByLanguage(ctx, username, lang, p)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", lang, err)
		}
		if len(recs) > p {
			recs = recs[:p]
		}
		for _, r := range recs {
			out = append(out, model.SummarizeRecord(r))
		}
	}
	return out, nil
}
