// Package features turns repository records into numeric feature vectors:
// defaulted text and age fields, TF-IDF text columns and min-max scaled
// star/age columns.
package features

import (
	"time"

	"repomatch/internal/model"
)

const day = 24 * time.Hour

// Preprocess defaults missing description, language and topics to "" and
// derives CombinedText and RepoAgeDays for every record. ref is the single
// reference time all ages are measured against. Output order matches input.
func Preprocess(records []model.RepositoryRecord, ref time.Time) []model.PreprocessedRecord {
	out := make([]model.PreprocessedRecord, len(records))
	for i, r := range records {
		desc := model.Deref(r.Description)
		lang := model.Deref(r.Language)
		topics := model.Deref(r.Topics)
		out[i] = model.PreprocessedRecord{
			OwnerUsername: r.OwnerUsername,
			FullName:      r.FullName,
			Description:   desc,
			Language:      lang,
			Topics:        topics,
			Stars:         r.Stars,
			CreatedAt:     r.CreatedAt,
			CombinedText:  r.FullName + " " + desc + " " + lang + " " + topics,
			RepoAgeDays:   ageDays(r.CreatedAt, ref),
		}
	}
	return out
}

// ageDays counts whole days between created and ref. Creation times at or
// after ref count as age 0.
func ageDays(created, ref time.Time) int {
	if created.IsZero() || !created.Before(ref) {
		return 0
	}
	return int(ref.Sub(created) / day)
}
