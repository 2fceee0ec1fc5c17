package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"repomatch/internal/util"
)

// Vectorizer maps documents to L2-normalized TF-IDF vectors over a capped
// vocabulary. Fit it once on every document that will later be compared,
// then Transform each group with the same fitted instance.
type Vectorizer struct {
	maxFeatures int

	terms []string       // column order, alphabetical
	vocab map[string]int // term -> column
	idf   []float64
}

// NewVectorizer returns an unfitted vectorizer keeping at most maxFeatures
// terms. maxFeatures <= 0 keeps every term.
func NewVectorizer(maxFeatures int) *Vectorizer {
	return &Vectorizer{maxFeatures: maxFeatures}
}

// Fit learns the vocabulary and inverse document frequencies from docs.
// The vocabulary keeps the terms with the highest total count across docs,
// ties broken alphabetically.
func (v *Vectorizer) Fit(docs []string) *Vectorizer {
	termCount := make(map[string]int)
	docFreq := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]struct{})
		for _, tok := range util.TokenizeWithoutStopWords(d) {
			termCount[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docFreq[tok]++
			}
		}
	}

	terms := make([]string, 0, len(termCount))
	for t := range termCount {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		ci, cj := termCount[terms[i]], termCount[terms[j]]
		if ci != cj {
			return ci > cj
		}
		return terms[i] < terms[j]
	})
	if v.maxFeatures > 0 && len(terms) > v.maxFeatures {
		terms = terms[:v.maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.terms = terms
	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, t := range terms {
		v.vocab[t] = i
		// smoothed idf: ln((1+n)/(1+df)) + 1
		v.idf[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}
	return v
}

// Transform vectorizes docs with the fitted vocabulary. Terms outside the
// vocabulary are ignored; a document with no known terms becomes a zero row.
func (v *Vectorizer) Transform(docs []string) [][]float64 {
	rows := make([][]float64, len(docs))
	for i, d := range docs {
		row := make([]float64, len(v.terms))
		for _, tok := range util.TokenizeWithoutStopWords(d) {
			if j, ok := v.vocab[tok]; ok {
				row[j]++
			}
		}
		floats.Mul(row, v.idf)
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
		rows[i] = row
	}
	return rows
}

// Len is the fitted vocabulary size.
func (v *Vectorizer) Len() int { return len(v.terms) }

// Vocabulary returns the fitted terms in column order.
func (v *Vectorizer) Vocabulary() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}
