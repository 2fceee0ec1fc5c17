package model

import "time"

// RepositoryRecord is one stored (owner, repository) row. Optional text
// columns are nil when the store holds NULL.
type RepositoryRecord struct {
	OwnerUsername string    `json:"owner_username"`
	FullName      string    `json:"full_name"`
	Description   *string   `json:"description"`
	Language      *string   `json:"language"`
	Topics        *string   `json:"topics"`
	Stars         int       `json:"stars"`
	CreatedAt     time.Time `json:"created_at"`
}

// PreprocessedRecord is a RepositoryRecord with optional fields defaulted and
// derived text/age features attached. It only lives for one request.
type PreprocessedRecord struct {
	OwnerUsername string
	FullName      string
	Description   string
	Language      string
	Topics        string
	Stars         int
	CreatedAt     time.Time

	CombinedText string
	RepoAgeDays  int
}

// RepoSummary is what callers get back for a recommended repository.
type RepoSummary struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Stars       int    `json:"stars"`
	URL         string `json:"url"`
}

// ScoredRepo is a RepoSummary ranked by similarity.
type ScoredRepo struct {
	RepoSummary
	Score float64 `json:"score"`
}

const githubBaseURL = "https://github.com/"

// RepoURL returns the browsable URL for a full name such as "owner/name".
func RepoURL(fullName string) string {
	if fullName == "" {
		return ""
	}
	return githubBaseURL + fullName
}

// Summarize converts a preprocessed record into the caller-facing summary.
func Summarize(r PreprocessedRecord) RepoSummary {
	return RepoSummary{
		FullName:    r.FullName,
		Description: r.Description,
		Language:    r.Language,
		Stars:       r.Stars,
		URL:         RepoURL(r.FullName),
	}
}

// SummarizeRecord converts a stored record into the caller-facing summary,
// defaulting missing text fields to "".
func SummarizeRecord(r RepositoryRecord) RepoSummary {
	return RepoSummary{
		FullName:    r.FullName,
		Description: Deref(r.Description),
		Language:    Deref(r.Language),
		Stars:       r.Stars,
		URL:         RepoURL(r.FullName),
	}
}

// Deref returns *s or "" when s is nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
