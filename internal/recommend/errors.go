package recommend

import (
	"errors"
	"fmt"
)

// ErrEmptyUsername is returned when a request names no user.
var ErrEmptyUsername = errors.New("recommend: empty username")

// ConfigurationError reports an invalid tunable. It is never retried.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "similarity_method" {
		return fmt.Sprintf("unsupported similarity method %q", fmt.Sprint(e.Value))
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// FeatureSpaceMismatchError is returned when user and candidate matrices
// were not produced by the same fitted feature space.
type FeatureSpaceMismatchError struct {
	UserColumns      int
	CandidateColumns int
}

func (e *FeatureSpaceMismatchError) Error() string {
	return fmt.Sprintf("feature space mismatch: user matrix has %d columns, candidate matrix has %d",
		e.UserColumns, e.CandidateColumns)
}
