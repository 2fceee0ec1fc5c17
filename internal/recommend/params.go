package recommend

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Params are the per-request tunables.
type Params struct {
	TopN             int    `json:"top_n" validate:"gt=0"`
	TopClusters      int    `json:"top_clusters" validate:"gte=0"`
	ReposPerCluster  int    `json:"repos_per_cluster" validate:"gte=0"`
	SimilarityMethod string `json:"similarity_method"`
}

// DefaultParams returns the CLI defaults.
func DefaultParams() Params {
	return Params{TopN: 10, TopClusters: 3, ReposPerCluster: 5, SimilarityMethod: string(Cosine)}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks p and returns the parsed similarity method. Any problem is
// reported as a *ConfigurationError.
func (p Params) Validate() (Method, error) {
	m, err := ParseMethod(p.SimilarityMethod)
	if err != nil {
		return "", err
	}
	if err := getValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return "", &ConfigurationError{Field: fe.Field(), Value: fe.Value(), Reason: reason(fe)}
		}
		return "", &ConfigurationError{Field: "params", Value: p, Reason: err.Error()}
	}
	return m, nil
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	}
	return "failed " + fe.Tag()
}
