package compile

import (
	"fmt"

	"github.com/carton-io/carton/pkg/asset"
)

// Result aggregates what one compile run produced: counts, the output
// location, and every per-asset problem encountered along the way.
type Result struct {
	OutputPath     string
	FolderForm     bool
	FacetCount     int
	RenditionCount int
	Problems       []asset.Problem

	// Inputs and Outputs feed the dependency-info writer.
	Inputs  []string
	Outputs []string
}

func (r *Result) warnf(name, format string, args ...interface{}) {
	r.Problems = append(r.Problems, asset.Problem{
		Severity: asset.SeverityWarning,
		Asset:    name,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *Result) errorf(name, format string, args ...interface{}) {
	r.Problems = append(r.Problems, asset.Problem{
		Severity: asset.SeverityError,
		Asset:    name,
		Message:  fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any problem is error severity.
func (r *Result) HasErrors() bool {
	for _, p := range r.Problems {
		if p.Severity == asset.SeverityError {
			return true
		}
	}
	return false
}
