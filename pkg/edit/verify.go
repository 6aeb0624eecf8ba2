package edit

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/carton-io/carton/pkg/car"
	"github.com/carton-io/carton/pkg/car/compression"
)

// VerifyResult lists what an integrity pass inspected and every
// structural defect it found.
type VerifyResult struct {
	Facets     int
	Renditions int
	Findings   []string
}

// OK reports whether the archive passed with no findings.
func (r *VerifyResult) OK() bool { return len(r.Findings) == 0 }

// Verify checks an archive's structural integrity: header and key
// format, every facet and rendition record, pixel decoding, and the
// facet-rendition linkage in both directions. Renditions stored with an
// unregistered algorithm pass on their headers alone.
func Verify(inputPath string) (*VerifyResult, error) {
	return VerifyWithLogger(inputPath, hclog.NewNullLogger())
}

// VerifyWithLogger runs Verify with a caller-supplied logger.
func VerifyWithLogger(inputPath string, logger hclog.Logger) (*VerifyResult, error) {
	reader, err := car.OpenReadWithLogger(inputPath, logger)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := &VerifyResult{}
	flag := func(format string, args ...interface{}) {
		finding := fmt.Sprintf(format, args...)
		result.Findings = append(result.Findings, finding)
		logger.Error("verification finding", "detail", finding)
	}

	facetNames := make(map[uint16]string)
	err = reader.FacetIterate(func(f *car.Facet) error {
		result.Facets++
		id, ok := f.Identifier()
		if !ok {
			flag("facet %q carries no identifier", f.Name)
			return nil
		}
		if other, dup := facetNames[id]; dup {
			flag("facets %q and %q share identifier %d", other, f.Name, id)
			return nil
		}
		facetNames[id] = f.Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	linked := make(map[uint16]int)
	err = reader.RenditionFastIterate(func(attrs car.AttributeList, value []byte) error {
		result.Renditions++
		id, ok := attrs.Get(car.AttributeIdentifier)
		if !ok || facetNames[id] == "" {
			flag("rendition with identifier %d links to no facet", id)
		} else {
			linked[id]++
		}
		rend, err := car.InspectRendition(value)
		if err != nil {
			flag("rendition record unreadable: %v", err)
			return nil
		}
		if _, err := car.UnpackRendition(value); err != nil && !unsupportedAlgorithm(err) {
			flag("rendition %q does not decode: %v", rend.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for id, name := range facetNames {
		if linked[id] == 0 {
			flag("facet %q owns no renditions", name)
		}
	}
	if declared := reader.Header().RenditionCount; int(declared) != result.Renditions {
		flag("header declares %d renditions, archive holds %d", declared, result.Renditions)
	}

	if result.OK() {
		logger.Info("archive verification passed",
			"facets", result.Facets, "renditions", result.Renditions)
	} else {
		logger.Error("archive verification failed", "findings", len(result.Findings))
	}
	return result, nil
}

func unsupportedAlgorithm(err error) bool {
	return errors.Is(err, car.ErrUnsupported) || errors.Is(err, compression.ErrUnsupported)
}
