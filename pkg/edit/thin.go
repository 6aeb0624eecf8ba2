// Package edit rewrites existing archives without re-encoding: thinning
// by facet name, scale, or idiom, and reporting archive contents.
package edit

import (
	"regexp"

	"github.com/hashicorp/go-hclog"

	"github.com/carton-io/carton/pkg/asset/slot"
	"github.com/carton-io/carton/pkg/car"
)

// ThinOptions selects what survives a thinning pass.
type ThinOptions struct {
	// RemoveAssets drops every facet whose name matches any pattern,
	// along with its renditions.
	RemoveAssets []*regexp.Regexp

	// RemoveScales drops renditions at the listed scales, but never
	// the last rendition of a facet.
	RemoveScales []uint16

	// KeepIdiom restricts renditions to one idiom. Universal
	// renditions always survive.
	KeepIdiom    slot.Idiom
	KeepIdiomSet bool

	// KeepScale restricts renditions to one scale when nonzero, under
	// the same last-rendition rule as RemoveScales.
	KeepScale uint16
}

// ThinResult counts what a thinning pass kept and dropped.
type ThinResult struct {
	FacetsKept        int
	FacetsRemoved     int
	RenditionsKept    int
	RenditionsRemoved int
}

// Thin streams input to output, copying surviving facets and rendition
// payloads raw. Facet identifiers and the key format carry over
// unchanged, so rendition keys stay valid without re-packing.
func Thin(inputPath, outputPath string, opts ThinOptions) (*ThinResult, error) {
	return ThinWithLogger(inputPath, outputPath, opts, hclog.NewNullLogger())
}

// ThinWithLogger runs Thin with a caller-supplied logger.
func ThinWithLogger(inputPath, outputPath string, opts ThinOptions, logger hclog.Logger) (*ThinResult, error) {
	reader, err := car.OpenReadWithLogger(inputPath, logger)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := &ThinResult{}
	keptFacets := make(map[uint16]*car.Facet)
	err = reader.FacetIterate(func(f *car.Facet) error {
		if matchesAny(opts.RemoveAssets, f.Name) {
			result.FacetsRemoved++
			return nil
		}
		if id, ok := f.Identifier(); ok {
			keptFacets[id] = f
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	type entry struct {
		attrs car.AttributeList
		value []byte
	}
	byFacet := make(map[uint16][]entry)
	var facetOrder []uint16
	err = reader.RenditionFastIterate(func(attrs car.AttributeList, value []byte) error {
		id, _ := attrs.Get(car.AttributeIdentifier)
		if _, ok := keptFacets[id]; !ok {
			result.RenditionsRemoved++
			return nil
		}
		if opts.KeepIdiomSet {
			idiom, _ := attrs.Get(car.AttributeIdiom)
			if idiom != 0 && idiom != opts.KeepIdiom.Code() {
				result.RenditionsRemoved++
				return nil
			}
		}
		if _, ok := byFacet[id]; !ok {
			facetOrder = append(facetOrder, id)
		}
		byFacet[id] = append(byFacet[id], entry{attrs: attrs, value: value})
		return nil
	})
	if err != nil {
		return nil, err
	}

	writer := car.NewWriterWithLogger(outputPath, logger)
	writer.SetCreator(reader.Header().Creator)
	if err := writer.SetKeyFormat(reader.KeyFormat()); err != nil {
		return nil, err
	}

	for _, id := range facetOrder {
		entries := byFacet[id]
		survivors := entries
		if len(opts.RemoveScales) > 0 || opts.KeepScale != 0 {
			var kept []entry
			for _, e := range entries {
				scale, _ := e.attrs.Get(car.AttributeScale)
				if scaleDropped(scale, &opts) {
					continue
				}
				kept = append(kept, e)
			}
			// Scale filters never empty a facet.
			if len(kept) == 0 {
				kept = entries
			}
			result.RenditionsRemoved += len(entries) - len(kept)
			survivors = kept
		}
		if _, err := writer.AddFacet(keptFacets[id]); err != nil {
			return nil, err
		}
		result.FacetsKept++
		for _, e := range survivors {
			if err := writer.AddRenditionRaw(e.attrs, e.value); err != nil {
				return nil, err
			}
			result.RenditionsKept++
		}
	}

	for _, name := range car.SidecarNames {
		data, err := reader.Sidecar(name)
		if err != nil {
			continue
		}
		writer.SetSidecar(name, data)
	}

	if err := writer.Commit(); err != nil {
		return nil, err
	}
	logger.Info("thinned archive",
		"input", inputPath,
		"output", outputPath,
		"facets_kept", result.FacetsKept,
		"renditions_kept", result.RenditionsKept)
	return result, nil
}

func matchesAny(patterns []*regexp.Regexp, name string) bool {
	for _, p := range patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

func scaleDropped(scale uint16, opts *ThinOptions) bool {
	for _, s := range opts.RemoveScales {
		if scale == s {
			return true
		}
	}
	if opts.KeepScale != 0 && scale != 0 && scale != opts.KeepScale {
		return true
	}
	return false
}
