package edit

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/carton-io/carton/pkg/asset/slot"
	"github.com/carton-io/carton/pkg/car"
)

// InfoOptions filters which entries an archive report includes.
type InfoOptions struct {
	Idiom    slot.Idiom
	IdiomSet bool
	Scale    uint16
}

// InfoEntry is one row of the archive report: either a facet summary or
// one of its renditions.
type InfoEntry struct {
	AssetType     string `json:"AssetType,omitempty"`
	Name          string `json:"Name,omitempty"`
	RenditionName string `json:"RenditionName,omitempty"`
	Idiom         string `json:"Idiom,omitempty"`
	Scale         uint16 `json:"Scale,omitempty"`
	PixelWidth    uint32 `json:"PixelWidth,omitempty"`
	PixelHeight   uint32 `json:"PixelHeight,omitempty"`
}

// Info reads an archive and reports its facets and renditions, one
// facet entry followed by that facet's rendition entries.
func Info(inputPath string, opts InfoOptions) ([]InfoEntry, error) {
	return InfoWithLogger(inputPath, opts, hclog.NewNullLogger())
}

// InfoWithLogger runs Info with a caller-supplied logger.
func InfoWithLogger(inputPath string, opts InfoOptions, logger hclog.Logger) ([]InfoEntry, error) {
	reader, err := car.OpenReadWithLogger(inputPath, logger)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	byFacet := make(map[uint16][]InfoEntry)
	err = reader.RenditionFastIterate(func(attrs car.AttributeList, value []byte) error {
		idiomCode, _ := attrs.Get(car.AttributeIdiom)
		scale, _ := attrs.Get(car.AttributeScale)
		if opts.IdiomSet && idiomCode != 0 && idiomCode != opts.Idiom.Code() {
			return nil
		}
		if opts.Scale != 0 && scale != 0 && scale != opts.Scale {
			return nil
		}
		rend, err := car.InspectRendition(value)
		if err != nil {
			return err
		}
		idiom, ok := slot.IdiomFromCode(idiomCode)
		if !ok {
			return fmt.Errorf("%w: unknown idiom code %d", car.ErrCorrupt, idiomCode)
		}
		id, _ := attrs.Get(car.AttributeIdentifier)
		byFacet[id] = append(byFacet[id], InfoEntry{
			AssetType:     assetType(rend.Name),
			RenditionName: rend.Name,
			Idiom:         idiom.String(),
			Scale:         scale,
			PixelWidth:    rend.Width,
			PixelHeight:   rend.Height,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var entries []InfoEntry
	err = reader.FacetIterate(func(f *car.Facet) error {
		id, ok := f.Identifier()
		if !ok {
			return nil
		}
		rows := byFacet[id]
		if len(rows) == 0 {
			return nil
		}
		entries = append(entries, InfoEntry{Name: f.Name})
		entries = append(entries, rows...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// assetType labels a rendition for the report: icon files keep their
// conventional prefix.
func assetType(renditionName string) string {
	if strings.HasPrefix(renditionName, "Icon-") {
		return "Icon Image"
	}
	return "Image"
}
