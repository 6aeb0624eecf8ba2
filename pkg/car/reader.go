package car

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/carton-io/carton/pkg/bom"
	"github.com/carton-io/carton/pkg/car/compression"
)

// Reader gives structured access to a compiled archive. It validates
// the CARHEADER and KEYFORMAT on open; facet and rendition trees are
// walked lazily.
type Reader struct {
	bom    *bom.Reader
	header *Header
	format []AttributeID
	logger hclog.Logger
}

// OpenRead maps an archive from disk.
func OpenRead(path string) (*Reader, error) {
	return OpenReadWithLogger(path, hclog.NewNullLogger())
}

// OpenReadWithLogger maps an archive from disk with a caller-supplied
// logger.
func OpenReadWithLogger(path string, logger hclog.Logger) (*Reader, error) {
	br, err := bom.OpenReadWithLogger(path, logger)
	if err != nil {
		return nil, err
	}
	r, err := newReader(br, logger)
	if err != nil {
		br.Close()
		return nil, err
	}
	return r, nil
}

// Load parses an archive from memory.
func Load(data []byte) (*Reader, error) {
	br, err := bom.Load(data)
	if err != nil {
		return nil, err
	}
	return newReader(br, hclog.NewNullLogger())
}

func newReader(br *bom.Reader, logger hclog.Logger) (*Reader, error) {
	headerSlot, err := br.Variable(VarHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrCorrupt, VarHeader)
	}
	headerData, err := br.Blob(headerSlot)
	if err != nil {
		return nil, err
	}
	header, err := UnpackHeader(headerData)
	if err != nil {
		return nil, err
	}
	formatSlot, err := br.Variable(VarKeyFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrCorrupt, VarKeyFormat)
	}
	formatData, err := br.Blob(formatSlot)
	if err != nil {
		return nil, err
	}
	format, err := UnpackKeyFormat(formatData)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened archive",
		"schema", fmt.Sprintf("%d.%d", header.SchemaMajor, header.SchemaMinor),
		"renditions", header.RenditionCount,
		"key_axes", len(format))
	return &Reader{bom: br, header: header, format: format, logger: logger}, nil
}

// Close releases the underlying container.
func (r *Reader) Close() error { return r.bom.Close() }

// Header returns the decoded CARHEADER.
func (r *Reader) Header() *Header { return r.header }

// KeyFormat returns the archive's attribute order.
func (r *Reader) KeyFormat() []AttributeID { return r.format }

// BOM exposes the underlying container for raw operations.
func (r *Reader) BOM() *bom.Reader { return r.bom }

// FacetCount returns the number of named facets.
func (r *Reader) FacetCount() (int, error) {
	slot, err := r.bom.Variable(VarFacetKeys)
	if err != nil {
		return 0, fmt.Errorf("%w: missing %s", ErrCorrupt, VarFacetKeys)
	}
	return r.bom.TreeCount(slot)
}

// RenditionCount returns the number of rendition entries.
func (r *Reader) RenditionCount() (int, error) {
	slot, err := r.bom.Variable(VarRenditions)
	if err != nil {
		return 0, fmt.Errorf("%w: missing %s", ErrCorrupt, VarRenditions)
	}
	return r.bom.TreeCount(slot)
}

// FacetIterate walks the facet tree in name order.
func (r *Reader) FacetIterate(fn func(f *Facet) error) error {
	slot, err := r.bom.Variable(VarFacetKeys)
	if err != nil {
		return fmt.Errorf("%w: missing %s", ErrCorrupt, VarFacetKeys)
	}
	return r.bom.TreeIter(slot, func(key, value []byte) error {
		f, err := UnpackFacet(string(key), value)
		if err != nil {
			return err
		}
		return fn(f)
	})
}

// Facet looks up one facet by name.
func (r *Reader) Facet(name string) (*Facet, error) {
	var found *Facet
	err := r.FacetIterate(func(f *Facet) error {
		if f.Name == name {
			found = f
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: facet %q", ErrNotFound, name)
	}
	return found, nil
}

var errStopIteration = errors.New("stop iteration")

// RenditionIterate walks the rendition tree in key order, decoding each
// payload. Entries whose pixel algorithm has no registered codec are
// reported header-only, with Data nil.
func (r *Reader) RenditionIterate(fn func(attrs AttributeList, rend *Rendition) error) error {
	return r.renditionWalk(func(attrs AttributeList, value []byte) error {
		rend, err := UnpackRendition(value)
		if err != nil {
			if !isUnsupported(err) {
				return err
			}
			rend, err = InspectRendition(value)
			if err != nil {
				return err
			}
		}
		return fn(attrs, rend)
	})
}

// RenditionFastIterate walks the rendition tree without decoding
// payloads; values are handed out raw for copy-through workloads.
func (r *Reader) RenditionFastIterate(fn func(attrs AttributeList, value []byte) error) error {
	return r.renditionWalk(fn)
}

func (r *Reader) renditionWalk(fn func(attrs AttributeList, value []byte) error) error {
	slot, err := r.bom.Variable(VarRenditions)
	if err != nil {
		return fmt.Errorf("%w: missing %s", ErrCorrupt, VarRenditions)
	}
	return r.bom.TreeFastIter(slot, func(key, value []byte) error {
		attrs, err := UnpackKey(r.format, key)
		if err != nil {
			return err
		}
		return fn(attrs, value)
	})
}

// LookupRenditions returns the decoded renditions whose identifier axis
// matches id, in key order.
func (r *Reader) LookupRenditions(id uint16) ([]*Rendition, error) {
	var out []*Rendition
	err := r.RenditionIterate(func(attrs AttributeList, rend *Rendition) error {
		if v, _ := attrs.Get(AttributeIdentifier); v == id {
			out = append(out, rend)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Sidecar returns the raw value of an optional sidecar variable, or
// ErrNotFound when the archive does not carry it.
func (r *Reader) Sidecar(name string) ([]byte, error) {
	slot, err := r.bom.Variable(name)
	if err != nil {
		return nil, fmt.Errorf("%w: sidecar %q", ErrNotFound, name)
	}
	return r.bom.Blob(slot)
}

func isUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported) || errors.Is(err, compression.ErrUnsupported)
}
