package car

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/carton-io/carton/pkg/bom"
)

// firstAssignedIdentifier is where automatic facet identifier
// assignment starts; lower values are reserved for explicit ids.
const firstAssignedIdentifier = 128

// reservedSlots is the fixed container overhead: header, key format,
// and each of the two trees' root and first leaf.
const reservedSlots = 6

// Writer accumulates facets and renditions in memory and lays the
// archive out in one Commit.
type Writer struct {
	path      string
	creator   string
	uuid      [16]byte
	timestamp uint32
	keyFormat []AttributeID

	facets     map[string]*Facet
	renditions map[string][]byte
	sidecars   map[string][]byte

	usedIDs map[uint16]bool
	nextID  uint16

	logger hclog.Logger
}

// NewWriter prepares an archive writer targeting path. Nothing touches
// disk until Commit.
func NewWriter(path string) *Writer {
	return NewWriterWithLogger(path, hclog.NewNullLogger())
}

// NewWriterWithLogger prepares an archive writer with a caller-supplied
// logger.
func NewWriterWithLogger(path string, logger hclog.Logger) *Writer {
	id := uuid.New()
	w := &Writer{
		path:       path,
		creator:    "carton assetcompiler",
		timestamp:  uint32(time.Now().Unix()),
		keyFormat:  DefaultKeyFormat,
		facets:     make(map[string]*Facet),
		renditions: make(map[string][]byte),
		sidecars:   make(map[string][]byte),
		usedIDs:    make(map[uint16]bool),
		nextID:     firstAssignedIdentifier,
		logger:     logger,
	}
	copy(w.uuid[:], id[:])
	return w
}

// SetCreator overrides the creator string stamped into the header.
func (w *Writer) SetCreator(creator string) { w.creator = creator }

// SetUUID overrides the generated archive UUID.
func (w *Writer) SetUUID(id [16]byte) { w.uuid = id }

// SetTimestamp overrides the storage timestamp, for reproducible
// output.
func (w *Writer) SetTimestamp(ts uint32) { w.timestamp = ts }

// SetKeyFormat replaces the attribute order. The identifier axis must
// be present, and the format cannot change once renditions exist.
func (w *Writer) SetKeyFormat(ids []AttributeID) error {
	if len(w.renditions) > 0 {
		return fmt.Errorf("%w: key format change after renditions were added", ErrInvalid)
	}
	hasIdentifier := false
	seen := make(map[AttributeID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: key format repeats %v", ErrInvalid, id)
		}
		seen[id] = true
		if id == AttributeIdentifier {
			hasIdentifier = true
		}
	}
	if !hasIdentifier {
		return fmt.Errorf("%w: key format lacks the identifier axis", ErrInvalid)
	}
	w.keyFormat = ids
	return nil
}

// KeyFormat returns the attribute order renditions will be keyed with.
func (w *Writer) KeyFormat() []AttributeID { return w.keyFormat }

// AddFacet registers a named facet and returns its identifier. An
// identifier already present in the facet's attributes is respected;
// otherwise the next free value from 128 up is assigned and written
// into the attribute list.
func (w *Writer) AddFacet(f *Facet) (uint16, error) {
	if f.Name == "" {
		return 0, fmt.Errorf("%w: facet with empty name", ErrInvalid)
	}
	if _, ok := w.facets[f.Name]; ok {
		return 0, fmt.Errorf("%w: facet %q", ErrConflict, f.Name)
	}
	if f.Attributes == nil {
		f.Attributes = make(AttributeList)
	}
	id, explicit := f.Attributes.Get(AttributeIdentifier)
	if explicit {
		if w.usedIDs[id] {
			return 0, fmt.Errorf("%w: facet identifier %d", ErrConflict, id)
		}
	} else {
		for w.usedIDs[w.nextID] {
			w.nextID++
		}
		id = w.nextID
		f.Attributes.Set(AttributeIdentifier, id)
	}
	w.usedIDs[id] = true
	w.facets[f.Name] = f
	w.logger.Debug("added facet", "name", f.Name, "identifier", id)
	return id, nil
}

// AddRendition encodes the rendition under the standard policy and
// files it under its packed attribute key.
func (w *Writer) AddRendition(attrs AttributeList, rend *Rendition, compressPixels bool) error {
	value, err := rend.PackBest(compressPixels)
	if err != nil {
		return err
	}
	return w.AddRenditionRaw(attrs, value)
}

// AddRenditionRaw files an already-encoded rendition payload under its
// packed attribute key. Two renditions with the same key conflict.
func (w *Writer) AddRenditionRaw(attrs AttributeList, value []byte) error {
	key := string(attrs.PackKey(w.keyFormat))
	if _, ok := w.renditions[key]; ok {
		return fmt.Errorf("%w: rendition key %v", ErrConflict, attrs)
	}
	w.renditions[key] = value
	return nil
}

// SetSidecar attaches an optional auxiliary variable to the archive.
func (w *Writer) SetSidecar(name string, data []byte) {
	w.sidecars[name] = data
}

// FacetCount returns the number of facets added so far.
func (w *Writer) FacetCount() int { return len(w.facets) }

// RenditionCount returns the number of renditions added so far.
func (w *Writer) RenditionCount() int { return len(w.renditions) }

// Commit lays out the container and writes it to disk.
func (w *Writer) Commit() error {
	reserved := uint32(reservedSlots + 2*len(w.facets) + 2*len(w.renditions))
	bw, err := bom.OpenWriteWithLogger(w.path, reserved, w.logger)
	if err != nil {
		return err
	}

	header := &Header{
		SchemaMajor:      SchemaMajor,
		SchemaMinor:      SchemaMinor,
		StorageVersion:   SchemaMinor,
		StorageTimestamp: w.timestamp,
		RenditionCount:   uint32(len(w.renditions)),
		Creator:          w.creator,
		UUID:             w.uuid,
	}
	headerSlot, err := bw.AddBlob(header.Pack())
	if err != nil {
		return err
	}
	if err := bw.SetVariable(VarHeader, headerSlot); err != nil {
		return err
	}

	formatSlot, err := bw.AddBlob(PackKeyFormat(w.keyFormat))
	if err != nil {
		return err
	}
	if err := bw.SetVariable(VarKeyFormat, formatSlot); err != nil {
		return err
	}

	facetTree, err := bw.AddTree(VarFacetKeys)
	if err != nil {
		return err
	}
	for name, f := range w.facets {
		if err := facetTree.Insert([]byte(name), f.Pack()); err != nil {
			return err
		}
	}
	if err := facetTree.Finalize(); err != nil {
		return err
	}

	renditionTree, err := bw.AddTree(VarRenditions)
	if err != nil {
		return err
	}
	for key, value := range w.renditions {
		if err := renditionTree.Insert([]byte(key), value); err != nil {
			return err
		}
	}
	if err := renditionTree.Finalize(); err != nil {
		return err
	}

	for name, data := range w.sidecars {
		slot, err := bw.AddBlob(data)
		if err != nil {
			return err
		}
		if err := bw.SetVariable(name, slot); err != nil {
			return err
		}
	}

	w.logger.Info("committing archive",
		"path", w.path,
		"facets", len(w.facets),
		"renditions", len(w.renditions))
	return bw.Commit()
}
