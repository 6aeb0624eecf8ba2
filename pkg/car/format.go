package car

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Variable names inside the container.
const (
	VarHeader     = "CARHEADER"
	VarKeyFormat  = "KEYFORMAT"
	VarFacetKeys  = "FACETKEYS"
	VarRenditions = "RENDITIONS"
)

// Optional sidecar variable names. Any may be absent from an archive.
var SidecarNames = []string{
	"APPEARANCEKEYS",
	"COLORS",
	"FONTS",
	"FONTSIZES",
	"GLYPHS",
	"BEZELS",
	"BITMAPKEYS",
	"ELEMENT_INFO",
	"PART_INFO",
}

const (
	headerMagic    = "RATC"
	keyFormatMagic = "tmfk"

	// Emitted schema version. Readers accept major 1, minor <= 10.
	SchemaMajor = 1
	SchemaMinor = 10

	creatorSize   = 128
	headerSize    = 4 + 10*4 + creatorSize + 16
	keyFormatBase = 4 + 4 + 4
)

// AttributeID identifies one axis of the packed rendition key.
type AttributeID uint16

const (
	AttributeElement             AttributeID = 1
	AttributePart                AttributeID = 2
	AttributeSize                AttributeID = 3
	AttributeDirection           AttributeID = 4
	AttributeValue               AttributeID = 6
	AttributeDimension1          AttributeID = 8
	AttributeDimension2          AttributeID = 9
	AttributeState               AttributeID = 10
	AttributeLayer               AttributeID = 11
	AttributeScale               AttributeID = 12
	AttributeLocalization        AttributeID = 14
	AttributePresentationState   AttributeID = 15
	AttributeIdiom               AttributeID = 16
	AttributeSubtype             AttributeID = 17
	AttributeIdentifier          AttributeID = 18
	AttributePreviousValue       AttributeID = 19
	AttributePreviousState       AttributeID = 20
	AttributeSizeClassHorizontal AttributeID = 21
	AttributeSizeClassVertical   AttributeID = 22
	AttributeMemoryClass         AttributeID = 23
	AttributeGraphicsClass       AttributeID = 24
	AttributeDisplayGamut        AttributeID = 25
	AttributeDeploymentTarget    AttributeID = 26
	AttributeAppearance          AttributeID = 27
)

var attributeNames = map[AttributeID]string{
	AttributeElement:             "Element",
	AttributePart:                "Part",
	AttributeSize:                "Size",
	AttributeDirection:           "Direction",
	AttributeValue:               "Value",
	AttributeDimension1:          "Dimension 1",
	AttributeDimension2:          "Dimension 2",
	AttributeState:               "State",
	AttributeLayer:               "Layer",
	AttributeScale:               "Scale",
	AttributeLocalization:        "Localization",
	AttributePresentationState:   "Presentation State",
	AttributeIdiom:               "Idiom",
	AttributeSubtype:             "Subtype",
	AttributeIdentifier:          "Identifier",
	AttributePreviousValue:       "Previous Value",
	AttributePreviousState:       "Previous State",
	AttributeSizeClassHorizontal: "Horizontal Size Class",
	AttributeSizeClassVertical:   "Vertical Size Class",
	AttributeMemoryClass:         "Memory Class",
	AttributeGraphicsClass:       "Graphics Class",
	AttributeDisplayGamut:        "Display Gamut",
	AttributeDeploymentTarget:    "Deployment Target",
	AttributeAppearance:          "Appearance",
}

func (a AttributeID) String() string {
	if name, ok := attributeNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Attribute(%d)", uint16(a))
}

// DefaultKeyFormat is the attribute order a fresh archive is written with.
// The identifier axis must be present; everything else is layout policy.
var DefaultKeyFormat = []AttributeID{
	AttributeScale,
	AttributeIdiom,
	AttributeSubtype,
	AttributeGraphicsClass,
	AttributeMemoryClass,
	AttributeSizeClassHorizontal,
	AttributeSizeClassVertical,
	AttributeAppearance,
	AttributeDisplayGamut,
	AttributeElement,
	AttributePart,
	AttributeState,
	AttributeValue,
	AttributeDirection,
	AttributeLayer,
	AttributeDimension1,
	AttributeDimension2,
	AttributeIdentifier,
}

// Header is the decoded CARHEADER variable.
type Header struct {
	SchemaMajor        uint32
	SchemaMinor        uint32
	StorageVersion     uint32
	StorageTimestamp   uint32
	RenditionCount     uint32
	Flags              uint32
	KeySemantics       uint32
	RenditionSemantics uint32
	AssociatedChecksum uint32
	Creator            string
	UUID               [16]byte
}

// Pack serializes the header. The magic is stored big-endian; every
// numeric field after it is little-endian.
func (h *Header) Pack() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], headerMagic)
	binary.LittleEndian.PutUint32(buf[4:8], h.SchemaMajor)
	binary.LittleEndian.PutUint32(buf[8:12], h.SchemaMinor)
	binary.LittleEndian.PutUint32(buf[12:16], h.StorageVersion)
	binary.LittleEndian.PutUint32(buf[16:20], h.StorageTimestamp)
	binary.LittleEndian.PutUint32(buf[20:24], h.RenditionCount)
	binary.LittleEndian.PutUint32(buf[24:28], h.Flags)
	binary.LittleEndian.PutUint32(buf[28:32], h.KeySemantics)
	binary.LittleEndian.PutUint32(buf[32:36], h.RenditionSemantics)
	binary.LittleEndian.PutUint32(buf[36:40], h.AssociatedChecksum)
	creator := h.Creator
	if len(creator) > creatorSize-1 {
		creator = creator[:creatorSize-1]
	}
	copy(buf[44:44+creatorSize], creator)
	copy(buf[44+creatorSize:], h.UUID[:])
	return buf
}

// UnpackHeader parses and validates a CARHEADER value.
func UnpackHeader(data []byte) (*Header, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: short CARHEADER (%d bytes)", ErrCorrupt, len(data))
	}
	if string(data[0:4]) != headerMagic {
		return nil, fmt.Errorf("%w: bad CARHEADER magic %q", ErrCorrupt, data[0:4])
	}
	h := &Header{
		SchemaMajor:        binary.LittleEndian.Uint32(data[4:8]),
		SchemaMinor:        binary.LittleEndian.Uint32(data[8:12]),
		StorageVersion:     binary.LittleEndian.Uint32(data[12:16]),
		StorageTimestamp:   binary.LittleEndian.Uint32(data[16:20]),
		RenditionCount:     binary.LittleEndian.Uint32(data[20:24]),
		Flags:              binary.LittleEndian.Uint32(data[24:28]),
		KeySemantics:       binary.LittleEndian.Uint32(data[28:32]),
		RenditionSemantics: binary.LittleEndian.Uint32(data[32:36]),
		AssociatedChecksum: binary.LittleEndian.Uint32(data[36:40]),
	}
	creator := data[44 : 44+creatorSize]
	for i, b := range creator {
		if b == 0 {
			creator = creator[:i]
			break
		}
	}
	h.Creator = string(creator)
	copy(h.UUID[:], data[44+creatorSize:])
	if h.SchemaMajor != SchemaMajor {
		return nil, fmt.Errorf("%w: schema major %d", ErrUnsupported, h.SchemaMajor)
	}
	if h.SchemaMinor > SchemaMinor {
		return nil, fmt.Errorf("%w: schema minor %d beyond %d", ErrUnsupported, h.SchemaMinor, SchemaMinor)
	}
	return h, nil
}

// PackKeyFormat serializes the KEYFORMAT variable.
func PackKeyFormat(ids []AttributeID) []byte {
	buf := make([]byte, keyFormatBase+4*len(ids))
	copy(buf[0:4], keyFormatMagic)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(ids)))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[keyFormatBase+4*i:], uint32(id))
	}
	return buf
}

// UnpackKeyFormat parses a KEYFORMAT value.
func UnpackKeyFormat(data []byte) ([]AttributeID, error) {
	if len(data) < keyFormatBase {
		return nil, fmt.Errorf("%w: short KEYFORMAT", ErrCorrupt)
	}
	if string(data[0:4]) != keyFormatMagic {
		return nil, fmt.Errorf("%w: bad KEYFORMAT magic %q", ErrCorrupt, data[0:4])
	}
	count := binary.LittleEndian.Uint32(data[8:12])
	if len(data) < keyFormatBase+int(count)*4 {
		return nil, fmt.Errorf("%w: KEYFORMAT truncated", ErrCorrupt)
	}
	ids := make([]AttributeID, count)
	for i := range ids {
		ids[i] = AttributeID(binary.LittleEndian.Uint32(data[keyFormatBase+4*i:]))
	}
	return ids, nil
}

// AttributeList is a sparse attribute tuple. Unset axes pack as zero.
type AttributeList map[AttributeID]uint16

// Get returns the value of one axis and whether it is set.
func (l AttributeList) Get(id AttributeID) (uint16, bool) {
	v, ok := l[id]
	return v, ok
}

// Set assigns one axis.
func (l AttributeList) Set(id AttributeID, value uint16) {
	l[id] = value
}

// PackKey lays the list out per the key format: one little-endian 16-bit
// value per axis, zero for unset axes.
func (l AttributeList) PackKey(format []AttributeID) []byte {
	key := make([]byte, 2*len(format))
	for i, id := range format {
		binary.LittleEndian.PutUint16(key[2*i:], l[id])
	}
	return key
}

// UnpackKey decodes a packed key against the key format.
func UnpackKey(format []AttributeID, key []byte) (AttributeList, error) {
	if len(key) != 2*len(format) {
		return nil, fmt.Errorf("%w: key is %d bytes, format has %d attributes", ErrCorrupt, len(key), len(format))
	}
	list := make(AttributeList, len(format))
	for i, id := range format {
		if v := binary.LittleEndian.Uint16(key[2*i:]); v != 0 {
			list[id] = v
		}
	}
	return list, nil
}

// sortedIDs returns the list's axes in ascending identifier order.
func (l AttributeList) sortedIDs() []AttributeID {
	ids := make([]AttributeID, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
