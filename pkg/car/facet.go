package car

import (
	"encoding/binary"
	"fmt"
)

// Facet is one named asset entry in the FACETKEYS tree. Its attribute
// list carries at minimum the identifier axis, which links the facet to
// the renditions sharing that identifier value.
type Facet struct {
	Name       string
	HotSpotX   uint16
	HotSpotY   uint16
	Attributes AttributeList
}

// Identifier returns the facet's identifier attribute value.
func (f *Facet) Identifier() (uint16, bool) {
	return f.Attributes.Get(AttributeIdentifier)
}

// Pack serializes the facet value: hot spot, attribute count, then the
// (identifier, value) pairs sorted by identifier.
func (f *Facet) Pack() []byte {
	ids := f.Attributes.sortedIDs()
	buf := make([]byte, 6+4*len(ids))
	binary.LittleEndian.PutUint16(buf[0:2], f.HotSpotX)
	binary.LittleEndian.PutUint16(buf[2:4], f.HotSpotY)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(ids)))
	for i, id := range ids {
		binary.LittleEndian.PutUint16(buf[6+4*i:], uint16(id))
		binary.LittleEndian.PutUint16(buf[8+4*i:], f.Attributes[id])
	}
	return buf
}

// UnpackFacet parses a facet value for the named key.
func UnpackFacet(name string, data []byte) (*Facet, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("%w: short facet value for %q", ErrCorrupt, name)
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if len(data) < 6+4*count {
		return nil, fmt.Errorf("%w: facet %q declares %d attributes in %d bytes", ErrCorrupt, name, count, len(data))
	}
	f := &Facet{
		Name:       name,
		HotSpotX:   binary.LittleEndian.Uint16(data[0:2]),
		HotSpotY:   binary.LittleEndian.Uint16(data[2:4]),
		Attributes: make(AttributeList, count),
	}
	for i := 0; i < count; i++ {
		id := AttributeID(binary.LittleEndian.Uint16(data[6+4*i:]))
		f.Attributes[id] = binary.LittleEndian.Uint16(data[8+4*i:])
	}
	return f, nil
}
