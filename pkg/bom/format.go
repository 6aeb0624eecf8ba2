package bom

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Core format constants. These never change; a container that disagrees
// with any of them is rejected at open time.
const (
	// Magic at offset 0 of every container file.
	Magic = "BOMStore"

	// Format version - immutable.
	Version = 1

	// HeaderSize is the fixed on-disk header region. The payload begins
	// immediately after it.
	HeaderSize = 512

	// TreeMagic opens every tree root blob.
	TreeMagic = "tree"

	// TreeVersion is the tree blob format version.
	TreeVersion = 1

	// DefaultLeafCapacity is the fanout used for freshly written trees.
	// Readers tolerate any fanout >= 1.
	DefaultLeafCapacity = 4096

	headerFieldsSize = len(Magic) + 6*4
	treeRootSize     = len(TreeMagic) + 4*4
	treeLeafFixed    = 2 + 2 + 4 + 4
	indexEntrySize   = 8
)

var (
	ErrCorrupt     = errors.New("container is corrupt")
	ErrNotFound    = errors.New("not found")
	ErrDuplicate   = errors.New("duplicate tree key")
	ErrInvalidSlot = errors.New("invalid index slot")
)

// header is the fixed container header.
type header struct {
	TotalSize uint32
	IndexOff  uint32
	IndexLen  uint32
	VarsOff   uint32
	VarsLen   uint32
}

// pack serializes the header into a HeaderSize region. Bytes past the
// fixed fields stay zero.
func (h *header) pack() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], Magic)
	binary.BigEndian.PutUint32(buf[8:12], Version)
	binary.BigEndian.PutUint32(buf[12:16], h.TotalSize)
	binary.BigEndian.PutUint32(buf[16:20], h.IndexOff)
	binary.BigEndian.PutUint32(buf[20:24], h.IndexLen)
	binary.BigEndian.PutUint32(buf[24:28], h.VarsOff)
	binary.BigEndian.PutUint32(buf[28:32], h.VarsLen)
	return buf
}

// unpackHeader parses and validates the fixed header.
func unpackHeader(data []byte) (*header, error) {
	if len(data) < headerFieldsSize {
		return nil, fmt.Errorf("%w: short header (%d bytes)", ErrCorrupt, len(data))
	}
	if string(data[0:8]) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[0:8])
	}
	if v := binary.BigEndian.Uint32(data[8:12]); v != Version {
		return nil, fmt.Errorf("%w: unsupported container version %d", ErrCorrupt, v)
	}
	return &header{
		TotalSize: binary.BigEndian.Uint32(data[12:16]),
		IndexOff:  binary.BigEndian.Uint32(data[16:20]),
		IndexLen:  binary.BigEndian.Uint32(data[20:24]),
		VarsOff:   binary.BigEndian.Uint32(data[24:28]),
		VarsLen:   binary.BigEndian.Uint32(data[28:32]),
	}, nil
}

// indexEntry addresses one blob inside the payload region. The zero entry
// marks a free or null slot.
type indexEntry struct {
	Offset uint32
	Length uint32
}

// packIndex serializes the index block: live slot table followed by the
// free-block list.
func packIndex(entries []indexEntry, reserved uint32, free []indexEntry) []byte {
	size := 8 + len(entries)*indexEntrySize + 4 + len(free)*indexEntrySize
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(entries)))
	binary.BigEndian.PutUint32(buf[4:8], reserved)
	off := 8
	for _, e := range entries {
		binary.BigEndian.PutUint32(buf[off:off+4], e.Offset)
		binary.BigEndian.PutUint32(buf[off+4:off+8], e.Length)
		off += indexEntrySize
	}
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(free)))
	off += 4
	for _, e := range free {
		binary.BigEndian.PutUint32(buf[off:off+4], e.Offset)
		binary.BigEndian.PutUint32(buf[off+4:off+8], e.Length)
		off += indexEntrySize
	}
	return buf
}

// unpackIndex parses the index block back into slot table, reservation
// count, and free list.
func unpackIndex(data []byte) ([]indexEntry, uint32, []indexEntry, error) {
	if len(data) < 8 {
		return nil, 0, nil, fmt.Errorf("%w: short index block", ErrCorrupt)
	}
	count := binary.BigEndian.Uint32(data[0:4])
	reserved := binary.BigEndian.Uint32(data[4:8])
	off := 8
	if len(data) < off+int(count)*indexEntrySize+4 {
		return nil, 0, nil, fmt.Errorf("%w: index block truncated", ErrCorrupt)
	}
	entries := make([]indexEntry, count)
	for i := range entries {
		entries[i].Offset = binary.BigEndian.Uint32(data[off : off+4])
		entries[i].Length = binary.BigEndian.Uint32(data[off+4 : off+8])
		off += indexEntrySize
	}
	freeCount := binary.BigEndian.Uint32(data[off : off+4])
	off += 4
	if len(data) < off+int(freeCount)*indexEntrySize {
		return nil, 0, nil, fmt.Errorf("%w: free list truncated", ErrCorrupt)
	}
	free := make([]indexEntry, freeCount)
	for i := range free {
		free[i].Offset = binary.BigEndian.Uint32(data[off : off+4])
		free[i].Length = binary.BigEndian.Uint32(data[off+4 : off+8])
		off += indexEntrySize
	}
	return entries, reserved, free, nil
}

// packVariables serializes the variables directory. Order is preserved.
func packVariables(vars []variable) []byte {
	size := 4
	for _, v := range vars {
		size += 4 + 1 + len(v.Name)
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(vars)))
	off := 4
	for _, v := range vars {
		binary.BigEndian.PutUint32(buf[off:off+4], v.Slot)
		buf[off+4] = uint8(len(v.Name))
		copy(buf[off+5:], v.Name)
		off += 5 + len(v.Name)
	}
	return buf
}

func unpackVariables(data []byte) ([]variable, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: short variables block", ErrCorrupt)
	}
	count := binary.BigEndian.Uint32(data[0:4])
	off := 4
	vars := make([]variable, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < off+5 {
			return nil, fmt.Errorf("%w: variables block truncated", ErrCorrupt)
		}
		slot := binary.BigEndian.Uint32(data[off : off+4])
		nameLen := int(data[off+4])
		off += 5
		if len(data) < off+nameLen {
			return nil, fmt.Errorf("%w: variable name truncated", ErrCorrupt)
		}
		vars = append(vars, variable{Name: string(data[off : off+nameLen]), Slot: slot})
		off += nameLen
	}
	return vars, nil
}

// variable is one entry of the variables directory.
type variable struct {
	Name string
	Slot uint32
}

// treeRoot is the blob a tree's index slot points at.
type treeRoot struct {
	ChildSlot    uint32 // first leaf, 0 when the tree is empty
	LeafCapacity uint32
	ItemCount    uint32
}

func (t *treeRoot) pack() []byte {
	buf := make([]byte, treeRootSize)
	copy(buf[0:4], TreeMagic)
	binary.BigEndian.PutUint32(buf[4:8], TreeVersion)
	binary.BigEndian.PutUint32(buf[8:12], t.ChildSlot)
	binary.BigEndian.PutUint32(buf[12:16], t.LeafCapacity)
	binary.BigEndian.PutUint32(buf[16:20], t.ItemCount)
	return buf
}

func unpackTreeRoot(data []byte) (*treeRoot, error) {
	if len(data) < treeRootSize {
		return nil, fmt.Errorf("%w: short tree root", ErrCorrupt)
	}
	if string(data[0:4]) != TreeMagic {
		return nil, fmt.Errorf("%w: bad tree magic %q", ErrCorrupt, data[0:4])
	}
	if v := binary.BigEndian.Uint32(data[4:8]); v != TreeVersion {
		return nil, fmt.Errorf("%w: unsupported tree version %d", ErrCorrupt, v)
	}
	root := &treeRoot{
		ChildSlot:    binary.BigEndian.Uint32(data[8:12]),
		LeafCapacity: binary.BigEndian.Uint32(data[12:16]),
		ItemCount:    binary.BigEndian.Uint32(data[16:20]),
	}
	if root.LeafCapacity == 0 {
		return nil, fmt.Errorf("%w: tree leaf capacity is zero", ErrCorrupt)
	}
	return root, nil
}

// treeLeaf holds a run of sorted (key-slot, value-slot) pairs. Leaves chain
// through Forward; 0 terminates the chain.
type treeLeaf struct {
	Flags    uint16
	Forward  uint32
	Backward uint32
	Items    []treeItem
}

type treeItem struct {
	KeySlot   uint32
	ValueSlot uint32
}

func (l *treeLeaf) pack() []byte {
	buf := make([]byte, treeLeafFixed+len(l.Items)*8)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(l.Items)))
	binary.BigEndian.PutUint16(buf[2:4], l.Flags)
	binary.BigEndian.PutUint32(buf[4:8], l.Forward)
	binary.BigEndian.PutUint32(buf[8:12], l.Backward)
	off := treeLeafFixed
	for _, it := range l.Items {
		binary.BigEndian.PutUint32(buf[off:off+4], it.KeySlot)
		binary.BigEndian.PutUint32(buf[off+4:off+8], it.ValueSlot)
		off += 8
	}
	return buf
}

func unpackTreeLeaf(data []byte) (*treeLeaf, error) {
	if len(data) < treeLeafFixed {
		return nil, fmt.Errorf("%w: short tree leaf", ErrCorrupt)
	}
	count := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) < treeLeafFixed+count*8 {
		return nil, fmt.Errorf("%w: tree leaf truncated", ErrCorrupt)
	}
	leaf := &treeLeaf{
		Flags:    binary.BigEndian.Uint16(data[2:4]),
		Forward:  binary.BigEndian.Uint32(data[4:8]),
		Backward: binary.BigEndian.Uint32(data[8:12]),
		Items:    make([]treeItem, count),
	}
	off := treeLeafFixed
	for i := range leaf.Items {
		leaf.Items[i].KeySlot = binary.BigEndian.Uint32(data[off : off+4])
		leaf.Items[i].ValueSlot = binary.BigEndian.Uint32(data[off+4 : off+8])
		off += 8
	}
	return leaf, nil
}
