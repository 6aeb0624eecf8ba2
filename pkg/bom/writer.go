package bom

import (
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/go-hclog"
)

// Writer constructs a container file. Blobs accumulate in memory and the
// file materializes atomically at Commit; before that the output path is
// untouched. The writer is the exclusive owner of the output path for its
// lifetime.
type Writer struct {
	path      string
	entries   []indexEntry
	blobs     [][]byte
	free      []indexEntry
	vars      []variable
	reserved  uint32
	nextSlot  uint32
	committed bool
	logger    hclog.Logger
}

// OpenWrite creates a writer for the given path. reservedIndexCount
// pre-allocates index slots so that single-pass construction never grows
// the table; pass 0 when the final slot count is unknown.
func OpenWrite(path string, reservedIndexCount uint32) (*Writer, error) {
	return OpenWriteWithLogger(path, reservedIndexCount, hclog.NewNullLogger())
}

// OpenWriteWithLogger creates a writer with a custom logger.
func OpenWriteWithLogger(path string, reservedIndexCount uint32, logger hclog.Logger) (*Writer, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	// Slot 0 is reserved null.
	capacity := reservedIndexCount + 1
	if capacity < 8 {
		capacity = 8
	}
	w := &Writer{
		path:     path,
		entries:  make([]indexEntry, capacity),
		blobs:    make([][]byte, capacity),
		reserved: reservedIndexCount,
		nextSlot: 1,
		logger:   logger,
	}
	logger.Debug("opened container writer", "path", path, "reserved_slots", reservedIndexCount)
	return w, nil
}

// AddBlob stores a blob and returns its index slot.
func (w *Writer) AddBlob(data []byte) (uint32, error) {
	if w.committed {
		return 0, fmt.Errorf("writer already committed")
	}
	slot := w.nextSlot
	if int(slot) >= len(w.entries) {
		w.grow()
	}
	w.nextSlot++
	w.blobs[slot] = data
	w.entries[slot] = indexEntry{Length: uint32(len(data))}
	return slot, nil
}

// ReplaceBlob overwrites the contents of an existing slot.
func (w *Writer) ReplaceBlob(slot uint32, data []byte) error {
	if slot == 0 || slot >= w.nextSlot {
		return fmt.Errorf("%w: slot %d", ErrInvalidSlot, slot)
	}
	w.blobs[slot] = data
	w.entries[slot] = indexEntry{Length: uint32(len(data))}
	return nil
}

func (w *Writer) grow() {
	capacity := len(w.entries) * 2
	entries := make([]indexEntry, capacity)
	copy(entries, w.entries)
	w.entries = entries
	blobs := make([][]byte, capacity)
	copy(blobs, w.blobs)
	w.blobs = blobs
}

// SetVariable binds a name to an index slot, replacing any previous
// binding of the same name.
func (w *Writer) SetVariable(name string, slot uint32) error {
	if len(name) > 255 {
		return fmt.Errorf("variable name %q too long", name)
	}
	if slot >= w.nextSlot {
		return fmt.Errorf("%w: slot %d", ErrInvalidSlot, slot)
	}
	for i := range w.vars {
		if w.vars[i].Name == name {
			w.vars[i].Slot = slot
			return nil
		}
	}
	w.vars = append(w.vars, variable{Name: name, Slot: slot})
	return nil
}

// AddTree creates a tree builder whose root blob will be bound to the
// given variable name at finalization.
func (w *Writer) AddTree(name string) (*TreeBuilder, error) {
	return w.AddTreeWithCapacity(name, DefaultLeafCapacity)
}

// AddTreeWithCapacity creates a tree builder with an explicit leaf fanout.
func (w *Writer) AddTreeWithCapacity(name string, leafCapacity uint32) (*TreeBuilder, error) {
	if leafCapacity < 1 {
		return nil, fmt.Errorf("leaf capacity must be >= 1, got %d", leafCapacity)
	}
	return &TreeBuilder{
		writer:       w,
		name:         name,
		leafCapacity: leafCapacity,
	}, nil
}

// Commit lays out the payload, writes the file, and invalidates the
// writer. First-fit placement reuses regions on the writer's free list
// (ReplaceBlob does not add to it); everything else appends, and adjacent
// free regions coalesce.
func (w *Writer) Commit() error {
	if w.committed {
		return fmt.Errorf("writer already committed")
	}
	w.committed = true

	entries := w.entries[:maxUint32(w.nextSlot, w.reserved+1)]
	end := uint32(HeaderSize)
	for slot := uint32(1); slot < w.nextSlot; slot++ {
		length := w.entries[slot].Length
		if w.blobs[slot] == nil {
			continue
		}
		if off, ok := w.takeFree(length); ok {
			w.entries[slot].Offset = off
		} else {
			w.entries[slot].Offset = end
			end += length
		}
	}
	w.coalesceFree()

	// The index and variables blocks land after every live blob and every
	// free region, so free blocks stay inside the payload.
	for slot := uint32(1); slot < w.nextSlot; slot++ {
		if w.blobs[slot] == nil {
			continue
		}
		if blobEnd := w.entries[slot].Offset + w.entries[slot].Length; blobEnd > end {
			end = blobEnd
		}
	}
	for _, f := range w.free {
		if freeEnd := f.Offset + f.Length; freeEnd > end {
			end = freeEnd
		}
	}

	varsBlock := packVariables(w.vars)
	indexBlock := packIndex(entries, w.reserved, w.free)

	indexOff := end
	varsOff := indexOff + uint32(len(indexBlock))
	total := varsOff + uint32(len(varsBlock))

	hdr := header{
		TotalSize: total,
		IndexOff:  indexOff,
		IndexLen:  uint32(len(indexBlock)),
		VarsOff:   varsOff,
		VarsLen:   uint32(len(varsBlock)),
	}

	out := make([]byte, total)
	copy(out, hdr.pack())
	for slot := uint32(1); slot < w.nextSlot; slot++ {
		if w.blobs[slot] == nil {
			continue
		}
		e := w.entries[slot]
		copy(out[e.Offset:e.Offset+e.Length], w.blobs[slot])
	}
	copy(out[indexOff:], indexBlock)
	copy(out[varsOff:], varsBlock)

	if err := os.WriteFile(w.path, out, 0644); err != nil {
		return err
	}
	w.logger.Debug("committed container", "path", w.path, "size", total, "slots", w.nextSlot-1, "variables", len(w.vars))
	return nil
}

// takeFree claims the first free region large enough for length bytes.
func (w *Writer) takeFree(length uint32) (uint32, bool) {
	if length == 0 {
		return 0, false
	}
	for i, f := range w.free {
		if f.Length >= length {
			off := f.Offset
			if f.Length == length {
				w.free = append(w.free[:i], w.free[i+1:]...)
			} else {
				w.free[i] = indexEntry{Offset: f.Offset + length, Length: f.Length - length}
			}
			return off, true
		}
	}
	return 0, false
}

func (w *Writer) coalesceFree() {
	if len(w.free) < 2 {
		return
	}
	sort.Slice(w.free, func(i, j int) bool { return w.free[i].Offset < w.free[j].Offset })
	merged := w.free[:1]
	for _, f := range w.free[1:] {
		last := &merged[len(merged)-1]
		if last.Offset+last.Length == f.Offset {
			last.Length += f.Length
		} else {
			merged = append(merged, f)
		}
	}
	w.free = merged
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
