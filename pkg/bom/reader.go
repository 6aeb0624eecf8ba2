package bom

import (
	"bytes"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Reader provides random access to a container file. The whole file is
// buffered in memory; Blob and the fast iteration paths return slices into
// that buffer, valid until Close.
type Reader struct {
	path    string
	data    []byte
	header  *header
	entries []indexEntry
	vars    []variable
	logger  hclog.Logger
}

// OpenRead opens and validates a container file.
func OpenRead(path string) (*Reader, error) {
	return OpenReadWithLogger(path, hclog.NewNullLogger())
}

// OpenReadWithLogger opens a container with a custom logger.
func OpenReadWithLogger(path string, logger hclog.Logger) (*Reader, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.path = path
	r.logger = logger
	logger.Debug("opened container", "path", path, "size", len(data), "slots", len(r.entries), "variables", len(r.vars))
	return r, nil
}

// Load validates an in-memory container image.
func Load(data []byte) (*Reader, error) {
	hdr, err := unpackHeader(data)
	if err != nil {
		return nil, err
	}
	if int(hdr.TotalSize) != len(data) {
		return nil, fmt.Errorf("%w: header total size %d, file size %d", ErrCorrupt, hdr.TotalSize, len(data))
	}
	if err := checkRegion(data, hdr.IndexOff, hdr.IndexLen, "index"); err != nil {
		return nil, err
	}
	if err := checkRegion(data, hdr.VarsOff, hdr.VarsLen, "variables"); err != nil {
		return nil, err
	}
	entries, _, free, err := unpackIndex(data[hdr.IndexOff : hdr.IndexOff+hdr.IndexLen])
	if err != nil {
		return nil, err
	}
	for slot, e := range entries {
		if e.Length == 0 {
			continue
		}
		if err := checkRegion(data, e.Offset, e.Length, fmt.Sprintf("blob slot %d", slot)); err != nil {
			return nil, err
		}
		if e.Offset < HeaderSize {
			return nil, fmt.Errorf("%w: blob slot %d overlaps header", ErrCorrupt, slot)
		}
	}
	for _, f := range free {
		if err := checkRegion(data, f.Offset, f.Length, "free block"); err != nil {
			return nil, err
		}
	}
	vars, err := unpackVariables(data[hdr.VarsOff : hdr.VarsOff+hdr.VarsLen])
	if err != nil {
		return nil, err
	}
	for _, v := range vars {
		if int(v.Slot) >= len(entries) {
			return nil, fmt.Errorf("%w: variable %q references slot %d of %d", ErrCorrupt, v.Name, v.Slot, len(entries))
		}
	}
	return &Reader{
		data:    data,
		header:  hdr,
		entries: entries,
		vars:    vars,
		logger:  hclog.NewNullLogger(),
	}, nil
}

func checkRegion(data []byte, off, length uint32, what string) error {
	end := uint64(off) + uint64(length)
	if end > uint64(len(data)) {
		return fmt.Errorf("%w: %s region [%d, %d) exceeds file size %d", ErrCorrupt, what, off, end, len(data))
	}
	return nil
}

// Close releases the buffered file contents. Slices previously returned by
// Blob become invalid.
func (r *Reader) Close() error {
	r.data = nil
	r.entries = nil
	return nil
}

// SlotCount reports the size of the index table, reserved slot 0 included.
func (r *Reader) SlotCount() int {
	return len(r.entries)
}

// Blob returns the bytes of one index slot. The slice aliases the reader's
// buffer; callers that outlive the reader must copy.
func (r *Reader) Blob(slot uint32) ([]byte, error) {
	if slot == 0 || int(slot) >= len(r.entries) {
		return nil, fmt.Errorf("%w: slot %d", ErrInvalidSlot, slot)
	}
	e := r.entries[slot]
	return r.data[e.Offset : e.Offset+e.Length], nil
}

// Variable resolves a named variable to its index slot.
func (r *Reader) Variable(name string) (uint32, error) {
	for _, v := range r.vars {
		if v.Name == name {
			return v.Slot, nil
		}
	}
	return 0, fmt.Errorf("%w: variable %q", ErrNotFound, name)
}

// Variables lists the directory in stored order.
func (r *Reader) Variables() []string {
	names := make([]string, len(r.vars))
	for i, v := range r.vars {
		names[i] = v.Name
	}
	return names
}

// TreeCount returns the number of (key, value) pairs in the tree rooted at
// the given slot without touching the leaves.
func (r *Reader) TreeCount(slot uint32) (int, error) {
	blob, err := r.Blob(slot)
	if err != nil {
		return 0, err
	}
	root, err := unpackTreeRoot(blob)
	if err != nil {
		return 0, err
	}
	return int(root.ItemCount), nil
}

// TreeIter walks the tree rooted at the given slot in ascending key order,
// invoking fn with each key and value. Iteration stops on the first error.
func (r *Reader) TreeIter(slot uint32, fn func(key, value []byte) error) error {
	return r.TreeFastIter(slot, fn)
}

// TreeFastIter is the copy-free walk: key and value slices alias the
// reader's buffer. Strict ascending key order is enforced; violation is a
// corruption error.
func (r *Reader) TreeFastIter(slot uint32, fn func(key, value []byte) error) error {
	blob, err := r.Blob(slot)
	if err != nil {
		return err
	}
	root, err := unpackTreeRoot(blob)
	if err != nil {
		return err
	}
	var prev []byte
	seen := 0
	leafSlot := root.ChildSlot
	visited := make(map[uint32]bool)
	for leafSlot != 0 {
		if visited[leafSlot] {
			return fmt.Errorf("%w: tree leaf cycle at slot %d", ErrCorrupt, leafSlot)
		}
		visited[leafSlot] = true
		leafBlob, err := r.Blob(leafSlot)
		if err != nil {
			return err
		}
		leaf, err := unpackTreeLeaf(leafBlob)
		if err != nil {
			return err
		}
		for _, item := range leaf.Items {
			key, err := r.Blob(item.KeySlot)
			if err != nil {
				return err
			}
			value, err := r.Blob(item.ValueSlot)
			if err != nil {
				return err
			}
			if prev != nil && bytes.Compare(prev, key) >= 0 {
				return fmt.Errorf("%w: tree keys not strictly ascending", ErrCorrupt)
			}
			prev = key
			seen++
			if err := fn(key, value); err != nil {
				return err
			}
		}
		leafSlot = leaf.Forward
	}
	if seen != int(root.ItemCount) {
		return fmt.Errorf("%w: tree claims %d items, found %d", ErrCorrupt, root.ItemCount, seen)
	}
	return nil
}
