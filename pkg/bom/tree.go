package bom

import (
	"bytes"
	"fmt"
	"sort"
)

// TreeBuilder accumulates (key, value) pairs and, at Finalize, writes the
// sorted leaf chain plus the root blob and binds the root to the builder's
// variable name. Duplicate keys are rejected at insert time.
type TreeBuilder struct {
	writer       *Writer
	name         string
	leafCapacity uint32
	pairs        []treePair
	seen         map[string]bool
	finalized    bool
}

type treePair struct {
	key   []byte
	value []byte
}

// Insert adds one pair. Keys are compared as raw bytes.
func (t *TreeBuilder) Insert(key, value []byte) error {
	if t.finalized {
		return fmt.Errorf("tree %q already finalized", t.name)
	}
	if t.seen == nil {
		t.seen = make(map[string]bool)
	}
	if t.seen[string(key)] {
		return fmt.Errorf("%w: %q in tree %q", ErrDuplicate, key, t.name)
	}
	t.seen[string(key)] = true
	t.pairs = append(t.pairs, treePair{key: key, value: value})
	return nil
}

// Len reports the number of inserted pairs.
func (t *TreeBuilder) Len() int {
	return len(t.pairs)
}

// Finalize sorts the pairs, emits leaf blobs split at the configured
// fanout, writes the root blob, and binds the variable.
func (t *TreeBuilder) Finalize() error {
	if t.finalized {
		return fmt.Errorf("tree %q already finalized", t.name)
	}
	t.finalized = true

	sort.Slice(t.pairs, func(i, j int) bool {
		return bytes.Compare(t.pairs[i].key, t.pairs[j].key) < 0
	})

	// Leaf blobs reference key and value blobs by slot, so those land
	// first; leaves chain through forward slots assigned afterwards.
	capacity := int(t.leafCapacity)
	var leaves []*treeLeaf
	for start := 0; start < len(t.pairs); start += capacity {
		end := start + capacity
		if end > len(t.pairs) {
			end = len(t.pairs)
		}
		leaf := &treeLeaf{Items: make([]treeItem, 0, end-start)}
		for _, p := range t.pairs[start:end] {
			keySlot, err := t.writer.AddBlob(p.key)
			if err != nil {
				return err
			}
			valueSlot, err := t.writer.AddBlob(p.value)
			if err != nil {
				return err
			}
			leaf.Items = append(leaf.Items, treeItem{KeySlot: keySlot, ValueSlot: valueSlot})
		}
		leaves = append(leaves, leaf)
	}

	leafSlots := make([]uint32, len(leaves))
	for i := range leaves {
		slot, err := t.writer.AddBlob(nil)
		if err != nil {
			return err
		}
		leafSlots[i] = slot
	}
	for i, leaf := range leaves {
		if i+1 < len(leaves) {
			leaf.Forward = leafSlots[i+1]
		}
		if i > 0 {
			leaf.Backward = leafSlots[i-1]
		}
		if err := t.writer.ReplaceBlob(leafSlots[i], leaf.pack()); err != nil {
			return err
		}
	}

	root := treeRoot{
		LeafCapacity: t.leafCapacity,
		ItemCount:    uint32(len(t.pairs)),
	}
	if len(leafSlots) > 0 {
		root.ChildSlot = leafSlots[0]
	}
	rootSlot, err := t.writer.AddBlob(root.pack())
	if err != nil {
		return err
	}
	return t.writer.SetVariable(t.name, rootSlot)
}
