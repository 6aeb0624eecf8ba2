package edit

import (
	"path/filepath"
	"regexp"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carton-io/carton/pkg/asset/slot"
	"github.com/carton-io/carton/pkg/car"
)

func pixelRendition(name string, size int) *car.Rendition {
	pixels := make([]byte, size*size*4)
	for i := range pixels {
		pixels[i] = byte(i % 9)
	}
	return &car.Rendition{
		Name:     name,
		Width:    uint32(size),
		Height:   uint32(size),
		Format:   car.PixelFormatARGB,
		RowBytes: uint32(size * 4),
		Data:     pixels,
	}
}

type testVariant struct {
	scale uint16
	idiom slot.Idiom
}

// buildTestArchive writes an archive holding the given facets and
// returns its path with the assigned identifiers.
func buildTestArchive(t *testing.T, facets map[string][]testVariant) (string, map[string]uint16) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Assets.car")
	w := car.NewWriter(path)
	w.SetCreator("carton test")
	ids := make(map[string]uint16)
	for _, name := range sortedKeys(facets) {
		id, err := w.AddFacet(&car.Facet{Name: name})
		require.NoError(t, err)
		ids[name] = id
		for _, v := range facets[name] {
			attrs := car.AttributeList{car.AttributeIdentifier: id}
			if v.scale != 0 {
				attrs.Set(car.AttributeScale, v.scale)
			}
			if v.idiom != slot.IdiomUniversal {
				attrs.Set(car.AttributeIdiom, v.idiom.Code())
			}
			rend := pixelRendition(name+".png", 4)
			require.NoError(t, w.AddRendition(attrs, rend, false))
		}
	}
	w.SetSidecar("COLORS", []byte("color table"))
	require.NoError(t, w.Commit())
	return path, ids
}

func sortedKeys(m map[string][]testVariant) []string {
	var keys []string
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func archiveContents(t *testing.T, path string) (facets []string, keys map[string]bool) {
	t.Helper()
	r, err := car.OpenRead(path)
	require.NoError(t, err)
	defer r.Close()
	err = r.FacetIterate(func(f *car.Facet) error {
		facets = append(facets, f.Name)
		return nil
	})
	require.NoError(t, err)
	keys = make(map[string]bool)
	err = r.RenditionFastIterate(func(attrs car.AttributeList, value []byte) error {
		keys[string(attrs.PackKey(r.KeyFormat()))] = true
		return nil
	})
	require.NoError(t, err)
	return facets, keys
}

func TestThinRemoveByName(t *testing.T) {
	src, _ := buildTestArchive(t, map[string][]testVariant{
		"AppIcon":    {{scale: 1}, {scale: 2}},
		"Background": {{scale: 1}},
		"Sticker01":  {{scale: 1}},
		"Sticker02":  {{scale: 1}},
	})
	dst := filepath.Join(t.TempDir(), "thin.car")

	result, err := Thin(src, dst, ThinOptions{
		RemoveAssets: []*regexp.Regexp{regexp.MustCompile(`^Sticker`)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.FacetsKept)
	assert.Equal(t, 2, result.FacetsRemoved)
	assert.Equal(t, 3, result.RenditionsKept)
	assert.Equal(t, 2, result.RenditionsRemoved)

	facets, keys := archiveContents(t, dst)
	assert.ElementsMatch(t, []string{"AppIcon", "Background"}, facets)
	assert.Len(t, keys, 3)
}

func TestThinRemoveScale(t *testing.T) {
	src, _ := buildTestArchive(t, map[string][]testVariant{
		"Both":    {{scale: 1}, {scale: 2}},
		"OnlyOne": {{scale: 1}},
	})
	dst := filepath.Join(t.TempDir(), "thin.car")

	result, err := Thin(src, dst, ThinOptions{RemoveScales: []uint16{1}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.FacetsKept)
	// Both loses its 1x; OnlyOne keeps its single rendition.
	assert.Equal(t, 2, result.RenditionsKept)
	assert.Equal(t, 1, result.RenditionsRemoved)

	r, err := car.OpenRead(dst)
	require.NoError(t, err)
	defer r.Close()
	scales := make(map[string][]uint16)
	facetNames := make(map[uint16]string)
	err = r.FacetIterate(func(f *car.Facet) error {
		id, _ := f.Identifier()
		facetNames[id] = f.Name
		return nil
	})
	require.NoError(t, err)
	err = r.RenditionFastIterate(func(attrs car.AttributeList, value []byte) error {
		id, _ := attrs.Get(car.AttributeIdentifier)
		scale, _ := attrs.Get(car.AttributeScale)
		name := facetNames[id]
		scales[name] = append(scales[name], scale)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint16{2}, scales["Both"])
	assert.Equal(t, []uint16{1}, scales["OnlyOne"])
}

func TestThinKeepIdiom(t *testing.T) {
	src, _ := buildTestArchive(t, map[string][]testVariant{
		"Mixed": {
			{scale: 1},
			{scale: 1, idiom: slot.IdiomPhone},
			{scale: 1, idiom: slot.IdiomPad},
		},
	})
	dst := filepath.Join(t.TempDir(), "thin.car")

	result, err := Thin(src, dst, ThinOptions{
		KeepIdiom:    slot.IdiomPhone,
		KeepIdiomSet: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RenditionsKept)
	assert.Equal(t, 1, result.RenditionsRemoved)

	r, err := car.OpenRead(dst)
	require.NoError(t, err)
	defer r.Close()
	var idioms []uint16
	err = r.RenditionFastIterate(func(attrs car.AttributeList, value []byte) error {
		idiom, _ := attrs.Get(car.AttributeIdiom)
		idioms = append(idioms, idiom)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint16{0, slot.IdiomPhone.Code()}, idioms)
}

// Thinning an already-thinned archive with the same options must change
// nothing.
func TestThinIdempotent(t *testing.T) {
	src, _ := buildTestArchive(t, map[string][]testVariant{
		"AppIcon": {{scale: 1}, {scale: 2}},
		"Sticker": {{scale: 1}},
	})
	opts := ThinOptions{
		RemoveAssets: []*regexp.Regexp{regexp.MustCompile(`^Sticker$`)},
		RemoveScales: []uint16{1},
	}

	once := filepath.Join(t.TempDir(), "once.car")
	twice := filepath.Join(t.TempDir(), "twice.car")
	first, err := Thin(src, once, opts)
	require.NoError(t, err)
	second, err := Thin(once, twice, opts)
	require.NoError(t, err)

	assert.Equal(t, first.FacetsKept, second.FacetsKept)
	assert.Equal(t, first.RenditionsKept, second.RenditionsKept)
	assert.Equal(t, 0, second.FacetsRemoved)
	assert.Equal(t, 0, second.RenditionsRemoved)

	facetsOnce, keysOnce := archiveContents(t, once)
	facetsTwice, keysTwice := archiveContents(t, twice)
	assert.Equal(t, facetsOnce, facetsTwice)
	assert.Equal(t, keysOnce, keysTwice)
}

func TestThinPreservesArchiveMetadata(t *testing.T) {
	src, ids := buildTestArchive(t, map[string][]testVariant{
		"AppIcon": {{scale: 1}},
		"Extra":   {{scale: 1}},
	})
	dst := filepath.Join(t.TempDir(), "thin.car")
	_, err := Thin(src, dst, ThinOptions{
		RemoveAssets: []*regexp.Regexp{regexp.MustCompile(`^Extra$`)},
	})
	require.NoError(t, err)

	r, err := car.OpenRead(dst)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "carton test", r.Header().Creator)

	facet, err := r.Facet("AppIcon")
	require.NoError(t, err)
	id, ok := facet.Identifier()
	require.True(t, ok)
	assert.Equal(t, ids["AppIcon"], id)

	data, err := r.Sidecar("COLORS")
	require.NoError(t, err)
	assert.Equal(t, "color table", string(data))
}

func TestVerifyCleanArchive(t *testing.T) {
	src, _ := buildTestArchive(t, map[string][]testVariant{
		"AppIcon": {{scale: 1}, {scale: 2}},
		"Sticker": {{scale: 1}},
	})
	result, err := Verify(src)
	require.NoError(t, err)
	assert.True(t, result.OK(), "findings: %v", result.Findings)
	assert.Equal(t, 2, result.Facets)
	assert.Equal(t, 3, result.Renditions)
}

func TestVerifyFlagsEmptyFacet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Assets.car")
	w := car.NewWriter(path)
	_, err := w.AddFacet(&car.Facet{Name: "Hollow"})
	require.NoError(t, err)
	id, err := w.AddFacet(&car.Facet{Name: "Full"})
	require.NoError(t, err)
	attrs := car.AttributeList{car.AttributeIdentifier: id, car.AttributeScale: 1}
	require.NoError(t, w.AddRendition(attrs, pixelRendition("full.png", 4), false))
	require.NoError(t, w.Commit())

	result, err := Verify(path)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Contains(t, result.Findings[0], "Hollow")
	assert.Contains(t, result.Findings[0], "owns no renditions")
}

func TestInfoEntries(t *testing.T) {
	src := filepath.Join(t.TempDir(), "Assets.car")
	w := car.NewWriter(src)
	id, err := w.AddFacet(&car.Facet{Name: "AppIcon"})
	require.NoError(t, err)
	rend := pixelRendition("Icon-App.png", 8)
	attrs := car.AttributeList{car.AttributeIdentifier: id, car.AttributeScale: 2}
	require.NoError(t, w.AddRendition(attrs, rend, false))
	require.NoError(t, w.Commit())

	entries, err := Info(src, InfoOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "AppIcon", entries[0].Name)
	assert.Equal(t, "Icon-App.png", entries[1].RenditionName)
	assert.Equal(t, "Icon Image", entries[1].AssetType)
	assert.Equal(t, uint16(2), entries[1].Scale)
	assert.Equal(t, uint32(8), entries[1].PixelWidth)
	assert.Equal(t, "universal", entries[1].Idiom)
}

func TestInfoFilters(t *testing.T) {
	src, _ := buildTestArchive(t, map[string][]testVariant{
		"Mixed": {
			{scale: 1},
			{scale: 2, idiom: slot.IdiomPhone},
			{scale: 2, idiom: slot.IdiomPad},
		},
	})

	t.Run("by_idiom", func(t *testing.T) {
		entries, err := Info(src, InfoOptions{Idiom: slot.IdiomPhone, IdiomSet: true})
		require.NoError(t, err)
		// One facet row plus universal and phone renditions.
		require.Len(t, entries, 3)
	})
	t.Run("by_scale", func(t *testing.T) {
		entries, err := Info(src, InfoOptions{Scale: 2})
		require.NoError(t, err)
		require.Len(t, entries, 3)
	})
	t.Run("no_match_skips_facet", func(t *testing.T) {
		entries, err := Info(src, InfoOptions{Scale: 7})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
