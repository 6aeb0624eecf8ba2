package asset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carton-io/carton/pkg/asset/slot"
	"github.com/carton-io/carton/pkg/car"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Contents.json"), []byte(content), 0o644))
}

func TestLoadCatalogTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Media.xcassets")
	writeManifest(t, filepath.Join(root, "Icons", "Star.imageset"), `{
		"images": [
			{"idiom": "universal", "scale": "1x", "filename": "star.png"},
			{"idiom": "universal", "scale": "2x", "filename": "star@2x.png"}
		]
	}`)
	writeManifest(t, filepath.Join(root, "Config.dataset"), `{
		"data": [
			{"filename": "table.bin", "universal-type-identifier": "public.data"}
		]
	}`)

	tree, problems, err := Load(root)
	require.NoError(t, err)
	assert.Empty(t, problems)

	rootNode := tree.Node(tree.Root())
	assert.Equal(t, "Media", rootNode.Name)
	assert.Equal(t, KindCatalog, rootNode.Kind)
	require.Len(t, rootNode.Children, 2)

	byName := make(map[string]*Node)
	err = tree.Walk(func(id NodeID, n *Node) (bool, error) {
		byName[n.Name] = n
		return true, nil
	})
	require.NoError(t, err)

	icons := byName["Icons"]
	require.NotNil(t, icons)
	assert.Equal(t, KindGroup, icons.Kind)

	star := byName["Star"]
	require.NotNil(t, star)
	assert.Equal(t, KindImageSet, star.Kind)
	require.Len(t, star.Variants, 2)
	assert.Equal(t, "star.png", star.Variants[0].FileName)
	assert.Equal(t, slot.Scale(1), star.Variants[0].Scale)
	assert.Equal(t, slot.Scale(2), star.Variants[1].Scale)

	cfg := byName["Config"]
	require.NotNil(t, cfg)
	assert.Equal(t, KindDataSet, cfg.Kind)
	require.Len(t, cfg.Variants, 1)
	assert.Equal(t, "table.bin", cfg.Variants[0].FileName)
	assert.Equal(t, "public.data", cfg.Variants[0].UTI)
}

func TestLoadVariantAxes(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Axes.xcassets")
	writeManifest(t, filepath.Join(root, "Full.imageset"), `{
		"images": [{
			"idiom": "phone",
			"scale": "3x",
			"filename": "full.png",
			"memory": "2GB",
			"graphics-feature-set": "metal2v2",
			"display-gamut": "display-P3",
			"width-class": "compact",
			"height-class": "regular",
			"appearances": [{"appearance": "luminosity", "value": "dark"}]
		}]
	}`)

	tree, problems, err := Load(root)
	require.NoError(t, err)
	require.Empty(t, problems)

	var v Variant
	err = tree.Walk(func(id NodeID, n *Node) (bool, error) {
		if n.Kind == KindImageSet {
			require.Len(t, n.Variants, 1)
			v = n.Variants[0]
		}
		return true, nil
	})
	require.NoError(t, err)

	assert.Equal(t, slot.IdiomPhone, v.Idiom)
	assert.Equal(t, slot.Scale(3), v.Scale)
	assert.Equal(t, slot.AppearanceDark, v.Appearance)

	attrs := v.Attributes()
	id, ok := attrs.Get(car.AttributeIdiom)
	assert.True(t, ok)
	assert.Equal(t, uint16(1), id)
}

func TestLoadProblems(t *testing.T) {
	t.Run("unknown_vocabulary", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "Warn.xcassets")
		writeManifest(t, filepath.Join(root, "Odd.imageset"), `{
			"images": [{"idiom": "toaster", "scale": "9q", "filename": "odd.png"}]
		}`)
		tree, problems, err := Load(root)
		require.NoError(t, err)
		require.Len(t, problems, 2)
		for _, p := range problems {
			assert.Equal(t, SeverityWarning, p.Severity)
		}
		// The variant itself survives with the bad axes unset.
		err = tree.Walk(func(id NodeID, n *Node) (bool, error) {
			if n.Kind == KindImageSet {
				require.Len(t, n.Variants, 1)
				assert.Equal(t, slot.IdiomUniversal, n.Variants[0].Idiom)
				assert.Equal(t, slot.Scale(0), n.Variants[0].Scale)
			}
			return true, nil
		})
		require.NoError(t, err)
	})

	t.Run("missing_filename", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "Warn.xcassets")
		writeManifest(t, filepath.Join(root, "Gap.imageset"), `{
			"images": [{"idiom": "universal", "scale": "1x"}]
		}`)
		tree, problems, err := Load(root)
		require.NoError(t, err)
		require.Len(t, problems, 1)
		assert.Equal(t, SeverityWarning, problems[0].Severity)
		err = tree.Walk(func(id NodeID, n *Node) (bool, error) {
			if n.Kind == KindImageSet {
				assert.Empty(t, n.Variants)
			}
			return true, nil
		})
		require.NoError(t, err)
	})

	t.Run("missing_manifest", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "Warn.xcassets")
		require.NoError(t, os.MkdirAll(filepath.Join(root, "Bare.imageset"), 0o755))
		_, problems, err := Load(root)
		require.NoError(t, err)
		require.Len(t, problems, 1)
		assert.Equal(t, SeverityWarning, problems[0].Severity)
		assert.Contains(t, problems[0].Message, "Contents.json")
	})

	t.Run("malformed_manifest", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "Warn.xcassets")
		writeManifest(t, filepath.Join(root, "Bad.imageset"), `{not json`)
		_, problems, err := Load(root)
		require.NoError(t, err)
		require.Len(t, problems, 1)
		assert.Equal(t, SeverityError, problems[0].Severity)
	})
}

func TestLoadMissingRoot(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "absent.xcassets"))
	require.Error(t, err)
}

func TestKindForExtension(t *testing.T) {
	cases := []struct {
		ext  string
		kind Kind
		ok   bool
	}{
		{".imageset", KindImageSet, true},
		{".appiconset", KindAppIconSet, true},
		{".dataset", KindDataSet, true},
		{".xcassets", KindCatalog, true},
		{".gcdashboardimage", KindGCDashboardImage, true},
		{".gcleaderboard", KindGCLeaderboard, true},
		{".gcleaderboardset", KindGCLeaderboardSet, true},
		{".unknown", KindGroup, false},
	}
	for _, c := range cases {
		kind, ok := KindForExtension(c.ext)
		assert.Equal(t, c.ok, ok, c.ext)
		if ok {
			assert.Equal(t, c.kind, kind, c.ext)
		}
	}
}
