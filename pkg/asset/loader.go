package asset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/carton-io/carton/pkg/asset/slot"
)

const manifestName = "Contents.json"

// manifest is the subset of a per-node Contents.json the compiler
// consumes.
type manifest struct {
	Images []manifestEntry `json:"images"`
	Data   []manifestEntry `json:"data"`
}

type manifestEntry struct {
	Idiom             string               `json:"idiom"`
	Scale             string               `json:"scale"`
	Filename          string               `json:"filename"`
	Subtype           string               `json:"subtype"`
	Memory            string               `json:"memory"`
	GraphicsFeatures  string               `json:"graphics-feature-set"`
	DisplayGamut      string               `json:"display-gamut"`
	WidthClass        string               `json:"width-class"`
	HeightClass       string               `json:"height-class"`
	Direction         string               `json:"direction"`
	UTI               string               `json:"universal-type-identifier"`
	Appearances       []manifestAppearance `json:"appearances"`
}

type manifestAppearance struct {
	Appearance string `json:"appearance"`
	Value      string `json:"value"`
}

// Loader reads an .xcassets directory into an arena tree.
type Loader struct {
	logger   hclog.Logger
	problems []Problem
}

// Load reads the catalog at path.
func Load(path string) (*Tree, []Problem, error) {
	return LoadWithLogger(path, hclog.NewNullLogger())
}

// LoadWithLogger reads the catalog at path with a caller-supplied
// logger. Malformed manifests and unknown vocabulary become per-asset
// problems; only filesystem failure on the root is fatal.
func LoadWithLogger(path string, logger hclog.Logger) (*Tree, []Problem, error) {
	l := &Loader{logger: logger}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tree := NewTree(name, path)
	if err := l.loadChildren(tree, tree.Root(), path); err != nil {
		return nil, l.problems, err
	}
	logger.Debug("loaded catalog", "path", path, "nodes", tree.Len(), "problems", len(l.problems))
	return tree, l.problems, nil
}

func (l *Loader) loadChildren(tree *Tree, parent NodeID, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if parent == tree.Root() {
			return fmt.Errorf("reading catalog %s: %w", dir, err)
		}
		l.report(SeverityError, dir, fmt.Sprintf("unreadable directory: %v", err))
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		childPath := filepath.Join(dir, entry.Name())
		ext := filepath.Ext(entry.Name())
		kind, known := KindForExtension(ext)
		if !known || kind == KindCatalog {
			kind = KindGroup
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		if kind == KindGroup {
			name = entry.Name()
		}
		node := Node{Name: name, Path: childPath, Kind: kind}
		if kind.EmitsRenditions() || kind.EmitsContainerRecord() {
			node.Variants = l.loadManifest(childPath, kind)
		}
		id, err := tree.Add(parent, node)
		if err != nil {
			return err
		}
		if kind.Recurses() || kind == KindGroup {
			if err := l.loadChildren(tree, id, childPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Loader) loadManifest(dir string, kind Kind) []Variant {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		if os.IsNotExist(err) {
			l.report(SeverityWarning, dir, "missing "+manifestName)
		} else {
			l.report(SeverityError, dir, fmt.Sprintf("reading %s: %v", manifestName, err))
		}
		return nil
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		l.report(SeverityError, dir, fmt.Sprintf("malformed %s: %v", manifestName, err))
		return nil
	}
	entries := m.Images
	if kind == KindDataSet {
		entries = m.Data
	}
	var variants []Variant
	for _, e := range entries {
		if e.Filename == "" {
			l.report(SeverityWarning, dir, "manifest entry without filename")
			continue
		}
		variants = append(variants, l.parseEntry(dir, e))
	}
	return variants
}

func (l *Loader) parseEntry(dir string, e manifestEntry) Variant {
	v := Variant{FileName: e.Filename, UTI: e.UTI}
	if e.Idiom != "" {
		if idiom, ok := slot.ParseIdiom(e.Idiom); ok {
			v.Idiom = idiom
		} else {
			l.report(SeverityWarning, dir, fmt.Sprintf("unknown idiom %q", e.Idiom))
		}
	}
	if e.Scale != "" {
		if scale, ok := slot.ParseScale(e.Scale); ok {
			v.Scale = scale
		} else {
			l.report(SeverityWarning, dir, fmt.Sprintf("unknown scale %q", e.Scale))
		}
	}
	if e.Subtype != "" {
		if sub, ok := slot.ParseSubtype(e.Subtype); ok {
			v.Subtype = sub
		} else {
			l.report(SeverityWarning, dir, fmt.Sprintf("unknown subtype %q", e.Subtype))
		}
	}
	if e.Memory != "" {
		if mem, ok := slot.ParseMemoryClass(e.Memory); ok {
			v.MemoryClass = mem
		} else {
			l.report(SeverityWarning, dir, fmt.Sprintf("unknown memory class %q", e.Memory))
		}
	}
	if e.GraphicsFeatures != "" {
		if gfx, ok := slot.ParseGraphicsClass(e.GraphicsFeatures); ok {
			v.GraphicsClass = gfx
		} else {
			l.report(SeverityWarning, dir, fmt.Sprintf("unknown graphics feature set %q", e.GraphicsFeatures))
		}
	}
	if e.DisplayGamut != "" {
		if gamut, ok := slot.ParseDisplayGamut(e.DisplayGamut); ok {
			v.DisplayGamut = gamut
		} else {
			l.report(SeverityWarning, dir, fmt.Sprintf("unknown display gamut %q", e.DisplayGamut))
		}
	}
	if e.WidthClass != "" {
		if sc, ok := slot.ParseSizeClass(e.WidthClass); ok {
			v.SizeClassH = sc
		} else {
			l.report(SeverityWarning, dir, fmt.Sprintf("unknown width class %q", e.WidthClass))
		}
	}
	if e.HeightClass != "" {
		if sc, ok := slot.ParseSizeClass(e.HeightClass); ok {
			v.SizeClassV = sc
		} else {
			l.report(SeverityWarning, dir, fmt.Sprintf("unknown height class %q", e.HeightClass))
		}
	}
	if e.Direction != "" {
		if d, ok := slot.ParseDirection(e.Direction); ok {
			v.Direction = d
		} else {
			l.report(SeverityWarning, dir, fmt.Sprintf("unknown direction %q", e.Direction))
		}
	}
	for _, a := range e.Appearances {
		if a.Appearance != "luminosity" {
			l.report(SeverityWarning, dir, fmt.Sprintf("unknown appearance key %q", a.Appearance))
			continue
		}
		if app, ok := slot.ParseAppearance(a.Value); ok {
			v.Appearance = app
		} else {
			l.report(SeverityWarning, dir, fmt.Sprintf("unknown appearance %q", a.Value))
		}
	}
	return v
}

func (l *Loader) report(sev Severity, asset, message string) {
	l.problems = append(l.problems, Problem{Severity: sev, Asset: asset, Message: message})
	if sev == SeverityError {
		l.logger.Error(message, "asset", asset)
	} else {
		l.logger.Warn(message, "asset", asset)
	}
}
