package compile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/carton-io/carton/pkg/asset"
	"github.com/carton-io/carton/pkg/asset/slot"
	"github.com/carton-io/carton/pkg/car"
	"github.com/carton-io/carton/pkg/imagecodec"
)

// ArchiveName is the compiled output's file name inside the output
// directory.
const ArchiveName = "Assets.car"

type compiler struct {
	opts   *Options
	writer *car.Writer
	result *Result
	logger hclog.Logger
}

// Compile walks the loaded catalogs and writes the selected content
// into outputDir, as an archive or as folder-form output depending on
// the deployment target.
func Compile(trees []*asset.Tree, opts Options, outputDir string) (*Result, error) {
	return CompileWithLogger(trees, opts, outputDir, hclog.NewNullLogger())
}

// CompileWithLogger runs Compile with a caller-supplied logger.
// Per-asset failures land in the result's problem list; only
// configuration and output-level failures abort.
func CompileWithLogger(trees []*asset.Tree, opts Options, outputDir string, logger hclog.Logger) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	folderForm, err := opts.FolderForm()
	if err != nil {
		return nil, err
	}
	result := &Result{FolderForm: folderForm}
	if opts.EnableIncrementalDistill {
		logger.Warn("incremental distill is not implemented; flag ignored")
		result.warnf(opts.TargetName, "incremental distill is not implemented; flag ignored")
	}
	for _, tree := range trees {
		result.Inputs = append(result.Inputs, tree.Node(tree.Root()).Path)
	}

	if folderForm {
		if err := compileFolders(trees, &opts, outputDir, result, logger); err != nil {
			return nil, err
		}
		return result, nil
	}

	outputPath := filepath.Join(outputDir, ArchiveName)
	c := &compiler{
		opts:   &opts,
		writer: car.NewWriterWithLogger(outputPath, logger),
		result: result,
		logger: logger,
	}
	for _, tree := range trees {
		err := tree.Walk(func(id asset.NodeID, n *asset.Node) (bool, error) {
			return c.visit(n), nil
		})
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	if err := c.writer.Commit(); err != nil {
		return nil, err
	}
	result.OutputPath = outputPath
	result.Outputs = append(result.Outputs, outputPath)
	logger.Info("compiled catalog",
		"output", outputPath,
		"facets", result.FacetCount,
		"renditions", result.RenditionCount,
		"problems", len(result.Problems))
	return result, nil
}

func (c *compiler) visit(n *asset.Node) bool {
	switch n.Kind {
	case asset.KindCatalog, asset.KindGroup:
		return true
	case asset.KindAppIconSet:
		if n.Name == c.opts.AppIcon {
			c.emitLeaf(n)
		}
		return false
	case asset.KindLaunchImage:
		if n.Name == c.opts.LaunchImage {
			c.emitLeaf(n)
		}
		return false
	}
	if n.Kind.EmitsRenditions() {
		c.emitLeaf(n)
		return false
	}
	if n.Kind.EmitsContainerRecord() {
		c.emitLeaf(n)
	}
	return n.Kind.Recurses()
}

// emitLeaf selects the node's variants, resolves key conflicts later
// wins, and files the survivors under one freshly assigned facet. The
// facet is created only once at least one rendition encoded, so no
// facet ends up empty.
func (c *compiler) emitLeaf(n *asset.Node) {
	type pending struct {
		attrs car.AttributeList
		rend  *car.Rendition
	}
	selected := make(map[string]pending)
	var order []string
	for i := range n.Variants {
		v := &n.Variants[i]
		if c.skipVariant(v) {
			continue
		}
		rend, err := c.encodeVariant(n, v)
		if err != nil {
			c.result.errorf(n.Path, "variant %s: %v", v.FileName, err)
			continue
		}
		attrs := v.Attributes()
		key := string(attrs.PackKey(c.writer.KeyFormat()))
		if _, dup := selected[key]; dup {
			c.result.warnf(n.Path, "variant %s conflicts with an earlier variant; later wins", v.FileName)
		} else {
			order = append(order, key)
		}
		selected[key] = pending{attrs: attrs, rend: rend}
	}
	if len(order) == 0 {
		return
	}

	facet := &car.Facet{Name: n.Name, Attributes: make(car.AttributeList)}
	id, err := c.writer.AddFacet(facet)
	if err != nil {
		c.result.errorf(n.Path, "registering facet: %v", err)
		return
	}
	c.result.FacetCount++
	for _, key := range order {
		p := selected[key]
		p.attrs.Set(car.AttributeIdentifier, id)
		if err := c.writer.AddRendition(p.attrs, p.rend, c.opts.CompressPNGs); err != nil {
			c.result.errorf(n.Path, "adding rendition %s: %v", p.rend.Name, err)
			continue
		}
		c.result.RenditionCount++
	}
}

// skipVariant applies the build's target filter. Universal variants
// always pass.
func (c *compiler) skipVariant(v *asset.Variant) bool {
	target, filtered := c.opts.TargetIdiom()
	if !filtered {
		return false
	}
	return v.Idiom != slot.IdiomUniversal && v.Idiom != target
}

func (c *compiler) encodeVariant(n *asset.Node, v *asset.Variant) (*car.Rendition, error) {
	path := filepath.Join(n.Path, v.FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.result.Inputs = append(c.result.Inputs, path)

	scaleFactor := uint32(100)
	if v.Scale != 0 {
		scaleFactor = uint32(v.Scale) * 100
	}
	rend := &car.Rendition{
		Name:        v.FileName,
		ScaleFactor: scaleFactor,
	}

	if n.Kind == asset.KindDataSet {
		rend.Format = car.PixelFormatData
		rend.Data = data
		if v.UTI != "" {
			rend.Metadata = append(rend.Metadata, car.MetadataBlock{
				Tag:  car.MetadataUTI,
				Data: []byte(v.UTI),
			})
		}
		return rend, nil
	}

	switch strings.ToLower(filepath.Ext(v.FileName)) {
	case ".jpg", ".jpeg":
		width, height, err := imagecodec.DecodeConfig(data)
		if err != nil {
			return nil, err
		}
		rend.Format = car.PixelFormatJPEG
		rend.Width = uint32(width)
		rend.Height = uint32(height)
		rend.Data = data
	default:
		img, err := imagecodec.Decode(data)
		if err != nil {
			return nil, err
		}
		rend.Format = car.PixelFormatARGB
		rend.Width = uint32(img.Width)
		rend.Height = uint32(img.Height)
		rend.RowBytes = uint32(img.RowBytes)
		rend.Data = img.Pixels
	}
	return rend, nil
}
