package compile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/carton-io/carton/pkg/asset"
)

// compileFolders emits uncompiled folder-form output: one directory per
// selected leaf, holding its manifest and the variant files that pass
// the target filter.
func compileFolders(trees []*asset.Tree, opts *Options, outputDir string, result *Result, logger hclog.Logger) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	c := &compiler{opts: opts, result: result, logger: logger}
	for _, tree := range trees {
		err := tree.Walk(func(id asset.NodeID, n *asset.Node) (bool, error) {
			switch n.Kind {
			case asset.KindCatalog, asset.KindGroup:
				return true, nil
			case asset.KindAppIconSet:
				if n.Name == opts.AppIcon {
					emitFolder(n, c, outputDir)
				}
				return false, nil
			case asset.KindLaunchImage:
				if n.Name == opts.LaunchImage {
					emitFolder(n, c, outputDir)
				}
				return false, nil
			}
			if n.Kind.EmitsRenditions() {
				emitFolder(n, c, outputDir)
				return false, nil
			}
			return n.Kind.Recurses(), nil
		})
		if err != nil {
			return err
		}
	}
	result.OutputPath = outputDir
	logger.Info("emitted folder-form output", "output", outputDir, "assets", result.FacetCount)
	return nil
}

func emitFolder(n *asset.Node, c *compiler, outputDir string) {
	destDir := filepath.Join(outputDir, fmt.Sprintf("%s.%s", n.Name, n.Kind))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		c.result.errorf(n.Path, "creating %s: %v", destDir, err)
		return
	}
	copied := 0
	for i := range n.Variants {
		v := &n.Variants[i]
		if c.skipVariant(v) {
			continue
		}
		src := filepath.Join(n.Path, v.FileName)
		dst := filepath.Join(destDir, v.FileName)
		if err := copyFile(src, dst); err != nil {
			c.result.errorf(n.Path, "copying %s: %v", v.FileName, err)
			continue
		}
		c.result.Inputs = append(c.result.Inputs, src)
		c.result.Outputs = append(c.result.Outputs, dst)
		copied++
	}
	if copied == 0 {
		os.Remove(destDir)
		return
	}
	manifest := filepath.Join(n.Path, manifestFileName)
	if _, err := os.Stat(manifest); err == nil {
		dst := filepath.Join(destDir, manifestFileName)
		if err := copyFile(manifest, dst); err != nil {
			c.result.errorf(n.Path, "copying manifest: %v", err)
		} else {
			c.result.Outputs = append(c.result.Outputs, dst)
		}
	}
	c.result.FacetCount++
	c.result.RenditionCount += copied
}

const manifestFileName = "Contents.json"

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
