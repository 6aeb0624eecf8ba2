// Package compile walks loaded catalog trees, selects the variants a
// build configuration asks for, and emits them as a compiled archive or
// as folder-form output for old deployment targets.
package compile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/carton-io/carton/pkg/asset/slot"
	"github.com/carton-io/carton/pkg/car"
)

// DefaultCompiledFormatMinVersion is the deployment-target major below
// which output falls back to folder form.
const DefaultCompiledFormatMinVersion = 7

// Options is the build configuration for one compile run.
type Options struct {
	AppIcon     string
	LaunchImage string

	Platform                 string
	TargetDevice             string
	MinDeploymentTarget      string
	Optimization             string
	TargetName               string
	FilterForDeviceModel     string
	FilterForDeviceOSVersion string

	CompressPNGs             bool
	EnableOnDemandResources  bool
	EnableIncrementalDistill bool

	// CompiledFormatMinVersion overrides the folder-form threshold.
	// Zero means the default.
	CompiledFormatMinVersion int
}

// Validate rejects semantically broken configurations.
func (o *Options) Validate() error {
	switch o.Optimization {
	case "", "space", "time":
	default:
		return fmt.Errorf("%w: optimization %q", car.ErrInvalid, o.Optimization)
	}
	if o.MinDeploymentTarget != "" {
		if _, err := o.deploymentMajor(); err != nil {
			return err
		}
	}
	if o.TargetDevice != "" {
		if _, ok := slot.ParseIdiom(deviceIdiomName(o.TargetDevice)); !ok {
			return fmt.Errorf("%w: target device %q", car.ErrInvalid, o.TargetDevice)
		}
	}
	return nil
}

func (o *Options) deploymentMajor() (int, error) {
	version := o.MinDeploymentTarget
	if i := strings.IndexByte(version, '.'); i >= 0 {
		version = version[:i]
	}
	major, err := strconv.Atoi(version)
	if err != nil || major < 0 {
		return 0, fmt.Errorf("%w: deployment target %q", car.ErrInvalid, o.MinDeploymentTarget)
	}
	return major, nil
}

// FolderForm reports whether the deployment target predates compiled
// archives.
func (o *Options) FolderForm() (bool, error) {
	if o.MinDeploymentTarget == "" {
		return false, nil
	}
	major, err := o.deploymentMajor()
	if err != nil {
		return false, err
	}
	threshold := o.CompiledFormatMinVersion
	if threshold == 0 {
		threshold = DefaultCompiledFormatMinVersion
	}
	return major < threshold, nil
}

// TargetIdiom resolves the target device to the idiom variants must
// match. The second result is false when no device filter applies.
func (o *Options) TargetIdiom() (slot.Idiom, bool) {
	if o.TargetDevice == "" {
		return slot.IdiomUniversal, false
	}
	idiom, ok := slot.ParseIdiom(deviceIdiomName(o.TargetDevice))
	if !ok {
		return slot.IdiomUniversal, false
	}
	return idiom, true
}

// deviceIdiomName maps build-system device names onto the idiom
// vocabulary.
func deviceIdiomName(device string) string {
	switch device {
	case "iphone", "ipod":
		return "phone"
	case "ipad":
		return "pad"
	case "appletv":
		return "tv"
	case "applewatch":
		return "watch"
	case "carplay":
		return "car"
	default:
		return device
	}
}
