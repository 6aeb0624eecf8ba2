// Package asset models the input catalog tree: a closed set of node
// kinds arranged in an arena, each leaf carrying the slot-attributed
// variants its manifest declares.
package asset

import "fmt"

// Kind tags one node of the catalog tree.
type Kind int

const (
	KindCatalog Kind = iota
	KindGroup
	KindImageSet
	KindAppIconSet
	KindLaunchImage
	KindIconSet
	KindDataSet
	KindBrandAssets
	KindImageStack
	KindImageStackLayer
	KindComplicationSet
	KindSpriteAtlas
	KindGCDashboardImage
	KindGCLeaderboard
	KindGCLeaderboardSet
)

var kindNames = map[Kind]string{
	KindCatalog:          "catalog",
	KindGroup:            "group",
	KindImageSet:         "imageset",
	KindAppIconSet:       "appiconset",
	KindLaunchImage:      "launchimage",
	KindIconSet:          "iconset",
	KindDataSet:          "dataset",
	KindBrandAssets:      "brandassets",
	KindImageStack:       "imagestack",
	KindImageStackLayer:  "imagestacklayer",
	KindComplicationSet:  "complicationset",
	KindSpriteAtlas:      "spriteatlas",
	KindGCDashboardImage: "gcdashboardimage",
	KindGCLeaderboard:    "gcleaderboard",
	KindGCLeaderboardSet: "gcleaderboardset",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var kindByExtension = map[string]Kind{
	".xcassets":         KindCatalog,
	".imageset":         KindImageSet,
	".appiconset":       KindAppIconSet,
	".launchimage":      KindLaunchImage,
	".iconset":          KindIconSet,
	".dataset":          KindDataSet,
	".brandassets":      KindBrandAssets,
	".imagestack":       KindImageStack,
	".imagestacklayer":  KindImageStackLayer,
	".complicationset":  KindComplicationSet,
	".spriteatlas":      KindSpriteAtlas,
	".gcdashboardimage": KindGCDashboardImage,
	".gcleaderboard":    KindGCLeaderboard,
	".gcleaderboardset": KindGCLeaderboardSet,
}

// KindForExtension maps a directory extension to its node kind.
// Directories without a recognized extension are groups.
func KindForExtension(ext string) (Kind, bool) {
	k, ok := kindByExtension[ext]
	return k, ok
}

// Recurses reports whether the compile walk descends into this kind's
// children. Image stack layers hold no compilable children yet.
func (k Kind) Recurses() bool {
	switch k {
	case KindCatalog, KindGroup, KindBrandAssets, KindImageStack,
		KindComplicationSet, KindSpriteAtlas, KindGCDashboardImage,
		KindGCLeaderboard, KindGCLeaderboardSet:
		return true
	default:
		return false
	}
}

// EmitsRenditions reports whether the kind's variants become rendition
// payloads directly.
func (k Kind) EmitsRenditions() bool {
	switch k {
	case KindImageSet, KindAppIconSet, KindLaunchImage, KindIconSet, KindDataSet:
		return true
	default:
		return false
	}
}

// EmitsContainerRecord reports whether the kind contributes a facet of
// its own even though its content lives in children.
func (k Kind) EmitsContainerRecord() bool {
	switch k {
	case KindBrandAssets, KindComplicationSet, KindImageStack,
		KindImageStackLayer, KindSpriteAtlas, KindGCDashboardImage,
		KindGCLeaderboard, KindGCLeaderboardSet:
		return true
	default:
		return false
	}
}
