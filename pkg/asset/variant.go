package asset

import (
	"github.com/carton-io/carton/pkg/asset/slot"
	"github.com/carton-io/carton/pkg/car"
)

// Variant is one concrete file of a leaf asset together with the slot
// attributes that select it. Zero values on every axis mean "any".
type Variant struct {
	FileName string
	UTI      string

	Idiom         slot.Idiom
	Scale         slot.Scale
	Appearance    slot.Appearance
	Subtype       slot.Subtype
	MemoryClass   slot.MemoryClass
	GraphicsClass slot.GraphicsClass
	SizeClassH    slot.SizeClass
	SizeClassV    slot.SizeClass
	DisplayGamut  slot.DisplayGamut
	Direction     slot.Direction
}

// Attributes folds the variant's set axes into an attribute list. Axes
// at their zero value are omitted so they pack as zero in keys.
func (v *Variant) Attributes() car.AttributeList {
	attrs := make(car.AttributeList)
	if v.Idiom != slot.IdiomUniversal {
		attrs.Set(car.AttributeIdiom, v.Idiom.Code())
	}
	if v.Scale != 0 {
		attrs.Set(car.AttributeScale, uint16(v.Scale))
	}
	if v.Appearance != slot.AppearanceAny {
		attrs.Set(car.AttributeAppearance, v.Appearance.Code())
	}
	if v.Subtype != 0 {
		attrs.Set(car.AttributeSubtype, uint16(v.Subtype))
	}
	if v.MemoryClass != slot.MemoryAny {
		attrs.Set(car.AttributeMemoryClass, v.MemoryClass.Code())
	}
	if v.GraphicsClass != slot.GraphicsAny {
		attrs.Set(car.AttributeGraphicsClass, v.GraphicsClass.Code())
	}
	if v.SizeClassH != slot.SizeClassAny {
		attrs.Set(car.AttributeSizeClassHorizontal, v.SizeClassH.Code())
	}
	if v.SizeClassV != slot.SizeClassAny {
		attrs.Set(car.AttributeSizeClassVertical, v.SizeClassV.Code())
	}
	if v.DisplayGamut != slot.GamutSRGB {
		attrs.Set(car.AttributeDisplayGamut, v.DisplayGamut.Code())
	}
	if v.Direction != slot.DirectionAny {
		attrs.Set(car.AttributeDirection, v.Direction.Code())
	}
	return attrs
}
