package slot

// DisplayGamut is the color gamut an asset variant targets.
type DisplayGamut int

const (
	GamutSRGB DisplayGamut = iota
	GamutP3
)

func ParseDisplayGamut(value string) (DisplayGamut, bool) {
	switch value {
	case "sRGB":
		return GamutSRGB, true
	case "display-P3":
		return GamutP3, true
	default:
		return GamutSRGB, false
	}
}

func DisplayGamutFromCode(code uint16) (DisplayGamut, bool) {
	if code > 1 {
		return GamutSRGB, false
	}
	return DisplayGamut(code), true
}

func (d DisplayGamut) Code() uint16 {
	return uint16(d)
}

func (d DisplayGamut) String() string {
	if d == GamutP3 {
		return "display-P3"
	}
	return "sRGB"
}
