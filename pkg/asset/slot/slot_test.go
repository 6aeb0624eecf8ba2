package slot

import "testing"

func TestIdiomRoundTrip(t *testing.T) {
	cases := []struct {
		str  string
		want Idiom
		code uint16
	}{
		{"universal", IdiomUniversal, 0},
		{"phone", IdiomPhone, 1},
		{"pad", IdiomPad, 2},
		{"tv", IdiomTV, 3},
		{"car", IdiomCar, 4},
		{"watch", IdiomWatch, 5},
		{"marketing", IdiomMarketing, 6},
	}
	for _, tc := range cases {
		t.Run(tc.str, func(t *testing.T) {
			idiom, ok := ParseIdiom(tc.str)
			if !ok || idiom != tc.want {
				t.Fatalf("ParseIdiom(%q) = (%v, %v)", tc.str, idiom, ok)
			}
			if idiom.Code() != tc.code {
				t.Errorf("Code = %d, want %d", idiom.Code(), tc.code)
			}
			if idiom.String() != tc.str {
				t.Errorf("String = %q, want %q", idiom.String(), tc.str)
			}
			back, ok := IdiomFromCode(tc.code)
			if !ok || back != tc.want {
				t.Errorf("IdiomFromCode(%d) = (%v, %v)", tc.code, back, ok)
			}
		})
	}
}

func TestDesktopIdiomSharesUniversalCode(t *testing.T) {
	idiom, ok := ParseIdiom("mac")
	if !ok || idiom != IdiomDesktop {
		t.Fatalf("ParseIdiom(mac) = (%v, %v)", idiom, ok)
	}
	if idiom.Code() != 0 {
		t.Errorf("desktop code = %d, want 0", idiom.Code())
	}
}

func TestUnknownStringsRejected(t *testing.T) {
	if _, ok := ParseIdiom("fridge"); ok {
		t.Error("ParseIdiom should reject unknown idiom")
	}
	if _, ok := ParseAppearance("sepia"); ok {
		t.Error("ParseAppearance should reject unknown appearance")
	}
	if _, ok := ParseScale("2.5x"); ok {
		t.Error("ParseScale should reject fractional scale")
	}
	if _, ok := ParseScale("2"); ok {
		t.Error("ParseScale should reject missing suffix")
	}
	if _, ok := ParseMemoryClass("8GB"); ok {
		t.Error("ParseMemoryClass should reject unknown class")
	}
}

func TestUnknownCodesRejected(t *testing.T) {
	if _, ok := IdiomFromCode(99); ok {
		t.Error("IdiomFromCode should reject unknown code")
	}
	if _, ok := AppearanceFromCode(9); ok {
		t.Error("AppearanceFromCode should reject unknown code")
	}
	if _, ok := GraphicsClassFromCode(9); ok {
		t.Error("GraphicsClassFromCode should reject unknown code")
	}
}

func TestScaleParse(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Scale
	}{{"1x", 1}, {"2x", 2}, {"3x", 3}} {
		got, ok := ParseScale(tc.in)
		if !ok || got != tc.want {
			t.Errorf("ParseScale(%q) = (%v, %v), want %v", tc.in, got, ok, tc.want)
		}
		if got.String() != tc.in {
			t.Errorf("String = %q, want %q", got.String(), tc.in)
		}
	}
}

func TestSubtypeWatchSizes(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Subtype
	}{{"38mm", SubtypeWatch38mm}, {"40mm", SubtypeWatch40mm}, {"42mm", SubtypeWatch42mm}, {"44mm", SubtypeWatch44mm}} {
		got, ok := ParseSubtype(tc.in)
		if !ok || got != tc.want {
			t.Errorf("ParseSubtype(%q) = (%v, %v), want %v", tc.in, got, ok, tc.want)
		}
	}
	if _, ok := ParseSubtype("46mm"); ok {
		t.Error("ParseSubtype should reject unknown size")
	}
}
