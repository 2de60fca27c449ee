package colorutil

import "testing"

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#de8da0")
	if err != nil {
		t.Fatal(err)
	}
	if c.R != 0xde || c.G != 0x8d || c.B != 0xa0 || c.A != 255 {
		t.Errorf("unexpected color %+v", c)
	}
}

func TestParseHexRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "#fff", "de8da0", "#zzzzzz"} {
		if _, err := ParseHex(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}
