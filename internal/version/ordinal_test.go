package version

import "testing"

func TestEncodeNumericComponents(t *testing.T) {
	tests := []struct {
		newer string
		older string
	}{
		{"0.10", "0.9"},
		{"1.0", "0.255"},
		{"2.0.0", "1.9.9"},
		{"1.2.10", "1.2.9"},
		{"10", "9"},
		{"1.0.1", "1.0"},
		{"1.3", "1.2.13"},
		{"2", "1.0"},
		{"2", "1.9.9.9"},
		{"0.10", "0.9.1"},
	}

	for _, tt := range tests {
		t.Run(tt.newer+">"+tt.older, func(t *testing.T) {
			if Encode(tt.newer).Compare(Encode(tt.older)) != 1 {
				t.Errorf("Encode(%q)=%d should be greater than Encode(%q)=%d",
					tt.newer, Encode(tt.newer).Int64(), tt.older, Encode(tt.older).Int64())
			}
		})
	}
}

func TestEncodeModifiers(t *testing.T) {
	rc := Encode("1.0rc1")
	final := Encode("1.0")
	post := Encode("1.0.post1")

	if !rc.Less(final) {
		t.Errorf("1.0rc1 (%d) should sort before 1.0 (%d)", rc.Int64(), final.Int64())
	}
	if !final.Less(post) {
		t.Errorf("1.0 (%d) should sort before 1.0.post1 (%d)", final.Int64(), post.Int64())
	}

	for _, v := range []string{"1.0pre", "1.0dev2", "1.0RC3", "1.0.dev"} {
		if !Encode(v).Less(final) {
			t.Errorf("%s (%d) should sort before 1.0 (%d)", v, Encode(v).Int64(), final.Int64())
		}
	}
	if !Encode("1.0rc2").Less(Encode("1.0rc1")) {
		t.Error("larger pre-release numbers subtract more")
	}
	if Encode("1.0.post2").Compare(Encode("1.0.post1")) != 1 {
		t.Error("1.0.post2 should sort after 1.0.post1")
	}
}

func TestEncodeExactValues(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"0", 0},
		{"1", 1 << 40},
		{"1.0", 1 << 40},
		{"1.2.3", 1<<40 | 2<<32 | 3<<24},
		{"1.0rc1", 1<<40 - 1},
		{"1.0.post1", 1<<40 + 1},
		{"1.0.post", 1<<40 + 1},
		{"2a3", 2<<40 + 13},
		{"1.2b", 1<<40 | 2<<32 + 11},
		{"1..2", 1<<40 | 2<<24},
		{"v1.0", 0},
		{"1.x.3", 1 << 40},
		{"1.2.3.4.5.6.7", 1<<40 | 2<<32 | 3<<24 | 4<<16 | 5<<8 | 6},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Encode(tt.in).Int64(); got != tt.want {
				t.Errorf("Encode(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeComponentAliasing(t *testing.T) {
	// 256 overflows its byte and lands in the previous component.
	if Encode("0.256") != Encode("1.0") {
		t.Errorf("Encode(0.256)=%d, Encode(1.0)=%d: expected aliasing", Encode("0.256").Int64(), Encode("1.0").Int64())
	}
}

func TestEncodeFirstModifierWins(t *testing.T) {
	if got, want := Encode("1.0rc2.post5").Int64(), int64(1<<40-2); got != want {
		t.Errorf("Encode(1.0rc2.post5) = %d, want %d", got, want)
	}
}

func TestEncodeTrailingZeros(t *testing.T) {
	if Encode("1") != Encode("1.0.0") {
		t.Errorf("Encode(1)=%d, Encode(1.0.0)=%d: trailing zero components should not change the ordinal",
			Encode("1").Int64(), Encode("1.0.0").Int64())
	}
}

func TestOrdinalZero(t *testing.T) {
	if !Encode("").IsZero() {
		t.Error("empty version should encode to zero")
	}
	if Encode("0.1").IsZero() {
		t.Error("0.1 should not encode to zero")
	}
}
