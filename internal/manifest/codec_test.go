package manifest

import (
	"errors"
	"strings"
	"testing"
)

func sampleManifest(t *testing.T) *Manifest {
	t.Helper()
	m := New("/srv/pkgs")
	pkgs := []Package{
		{Name: "zlib", Version: "1.3", Revision: "1", Archive: "zlib-1.3-1.tar.gz", Size: 91234, Checksum: "9f86d081884c7d65"},
		{Name: "curl", Version: "8.5.0", Revision: "2", Archive: "curl-8.5.0-2.tar.gz", Size: 812311,
			Requirements: []string{"zlib>=1.2", "openssl"}},
		{Name: "my-lib-pkg", Version: "1.2.3", Revision: "4", Archive: "my-lib-pkg-1.2.3-4.tar.gz", Size: 10},
	}
	for _, p := range pkgs {
		if err := m.Append(p); err != nil {
			t.Fatalf("Append(%s): %v", p.Archive, err)
		}
	}
	return m
}

func TestSerializeFormat(t *testing.T) {
	got := string(Serialize(sampleManifest(t)))
	want := Header + "\n" +
		"zlib-1.3-1.tar.gz|91234|zlib|1.3|1|0|*|9f86d081884c7d65\n" +
		"curl-8.5.0-2.tar.gz|812311|curl|8.5.0|2|2|zlib>=1.2,openssl|*\n" +
		"my-lib-pkg-1.2.3-4.tar.gz|10|my-lib-pkg|1.2.3|4|0|*|*\n"
	if got != want {
		t.Errorf("Serialize =\n%s\nwant\n%s", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	m := sampleManifest(t)
	back, err := Deserialize(Serialize(m), "https://mirror.example/pkgs")
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if back.Len() != m.Len() {
		t.Fatalf("Len = %d, want %d", back.Len(), m.Len())
	}
	for i, p := range m.Packages {
		q := back.Packages[i]
		if p.Key() != q.Key() || p.Archive != q.Archive || p.Checksum != q.Checksum || p.Size != q.Size {
			t.Errorf("package %d: got %+v, want %+v", i, q, p)
		}
		if strings.Join(p.Requirements, ",") != strings.Join(q.Requirements, ",") {
			t.Errorf("package %d requirements: got %v, want %v", i, q.Requirements, p.Requirements)
		}
		if q.Origin != "https://mirror.example/pkgs" {
			t.Errorf("package %d origin = %s", i, q.Origin)
		}
	}
	if back.Origin != "https://mirror.example/pkgs" {
		t.Errorf("manifest origin = %s", back.Origin)
	}
}

func TestDeserializeToleratesBlankLinesAndCRLF(t *testing.T) {
	data := Header + "\r\n\r\nzlib-1.3-1.tar.gz|1|zlib|1.3|1|0|*|*\r\n\n"
	m, err := Deserialize([]byte(data), "/x")
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if m.Len() != 1 || m.Packages[0].Checksum != "" {
		t.Errorf("unexpected manifest: %+v", m.Packages)
	}
}

func TestDeserializeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"wrong header", "# other format\nzlib-1.3-1.tar.gz|1|zlib|1.3|1|0|*|*\n"},
		{"too few separators", Header + "\nzlib-1.3-1.tar.gz|1|zlib|1.3|1|0|*\n"},
		{"too many separators", Header + "\nzlib-1.3-1.tar.gz|1|zlib|1.3|1|0|*|*|extra\n"},
		{"bad size", Header + "\nzlib-1.3-1.tar.gz|big|zlib|1.3|1|0|*|*\n"},
		{"bad count", Header + "\nzlib-1.3-1.tar.gz|1|zlib|1.3|1|x|*|*\n"},
		{"count mismatch", Header + "\nzlib-1.3-1.tar.gz|1|zlib|1.3|1|2|a|*\n"},
		{"duplicate archive", Header + "\nzlib-1.3-1.tar.gz|1|zlib|1.3|1|0|*|*\nzlib-1.3-1.tar.gz|1|zlib|1.3|1|0|*|*\n"},
		{"empty name", Header + "\nzlib-1.3-1.tar.gz|1||1.3|1|0|*|*\n"},
		// A valid first record must not be returned when a later one is bad.
		{"bad record after good", Header + "\nzlib-1.3-1.tar.gz|1|zlib|1.3|1|0|*|*\nbroken\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Deserialize([]byte(tt.data), "/x")
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Deserialize error = %v, want ErrMalformed", err)
			}
			if m != nil {
				t.Errorf("partial manifest returned: %+v", m)
			}
		})
	}
}

func TestAppendRejectsDuplicatesAndSeparators(t *testing.T) {
	m := New("/x")
	p := Package{Name: "zlib", Version: "1.3", Revision: "1", Archive: "zlib-1.3-1.tar.gz"}
	if err := m.Append(p); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := m.Append(p); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate Append error = %v, want ErrDuplicate", err)
	}

	bad := []Package{
		{Name: "a|b", Version: "1", Revision: "1", Archive: "a-1-1.tar.gz"},
		{Name: "a", Version: "1", Revision: "1", Archive: "a-1-1.tar.gz", Requirements: []string{"x,y"}},
		{Name: "a", Version: "", Revision: "1", Archive: "a-1-1.tar.gz"},
	}
	for _, b := range bad {
		if err := New("/x").Append(b); err == nil {
			t.Errorf("Append(%+v) should fail", b)
		}
	}
}

func TestAppendCopiesRequirements(t *testing.T) {
	reqs := []string{"zlib"}
	m := New("/x")
	if err := m.Append(Package{Name: "a", Version: "1", Revision: "1", Archive: "a-1-1.tar.gz", Requirements: reqs}); err != nil {
		t.Fatal(err)
	}
	reqs[0] = "changed"
	if m.Packages[0].Requirements[0] != "zlib" {
		t.Error("manifest shares the caller's requirement slice")
	}
}
