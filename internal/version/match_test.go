package version

import "testing"

type entry struct {
	name    string
	version string
	tag     string
}

func (e entry) PackageName() string    { return e.name }
func (e entry) PackageVersion() string { return e.version }

func TestMatchFiltersAndSorts(t *testing.T) {
	entries := []entry{
		{"foo", "1.10", "a"},
		{"bar", "9.0", "b"},
		{"foo", "1.9", "c"},
		{"foo", "1.2rc1", "d"},
		{"foo", "0.5", "e"},
	}

	got := Match(entries, "foo", ParseOp(">="), "1.0")
	want := []string{"d", "c", "a"}
	if len(got) != len(want) {
		t.Fatalf("Match returned %d entries, want %d", len(got), len(want))
	}
	for i, e := range got {
		if e.tag != want[i] {
			t.Errorf("Match[%d] = %s, want %s", i, e.tag, want[i])
		}
	}
}

func TestMatchStableOnTies(t *testing.T) {
	entries := []entry{
		{"foo", "1.0", "first"},
		{"foo", "1.0", "second"},
	}
	got := Match(entries, "foo", OpDefault, "0")
	if got[0].tag != "first" || got[1].tag != "second" {
		t.Errorf("ties must keep catalog order, got %s then %s", got[0].tag, got[1].tag)
	}

	newest, ok := Newest(entries, MustParseSpecifier("foo"))
	if !ok || newest.tag != "second" {
		t.Errorf("Newest = %+v, want the later of two equal versions", newest)
	}
}

func TestNewestNoMatch(t *testing.T) {
	entries := []entry{{"foo", "1.0", "a"}}
	if _, ok := Newest(entries, MustParseSpecifier("foo>2")); ok {
		t.Error("expected no match")
	}
	if _, ok := Newest(entries, MustParseSpecifier("missing")); ok {
		t.Error("expected no match for unknown name")
	}
}
