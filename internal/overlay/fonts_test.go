package overlay

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"

	"golang.org/x/image/font/gofont/goregular"
)

func fontFS(names ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, n := range names {
		fsys[n] = &fstest.MapFile{Data: goregular.TTF}
	}
	return fsys
}

func TestFontBaseName(t *testing.T) {
	tests := map[string]string{
		"Helvetica-Bold":   "Helvetica",
		"Roboto-Regular":   "Roboto",
		"OpenSans-Italic":  "OpenSans",
		"Arial":            "Arial",
		"DejaVu Sans":      "DejaVu Sans",
		"Lato-Bold-Italic": "Lato",
	}
	for in, want := range tests {
		if got := fontBaseName(in); got != want {
			t.Errorf("fontBaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExactFontMatch(t *testing.T) {
	listing := []string{"Arial.otf", "Arial.ttf", "Other.ttf"}

	got := exactFontMatch(listing, "Arial", "Arial")
	if want := []string{"Arial.ttf", "Arial.otf"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v (extension order .ttf, .otf, .ttc)", got, want)
	}
	if got := exactFontMatch(listing, "arial", "arial"); len(got) != 0 {
		t.Errorf("exact match should be case-sensitive, got %v", got)
	}
}

func TestVariantFontMatch(t *testing.T) {
	tests := []struct {
		name    string
		listing []string
		family  string
		want    []string
	}{
		{"spaces to hyphens", []string{"Open-Sans.ttf"}, "Open Sans", []string{"Open-Sans.ttf"}},
		{"hyphens to spaces", []string{"Open Sans.ttf"}, "Open-Sans", []string{"Open Sans.ttf"}},
		{"base name", []string{"Roboto.ttf"}, "Roboto-Regular", []string{"Roboto.ttf"}},
		{"base plus -Bold", []string{"Lato-Bold.otf"}, "Lato-Italic", []string{"Lato-Bold.otf"}},
		{"base plus space Bold", []string{"Lato Bold.ttc"}, "Lato-Regular", []string{"Lato Bold.ttc"}},
		{"excludes exact hit", []string{"Roboto.ttf"}, "Roboto", nil},
		{"variant order", []string{"Lato Bold.ttf", "Lato-Bold.ttf", "Lato.ttf"}, "Lato-Italic",
			[]string{"Lato.ttf", "Lato-Bold.ttf", "Lato Bold.ttf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := variantFontMatch(tt.listing, tt.family, fontBaseName(tt.family))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanFontMatch(t *testing.T) {
	listing := []string{"LICENSE.txt", "NotoSans-Bold.TTF", "notosans-regular.ttf", "NotoSansMono.woff2"}

	got := scanFontMatch(listing, "NotoSans-Regular", "NotoSans")
	want := []string{"NotoSans-Bold.TTF", "notosans-regular.ttf"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := scanFontMatch(listing, "Helvetica", "Helvetica"); len(got) != 0 {
		t.Errorf("expected no match, got %v", got)
	}
}

func TestResolveStrategyOrder(t *testing.T) {
	dirs := []FontDir{
		{Path: "/fonts/a", FS: fontFS("Helvetica Neue.ttf", "SuperHelvetica.ttf")},
		{Path: "/fonts/b", FS: fontFS("Helvetica.ttf")},
	}
	r := NewFontResolverFS(dirs, false, testLogger())

	tests := []struct {
		family string
		want   string
	}{
		// exact hit in the first directory
		{"Helvetica Neue", filepath.Join("/fonts/a", "Helvetica Neue.ttf")},
		// first directory wins even if only the substring scan matches there
		{"Helvetica", filepath.Join("/fonts/a", "Helvetica Neue.ttf")},
		{"Helvetica-Neue", filepath.Join("/fonts/a", "Helvetica Neue.ttf")},
	}
	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			if got := r.Resolve(tt.family); got.Path != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.family, got.Path, tt.want)
			}
		})
	}
}

func TestResolveDefaultMarker(t *testing.T) {
	r := NewFontResolverFS([]FontDir{{Path: "/fonts", FS: fontFS("DejaVuSans.ttf")}}, false, testLogger())

	if f := r.Resolve(""); !f.IsDefault() {
		t.Errorf("empty family should resolve to default, got %q", f.Path)
	}
	if f := r.Resolve("   "); !f.IsDefault() {
		t.Errorf("blank family should resolve to default, got %q", f.Path)
	}
	// Helvetica-Bold is not installed: fall back, never fail.
	if f := r.Resolve("Helvetica-Bold"); !f.IsDefault() {
		t.Errorf("missing family should resolve to default, got %q", f.Path)
	}
}

func TestResolveSkipsMissingDirectories(t *testing.T) {
	r := NewFontResolver([]string{filepath.Join(t.TempDir(), "does-not-exist")}, true, testLogger())
	if f := r.Resolve("Arial"); !f.IsDefault() {
		t.Errorf("expected default, got %q", f.Path)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	fsys := fontFS("Roboto-Bold.ttf", "Roboto-Light.ttf", "Roboto-Regular.ttf", "Roboto.otf", "RobotoMono.ttf")
	r := NewFontResolverFS([]FontDir{{Path: "/f", FS: fsys}}, false, testLogger())

	for _, family := range []string{"Roboto", "Roboto-Italic", "robotomono", "Roboto Condensed"} {
		first := r.Resolve(family)
		for i := 0; i < 20; i++ {
			if got := r.Resolve(family); got != first {
				t.Fatalf("Resolve(%q) changed between calls: %q then %q", family, first.Path, got.Path)
			}
		}
	}
}

func TestResolveVerifiesFonts(t *testing.T) {
	fsys := fstest.MapFS{
		"Brand.ttf":      &fstest.MapFile{Data: []byte("this is not a font")},
		"Brand-Bold.ttf": &fstest.MapFile{Data: goregular.TTF},
	}
	dirs := []FontDir{{Path: "/f", FS: fsys}}

	if got := NewFontResolverFS(dirs, false, testLogger()).Resolve("Brand"); got.Path != filepath.Join("/f", "Brand.ttf") {
		t.Errorf("without verification the exact file wins, got %q", got.Path)
	}
	if got := NewFontResolverFS(dirs, true, testLogger()).Resolve("Brand"); got.Path != filepath.Join("/f", "Brand-Bold.ttf") {
		t.Errorf("with verification the broken file is skipped, got %q", got.Path)
	}
}

func TestResolveRealDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "GoRegular.ttf"), goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewFontResolver([]string{dir}, true, testLogger())
	if got := r.Resolve("GoRegular"); got.Path != filepath.Join(dir, "GoRegular.ttf") {
		t.Errorf("got %q", got.Path)
	}
}
