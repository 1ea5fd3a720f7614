package overlay

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/sfnt"

	"adstudio/internal/metrics"
	"adstudio/internal/pkg/logger"
)

var (
	fontExtensions = []string{".ttf", ".otf", ".ttc"}
	styleSuffixes  = []string{"-Bold", "-Regular", "-Italic"}
)

// ResolvedFont is either a font file path or the platform default marker.
type ResolvedFont struct {
	Path string
}

// DefaultFont tells the compositor to leave the font unset.
var DefaultFont = ResolvedFont{}

// IsDefault reports whether no concrete file was found.
func (f ResolvedFont) IsDefault() bool { return f.Path == "" }

// FontDir is one searchable font directory.
type FontDir struct {
	// Path is joined with matched file names to build the resolved path.
	Path string
	FS   fs.FS
}

// fontStrategy returns candidate file names from a single directory listing,
// best first. listing is sorted and names are bare file names.
type fontStrategy func(listing []string, name, base string) []string

// fontStrategies run in this order for each directory.
var fontStrategies = []struct {
	name string
	fn   fontStrategy
}{
	{"exact", exactFontMatch},
	{"variant", variantFontMatch},
	{"scan", scanFontMatch},
}

// FontResolver maps a font family name to a font file.
type FontResolver struct {
	dirs   []FontDir
	verify bool
	log    *logger.Logger
}

// NewFontResolver searches the given OS directories in order.
func NewFontResolver(dirs []string, verify bool, log *logger.Logger) *FontResolver {
	fd := make([]FontDir, 0, len(dirs))
	for _, d := range dirs {
		fd = append(fd, FontDir{Path: d, FS: os.DirFS(d)})
	}
	return NewFontResolverFS(fd, verify, log)
}

// NewFontResolverFS searches arbitrary file systems, mostly for tests.
func NewFontResolverFS(dirs []FontDir, verify bool, log *logger.Logger) *FontResolver {
	return &FontResolver{dirs: dirs, verify: verify, log: log.WithComponent("fonts")}
}

// Resolve never fails: anything it cannot find becomes DefaultFont.
func (r *FontResolver) Resolve(family string) ResolvedFont {
	family = strings.TrimSpace(family)
	if family == "" {
		metrics.FontResolutions.WithLabelValues("default").Inc()
		return DefaultFont
	}
	base := fontBaseName(family)

	for _, dir := range r.dirs {
		listing, ok := fontListing(dir.FS)
		if !ok {
			continue
		}
		for _, s := range fontStrategies {
			for _, candidate := range s.fn(listing, family, base) {
				if r.verify && !isParseableFont(dir.FS, candidate) {
					r.log.Debug("skipping unparseable font", "dir", dir.Path, "file", candidate)
					continue
				}
				resolved := ResolvedFont{Path: filepath.Join(dir.Path, candidate)}
				r.log.Debug("font resolved", "family", family, "strategy", s.name, "path", resolved.Path)
				metrics.FontResolutions.WithLabelValues("path").Inc()
				return resolved
			}
		}
	}

	r.log.Info("font not found, using default", "family", family)
	metrics.FontResolutions.WithLabelValues("default").Inc()
	return DefaultFont
}

// fontBaseName strips style suffixes such as "-Bold".
func fontBaseName(name string) string {
	base := name
	for _, s := range styleSuffixes {
		base = strings.ReplaceAll(base, s, "")
	}
	return base
}

// fontListing returns the sorted regular file names of a directory. A
// missing or unreadable directory is skipped.
func fontListing(fsys fs.FS) ([]string, bool) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, false
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, e.Name())
	}
	return out, true
}

func withExtensions(names ...string) []string {
	out := make([]string, 0, len(names)*len(fontExtensions))
	seen := make(map[string]bool, cap(out))
	for _, n := range names {
		for _, ext := range fontExtensions {
			c := n + ext
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func present(listing []string, candidates []string) []string {
	set := make(map[string]bool, len(listing))
	for _, n := range listing {
		set[n] = true
	}
	var out []string
	for _, c := range candidates {
		if set[c] {
			out = append(out, c)
		}
	}
	return out
}

func exactFontMatch(listing []string, name, _ string) []string {
	return present(listing, withExtensions(name))
}

// variantFontMatch tries spaces/hyphens swapped, then the base name and its
// bold spellings.
func variantFontMatch(listing []string, name, base string) []string {
	variants := []string{
		strings.ReplaceAll(name, " ", "-"),
		strings.ReplaceAll(name, "-", " "),
		base,
		base + "-Bold",
		base + " Bold",
	}
	exact := make(map[string]bool)
	for _, c := range withExtensions(name) {
		exact[c] = true
	}
	var out []string
	for _, c := range present(listing, withExtensions(variants...)) {
		if !exact[c] {
			out = append(out, c)
		}
	}
	return out
}

// scanFontMatch is the last resort: case-insensitive substring match of the
// raw or base name against every font file name.
func scanFontMatch(listing []string, name, base string) []string {
	lname, lbase := strings.ToLower(name), strings.ToLower(base)
	var out []string
	for _, file := range listing {
		ext := strings.ToLower(path.Ext(file))
		if !hasFontExtension(ext) {
			continue
		}
		lfile := strings.ToLower(file)
		if strings.Contains(lfile, lname) || (lbase != "" && strings.Contains(lfile, lbase)) {
			out = append(out, file)
		}
	}
	return out
}

func hasFontExtension(ext string) bool {
	for _, e := range fontExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func isParseableFont(fsys fs.FS, name string) bool {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return false
	}
	if strings.EqualFold(path.Ext(name), ".ttc") {
		c, err := sfnt.ParseCollection(data)
		return err == nil && c.NumFonts() > 0
	}
	_, err = sfnt.Parse(data)
	return err == nil
}
