// Package i18n serves localized template strings by dotted key with an
// automatic fallback language. A missing key renders as the key itself.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// FallbackLanguage is always loaded and consulted for keys missing from the
// selected language.
const FallbackLanguage = "en_US"

//go:embed locales/*.yaml
var locales embed.FS

// Catalog is safe for concurrent use.
type Catalog struct {
	lang     string
	strings  map[string]string
	fallback map[string]string
	avail    []string

	mu      sync.Mutex
	missing map[string]struct{}
}

// Load builds a catalog for lang ("pt_BR", "pt-BR", "pt" all match). An
// unsupported language falls back to FallbackLanguage.
func Load(lang string) (*Catalog, error) {
	return load(locales, lang)
}

func load(fsys fs.FS, lang string) (*Catalog, error) {
	avail, err := available(fsys)
	if err != nil {
		return nil, err
	}

	fallback, err := readLocale(fsys, FallbackLanguage)
	if err != nil {
		return nil, fmt.Errorf("loading fallback locale: %w", err)
	}

	c := &Catalog{
		lang:     match(lang, avail),
		fallback: fallback,
		avail:    avail,
		missing:  make(map[string]struct{}),
	}

	if c.lang == FallbackLanguage {
		c.strings = fallback
		return c, nil
	}

	c.strings, err = readLocale(fsys, c.lang)
	if err != nil {
		return nil, fmt.Errorf("loading locale %s: %w", c.lang, err)
	}
	return c, nil
}

func available(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "locales")
	if err != nil {
		return nil, fmt.Errorf("reading locales: %w", err)
	}
	var out []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// match picks the best available locale for the requested language tag.
func match(lang string, avail []string) string {
	if lang == "" {
		return FallbackLanguage
	}

	tags := make([]language.Tag, 0, len(avail)+1)
	// The first tag is the matcher's default, so the fallback goes first.
	tags = append(tags, language.MustParse(toBCP47(FallbackLanguage)))
	names := []string{FallbackLanguage}
	for _, a := range avail {
		if a == FallbackLanguage {
			continue
		}
		t, err := language.Parse(toBCP47(a))
		if err != nil {
			continue
		}
		tags = append(tags, t)
		names = append(names, a)
	}

	want, err := language.Parse(toBCP47(lang))
	if err != nil {
		return FallbackLanguage
	}
	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return FallbackLanguage
	}
	return names[idx]
}

func toBCP47(s string) string {
	return strings.ReplaceAll(s, "_", "-")
}

func readLocale(fsys fs.FS, lang string) (map[string]string, error) {
	data, err := fs.ReadFile(fsys, path.Join("locales", lang+".yaml"))
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", lang, err)
	}
	flat := make(map[string]string)
	flatten("", tree, flat)
	return flat, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Get returns the string for a dotted key, the fallback translation, or the
// key itself.
func (c *Catalog) Get(key string) string {
	if v, ok := c.strings[key]; ok {
		return v
	}
	if v, ok := c.fallback[key]; ok {
		return v
	}
	c.mu.Lock()
	c.missing[key] = struct{}{}
	c.mu.Unlock()
	return key
}

// Has reports whether key resolves in the selected or fallback language.
func (c *Catalog) Has(key string) bool {
	if _, ok := c.strings[key]; ok {
		return true
	}
	_, ok := c.fallback[key]
	return ok
}

// Format returns Get(key) with {name} placeholders replaced from args.
// Unknown placeholders are left untouched.
func (c *Catalog) Format(key string, args map[string]string) string {
	s := c.Get(key)
	if len(args) == 0 {
		return s
	}
	// Sorted so the replacement is deterministic.
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	sort.Strings(names)
	pairs := make([]string, 0, 2*len(args))
	for _, k := range names {
		pairs = append(pairs, "{"+k+"}", args[k])
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func (c *Catalog) Language() string { return c.lang }

func (c *Catalog) Available() []string {
	return append([]string(nil), c.avail...)
}

// MissingKeys returns the keys requested so far that resolved nowhere.
func (c *Catalog) MissingKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.missing))
	for k := range c.missing {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type Completeness struct {
	Status      string   `json:"status"`
	MissingKeys []string `json:"missing_keys"`
	Percentage  float64  `json:"completion_percentage"`
}

// Completeness compares the selected language against the fallback.
func (c *Catalog) Completeness() Completeness {
	var missing []string
	for k := range c.fallback {
		if _, ok := c.strings[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)

	res := Completeness{Status: "complete", MissingKeys: missing, Percentage: 100}
	if missing == nil {
		res.MissingKeys = []string{}
	}
	if len(missing) > 0 && len(c.fallback) > 0 {
		res.Status = "incomplete"
		done := float64(len(c.fallback)-len(missing)) / float64(len(c.fallback)) * 100
		res.Percentage = float64(int(done*100)) / 100
	}
	return res
}

// Status is the i18n block reported by server_status.
type Status struct {
	Language     string       `json:"current_language"`
	Fallback     string       `json:"fallback_language"`
	Available    []string     `json:"available_languages"`
	Completeness Completeness `json:"completeness"`
	MissingCount int          `json:"missing_keys_count"`
}

func (c *Catalog) Status() Status {
	return Status{
		Language:     c.lang,
		Fallback:     FallbackLanguage,
		Available:    c.Available(),
		Completeness: c.Completeness(),
		MissingCount: len(c.MissingKeys()),
	}
}
