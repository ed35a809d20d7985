package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ExamConfig describes one exam type and the source files of its two load tiers.
type ExamConfig struct {
	Name       string   `koanf:"name"`
	Aliases    []string `koanf:"aliases"`
	ScoreBased bool     `koanf:"score_based"`
	Essential  []string `koanf:"essential"`
	Full       []string `koanf:"full"`
}

// Catalog is the set of configured exam types. Exam types form an open set: the engine
// knows only what the catalog lists.
type Catalog struct {
	exams   map[string]ExamConfig
	aliases map[string]string
}

// NewCatalog builds a catalog, rejecting empty or duplicate names.
func NewCatalog(exams []ExamConfig) (*Catalog, error) {
	c := &Catalog{
		exams:   make(map[string]ExamConfig, len(exams)),
		aliases: make(map[string]string),
	}
	for _, e := range exams {
		name := canonical(e.Name)
		if name == "" {
			return nil, fmt.Errorf("exam catalog: entry with empty name")
		}
		if _, dup := c.exams[name]; dup {
			return nil, fmt.Errorf("exam catalog: duplicate exam %q", e.Name)
		}
		e.Name = name
		c.exams[name] = e
		for _, a := range e.Aliases {
			if a = canonical(a); a != "" {
				c.aliases[a] = name
			}
		}
	}
	return c, nil
}

// Lookup resolves an exam name or alias, case-insensitively.
func (c *Catalog) Lookup(name string) (ExamConfig, bool) {
	key := canonical(name)
	if e, ok := c.exams[key]; ok {
		return e, true
	}
	if target, ok := c.aliases[key]; ok {
		e, ok := c.exams[target]
		return e, ok
	}
	return ExamConfig{}, false
}

// Names returns the canonical exam names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.exams))
	for n := range c.exams {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of configured exams.
func (c *Catalog) Len() int {
	return len(c.exams)
}

// LoadCatalog reads a YAML exam catalog. Relative source paths are resolved against
// dataDir, which may itself be an s3://bucket/prefix; s3:// locations are kept as-is.
//
//	exams:
//	  - name: jee-main
//	    aliases: [jee, mains]
//	    essential: [jee_main_2024.json]
//	    full: [jee_main_archive.csv, jee_main.sqlite]
func LoadCatalog(path, dataDir string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load exam catalog %s: %w", path, err)
	}

	var exams []ExamConfig
	if err := k.Unmarshal("exams", &exams); err != nil {
		return nil, fmt.Errorf("failed to decode exam catalog %s: %w", path, err)
	}

	for i := range exams {
		exams[i].Essential = resolvePaths(exams[i].Essential, dataDir)
		exams[i].Full = resolvePaths(exams[i].Full, dataDir)
	}
	return NewCatalog(exams)
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog(dataDir string) *Catalog {
	exams := []ExamConfig{
		{
			Name:      "jee-main",
			Aliases:   []string{"jee", "jee_main", "jeemain", "josaa"},
			Essential: []string{"jee_main_essential.json"},
			Full:      []string{"jee_main_full.json", "jee_main_full.csv"},
		},
		{
			Name:      "jee-advanced",
			Aliases:   []string{"jee_advanced", "jeeadv", "iit"},
			Essential: []string{"jee_advanced_essential.json"},
			Full:      []string{"jee_advanced_full.json"},
		},
		{
			Name:      "neet",
			Aliases:   []string{"neet-ug", "neet_ug", "mcc"},
			Essential: []string{"neet_essential.json"},
			Full:      []string{"neet_full.json", "neet_full.csv"},
		},
		{
			Name:       "cuet",
			Aliases:    []string{"cuet-ug", "cuet_ug"},
			ScoreBased: true,
			Essential:  []string{"cuet_essential.json"},
			Full:       []string{"cuet_full.json"},
		},
	}
	for i := range exams {
		exams[i].Essential = resolvePaths(exams[i].Essential, dataDir)
		exams[i].Full = resolvePaths(exams[i].Full, dataDir)
	}
	c, _ := NewCatalog(exams)
	return c
}

func resolvePaths(paths []string, dataDir string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
			continue
		case strings.HasPrefix(p, "s3://"), filepath.IsAbs(p), dataDir == "":
			out = append(out, p)
		case strings.HasPrefix(dataDir, "s3://"):
			out = append(out, strings.TrimRight(dataDir, "/")+"/"+strings.TrimLeft(p, "/"))
		default:
			out = append(out, filepath.Join(dataDir, p))
		}
	}
	return out
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
