package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Reserved catalog keys. They alias the descriptors of an exact release and are
// never candidates for range matching.
const (
	Latest   = "latest"
	LatestRC = "latestrc"
)

//go:embed data/*.json
var embedded embed.FS

// PackageDescriptor identifies one downloadable archive for one tool on one platform.
type PackageDescriptor struct {
	URL        string `json:"url"`
	FileName   string `json:"fileName"`
	BinPath    string `json:"binPath"`
	DropSuffix string `json:"dropSuffix"`
}

// DirName returns the archive file name with its suffix removed.
func (d PackageDescriptor) DirName() string {
	return strings.TrimSuffix(d.FileName, d.DropSuffix)
}

// Catalog is an immutable version -> platform -> descriptor table for a single tool.
type Catalog struct {
	tool     string
	releases map[string]map[Platform]PackageDescriptor
}

// New builds a catalog from the given table. The table is copied.
func New(tool string, releases map[string]map[Platform]PackageDescriptor) *Catalog {
	c := &Catalog{
		tool:     tool,
		releases: make(map[string]map[Platform]PackageDescriptor, len(releases)),
	}
	for version, platforms := range releases {
		inner := make(map[Platform]PackageDescriptor, len(platforms))
		for p, desc := range platforms {
			inner[p] = desc
		}
		c.releases[version] = inner
	}
	return c
}

// Parse decodes a JSON catalog and validates its platform keys and descriptors.
func Parse(tool string, data []byte) (*Catalog, error) {
	var raw map[string]map[string]PackageDescriptor
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s catalog: %w", tool, err)
	}

	releases := make(map[string]map[Platform]PackageDescriptor, len(raw))
	for version, platforms := range raw {
		inner := make(map[Platform]PackageDescriptor, len(platforms))
		for key, desc := range platforms {
			p, err := ParsePlatform(key)
			if err != nil {
				return nil, fmt.Errorf("%s catalog entry %s: %w", tool, version, err)
			}
			if desc.URL == "" {
				return nil, fmt.Errorf("%s catalog entry %s/%s: missing url", tool, version, key)
			}
			inner[p] = desc
		}
		releases[version] = inner
	}
	return &Catalog{tool: tool, releases: releases}, nil
}

// Embedded returns the catalog compiled into the binary for the named tool.
func Embedded(tool string) (*Catalog, error) {
	data, err := embedded.ReadFile("data/" + tool + ".json")
	if err != nil {
		return nil, fmt.Errorf("no embedded catalog for %s", tool)
	}
	return Parse(tool, data)
}

// Tool returns the tool the catalog describes.
func (c *Catalog) Tool() string {
	return c.tool
}

// Has reports whether version is a key of the catalog.
func (c *Catalog) Has(version string) bool {
	_, ok := c.releases[version]
	return ok
}

// Lookup returns the descriptor for version on platform.
func (c *Catalog) Lookup(version string, p Platform) (PackageDescriptor, bool) {
	platforms, ok := c.releases[version]
	if !ok {
		return PackageDescriptor{}, false
	}
	desc, ok := platforms[p]
	return desc, ok
}

// Versions returns every catalog key in lexical order.
func (c *Catalog) Versions() []string {
	versions := make([]string, 0, len(c.releases))
	for v := range c.releases {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// Platforms returns the platforms available for version.
func (c *Catalog) Platforms(version string) []Platform {
	platforms := c.releases[version]
	out := make([]Platform, 0, len(platforms))
	for p := range platforms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// URLs returns the distinct download URLs of all exact versions, skipping the
// reserved aliases.
func (c *Catalog) URLs() []string {
	seen := map[string]bool{}
	var urls []string
	for version, platforms := range c.releases {
		if IsReserved(version) {
			continue
		}
		for _, desc := range platforms {
			if seen[desc.URL] {
				continue
			}
			seen[desc.URL] = true
			urls = append(urls, desc.URL)
		}
	}
	sort.Strings(urls)
	return urls
}

// MarshalJSON encodes the catalog in the same shape Parse accepts.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]PackageDescriptor, len(c.releases))
	for version, platforms := range c.releases {
		inner := make(map[string]PackageDescriptor, len(platforms))
		for p, desc := range platforms {
			inner[string(p)] = desc
		}
		out[version] = inner
	}
	return json.Marshal(out)
}

// IsReserved reports whether version is one of the alias keys.
func IsReserved(version string) bool {
	return version == Latest || version == LatestRC
}
