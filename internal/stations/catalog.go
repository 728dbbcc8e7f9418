package stations

import "sort"

// Catalog maps line identifiers to display names for one mode
type Catalog struct {
	mode  string
	names map[string]string
}

// NewCatalog builds a catalog from id → display name pairs
func NewCatalog(mode string, names map[string]string) *Catalog {
	m := make(map[string]string, len(names))
	for id, name := range names {
		m[id] = name
	}
	return &Catalog{mode: mode, names: m}
}

// tubeLines is the Underground line set. Also the fixed enumeration used
// by the last bulk-build strategy. The Elizabeth line is absent: TfL files
// it under the "elizabeth-line" mode, not "tube", so an untagged
// "elizabeth" entry must not be read as a tube line.
var tubeLines = map[string]string{
	"bakerloo":         "Bakerloo",
	"central":          "Central",
	"circle":           "Circle",
	"district":         "District",
	"hammersmith-city": "Hammersmith & City",
	"jubilee":          "Jubilee",
	"metropolitan":     "Metropolitan",
	"northern":         "Northern",
	"piccadilly":       "Piccadilly",
	"victoria":         "Victoria",
	"waterloo-city":    "Waterloo & City",
}

// TubeCatalog returns the London Underground line catalog
func TubeCatalog() *Catalog {
	return NewCatalog("tube", tubeLines)
}

// Mode returns the transport mode this catalog describes
func (c *Catalog) Mode() string {
	return c.mode
}

// Lookup returns the display name for a known line id
func (c *Catalog) Lookup(id string) (string, bool) {
	name, ok := c.names[id]
	return name, ok
}

// Name returns the display name, or the raw id if the line is unknown
func (c *Catalog) Name(id string) string {
	if name, ok := c.names[id]; ok {
		return name
	}
	return id
}

// Line resolves an id into a Line value
func (c *Catalog) Line(id string) Line {
	return Line{ID: id, DisplayName: c.Name(id)}
}

// IDs returns the known line ids in sorted order
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.names))
	for id := range c.names {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
