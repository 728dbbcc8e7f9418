package stations

import "strings"

// maxLineDepth bounds the walk into children when a node carries no line
// fields of its own
const maxLineDepth = 3

// DeriveLines extracts the lines of the catalog's mode serving node.
//
// Sources in priority order: the mode's line group, flat lines tagged with
// the mode (untagged entries count only when the catalog knows the id), the
// union over children. Never fails; unknown shapes yield no lines.
func DeriveLines(node Node, catalog *Catalog) []Line {
	return uniqueLines(deriveLines(node, catalog, 0))
}

func deriveLines(node Node, catalog *Catalog, depth int) []Line {
	mode := catalog.Mode()

	if len(node.LineGroups) > 0 {
		var ids []string
		for _, g := range node.LineGroups {
			if strings.EqualFold(g.Mode, mode) {
				ids = append(ids, g.LineIDs...)
			}
		}
		if len(ids) > 0 {
			return linesFromIDs(ids, catalog)
		}
	}

	if len(node.FlatLines) > 0 {
		var lines []Line
		for _, ref := range node.FlatLines {
			if ref.Mode != "" && !strings.EqualFold(ref.Mode, mode) {
				continue
			}
			if ref.Mode == "" {
				if _, known := catalog.Lookup(ref.ID); !known {
					continue
				}
			}
			lines = append(lines, catalog.Line(ref.ID))
		}
		if len(lines) > 0 {
			return lines
		}
	}

	if depth >= maxLineDepth {
		return nil
	}
	var lines []Line
	for _, child := range node.Children {
		lines = append(lines, deriveLines(child, catalog, depth+1)...)
	}
	return lines
}

func linesFromIDs(ids []string, catalog *Catalog) []Line {
	lines := make([]Line, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		lines = append(lines, catalog.Line(id))
	}
	return lines
}
