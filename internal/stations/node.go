package stations

import (
	"strings"

	"github.com/Never2333/tfl-status/internal/tfl"
)

// Kind is the granularity of a directory node
type Kind int

const (
	KindUnknown Kind = iota
	KindHub
	KindStation
	KindPlatform
)

func (k Kind) String() string {
	switch k {
	case KindHub:
		return "hub"
	case KindStation:
		return "station"
	case KindPlatform:
		return "platform"
	default:
		return "unknown"
	}
}

const (
	// stationPrefix is the NaPTAN namespace of station-granularity nodes
	stationPrefix  = "940G"
	platformPrefix = "9400"
	hubPrefix      = "HUB"
)

// Classify infers a node's granularity from its id prefix and stop type.
// It is the only place raw identifiers are interpreted.
func Classify(id, stopType string) Kind {
	t := strings.ToLower(stopType)
	switch {
	case strings.HasPrefix(id, hubPrefix) || strings.Contains(t, "transportinterchange"):
		return KindHub
	case strings.Contains(t, "platform") || strings.HasPrefix(id, platformPrefix):
		return KindPlatform
	case strings.HasPrefix(id, stationPrefix) && (t == "" || strings.Contains(t, "station") || strings.Contains(t, "metro")):
		return KindStation
	default:
		return KindUnknown
	}
}

// LineGroup is a mode-partitioned list of line ids
type LineGroup struct {
	Mode    string
	LineIDs []string
}

// LineRef is an entry of a flat line listing. Mode is empty when upstream
// did not tag the entry.
type LineRef struct {
	ID   string
	Name string
	Mode string
}

// Node is a raw directory node after classification
type Node struct {
	ID         string
	Name       string
	Kind       Kind
	StopType   string
	Modes      []string
	ParentID   string
	Children   []Node
	LineGroups []LineGroup
	FlatLines  []LineRef
}

// HasMode reports whether the node lists mode, or lists no modes at all
func (n Node) HasMode(mode string) bool {
	if len(n.Modes) == 0 {
		return true
	}
	for _, m := range n.Modes {
		if strings.EqualFold(m, mode) {
			return true
		}
	}
	return false
}

// NodeFromStopPoint converts an upstream stop point, children included
func NodeFromStopPoint(sp tfl.StopPoint) Node {
	n := Node{
		ID:       sp.ID,
		Name:     sp.DisplayName(),
		Kind:     Classify(sp.ID, sp.StopType),
		StopType: sp.StopType,
		Modes:    sp.Modes,
		ParentID: sp.ParentID,
	}
	for _, g := range sp.LineModeGroups {
		n.LineGroups = append(n.LineGroups, LineGroup{Mode: g.ModeName, LineIDs: g.LineIdentifier})
	}
	for _, l := range sp.Lines {
		if l.ID == "" {
			continue
		}
		n.FlatLines = append(n.FlatLines, LineRef{ID: l.ID, Name: l.Name, Mode: l.ModeName})
	}
	for _, c := range sp.Children {
		n.Children = append(n.Children, NodeFromStopPoint(c))
	}
	return n
}
