package stations

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/tfl"
)

// DefaultMaxDepth bounds hierarchy walks over upstream data that may be cyclic
const DefaultMaxDepth = 3

// ErrDepthExceeded marks a branch abandoned at the depth cap. It is logged,
// never returned: the branch simply contributes no stations.
var ErrDepthExceeded = errors.New("stations: hierarchy depth exceeded")

// NodeFetcher fetches a node with its immediate children and parent id
type NodeFetcher interface {
	StopPoint(ctx context.Context, id string) (*tfl.StopPoint, error)
}

// HierarchyResolver collapses hub and platform nodes to the station nodes
// they represent
type HierarchyResolver struct {
	client   NodeFetcher
	mode     string
	maxDepth int
	log      *slog.Logger
}

// NewHierarchyResolver creates a resolver. maxDepth <= 0 selects DefaultMaxDepth.
func NewHierarchyResolver(client NodeFetcher, mode string, maxDepth int) *HierarchyResolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &HierarchyResolver{
		client:   client,
		mode:     mode,
		maxDepth: maxDepth,
		log:      logger.With("hierarchy"),
	}
}

// walk carries per-call state so one Resolve never fetches a node twice
type walk struct {
	fetched map[string]Node
	failed  map[string]bool
}

// Resolve returns the station-granularity nodes represented by nodeID:
// zero, one or many, deduplicated by id. Fetch failures and depth overflow
// drop the affected branch.
func (h *HierarchyResolver) Resolve(ctx context.Context, nodeID string) []Node {
	w := &walk{fetched: make(map[string]Node), failed: make(map[string]bool)}
	return dedupeNodes(h.resolveID(ctx, w, nodeID, 0))
}

// ResolveNode is Resolve for a node the caller already holds
func (h *HierarchyResolver) ResolveNode(ctx context.Context, node Node) []Node {
	w := &walk{fetched: map[string]Node{node.ID: node}, failed: make(map[string]bool)}
	return dedupeNodes(h.resolveNode(ctx, w, node, 0))
}

func (h *HierarchyResolver) resolveID(ctx context.Context, w *walk, id string, depth int) []Node {
	if depth > h.maxDepth {
		h.log.Debug("branch dropped", "node", id, "depth", depth, "error", ErrDepthExceeded)
		return nil
	}
	node, ok := h.fetch(ctx, w, id)
	if !ok {
		return nil
	}
	return h.resolveNode(ctx, w, node, depth)
}

func (h *HierarchyResolver) resolveNode(ctx context.Context, w *walk, node Node, depth int) []Node {
	switch node.Kind {
	case KindStation:
		return []Node{node}

	case KindPlatform:
		if node.ParentID == "" {
			return nil
		}
		if depth+1 > h.maxDepth {
			h.log.Debug("branch dropped", "node", node.ParentID, "depth", depth+1, "error", ErrDepthExceeded)
			return nil
		}
		parent, ok := h.fetch(ctx, w, node.ParentID)
		if !ok {
			return nil
		}
		if parent.Kind == KindStation {
			return []Node{parent}
		}
		return h.fromChildren(ctx, w, parent, depth+1)

	default:
		return h.fromChildren(ctx, w, node, depth)
	}
}

// fromChildren prefers station children; failing that, it maps platform
// children to their parents.
func (h *HierarchyResolver) fromChildren(ctx context.Context, w *walk, node Node, depth int) []Node {
	var stations []Node
	for _, c := range node.Children {
		if c.Kind == KindStation && c.HasMode(h.mode) {
			stations = append(stations, c)
		}
	}
	if len(stations) > 0 {
		return stations
	}

	var out []Node
	for _, c := range node.Children {
		if c.Kind != KindPlatform {
			continue
		}
		switch {
		case c.ParentID == node.ID:
			// the platform points back at the node being expanded
			continue
		case c.ParentID != "":
			out = append(out, h.resolveID(ctx, w, c.ParentID, depth+1)...)
		default:
			out = append(out, h.resolveID(ctx, w, c.ID, depth+1)...)
		}
	}
	return out
}

func (h *HierarchyResolver) fetch(ctx context.Context, w *walk, id string) (Node, bool) {
	if n, ok := w.fetched[id]; ok {
		return n, true
	}
	if w.failed[id] || ctx.Err() != nil {
		return Node{}, false
	}
	sp, err := h.client.StopPoint(ctx, id)
	if err != nil {
		w.failed[id] = true
		h.log.Debug("node fetch failed", "node", id, "error", err)
		return Node{}, false
	}
	n := NodeFromStopPoint(*sp)
	w.fetched[id] = n
	return n, true
}

func dedupeNodes(nodes []Node) []Node {
	seen := make(map[string]bool, len(nodes))
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n)
	}
	return out
}
