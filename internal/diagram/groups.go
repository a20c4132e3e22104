package diagram

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/senseboard-backend/internal/types"
)

const maxUndoSnapshots = 8

// TopicShifted reports whether an incoming patch represents a different
// subject than the group currently holds: a different diagram type, or topic
// token overlap below 0.3.
func TopicShifted(group *types.DiagramGroup, patch *types.DiagramPatch) bool {
	if group == nil {
		return false
	}
	if group.DiagramType != "" && patch.DiagramType != group.DiagramType {
		return true
	}
	return JaccardSimilarity(group.Topic, patch.Topic) < 0.3
}

func recomputeBounds(g *types.DiagramGroup) {
	if len(g.Nodes) == 0 {
		g.Bounds = types.FocusBox{}
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range g.Nodes {
		minX = math.Min(minX, n.X)
		minY = math.Min(minY, n.Y)
		maxX = math.Max(maxX, n.X+n.Width)
		maxY = math.Max(maxY, n.Y+n.Height)
	}
	const pad = 40
	g.Bounds = types.FocusBox{
		X: minX - pad,
		Y: minY - pad,
		W: (maxX - minX) + 2*pad,
		H: (maxY - minY) + 2*pad,
	}
}

func pushUndoSnapshot(r *types.RoomState, groupID string) {
	var cloned *types.DiagramGroup
	if g := r.DiagramGroups[groupID]; g != nil {
		cloned = g.Clone()
	}
	r.UndoSnapshots = append(r.UndoSnapshots, &types.DiagramGroupSnapshot{
		GroupID:       groupID,
		Group:         cloned,
		ActiveGroupID: r.ActiveGroupID,
	})
	if len(r.UndoSnapshots) > maxUndoSnapshots {
		r.UndoSnapshots = r.UndoSnapshots[len(r.UndoSnapshots)-maxUndoSnapshots:]
	}
}

// ApplyPatch applies a diagram patch to the room's target group, archiving
// the existing content first when the topic shifted, and cleaning up any
// node/edge the patch no longer mentions (non-pinned groups only). Returns
// the mutated group.
func ApplyPatch(r *types.RoomState, patch *types.DiagramPatch, now time.Time) *types.DiagramGroup {
	patch.ClampLimits()

	groupID := patch.TargetGroupID
	if groupID == "" {
		groupID = r.ActiveGroupID
	}
	if groupID == "" {
		groupID = "grp_" + uuid.New().String()[:8]
	}
	pushUndoSnapshot(r, groupID)

	group, exists := r.DiagramGroups[groupID]
	if !exists {
		group = types.NewDiagramGroup(groupID, now)
		r.DiagramGroups[groupID] = group
	}

	pinned := group.Pinned || r.IsGroupPinned(groupID)
	if exists && !pinned && TopicShifted(group, patch) {
		r.PushArchivedGroup(group.Clone())
		group.Nodes = make(map[string]*types.DiagramNode)
		group.Edges = make(map[string]*types.DiagramEdge)
		group.Notes = nil
		group.HighlightOrder = nil
		group.Title = ""
	}

	// Deterministic cleanup: anything not in the incoming patch goes away so
	// the board tracks the current topic.
	if !pinned {
		incomingNodes := map[string]bool{}
		incomingEdges := map[string]bool{}
		for _, a := range patch.Actions {
			switch a.Type {
			case types.PatchUpsertNode:
				incomingNodes[a.ID] = true
			case types.PatchUpsertEdge:
				incomingEdges[a.ID] = true
			}
		}
		for id := range group.Nodes {
			if !incomingNodes[id] {
				delete(group.Nodes, id)
			}
		}
		for id := range group.Edges {
			if !incomingEdges[id] {
				delete(group.Edges, id)
			}
		}
	}

	for _, a := range patch.Actions {
		switch a.Type {
		case types.PatchUpsertNode:
			if a.ID == "" {
				continue
			}
			group.Nodes[a.ID] = &types.DiagramNode{
				ID: a.ID, Label: a.Label,
				X: a.X, Y: a.Y, Width: a.Width, Height: a.Height,
			}
		case types.PatchUpsertEdge:
			if a.ID == "" || a.From == "" || a.To == "" {
				continue
			}
			group.Edges[a.ID] = &types.DiagramEdge{ID: a.ID, From: a.From, To: a.To, Label: a.Label}
		case types.PatchDeleteShape:
			delete(group.Nodes, a.ID)
			delete(group.Edges, a.ID)
		case types.PatchSetTitle:
			group.Title = a.Title
		case types.PatchSetNotes:
			group.Notes = append([]string{}, a.Notes...)
		case types.PatchHighlightOrder:
			group.HighlightOrder = append([]string{}, a.Order...)
		case types.PatchLayoutHint:
			// Layout hints influence the builders, not stored group state.
		}
	}

	group.Topic = patch.Topic
	group.DiagramType = patch.DiagramType
	group.UpdatedAt = now
	recomputeBounds(group)
	r.ActiveGroupID = groupID
	return group
}

// UndoAIPatch restores the diagram group snapshot taken before the most
// recent patch. Returns false when there is nothing to undo.
func UndoAIPatch(r *types.RoomState) bool {
	if len(r.UndoSnapshots) == 0 {
		return false
	}
	snap := r.UndoSnapshots[len(r.UndoSnapshots)-1]
	r.UndoSnapshots = r.UndoSnapshots[:len(r.UndoSnapshots)-1]
	if snap.Group == nil {
		delete(r.DiagramGroups, snap.GroupID)
	} else {
		r.DiagramGroups[snap.GroupID] = snap.Group
	}
	r.ActiveGroupID = snap.ActiveGroupID
	return true
}

// PinCurrent pins the active group so cleanup and topic shifts leave it alone.
func PinCurrent(r *types.RoomState) bool {
	group := r.ActiveGroup()
	if group == nil {
		return false
	}
	group.Pinned = true
	if !r.IsGroupPinned(group.ID) {
		r.AIConfig.PinnedGroupIDs = append(r.AIConfig.PinnedGroupIDs, group.ID)
	}
	return true
}

// RestoreArchived brings an archived group back as a fresh pinned group: new
// id, "[Restored] " title prefix, recomputed bounds, fresh timestamps.
func RestoreArchived(r *types.RoomState, archivedID string, now time.Time) *types.DiagramGroup {
	var src *types.DiagramGroup
	for _, g := range r.ArchivedGroups {
		if g.ID == archivedID {
			src = g
			break
		}
	}
	if src == nil {
		return nil
	}
	restored := src.Clone()
	restored.ID = "grp_" + uuid.New().String()[:8]
	restored.Pinned = true
	if !strings.HasPrefix(restored.Title, "[Restored] ") {
		restored.Title = "[Restored] " + restored.Title
	}
	restored.CreatedAt = now
	restored.UpdatedAt = now
	recomputeBounds(restored)

	r.DiagramGroups[restored.ID] = restored
	r.ActiveGroupID = restored.ID
	if !r.IsGroupPinned(restored.ID) {
		r.AIConfig.PinnedGroupIDs = append(r.AIConfig.PinnedGroupIDs, restored.ID)
	}
	return restored
}
