package graph

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/praxida/careflow/model"
)

// Editor applies structural mutations to a graph. Every operation validates
// fully before touching the arena, so a failed call leaves the graph as it
// was and a successful one never exposes a dangling edge or orphan.
type Editor struct {
	graph *Graph
}

func NewEditor(graph *Graph) *Editor {
	return &Editor{graph: graph}
}

func defaultData(kind model.NodeKind) map[string]any {
	switch kind {
	case model.NODE_KIND_ACTION:
		return map[string]any{"actionType": model.ACTION_TYPE_SEND_NOTIFICATION}
	case model.NODE_KIND_CONDITION:
		return map[string]any{"field": "", "operator": "equals", "value": ""}
	case model.NODE_KIND_DELAY:
		return map[string]any{"unit": model.DELAY_UNIT_DAYS, "amount": 1}
	}
	return map[string]any{}
}

func edgeTarget(node *model.Node, branch model.Branch) (string, error) {
	if node.Kind == model.NODE_KIND_CONDITION {
		switch branch {
		case model.BRANCH_TRUE:
			return node.TrueNext, nil
		case model.BRANCH_FALSE:
			return node.FalseNext, nil
		}
		return "", InvalidBranchError{NodeId: node.Id, Branch: string(branch)}
	}
	if branch != model.BRANCH_NONE {
		return "", InvalidBranchError{NodeId: node.Id, Branch: string(branch)}
	}
	return node.Next, nil
}

func setEdge(node *model.Node, branch model.Branch, target string) {
	if node.Kind == model.NODE_KIND_CONDITION {
		if branch == model.BRANCH_TRUE {
			node.TrueNext = target
		} else {
			node.FalseNext = target
		}
		return
	}
	node.Next = target
}

// InsertAfter creates a default-payload node of the given kind and splices
// it between the parent's branch edge and its current target. The displaced
// target becomes the new node's next (true branch for an inserted
// condition).
func (e *Editor) InsertAfter(parentId string, branch model.Branch, kind model.NodeKind) (string, error) {
	if kind == model.NODE_KIND_TRIGGER {
		return "", fmt.Errorf("graph already has a trigger, can not insert another")
	}
	parent, err := e.graph.Get(parentId)
	if err != nil {
		return "", err
	}
	displaced, err := edgeTarget(parent, branch)
	if err != nil {
		return "", err
	}
	node := &model.Node{
		Id:   uuid.New().String(),
		Kind: kind,
		Data: defaultData(kind),
	}
	if kind == model.NODE_KIND_CONDITION {
		node.TrueNext = displaced
	} else {
		node.Next = displaced
	}
	rewired := parent.Clone()
	setEdge(rewired, branch, node.Id)
	e.graph.store.Put(node)
	e.graph.store.Put(rewired)
	return node.Id, nil
}

// Delete removes a node and rewires its unique parent edge to the node's
// successor. Rewiring precedes removal so no dangling reference or orphan
// ever exists. The trigger can not be deleted; neither can a condition node
// whose branches still hold subtrees.
func (e *Editor) Delete(nodeId string) error {
	node, err := e.graph.Get(nodeId)
	if err != nil {
		return err
	}
	if node.Kind == model.NODE_KIND_TRIGGER {
		return CannotDeleteTriggerError{Id: nodeId}
	}
	if node.Kind == model.NODE_KIND_CONDITION {
		if len(node.TrueNext) != 0 || len(node.FalseNext) != 0 {
			return ConditionHasChildrenError{Id: nodeId}
		}
	}
	ref, ok := e.graph.store.Parent(nodeId)
	if !ok {
		return fmt.Errorf("node %s has no parent edge", nodeId)
	}
	parent, err := e.graph.Get(ref.ParentId)
	if err != nil {
		return err
	}
	rewired := parent.Clone()
	setEdge(rewired, ref.Branch, node.Next)
	e.graph.store.Put(rewired)
	e.graph.store.Remove(nodeId)
	return nil
}

// UpdatePayload merges the given fields into the node's payload. Edges are
// untouched; only the editor's structural operations move edges.
func (e *Editor) UpdatePayload(nodeId string, partial map[string]any) error {
	node, err := e.graph.Get(nodeId)
	if err != nil {
		return err
	}
	updated := node.Clone()
	for k, v := range partial {
		updated.Data[k] = v
	}
	e.graph.store.Put(updated)
	return nil
}
