package graph

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/praxida/careflow/model"
)

// Graph is the editable arena form of a workflow definition: one trigger
// root plus the tree of steps hanging off it.
type Graph struct {
	store     *NodeStore
	triggerId string
}

// New creates a graph holding only a trigger node. This is the state a
// definition is in when a user starts building.
func New(filterConfig map[string]any) *Graph {
	if filterConfig == nil {
		filterConfig = make(map[string]any)
	}
	trigger := &model.Node{
		Id:   uuid.New().String(),
		Kind: model.NODE_KIND_TRIGGER,
		Data: map[string]any{"filterConfig": filterConfig},
	}
	store := NewNodeStore()
	store.Put(trigger)
	return &Graph{store: store, triggerId: trigger.Id}
}

// Build reconstructs the arena from the persisted flat node array. It fails
// on duplicate ids, shared parents, and a missing or duplicated trigger.
func Build(def *model.WorkflowDefinition) (*Graph, error) {
	store := NewNodeStore()
	var triggerId string
	for _, nodeDef := range def.Config.Nodes {
		kind, err := model.ToNodeKind(nodeDef.Type)
		if err != nil {
			return nil, err
		}
		if _, err := store.Get(nodeDef.Id); err == nil {
			return nil, fmt.Errorf("node id %s is duplicate", nodeDef.Id)
		}
		if kind == model.NODE_KIND_TRIGGER {
			if len(triggerId) != 0 {
				return nil, fmt.Errorf("workflow has more than one trigger")
			}
			triggerId = nodeDef.Id
		}
		data := nodeDef.Data
		if data == nil {
			data = make(map[string]any)
		}
		node := &model.Node{
			Id:        nodeDef.Id,
			Kind:      kind,
			Data:      data,
			Next:      nodeDef.NextNodeId,
			TrueNext:  nodeDef.TrueBranchId,
			FalseNext: nodeDef.FalseBranchId,
		}
		if kind == model.NODE_KIND_CONDITION {
			if len(node.Next) != 0 {
				return nil, fmt.Errorf("condition node %s can not have a plain next edge", node.Id)
			}
		} else if len(node.TrueNext) != 0 || len(node.FalseNext) != 0 {
			return nil, fmt.Errorf("node %s of kind %s can not have branch edges", node.Id, kind)
		}
		store.Put(node)
	}
	if len(triggerId) == 0 {
		return nil, fmt.Errorf("workflow has no trigger")
	}
	for _, id := range store.Ids() {
		node, _ := store.Get(id)
		for _, child := range []string{node.Next, node.TrueNext, node.FalseNext} {
			if len(child) == 0 {
				continue
			}
			if _, err := store.Get(child); err != nil {
				return nil, fmt.Errorf("node %s references missing node %s", id, child)
			}
			if ref, _ := store.Parent(child); ref.ParentId != id {
				return nil, CyclicGraphError{NodeId: child}
			}
		}
	}
	if _, hasParent := store.Parent(triggerId); hasParent {
		return nil, fmt.Errorf("trigger node %s can not have an incoming edge", triggerId)
	}
	return &Graph{store: store, triggerId: triggerId}, nil
}

func (g *Graph) TriggerId() string {
	return g.triggerId
}

func (g *Graph) Get(id string) (*model.Node, error) {
	return g.store.Get(id)
}

func (g *Graph) Len() int {
	return g.store.Len()
}

func (g *Graph) children(node *model.Node) []string {
	var out []string
	if node.Kind == model.NODE_KIND_CONDITION {
		for _, child := range []string{node.TrueNext, node.FalseNext} {
			if len(child) != 0 {
				out = append(out, child)
			}
		}
		return out
	}
	if len(node.Next) != 0 {
		out = append(out, node.Next)
	}
	return out
}

// Walk visits every node reachable from the trigger, depth first, iterative.
// A revisit means a cycle or a shared parent and fails instead of looping.
func (g *Graph) Walk() ([]string, error) {
	visited := make(map[string]bool, g.store.Len())
	var order []string
	stack := []string{g.triggerId}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			return nil, CyclicGraphError{NodeId: id}
		}
		visited[id] = true
		order = append(order, id)
		node, err := g.store.Get(id)
		if err != nil {
			return nil, err
		}
		children := g.children(node)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return order, nil
}

// Flatten serializes the arena back to the flat node array, in trigger-first
// traversal order so saves are deterministic.
func (g *Graph) Flatten() ([]model.NodeDef, error) {
	order, err := g.Walk()
	if err != nil {
		return nil, err
	}
	defs := make([]model.NodeDef, 0, len(order))
	for _, id := range order {
		node, err := g.store.Get(id)
		if err != nil {
			return nil, err
		}
		defs = append(defs, model.NodeDef{
			Id:            node.Id,
			Type:          string(node.Kind),
			Data:          node.Data,
			NextNodeId:    node.Next,
			TrueBranchId:  node.TrueNext,
			FalseBranchId: node.FalseNext,
		})
	}
	return defs, nil
}
