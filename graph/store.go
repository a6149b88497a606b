package graph

import "github.com/praxida/careflow/model"

// ParentRef identifies the unique edge pointing at a node.
type ParentRef struct {
	ParentId string
	Branch   model.Branch
}

// NodeStore is the id-keyed arena holding the nodes of one workflow graph.
// It maintains a reverse-edge index (child -> parent edge) so locating a
// node's parent never needs a scan. Iteration order is undefined; traversal
// order comes only from following edges.
type NodeStore struct {
	nodes   map[string]*model.Node
	parents map[string]ParentRef
}

func NewNodeStore() *NodeStore {
	return &NodeStore{
		nodes:   make(map[string]*model.Node),
		parents: make(map[string]ParentRef),
	}
}

func (s *NodeStore) Get(id string) (*model.Node, error) {
	node, ok := s.nodes[id]
	if !ok {
		return nil, NodeNotFoundError{Id: id}
	}
	return node, nil
}

func (s *NodeStore) Put(node *model.Node) {
	if existing, ok := s.nodes[node.Id]; ok {
		s.unindex(existing)
	}
	s.nodes[node.Id] = node
	s.index(node)
}

func (s *NodeStore) Remove(id string) {
	node, ok := s.nodes[id]
	if !ok {
		return
	}
	s.unindex(node)
	delete(s.nodes, id)
	delete(s.parents, id)
}

// Parent returns the unique incoming edge of a node. The trigger and any
// node not yet linked have none.
func (s *NodeStore) Parent(id string) (ParentRef, bool) {
	ref, ok := s.parents[id]
	return ref, ok
}

func (s *NodeStore) Len() int {
	return len(s.nodes)
}

func (s *NodeStore) Ids() []string {
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	return ids
}

func (s *NodeStore) index(node *model.Node) {
	if len(node.Next) != 0 {
		s.parents[node.Next] = ParentRef{ParentId: node.Id, Branch: model.BRANCH_NONE}
	}
	if len(node.TrueNext) != 0 {
		s.parents[node.TrueNext] = ParentRef{ParentId: node.Id, Branch: model.BRANCH_TRUE}
	}
	if len(node.FalseNext) != 0 {
		s.parents[node.FalseNext] = ParentRef{ParentId: node.Id, Branch: model.BRANCH_FALSE}
	}
}

func (s *NodeStore) unindex(node *model.Node) {
	for _, child := range []string{node.Next, node.TrueNext, node.FalseNext} {
		if len(child) == 0 {
			continue
		}
		if ref, ok := s.parents[child]; ok && ref.ParentId == node.Id {
			delete(s.parents, child)
		}
	}
}
