package graph

import "fmt"

type NodeNotFoundError struct {
	Id string
}

func (e NodeNotFoundError) Error() string {
	return fmt.Sprintf("node %s not found", e.Id)
}

type InvalidBranchError struct {
	NodeId string
	Branch string
}

func (e InvalidBranchError) Error() string {
	return fmt.Sprintf("branch %q does not apply to node %s", e.Branch, e.NodeId)
}

type CannotDeleteTriggerError struct {
	Id string
}

func (e CannotDeleteTriggerError) Error() string {
	return fmt.Sprintf("node %s is the trigger and can not be deleted", e.Id)
}

// ConditionHasChildrenError rejects deletion of a condition node whose
// branches still point at subtrees. Splicing through the condition's unused
// next edge would silently drop both subtrees.
type ConditionHasChildrenError struct {
	Id string
}

func (e ConditionHasChildrenError) Error() string {
	return fmt.Sprintf("condition node %s still has branch children, delete or detach them first", e.Id)
}

type CyclicGraphError struct {
	NodeId string
}

func (e CyclicGraphError) Error() string {
	return fmt.Sprintf("graph is cyclic or node %s has more than one parent", e.NodeId)
}
