package graph

import (
	"fmt"

	"github.com/praxida/careflow/condition"
	"github.com/praxida/careflow/model"
)

// ValidateStructure checks the graph shape only: exactly one trigger, every
// node reachable from it exactly once, no cycles, no shared parents. It is
// run on every editor commit so no caller ever observes an inconsistent
// graph, even while payloads are still being filled in.
func ValidateStructure(def *model.WorkflowDefinition) error {
	g, err := Build(def)
	if err != nil {
		return err
	}
	order, err := g.Walk()
	if err != nil {
		return err
	}
	if len(order) != g.Len() {
		return fmt.Errorf("workflow has %d orphan node(s) not reachable from the trigger", g.Len()-len(order))
	}
	return nil
}

// Validate is the full check run before a definition is served: structure
// plus recognized trigger type, decodable payloads, recognized action types
// and condition operators. Unknown kinds fail here rather than no-op at
// runtime.
func Validate(def *model.WorkflowDefinition) error {
	if len(def.Name) == 0 {
		return fmt.Errorf("workflow name can not be empty")
	}
	if err := model.ValidateTriggerType(def.TriggerType); err != nil {
		return err
	}
	if err := ValidateStructure(def); err != nil {
		return err
	}
	g, err := Build(def)
	if err != nil {
		return err
	}
	for _, id := range g.store.Ids() {
		node, _ := g.Get(id)
		switch node.Kind {
		case model.NODE_KIND_TRIGGER:
			if _, err := model.DecodeTriggerPayload(node.Data); err != nil {
				return fmt.Errorf("node %s: %w", id, err)
			}
		case model.NODE_KIND_ACTION:
			payload, err := model.DecodeActionPayload(node.Data)
			if err != nil {
				return fmt.Errorf("node %s: %w", id, err)
			}
			if err := model.ValidateActionType(payload.ActionType); err != nil {
				return fmt.Errorf("node %s: %w", id, err)
			}
		case model.NODE_KIND_CONDITION:
			payload, err := model.DecodeConditionPayload(node.Data)
			if err != nil {
				return fmt.Errorf("node %s: %w", id, err)
			}
			if err := condition.ValidateOperator(payload.Operator); err != nil {
				return fmt.Errorf("node %s: %w", id, err)
			}
			if len(payload.Field) == 0 {
				return fmt.Errorf("node %s: condition field can not be empty", id)
			}
		case model.NODE_KIND_DELAY:
			if _, err := model.DecodeDelayPayload(node.Data); err != nil {
				return fmt.Errorf("node %s: %w", id, err)
			}
		}
	}
	return nil
}
