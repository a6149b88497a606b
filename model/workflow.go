package model

import "encoding/json"

// NodeDef is the persisted form of a node: flat entry in the definition's
// node array, with edges expressed as id references.
type NodeDef struct {
	Id            string         `json:"id"`
	Type          string         `json:"type"`
	Data          map[string]any `json:"data,omitempty"`
	NextNodeId    string         `json:"nextNodeId,omitempty"`
	TrueBranchId  string         `json:"trueBranchId,omitempty"`
	FalseBranchId string         `json:"falseBranchId,omitempty"`
}

// DefinitionConfig carries the node array plus any trigger-specific config
// keys flattened into the same JSON object. The flat shape is load-bearing
// across the persistence and API boundary.
type DefinitionConfig struct {
	Nodes         []NodeDef
	TriggerConfig map[string]any
}

func (c DefinitionConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.TriggerConfig)+1)
	for k, v := range c.TriggerConfig {
		out[k] = v
	}
	nodes := c.Nodes
	if nodes == nil {
		nodes = []NodeDef{}
	}
	out["nodes"] = nodes
	return json.Marshal(out)
}

func (c *DefinitionConfig) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if nodesRaw, ok := raw["nodes"]; ok {
		if err := json.Unmarshal(nodesRaw, &c.Nodes); err != nil {
			return err
		}
		delete(raw, "nodes")
	}
	c.TriggerConfig = make(map[string]any, len(raw))
	for k, v := range raw {
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return err
		}
		c.TriggerConfig[k] = value
	}
	return nil
}

// WorkflowDefinition is the whole-saved definition. Versions are immutable
// once an enrollment binds to them; every save produces the next version.
type WorkflowDefinition struct {
	Name        string           `json:"name"`
	TriggerType string           `json:"triggerType"`
	Active      bool             `json:"active"`
	Version     int              `json:"version,omitempty"`
	Config      DefinitionConfig `json:"config"`
}

type WorkflowCreateRequest struct {
	Name          string         `json:"name"`
	TriggerType   string         `json:"triggerType"`
	TriggerConfig map[string]any `json:"triggerConfig,omitempty"`
}

type NodeInsertRequest struct {
	ParentId string `json:"parentId"`
	Branch   string `json:"branch,omitempty"`
	Kind     string `json:"kind"`
}

type NodeInsertResponse struct {
	NodeId  string `json:"nodeId"`
	Version int    `json:"version"`
}
