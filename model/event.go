package model

// Event is one CRM domain event as delivered by the event source.
type Event struct {
	Id          string         `json:"id"`
	TriggerType string         `json:"triggerType"`
	EntityId    string         `json:"entityId"`
	Snapshot    map[string]any `json:"snapshot"`
}

type WakeupKind string

const WAKEUP_DELAY WakeupKind = "delay"
const WAKEUP_ACTION WakeupKind = "action"
const WAKEUP_RETRY WakeupKind = "retry"

// Wakeup is one scheduled resumption of a suspended enrollment. Delivery is
// at-least-once; Id is the idempotency key consumed exactly once. Wakeups
// serialize as JSON so free-form workflow names survive the queue.
type Wakeup struct {
	Id           string     `json:"id"`
	Kind         WakeupKind `json:"kind"`
	WorkflowName string     `json:"workflowName"`
	EnrollmentId string     `json:"enrollmentId"`
	NodeId       string     `json:"nodeId"`
}
