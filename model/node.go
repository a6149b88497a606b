package model

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type NodeKind string

const NODE_KIND_TRIGGER NodeKind = "trigger"
const NODE_KIND_ACTION NodeKind = "action"
const NODE_KIND_CONDITION NodeKind = "condition"
const NODE_KIND_DELAY NodeKind = "delay"

func ToNodeKind(kind string) (NodeKind, error) {
	switch NodeKind(strings.ToLower(kind)) {
	case NODE_KIND_TRIGGER:
		return NODE_KIND_TRIGGER, nil
	case NODE_KIND_ACTION:
		return NODE_KIND_ACTION, nil
	case NODE_KIND_CONDITION:
		return NODE_KIND_CONDITION, nil
	case NODE_KIND_DELAY:
		return NODE_KIND_DELAY, nil
	}
	return "", fmt.Errorf("invalid node kind %s", kind)
}

type Branch string

const BRANCH_NONE Branch = ""
const BRANCH_TRUE Branch = "true"
const BRANCH_FALSE Branch = "false"

func ToBranch(branch string) (Branch, error) {
	switch Branch(strings.ToLower(branch)) {
	case BRANCH_NONE:
		return BRANCH_NONE, nil
	case BRANCH_TRUE:
		return BRANCH_TRUE, nil
	case BRANCH_FALSE:
		return BRANCH_FALSE, nil
	}
	return "", fmt.Errorf("invalid branch %s", branch)
}

// Node is the arena form of one workflow step. Edges are ids only; an empty
// id means the edge terminates the workflow. Next applies to every kind
// except condition, which uses TrueNext/FalseNext.
type Node struct {
	Id        string         `json:"id"`
	Kind      NodeKind       `json:"kind"`
	Data      map[string]any `json:"data,omitempty"`
	Next      string         `json:"next,omitempty"`
	TrueNext  string         `json:"trueNext,omitempty"`
	FalseNext string         `json:"falseNext,omitempty"`
}

func (n *Node) Clone() *Node {
	data := make(map[string]any, len(n.Data))
	for k, v := range n.Data {
		data[k] = v
	}
	return &Node{
		Id:        n.Id,
		Kind:      n.Kind,
		Data:      data,
		Next:      n.Next,
		TrueNext:  n.TrueNext,
		FalseNext: n.FalseNext,
	}
}

const ACTION_TYPE_SEND_EMAIL string = "send_email"
const ACTION_TYPE_SEND_NOTIFICATION string = "send_notification"
const ACTION_TYPE_CREATE_TASK string = "create_task"
const ACTION_TYPE_UPDATE_TASK string = "update_task"
const ACTION_TYPE_CREATE_DEAL string = "create_deal"
const ACTION_TYPE_UPDATE_DEAL string = "update_deal"
const ACTION_TYPE_UPDATE_PATIENT string = "update_patient"
const ACTION_TYPE_WEBHOOK string = "webhook"

var VALID_ACTION_TYPES = []string{
	ACTION_TYPE_SEND_EMAIL,
	ACTION_TYPE_SEND_NOTIFICATION,
	ACTION_TYPE_CREATE_TASK,
	ACTION_TYPE_UPDATE_TASK,
	ACTION_TYPE_CREATE_DEAL,
	ACTION_TYPE_UPDATE_DEAL,
	ACTION_TYPE_UPDATE_PATIENT,
	ACTION_TYPE_WEBHOOK,
}

var VALID_TRIGGER_TYPES = []string{
	"patient_created",
	"patient_updated",
	"deal_created",
	"deal_stage_changed",
	"task_completed",
	"form_submitted",
}

func ValidateActionType(at string) error {
	for _, valid := range VALID_ACTION_TYPES {
		if strings.EqualFold(at, valid) {
			return nil
		}
	}
	return fmt.Errorf("invalid action type %s", at)
}

func ValidateTriggerType(tt string) error {
	for _, valid := range VALID_TRIGGER_TYPES {
		if strings.EqualFold(tt, valid) {
			return nil
		}
	}
	return fmt.Errorf("invalid trigger type %s", tt)
}

type TriggerPayload struct {
	TriggerType  string         `mapstructure:"triggerType"`
	FilterConfig map[string]any `mapstructure:"filterConfig"`
}

type ActionPayload struct {
	ActionType string         `mapstructure:"actionType"`
	Config     map[string]any `mapstructure:",remain"`
}

type ConditionPayload struct {
	Field    string `mapstructure:"field"`
	Operator string `mapstructure:"operator"`
	Value    string `mapstructure:"value"`
}

type DelayPayload struct {
	Unit   string `mapstructure:"unit"`
	Amount int    `mapstructure:"amount"`
}

const DELAY_UNIT_MINUTES string = "minutes"
const DELAY_UNIT_HOURS string = "hours"
const DELAY_UNIT_DAYS string = "days"

func DecodeTriggerPayload(data map[string]any) (*TriggerPayload, error) {
	var payload TriggerPayload
	if err := mapstructure.Decode(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid trigger payload: %w", err)
	}
	return &payload, nil
}

func DecodeActionPayload(data map[string]any) (*ActionPayload, error) {
	var payload ActionPayload
	if err := mapstructure.Decode(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid action payload: %w", err)
	}
	if len(payload.ActionType) == 0 {
		return nil, fmt.Errorf("action payload missing actionType")
	}
	return &payload, nil
}

func DecodeConditionPayload(data map[string]any) (*ConditionPayload, error) {
	var payload ConditionPayload
	if err := mapstructure.Decode(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid condition payload: %w", err)
	}
	return &payload, nil
}

func DecodeDelayPayload(data map[string]any) (*DelayPayload, error) {
	var payload DelayPayload
	config := &mapstructure.DecoderConfig{WeaklyTypedInput: true, Result: &payload}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("invalid delay payload: %w", err)
	}
	switch payload.Unit {
	case DELAY_UNIT_MINUTES, DELAY_UNIT_HOURS, DELAY_UNIT_DAYS:
	default:
		return nil, fmt.Errorf("invalid delay unit %s", payload.Unit)
	}
	if payload.Amount <= 0 {
		return nil, fmt.Errorf("delay amount must be positive")
	}
	return &payload, nil
}
