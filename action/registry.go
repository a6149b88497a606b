package action

import (
	"strings"

	"github.com/praxida/careflow/model"
)

// Registry maps action types to their handlers. Dispatch is exhaustive over
// the registered set; an unknown type is a configuration error, never a
// silent no-op.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry(collaborators Collaborators) *Registry {
	registry := &Registry{handlers: make(map[string]Handler)}
	registry.register(newSendEmailHandler(collaborators.Mailer))
	registry.register(newSendNotificationHandler(collaborators.Notifier))
	registry.register(newCreateTaskHandler(collaborators.Tasks))
	registry.register(newUpdateTaskHandler(collaborators.Tasks))
	registry.register(newCreateDealHandler(collaborators.Deals))
	registry.register(newUpdateDealHandler(collaborators.Deals))
	registry.register(newUpdatePatientHandler(collaborators.Patients))
	registry.register(newWebhookHandler(collaborators.HTTPClient))
	return registry
}

func (r *Registry) register(handler Handler) {
	r.handlers[handler.Type()] = handler
}

func (r *Registry) Get(actionType string) (Handler, error) {
	handler, ok := r.handlers[strings.ToLower(actionType)]
	if !ok {
		return nil, NewConfigError("unknown action type %s", actionType)
	}
	return handler, nil
}

func (r *Registry) Execute(ctx ExecutionContext, payload *model.ActionPayload) (Outcome, error) {
	handler, err := r.Get(payload.ActionType)
	if err != nil {
		return OUTCOME_DONE, err
	}
	return handler.Execute(ctx, payload.Config)
}

func (r *Registry) ValidateConfig(payload *model.ActionPayload) error {
	handler, err := r.Get(payload.ActionType)
	if err != nil {
		return err
	}
	return handler.Validate(payload.Config)
}
