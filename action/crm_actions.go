package action

import (
	"github.com/praxida/careflow/model"
)

var _ Handler = new(sendNotificationHandler)

type sendNotificationHandler struct {
	notifier Notifier
}

func newSendNotificationHandler(notifier Notifier) *sendNotificationHandler {
	return &sendNotificationHandler{notifier: notifier}
}

func (h *sendNotificationHandler) Type() string {
	return model.ACTION_TYPE_SEND_NOTIFICATION
}

func (h *sendNotificationHandler) Validate(config map[string]any) error {
	if len(stringField(config, "user_id")) == 0 {
		return NewConfigError("send_notification requires user_id")
	}
	if len(stringField(config, "message")) == 0 {
		return NewConfigError("send_notification requires message")
	}
	return nil
}

func (h *sendNotificationHandler) Execute(ctx ExecutionContext, config map[string]any) (Outcome, error) {
	if err := h.Validate(config); err != nil {
		return OUTCOME_DONE, err
	}
	if err := h.notifier.Notify(stringField(config, "user_id"), stringField(config, "message")); err != nil {
		return OUTCOME_DONE, NewTransientError("notifier: %v", err)
	}
	return OUTCOME_DONE, nil
}

var _ Handler = new(createTaskHandler)

type createTaskHandler struct {
	tasks TaskRepository
}

func newCreateTaskHandler(tasks TaskRepository) *createTaskHandler {
	return &createTaskHandler{tasks: tasks}
}

func (h *createTaskHandler) Type() string {
	return model.ACTION_TYPE_CREATE_TASK
}

func (h *createTaskHandler) Validate(config map[string]any) error {
	if len(stringField(config, "title")) == 0 {
		return NewConfigError("create_task requires title")
	}
	return nil
}

func (h *createTaskHandler) Execute(ctx ExecutionContext, config map[string]any) (Outcome, error) {
	if err := h.Validate(config); err != nil {
		return OUTCOME_DONE, err
	}
	if _, err := h.tasks.CreateTask(config); err != nil {
		return OUTCOME_DONE, NewTransientError("task repository: %v", err)
	}
	return OUTCOME_DONE, nil
}

var _ Handler = new(updateTaskHandler)

type updateTaskHandler struct {
	tasks TaskRepository
}

func newUpdateTaskHandler(tasks TaskRepository) *updateTaskHandler {
	return &updateTaskHandler{tasks: tasks}
}

func (h *updateTaskHandler) Type() string {
	return model.ACTION_TYPE_UPDATE_TASK
}

func (h *updateTaskHandler) Validate(config map[string]any) error {
	if len(stringField(config, "task_id")) == 0 {
		return NewConfigError("update_task requires task_id")
	}
	return nil
}

func (h *updateTaskHandler) Execute(ctx ExecutionContext, config map[string]any) (Outcome, error) {
	if err := h.Validate(config); err != nil {
		return OUTCOME_DONE, err
	}
	if err := h.tasks.UpdateTask(stringField(config, "task_id"), fieldsWithout(config, "task_id")); err != nil {
		return OUTCOME_DONE, NewTransientError("task repository: %v", err)
	}
	return OUTCOME_DONE, nil
}

var _ Handler = new(createDealHandler)

type createDealHandler struct {
	deals DealRepository
}

func newCreateDealHandler(deals DealRepository) *createDealHandler {
	return &createDealHandler{deals: deals}
}

func (h *createDealHandler) Type() string {
	return model.ACTION_TYPE_CREATE_DEAL
}

func (h *createDealHandler) Validate(config map[string]any) error {
	if len(stringField(config, "title")) == 0 {
		return NewConfigError("create_deal requires title")
	}
	return nil
}

func (h *createDealHandler) Execute(ctx ExecutionContext, config map[string]any) (Outcome, error) {
	if err := h.Validate(config); err != nil {
		return OUTCOME_DONE, err
	}
	if _, err := h.deals.CreateDeal(config); err != nil {
		return OUTCOME_DONE, NewTransientError("deal repository: %v", err)
	}
	return OUTCOME_DONE, nil
}

var _ Handler = new(updateDealHandler)

type updateDealHandler struct {
	deals DealRepository
}

func newUpdateDealHandler(deals DealRepository) *updateDealHandler {
	return &updateDealHandler{deals: deals}
}

func (h *updateDealHandler) Type() string {
	return model.ACTION_TYPE_UPDATE_DEAL
}

func (h *updateDealHandler) Validate(config map[string]any) error {
	if len(stringField(config, "deal_id")) == 0 {
		return NewConfigError("update_deal requires deal_id")
	}
	return nil
}

func (h *updateDealHandler) Execute(ctx ExecutionContext, config map[string]any) (Outcome, error) {
	if err := h.Validate(config); err != nil {
		return OUTCOME_DONE, err
	}
	if err := h.deals.UpdateDeal(stringField(config, "deal_id"), fieldsWithout(config, "deal_id")); err != nil {
		return OUTCOME_DONE, NewTransientError("deal repository: %v", err)
	}
	return OUTCOME_DONE, nil
}

var _ Handler = new(updatePatientHandler)

type updatePatientHandler struct {
	patients PatientRepository
}

func newUpdatePatientHandler(patients PatientRepository) *updatePatientHandler {
	return &updatePatientHandler{patients: patients}
}

func (h *updatePatientHandler) Type() string {
	return model.ACTION_TYPE_UPDATE_PATIENT
}

func (h *updatePatientHandler) Validate(config map[string]any) error {
	if len(stringField(config, "patient_id")) == 0 {
		return NewConfigError("update_patient requires patient_id")
	}
	return nil
}

func (h *updatePatientHandler) Execute(ctx ExecutionContext, config map[string]any) (Outcome, error) {
	if err := h.Validate(config); err != nil {
		return OUTCOME_DONE, err
	}
	if err := h.patients.UpdatePatient(stringField(config, "patient_id"), fieldsWithout(config, "patient_id")); err != nil {
		return OUTCOME_DONE, NewTransientError("patient repository: %v", err)
	}
	return OUTCOME_DONE, nil
}

func stringField(config map[string]any, key string) string {
	if value, ok := config[key].(string); ok {
		return value
	}
	return ""
}

func fieldsWithout(config map[string]any, key string) map[string]any {
	out := make(map[string]any, len(config))
	for k, v := range config {
		if k == key {
			continue
		}
		out[k] = v
	}
	return out
}
