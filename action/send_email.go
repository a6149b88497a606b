package action

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/model"
	"go.uber.org/zap"
)

const SEND_MODE_IMMEDIATE string = "immediate"
const SEND_MODE_DELAY string = "delay"
const SEND_MODE_RECURRING string = "recurring"

type sendEmailConfig struct {
	Recipient      string `mapstructure:"recipient"`
	Subject        string `mapstructure:"subject"`
	TemplateId     string `mapstructure:"template_id"`
	Body           string `mapstructure:"body"`
	SendMode       string `mapstructure:"send_mode"`
	DelayMinutes   int    `mapstructure:"delay_minutes"`
	RecurringDays  int    `mapstructure:"recurring_days"`
	RecurringTimes int    `mapstructure:"recurring_times"`
}

var _ Handler = new(sendEmailHandler)

type sendEmailHandler struct {
	mailer Mailer
}

func newSendEmailHandler(mailer Mailer) *sendEmailHandler {
	return &sendEmailHandler{mailer: mailer}
}

func (h *sendEmailHandler) Type() string {
	return model.ACTION_TYPE_SEND_EMAIL
}

func decodeSendEmailConfig(config map[string]any) (*sendEmailConfig, error) {
	var cfg sendEmailConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{WeaklyTypedInput: true, Result: &cfg})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(config); err != nil {
		return nil, NewConfigError("send_email: %v", err)
	}
	if len(cfg.SendMode) == 0 {
		cfg.SendMode = SEND_MODE_IMMEDIATE
	}
	return &cfg, nil
}

func (h *sendEmailHandler) Validate(config map[string]any) error {
	cfg, err := decodeSendEmailConfig(config)
	if err != nil {
		return err
	}
	if len(cfg.Recipient) == 0 {
		return NewConfigError("send_email requires a recipient")
	}
	if len(cfg.TemplateId) == 0 && len(cfg.Body) == 0 {
		return NewConfigError("send_email requires a template_id or body")
	}
	switch cfg.SendMode {
	case SEND_MODE_IMMEDIATE:
	case SEND_MODE_DELAY:
		if cfg.DelayMinutes <= 0 {
			return NewConfigError("send_email delay mode requires positive delay_minutes")
		}
	case SEND_MODE_RECURRING:
		if cfg.RecurringDays <= 0 || cfg.RecurringTimes <= 0 {
			return NewConfigError("send_email recurring mode requires positive recurring_days and recurring_times")
		}
	default:
		return NewConfigError("unknown send_mode %s", cfg.SendMode)
	}
	return nil
}

// Execute sends immediately, or registers a future invocation with the
// scheduler for delayed and recurring modes. The recurring occurrence
// counter lives on the enrollment, not the node, so the final send stops
// rescheduling even across redelivered wakeups.
func (h *sendEmailHandler) Execute(ctx ExecutionContext, config map[string]any) (Outcome, error) {
	cfg, err := decodeSendEmailConfig(config)
	if err != nil {
		return OUTCOME_DONE, err
	}
	if err := h.Validate(config); err != nil {
		return OUTCOME_DONE, err
	}
	switch cfg.SendMode {
	case SEND_MODE_IMMEDIATE:
		return OUTCOME_DONE, h.send(cfg)
	case SEND_MODE_DELAY:
		if ctx.Resumed {
			return OUTCOME_DONE, h.send(cfg)
		}
		fireAt := ctx.Now.Add(time.Duration(cfg.DelayMinutes) * time.Minute)
		if err := ctx.Scheduler.ScheduleActionWakeup(ctx.Enrollment, ctx.NodeId, fireAt); err != nil {
			return OUTCOME_DONE, NewTransientError("scheduling delayed email: %v", err)
		}
		return OUTCOME_SCHEDULED, nil
	case SEND_MODE_RECURRING:
		if ctx.Enrollment.OccurrenceCount(ctx.NodeId) >= cfg.RecurringTimes {
			// redelivered wakeup after the final send
			return OUTCOME_DONE, nil
		}
		if err := h.send(cfg); err != nil {
			return OUTCOME_DONE, err
		}
		occurrence := ctx.Enrollment.IncrOccurrence(ctx.NodeId)
		if occurrence >= cfg.RecurringTimes {
			return OUTCOME_DONE, nil
		}
		fireAt := ctx.Now.Add(time.Duration(cfg.RecurringDays) * 24 * time.Hour)
		if err := ctx.Scheduler.ScheduleActionWakeup(ctx.Enrollment, ctx.NodeId, fireAt); err != nil {
			return OUTCOME_DONE, NewTransientError("scheduling recurring email: %v", err)
		}
		return OUTCOME_SCHEDULED, nil
	}
	return OUTCOME_DONE, NewConfigError("unknown send_mode %s", cfg.SendMode)
}

func (h *sendEmailHandler) send(cfg *sendEmailConfig) error {
	body := cfg.Body
	if len(cfg.TemplateId) != 0 {
		body = cfg.TemplateId
	}
	if err := h.mailer.Send(cfg.Recipient, cfg.Subject, body); err != nil {
		return NewTransientError("mailer: %v", err)
	}
	logger.Debug("email sent", zap.String("recipient", cfg.Recipient), zap.String("subject", cfg.Subject))
	return nil
}
