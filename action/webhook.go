package action

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/model"
	"go.uber.org/zap"
)

var _ Handler = new(webhookHandler)

type webhookHandler struct {
	client HTTPDoer
}

func newWebhookHandler(client HTTPDoer) *webhookHandler {
	return &webhookHandler{client: client}
}

func (h *webhookHandler) Type() string {
	return model.ACTION_TYPE_WEBHOOK
}

func (h *webhookHandler) Validate(config map[string]any) error {
	rawUrl := stringField(config, "url")
	if len(rawUrl) == 0 {
		return NewConfigError("webhook requires url")
	}
	parsed, err := url.Parse(rawUrl)
	if err != nil || len(parsed.Scheme) == 0 || len(parsed.Host) == 0 {
		return NewConfigError("webhook url %s is not absolute", rawUrl)
	}
	switch strings.ToUpper(stringField(config, "method")) {
	case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return NewConfigError("webhook method %s not supported", stringField(config, "method"))
	}
	return nil
}

// Execute issues the configured request. Any non-2xx response is a
// retryable failure; only a bad config is fatal.
func (h *webhookHandler) Execute(ctx ExecutionContext, config map[string]any) (Outcome, error) {
	if err := h.Validate(config); err != nil {
		return OUTCOME_DONE, err
	}
	method := strings.ToUpper(stringField(config, "method"))
	if len(method) == 0 {
		method = http.MethodPost
	}
	var body *bytes.Reader
	if payload, ok := config["body"]; ok {
		data, err := json.Marshal(payload)
		if err != nil {
			return OUTCOME_DONE, NewConfigError("webhook body: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, stringField(config, "url"), body)
	if err != nil {
		return OUTCOME_DONE, NewConfigError("webhook request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return OUTCOME_DONE, NewTransientError("webhook call: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return OUTCOME_DONE, NewTransientError("webhook returned status %d", resp.StatusCode)
	}
	logger.Debug("webhook delivered", zap.String("url", stringField(config, "url")), zap.Int("status", resp.StatusCode))
	return OUTCOME_DONE, nil
}
