package action

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/praxida/careflow/model"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry(NewLoggingCollaborators())
}

func TestRegistryDispatch(t *testing.T) {
	registry := testRegistry()

	for _, actionType := range model.VALID_ACTION_TYPES {
		handler, err := registry.Get(actionType)
		require.NoError(t, err)
		require.Equal(t, actionType, handler.Type())
	}

	_, err := registry.Get("launch_rocket")
	require.Error(t, err)
	var configErr ConfigError
	require.True(t, errors.As(err, &configErr))
	require.False(t, IsTransient(err))
}

func TestHandlerValidation(t *testing.T) {
	registry := testRegistry()
	for scenario, tc := range map[string]struct {
		actionType string
		config     map[string]any
		valid      bool
	}{
		"notification ok":            {model.ACTION_TYPE_SEND_NOTIFICATION, map[string]any{"user_id": "u1", "message": "hi"}, true},
		"notification missing user":  {model.ACTION_TYPE_SEND_NOTIFICATION, map[string]any{"message": "hi"}, false},
		"create task ok":             {model.ACTION_TYPE_CREATE_TASK, map[string]any{"title": "call patient"}, true},
		"create task missing title":  {model.ACTION_TYPE_CREATE_TASK, map[string]any{}, false},
		"update task ok":             {model.ACTION_TYPE_UPDATE_TASK, map[string]any{"task_id": "t1", "status": "done"}, true},
		"update task missing id":     {model.ACTION_TYPE_UPDATE_TASK, map[string]any{"status": "done"}, false},
		"update deal ok":             {model.ACTION_TYPE_UPDATE_DEAL, map[string]any{"deal_id": "d1", "stage": "won"}, true},
		"update patient ok":          {model.ACTION_TYPE_UPDATE_PATIENT, map[string]any{"patient_id": "p1", "status": "active"}, true},
		"update patient missing id":  {model.ACTION_TYPE_UPDATE_PATIENT, map[string]any{"status": "active"}, false},
		"email immediate ok":         {model.ACTION_TYPE_SEND_EMAIL, map[string]any{"recipient": "x@y.z", "body": "hi"}, true},
		"email missing recipient":    {model.ACTION_TYPE_SEND_EMAIL, map[string]any{"body": "hi"}, false},
		"email missing content":      {model.ACTION_TYPE_SEND_EMAIL, map[string]any{"recipient": "x@y.z"}, false},
		"email template only":        {model.ACTION_TYPE_SEND_EMAIL, map[string]any{"recipient": "x@y.z", "template_id": "tpl-1"}, true},
		"email bad send mode":        {model.ACTION_TYPE_SEND_EMAIL, map[string]any{"recipient": "x@y.z", "body": "hi", "send_mode": "whenever"}, false},
		"email delay without delay":  {model.ACTION_TYPE_SEND_EMAIL, map[string]any{"recipient": "x@y.z", "body": "hi", "send_mode": "delay"}, false},
		"email delay ok":             {model.ACTION_TYPE_SEND_EMAIL, map[string]any{"recipient": "x@y.z", "body": "hi", "send_mode": "delay", "delay_minutes": 30}, true},
		"email recurring incomplete": {model.ACTION_TYPE_SEND_EMAIL, map[string]any{"recipient": "x@y.z", "body": "hi", "send_mode": "recurring", "recurring_days": 7}, false},
		"email recurring ok":         {model.ACTION_TYPE_SEND_EMAIL, map[string]any{"recipient": "x@y.z", "body": "hi", "send_mode": "recurring", "recurring_days": 7, "recurring_times": 3}, true},
		"webhook ok":                 {model.ACTION_TYPE_WEBHOOK, map[string]any{"url": "https://crm.example.com/hook"}, true},
		"webhook missing url":        {model.ACTION_TYPE_WEBHOOK, map[string]any{}, false},
		"webhook relative url":       {model.ACTION_TYPE_WEBHOOK, map[string]any{"url": "/hook"}, false},
		"webhook bad method":         {model.ACTION_TYPE_WEBHOOK, map[string]any{"url": "https://crm.example.com/hook", "method": "YEET"}, false},
	} {
		t.Run(scenario, func(t *testing.T) {
			err := registry.ValidateConfig(&model.ActionPayload{ActionType: tc.actionType, Config: tc.config})
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				require.False(t, IsTransient(err))
			}
		})
	}
}

type stubDoer struct {
	status int
	err    error
	last   *http.Request
}

func (d *stubDoer) Do(req *http.Request) (*http.Response, error) {
	d.last = req
	if d.err != nil {
		return nil, d.err
	}
	return &http.Response{
		StatusCode: d.status,
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func TestWebhookExecute(t *testing.T) {
	ctx := ExecutionContext{Now: time.Now()}
	config := map[string]any{
		"url":  "https://crm.example.com/hook",
		"body": map[string]any{"patientId": "p1"},
	}

	doer := &stubDoer{status: 200}
	outcome, err := newWebhookHandler(doer).Execute(ctx, config)
	require.NoError(t, err)
	require.Equal(t, OUTCOME_DONE, outcome)
	require.Equal(t, http.MethodPost, doer.last.Method)
	require.Equal(t, "application/json", doer.last.Header.Get("Content-Type"))

	doer = &stubDoer{status: 503}
	_, err = newWebhookHandler(doer).Execute(ctx, config)
	require.Error(t, err)
	require.True(t, IsTransient(err))

	doer = &stubDoer{err: errors.New("connection refused")}
	_, err = newWebhookHandler(doer).Execute(ctx, config)
	require.Error(t, err)
	require.True(t, IsTransient(err))

	_, err = newWebhookHandler(&stubDoer{status: 200}).Execute(ctx, map[string]any{"url": "nope"})
	require.Error(t, err)
	require.False(t, IsTransient(err))
}

type flakyMailer struct {
	failures int
	sends    int
}

func (m *flakyMailer) Send(recipient string, subject string, body string) error {
	m.sends++
	if m.sends <= m.failures {
		return errors.New("smtp unavailable")
	}
	return nil
}

func TestSendEmailFailureIsTransient(t *testing.T) {
	handler := newSendEmailHandler(&flakyMailer{failures: 1})
	_, err := handler.Execute(ExecutionContext{Now: time.Now()}, map[string]any{
		"recipient": "x@y.z", "body": "hi",
	})
	require.Error(t, err)
	require.True(t, IsTransient(err))
}
