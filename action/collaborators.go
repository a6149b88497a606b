package action

import (
	"net/http"

	"github.com/praxida/careflow/logger"
	"go.uber.org/zap"
)

// External collaborators the actions delegate to. The engine owns none of
// these; implementations live at the edge of the process.

type Mailer interface {
	Send(recipient string, subject string, body string) error
}

type Notifier interface {
	Notify(userId string, message string) error
}

type TaskRepository interface {
	CreateTask(fields map[string]any) (string, error)
	UpdateTask(taskId string, fields map[string]any) error
}

type DealRepository interface {
	CreateDeal(fields map[string]any) (string, error)
	UpdateDeal(dealId string, fields map[string]any) error
}

type PatientRepository interface {
	UpdatePatient(patientId string, fields map[string]any) error
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Collaborators struct {
	Mailer     Mailer
	Notifier   Notifier
	Tasks      TaskRepository
	Deals      DealRepository
	Patients   PatientRepository
	HTTPClient HTTPDoer
}

// NewLoggingCollaborators returns collaborators that record every call and
// succeed. Default wiring until real CRM integrations are configured.
func NewLoggingCollaborators() Collaborators {
	return Collaborators{
		Mailer:     loggingMailer{},
		Notifier:   loggingNotifier{},
		Tasks:      loggingTasks{},
		Deals:      loggingDeals{},
		Patients:   loggingPatients{},
		HTTPClient: http.DefaultClient,
	}
}

type loggingMailer struct{}

func (loggingMailer) Send(recipient string, subject string, body string) error {
	logger.Info("send email", zap.String("recipient", recipient), zap.String("subject", subject))
	return nil
}

type loggingNotifier struct{}

func (loggingNotifier) Notify(userId string, message string) error {
	logger.Info("send notification", zap.String("userId", userId), zap.String("message", message))
	return nil
}

type loggingTasks struct{}

func (loggingTasks) CreateTask(fields map[string]any) (string, error) {
	logger.Info("create task", zap.Any("fields", fields))
	return "", nil
}

func (loggingTasks) UpdateTask(taskId string, fields map[string]any) error {
	logger.Info("update task", zap.String("taskId", taskId), zap.Any("fields", fields))
	return nil
}

type loggingDeals struct{}

func (loggingDeals) CreateDeal(fields map[string]any) (string, error) {
	logger.Info("create deal", zap.Any("fields", fields))
	return "", nil
}

func (loggingDeals) UpdateDeal(dealId string, fields map[string]any) error {
	logger.Info("update deal", zap.String("dealId", dealId), zap.Any("fields", fields))
	return nil
}

type loggingPatients struct{}

func (loggingPatients) UpdatePatient(patientId string, fields map[string]any) error {
	logger.Info("update patient", zap.String("patientId", patientId), zap.Any("fields", fields))
	return nil
}
