package redis

import (
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence"
	"github.com/praxida/careflow/util"
)

// Provider builds the redis-backed stores over one shared client.
type Provider struct {
	baseDao *baseDao
}

func NewProvider(conf Config) *Provider {
	return &Provider{baseDao: newBaseDao(conf)}
}

func (p *Provider) WorkflowStorage() persistence.WorkflowStorage {
	return NewRedisWorkflowStorage(p.baseDao, util.NewJsonEncoderDecoder[model.WorkflowDefinition]())
}

func (p *Provider) EnrollmentStorage() persistence.EnrollmentStorage {
	return NewRedisEnrollmentStorage(p.baseDao, util.NewJsonEncoderDecoder[model.Enrollment]())
}

func (p *Provider) DelayQueue() persistence.DelayQueue {
	return NewRedisDelayQueue(p.baseDao, util.NewJsonEncoderDecoder[model.Wakeup]())
}

func (p *Provider) MarkerStore() persistence.MarkerStore {
	return NewRedisMarkerStore(p.baseDao)
}
