package metadata

import (
	"fmt"
	"time"

	c "github.com/patrickmn/go-cache"
	"github.com/praxida/careflow/action"
	"github.com/praxida/careflow/graph"
	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence"
	"go.uber.org/zap"
)

// Service owns workflow definitions: creation, editor mutations, versioned
// saves and activation. Every mutation validates first and saves the whole
// definition as the next version, so a served definition is always
// consistent and a running enrollment never sees an edit.
type Service struct {
	storage    persistence.WorkflowStorage
	registry   *action.Registry
	graphCache *c.Cache
}

func NewService(storage persistence.WorkflowStorage, registry *action.Registry) *Service {
	return &Service{
		storage:    storage,
		registry:   registry,
		graphCache: c.New(c.NoExpiration, 10*time.Minute),
	}
}

// Create starts a new workflow holding only its trigger node. The workflow
// is created inactive; it enrolls nothing until activated.
func (s *Service) Create(req model.WorkflowCreateRequest) (*model.WorkflowDefinition, error) {
	if len(req.Name) == 0 {
		return nil, fmt.Errorf("workflow name can not be empty")
	}
	if err := model.ValidateTriggerType(req.TriggerType); err != nil {
		return nil, err
	}
	if _, err := s.storage.GetLatest(req.Name); err == nil {
		return nil, fmt.Errorf("workflow %s already exists", req.Name)
	}
	g := graph.New(req.TriggerConfig)
	def := &model.WorkflowDefinition{
		Name:        req.Name,
		TriggerType: req.TriggerType,
		Active:      false,
	}
	return s.save(def, g)
}

func (s *Service) Get(name string) (*model.WorkflowDefinition, error) {
	return s.storage.GetLatest(name)
}

func (s *Service) GetVersion(name string, version int) (*model.WorkflowDefinition, error) {
	return s.storage.Get(name, version)
}

func (s *Service) ListLatest() ([]*model.WorkflowDefinition, error) {
	return s.storage.ListLatest()
}

func (s *Service) Delete(name string) error {
	return s.storage.Delete(name)
}

// InsertNode splices a default node after the parent's branch edge and
// commits the result as the next version.
func (s *Service) InsertNode(name string, req model.NodeInsertRequest) (string, int, error) {
	kind, err := model.ToNodeKind(req.Kind)
	if err != nil {
		return "", 0, err
	}
	branch, err := model.ToBranch(req.Branch)
	if err != nil {
		return "", 0, err
	}
	def, g, err := s.loadLatest(name)
	if err != nil {
		return "", 0, err
	}
	nodeId, err := graph.NewEditor(g).InsertAfter(req.ParentId, branch, kind)
	if err != nil {
		return "", 0, err
	}
	saved, err := s.save(def, g)
	if err != nil {
		return "", 0, err
	}
	return nodeId, saved.Version, nil
}

// DeleteNode removes a node, rewiring its parent edge to its successor, and
// commits the result as the next version.
func (s *Service) DeleteNode(name string, nodeId string) (int, error) {
	def, g, err := s.loadLatest(name)
	if err != nil {
		return 0, err
	}
	if err := graph.NewEditor(g).Delete(nodeId); err != nil {
		return 0, err
	}
	saved, err := s.save(def, g)
	if err != nil {
		return 0, err
	}
	return saved.Version, nil
}

// UpdateNodePayload merges payload fields into a node and commits the
// result as the next version. Edges never move here.
func (s *Service) UpdateNodePayload(name string, nodeId string, partial map[string]any) (int, error) {
	def, g, err := s.loadLatest(name)
	if err != nil {
		return 0, err
	}
	if err := graph.NewEditor(g).UpdatePayload(nodeId, partial); err != nil {
		return 0, err
	}
	saved, err := s.save(def, g)
	if err != nil {
		return 0, err
	}
	return saved.Version, nil
}

// SetActive activates or deactivates a workflow. Activation runs the full
// validation: a definition with unknown kinds or misconfigured actions
// never starts enrolling. Deactivation stops new enrollments only;
// in-flight ones drain.
func (s *Service) SetActive(name string, active bool) error {
	if active {
		def, err := s.storage.GetLatest(name)
		if err != nil {
			return err
		}
		if err := s.validateFull(def); err != nil {
			return err
		}
	}
	if err := s.storage.SetActive(name, active); err != nil {
		return err
	}
	logger.Info("workflow active flag changed", zap.String("name", name), zap.Bool("active", active))
	return nil
}

// GetGraph returns the validated, immutable graph of one definition
// version. Versions never change, so the cache never invalidates.
func (s *Service) GetGraph(name string, version int) (*graph.Graph, error) {
	cacheKey := fmt.Sprintf("%s:%d", name, version)
	if cached, found := s.graphCache.Get(cacheKey); found {
		return cached.(*graph.Graph), nil
	}
	def, err := s.storage.Get(name, version)
	if err != nil {
		return nil, err
	}
	if err := s.validateFull(def); err != nil {
		return nil, err
	}
	g, err := graph.Build(def)
	if err != nil {
		return nil, err
	}
	s.graphCache.Add(cacheKey, g, c.NoExpiration)
	return g, nil
}

func (s *Service) loadLatest(name string) (*model.WorkflowDefinition, *graph.Graph, error) {
	def, err := s.storage.GetLatest(name)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.Build(def)
	if err != nil {
		return nil, nil, err
	}
	return def, g, nil
}

// save flattens the graph back into the definition, revalidates the
// structure and appends the next version. The flattened trigger filter is
// mirrored into the config so the wire shape keeps its flat form.
func (s *Service) save(def *model.WorkflowDefinition, g *graph.Graph) (*model.WorkflowDefinition, error) {
	nodes, err := g.Flatten()
	if err != nil {
		return nil, err
	}
	trigger, err := g.Get(g.TriggerId())
	if err != nil {
		return nil, err
	}
	payload, err := model.DecodeTriggerPayload(trigger.Data)
	if err != nil {
		return nil, err
	}
	def.Config = model.DefinitionConfig{
		Nodes:         nodes,
		TriggerConfig: payload.FilterConfig,
	}
	if err := graph.ValidateStructure(def); err != nil {
		return nil, err
	}
	return s.storage.Save(def)
}

// validateFull layers action-config validation on top of the graph checks.
func (s *Service) validateFull(def *model.WorkflowDefinition) error {
	if err := graph.Validate(def); err != nil {
		return err
	}
	g, err := graph.Build(def)
	if err != nil {
		return err
	}
	order, err := g.Walk()
	if err != nil {
		return err
	}
	for _, id := range order {
		node, err := g.Get(id)
		if err != nil {
			return err
		}
		if node.Kind != model.NODE_KIND_ACTION {
			continue
		}
		payload, err := model.DecodeActionPayload(node.Data)
		if err != nil {
			return fmt.Errorf("node %s: %w", id, err)
		}
		if err := s.registry.ValidateConfig(payload); err != nil {
			return fmt.Errorf("node %s: %w", id, err)
		}
	}
	return nil
}
