// Package memory provides a mutex-guarded in-memory persistence
// implementation used by tests and local development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence"
)

type Persistence struct {
	mu sync.RWMutex

	profiles    map[string]*models.Profile
	contacts    map[string]*models.Contact
	templates   map[string]*models.MessageTemplate
	automations map[string]*models.Automation
	runs        map[string]*models.AutomationRun
	stats       map[string]*models.NodeStat
	logs        map[string][]models.NodeLog
	index       map[string][]models.TriggerIndexEntry // automationID -> entries
}

func NewPersistence() *Persistence {
	return &Persistence{
		profiles:    make(map[string]*models.Profile),
		contacts:    make(map[string]*models.Contact),
		templates:   make(map[string]*models.MessageTemplate),
		automations: make(map[string]*models.Automation),
		runs:        make(map[string]*models.AutomationRun),
		stats:       make(map[string]*models.NodeStat),
		logs:        make(map[string][]models.NodeLog),
		index:       make(map[string][]models.TriggerIndexEntry),
	}
}

// clone round-trips a value through JSON so callers never share memory
// with the store.
func clone[T any](in *T) *T {
	raw, err := json.Marshal(in)
	if err != nil {
		panic(fmt.Sprintf("memory persistence clone: %v", err))
	}

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		panic(fmt.Sprintf("memory persistence clone: %v", err))
	}

	return out
}

func statKey(automationID, nodeID string) string {
	return automationID + "/" + nodeID
}

func (p *Persistence) ProfileByID(_ context.Context, id string) (*models.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	profile, ok := p.profiles[id]
	if !ok {
		return nil, persistence.ErrProfileNotFound
	}

	return clone(profile), nil
}

func (p *Persistence) ProfileByWebhookPrefix(_ context.Context, prefix string) (*models.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, profile := range p.profiles {
		if profile.WebhookPrefix == prefix {
			return clone(profile), nil
		}
	}

	return nil, persistence.ErrProfileNotFound
}

func (p *Persistence) SaveProfile(_ context.Context, profile *models.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}

	p.profiles[profile.ID] = clone(profile)

	return nil
}

func (p *Persistence) ContactByID(_ context.Context, id string) (*models.Contact, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	contact, ok := p.contacts[id]
	if !ok {
		return nil, persistence.ErrContactNotFound
	}

	return clone(contact), nil
}

func (p *Persistence) ContactByPhone(_ context.Context, ownerID, phone string) (*models.Contact, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	normalized := models.NormalizePhone(phone)
	for _, contact := range p.contacts {
		if contact.OwnerID == ownerID && contact.Phone == normalized {
			return clone(contact), nil
		}
	}

	return nil, persistence.ErrContactNotFound
}

func (p *Persistence) SaveContact(_ context.Context, contact *models.Contact) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	if contact.ID == "" {
		contact.ID = uuid.NewString()
		contact.CreatedAt = now
	}

	contact.Phone = models.NormalizePhone(contact.Phone)
	contact.UpdatedAt = now
	p.contacts[contact.ID] = clone(contact)

	return nil
}

func (p *Persistence) TemplateByID(_ context.Context, id string) (*models.MessageTemplate, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	template, ok := p.templates[id]
	if !ok {
		return nil, persistence.ErrTemplateNotFound
	}

	return clone(template), nil
}

func (p *Persistence) SaveTemplate(_ context.Context, template *models.MessageTemplate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if template.ID == "" {
		template.ID = uuid.NewString()
	}

	p.templates[template.ID] = clone(template)

	return nil
}

func (p *Persistence) AutomationByID(_ context.Context, id string) (*models.Automation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	automation, ok := p.automations[id]
	if !ok {
		return nil, persistence.ErrAutomationNotFound
	}

	return clone(automation), nil
}

func (p *Persistence) AutomationsByOwner(_ context.Context, ownerID string) ([]*models.Automation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	automations := make([]*models.Automation, 0)
	for _, automation := range p.automations {
		if automation.OwnerID == ownerID {
			automations = append(automations, clone(automation))
		}
	}

	return automations, nil
}

func (p *Persistence) SaveAutomation(_ context.Context, automation *models.Automation) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	if automation.ID == "" {
		automation.ID = uuid.NewString()
		automation.CreatedAt = now
	}

	automation.UpdatedAt = now
	p.automations[automation.ID] = clone(automation)

	return nil
}

func (p *Persistence) UpdateNodeConfig(_ context.Context, automationID, nodeID string, config map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	automation, ok := p.automations[automationID]
	if !ok {
		return persistence.ErrAutomationNotFound
	}

	for i := range automation.Nodes {
		if automation.Nodes[i].ID == nodeID {
			automation.Nodes[i].Data.Config = config
			automation.UpdatedAt = time.Now().UTC()

			return nil
		}
	}

	return persistence.ErrNodeNotFound
}

func (p *Persistence) CreateRun(_ context.Context, run *models.AutomationRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	if run.RunAt.IsZero() {
		run.RunAt = time.Now().UTC()
	}

	p.runs[run.ID] = clone(run)

	return nil
}

func (p *Persistence) UpdateRunStatus(_ context.Context, runID string, status models.RunStatus, details string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	run, ok := p.runs[runID]
	if !ok {
		return persistence.ErrRunNotFound
	}

	run.Status = status
	run.Details = details

	return nil
}

func (p *Persistence) RunByID(_ context.Context, id string) (*models.AutomationRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	run, ok := p.runs[id]
	if !ok {
		return nil, persistence.ErrRunNotFound
	}

	return clone(run), nil
}

func (p *Persistence) IncrementNodeStat(_ context.Context, automationID, nodeID string, success bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := statKey(automationID, nodeID)

	stat, ok := p.stats[key]
	if !ok {
		stat = &models.NodeStat{AutomationID: automationID, NodeID: nodeID}
		p.stats[key] = stat
	}

	if success {
		stat.SuccessCount++
	} else {
		stat.ErrorCount++
	}

	stat.LastRunAt = time.Now().UTC()

	return nil
}

func (p *Persistence) AppendNodeLog(_ context.Context, entry *models.NodeLog) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	key := entry.NodeID
	logs := append(p.logs[key], *entry)

	if len(logs) > persistence.NodeLogLimit {
		logs = logs[len(logs)-persistence.NodeLogLimit:]
	}

	p.logs[key] = logs

	return nil
}

func (p *Persistence) NodeLogs(_ context.Context, _, nodeID string) ([]models.NodeLog, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	logs := p.logs[nodeID]
	out := make([]models.NodeLog, len(logs))
	copy(out, logs)

	return out, nil
}

func (p *Persistence) NodeStat(_ context.Context, automationID, nodeID string) (*models.NodeStat, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stat, ok := p.stats[statKey(automationID, nodeID)]
	if !ok {
		return nil, persistence.ErrNodeNotFound
	}

	return clone(stat), nil
}

func (p *Persistence) ReplaceTriggerIndex(_ context.Context, automationID string, entries []models.TriggerIndexEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := make([]models.TriggerIndexEntry, len(entries))
	copy(copied, entries)
	p.index[automationID] = copied

	return nil
}

func (p *Persistence) TriggerIndexByKey(_ context.Context, triggerType, key string) ([]models.TriggerIndexEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	matches := make([]models.TriggerIndexEntry, 0)
	for _, entries := range p.index {
		for _, entry := range entries {
			if entry.TriggerType == triggerType && entry.Key == key {
				matches = append(matches, entry)
			}
		}
	}

	return matches, nil
}

func (p *Persistence) TriggerIndexByOwner(_ context.Context, ownerID, triggerType string) ([]models.TriggerIndexEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	matches := make([]models.TriggerIndexEntry, 0)
	for _, entries := range p.index {
		for _, entry := range entries {
			if entry.OwnerID == ownerID && entry.TriggerType == triggerType {
				matches = append(matches, entry)
			}
		}
	}

	return matches, nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}
