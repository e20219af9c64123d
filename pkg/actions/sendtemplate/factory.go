package sendtemplate

import (
	"github.com/zaptalk/zaptalk/pkg/cache"
	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence"
	"github.com/zaptalk/zaptalk/pkg/protocol"
)

type Factory struct {
	store     persistence.Persistence
	templates cache.TemplateCache
	messenger protocol.Messenger
}

func NewFactory(store persistence.Persistence, templates cache.TemplateCache, messenger protocol.Messenger) *Factory {
	return &Factory{store: store, templates: templates, messenger: messenger}
}

func (f *Factory) Create(config map[string]any) (protocol.Handler, error) {
	return NewAction(config, f.store, f.templates, f.messenger)
}

func (f *Factory) ID() string {
	return models.KindSendTemplate
}
