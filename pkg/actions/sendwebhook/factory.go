package sendwebhook

import (
	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any) (protocol.Handler, error) {
	return NewAction(config)
}

func (f *Factory) ID() string {
	return models.KindSendWebhook
}
