package sendmedia

import (
	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/protocol"
)

type Factory struct {
	messenger protocol.Messenger
}

func NewFactory(messenger protocol.Messenger) *Factory {
	return &Factory{messenger: messenger}
}

func (f *Factory) Create(config map[string]any) (protocol.Handler, error) {
	return NewAction(config, f.messenger)
}

func (f *Factory) ID() string {
	return models.KindSendMedia
}
