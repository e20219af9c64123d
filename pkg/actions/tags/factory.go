package tags

import (
	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/protocol"
)

type AddFactory struct{}

func NewAddFactory() *AddFactory {
	return &AddFactory{}
}

func (f *AddFactory) Create(config map[string]any) (protocol.Handler, error) {
	return newAction(config, modeAdd)
}

func (f *AddFactory) ID() string {
	return models.KindAddTag
}

type RemoveFactory struct{}

func NewRemoveFactory() *RemoveFactory {
	return &RemoveFactory{}
}

func (f *RemoveFactory) Create(config map[string]any) (protocol.Handler, error) {
	return newAction(config, modeRemove)
}

func (f *RemoveFactory) ID() string {
	return models.KindRemoveTag
}
