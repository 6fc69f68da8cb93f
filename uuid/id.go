package uuid

import (
	"github.com/google/uuid"
	"github.com/lukasz-zimnoch/dexly/voluba"
)

// IDService issues random (version 4) identifiers for series snapshots.
type IDService struct{}

func NewIDService() *IDService {
	return &IDService{}
}

func (ids *IDService) NewID() voluba.ID {
	return uuid.New()
}
