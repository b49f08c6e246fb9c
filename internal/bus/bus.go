package bus

import (
	"fmt"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// New creates a new event bus based on configuration.
// Standalone profile: returns ChannelBus.
// Distributed profile: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
