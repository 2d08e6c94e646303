package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/flowdeck/flowdeck/pkg/channels/gochannel"
	"github.com/flowdeck/flowdeck/pkg/channels/kafka"
	"github.com/flowdeck/flowdeck/pkg/eventbus"
)

// NewEventBus creates an event bus for the given provider. "none" disables
// lifecycle events entirely and returns nil, which the services accept.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, "flowdeck")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create in-process pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "none":
		return nil
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
