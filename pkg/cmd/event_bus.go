package cmd

import (
	"log/slog"

	"github.com/outflowhq/outflow/pkg/eventbus"
)

// NewEventBus builds the flow event bus. Only the in-process gochannel
// transport is supported; flow events stay inside the API process.
func NewEventBus(logger *slog.Logger) eventbus.EventBus {
	return eventbus.NewGoChannelEventBus(logger)
}
