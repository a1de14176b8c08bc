package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/pokedex/internal/mykafka"
	"github.com/Skotchmaster/pokedex/pkg/logging"
)

// publish never fails the caller; a lost event is only logged.
func publish(ctx context.Context, p mykafka.Publisher, topic string, key uint, event map[string]any) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, fmt.Sprint(key), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", topic, "type", event["type"], "error", err)
	}
}
