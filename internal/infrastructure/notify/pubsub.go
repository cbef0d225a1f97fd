// Package notify delivers order notifications to the outside world.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Zhima-Mochi/storefront/internal/application/notification"

	"cloud.google.com/go/pubsub"
)

// PubSubNotifier publishes each notification as a JSON message on a topic.
// Mail delivery happens in a downstream subscriber.
type PubSubNotifier struct {
	topic *pubsub.Topic
}

func NewPubSubNotifier(client *pubsub.Client, topicID string) *PubSubNotifier {
	return &PubSubNotifier{topic: client.Topic(topicID)}
}

// EnsureTopic creates the topic when it does not exist yet.
func EnsureTopic(ctx context.Context, client *pubsub.Client, topicID string) error {
	t := client.Topic(topicID)
	ok, err := t.Exists(ctx)
	if err != nil {
		return fmt.Errorf("notify: check topic %q: %w", topicID, err)
	}
	if ok {
		return nil
	}
	if _, err := client.CreateTopic(ctx, topicID); err != nil {
		return fmt.Errorf("notify: create topic %q: %w", topicID, err)
	}
	return nil
}

func (n *PubSubNotifier) Notify(ctx context.Context, msg notification.Notification) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encode: %w", err)
	}
	result := n.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":      string(msg.Type),
			"tenant_id": msg.TenantID,
			"order_id":  msg.OrderID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("notify: publish %s: %w", msg.Type, err)
	}
	return nil
}

// Stop flushes pending messages.
func (n *PubSubNotifier) Stop() {
	n.topic.Stop()
}
