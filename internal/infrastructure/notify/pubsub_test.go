package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application/notification"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPubSubNotifierPublishesJSON(t *testing.T) {
	client, srv := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, EnsureTopic(ctx, client, "orders"))
	require.NoError(t, EnsureTopic(ctx, client, "orders"))

	n := NewPubSubNotifier(client, "orders")
	defer n.Stop()

	err := n.Notify(ctx, notification.Notification{
		Type:        notification.TypeOrderShipped,
		TenantID:    "t1",
		OrderID:     "o1",
		OrderNumber: "ORD-ACME-1-ABCDEF12",
		Total:       decimal.RequireFromString("236.00"),
	})
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "order.shipped", msgs[0].Attributes["type"])
	assert.Equal(t, "o1", msgs[0].Attributes["order_id"])

	var got notification.Notification
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "ORD-ACME-1-ABCDEF12", got.OrderNumber)
	assert.True(t, decimal.RequireFromString("236").Equal(got.Total))
}

func TestLogNotifierNeverFails(t *testing.T) {
	assert.NoError(t, NewLogNotifier(nil).Notify(context.Background(), notification.Notification{Type: notification.TypeOrderPlaced}))
}
