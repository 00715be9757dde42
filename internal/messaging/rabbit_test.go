package messaging

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/require"

	"notes-saas/internal/model"
)

func TestQueueNames(t *testing.T) {
	id := "0b6a3c9e-7f57-4a62-9d1c-2f1f0c3b1a11"
	require.Equal(t, "tenant_"+id+"_events", QueueName(id))
	require.Equal(t, "tenant_"+id+"_events_dlq", DeadLetterQueueName(id))
}

func TestEventPublishing(t *testing.T) {
	e := model.NewEvent(uuid.New(), uuid.New(), model.EventUserInvited, uuid.New(),
		map[string]string{"email": "new@acme.test"})

	msg, err := EventPublishing(e)
	require.NoError(t, err)
	require.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	require.Equal(t, e.ID.String(), msg.MessageId)
	require.Equal(t, "user.invited", msg.Type)

	var decoded model.Event
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	require.Equal(t, e.TenantID, decoded.TenantID)
	require.JSONEq(t, `{"email":"new@acme.test"}`, string(decoded.Payload))
}
