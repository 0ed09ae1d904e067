package queue

import (
	"context"
	"testing"

	"github.com/aq2208/settlement-api/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHandler_DecodesAndDelegates(t *testing.T) {
	var got usecase.RetryMsg
	h := JSONHandler[usecase.RetryMsg]{
		HandleFunc: func(_ context.Context, msg usecase.RetryMsg) error {
			got = msg
			return nil
		},
	}

	err := h.Handle(context.Background(), amqp.Delivery{Body: []byte(`{"eventId":"evt_9"}`)})
	require.NoError(t, err)
	assert.Equal(t, "evt_9", got.EventID)
}

func TestJSONHandler_BadPayload(t *testing.T) {
	called := false
	h := JSONHandler[usecase.RetryMsg]{
		HandleFunc: func(_ context.Context, _ usecase.RetryMsg) error {
			called = true
			return nil
		},
	}

	err := h.Handle(context.Background(), amqp.Delivery{Body: []byte("not json")})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestJSONHandler_HandlerErrorPropagates(t *testing.T) {
	h := JSONHandler[usecase.RetryMsg]{
		HandleFunc: func(_ context.Context, _ usecase.RetryMsg) error {
			return assert.AnError
		},
	}

	err := h.Handle(context.Background(), amqp.Delivery{Body: []byte(`{}`)})
	assert.ErrorIs(t, err, assert.AnError)
}
