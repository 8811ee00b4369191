package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "event_type", Value: []byte("cart.updated")}}
	c := headerCarrier{headers: &headers}

	assert.Equal(t, "cart.updated", c.Get("event_type"))
	assert.Empty(t, c.Get("missing"))

	c.Set("event_type", "cart.cleared")
	c.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	assert.Equal(t, "cart.cleared", c.Get("event_type"))
	assert.ElementsMatch(t, []string{"event_type", "traceparent"}, c.Keys())
	assert.Len(t, headers, 2)
}

func TestExtractTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	msg := kafka.Message{Headers: []kafka.Header{
		{Key: "traceparent", Value: []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")},
	}}

	ctx := extractTrace(context.Background(), &msg)

	sc := trace.SpanContextFromContext(ctx)
	assert.True(t, sc.IsRemote())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())
}
