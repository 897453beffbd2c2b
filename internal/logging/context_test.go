package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func fieldKeys(ctx context.Context) map[string]string {
	out := make(map[string]string)
	for _, f := range ContextFields(ctx) {
		out[f.Key] = f.String
	}
	return out
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_IDs(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithProfileID(ctx, "medical.v2")

	keys := fieldKeys(ctx)
	assert.Equal(t, "req-123", keys["request.id"])
	assert.Equal(t, "medical.v2", keys["profile.id"])
}

func TestContextFields_Trace(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	keys := fieldKeys(ctx)
	assert.Equal(t, sc.TraceID().String(), keys["trace_id"])
	assert.Equal(t, sc.SpanID().String(), keys["span_id"])
	assert.Contains(t, keys, "trace_sampled")
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "uuid", id: "3f2b8c1e-9a7d-4c2b-8e1f-0a9b8c7d6e5f"},
		{name: "dotted", id: "medical.v2"},
		{name: "empty", id: "", wantErr: true},
		{name: "spaces", id: "req 1", wantErr: true},
		{name: "newline injection", id: "req\n{\"level\":\"error\"}", wantErr: true},
		{name: "too long", id: strings.Repeat("a", maxIDLen+1), wantErr: true},
		{name: "invalid utf8", id: "\xff", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id, "requestID")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWithRequestID_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { WithRequestID(context.Background(), "bad id") })
	assert.Panics(t, func() { WithProfileID(context.Background(), "") })
}

func TestFromContext(t *testing.T) {
	fallback := FromContext(context.Background())
	require.NotNil(t, fallback)

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
}
