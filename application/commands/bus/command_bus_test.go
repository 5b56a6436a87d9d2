package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pingCommand struct {
	valid bool
}

func (c pingCommand) Validate() error {
	if !c.valid {
		return errors.New("ping is invalid")
	}
	return nil
}

type recorder struct {
	names []string
	errs  []error
}

func (r *recorder) RecordCommandExecution(_ context.Context, name string, _ time.Duration, err error) {
	r.names = append(r.names, name)
	r.errs = append(r.errs, err)
}

func TestCommandBus_SendReturnsHandlerResult(t *testing.T) {
	rec := &recorder{}
	b := NewCommandBus(LoggingMiddleware(zap.NewNop()), MetricsMiddleware(rec))

	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
		return "pong", nil
	})))

	result, err := b.Send(context.Background(), pingCommand{valid: true})

	require.NoError(t, err)
	assert.Equal(t, "pong", result)
	assert.Equal(t, []string{"pingCommand"}, rec.names)
}

func TestCommandBus_ValidationStopsDispatch(t *testing.T) {
	called := false
	b := NewCommandBus()
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
		called = true
		return nil, nil
	})))

	_, err := b.Send(context.Background(), pingCommand{})

	assert.Error(t, err)
	assert.False(t, called)
}

func TestCommandBus_HandlerErrorIsWrapped(t *testing.T) {
	sentinel := errors.New("boom")
	rec := &recorder{}
	b := NewCommandBus(MetricsMiddleware(rec))
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
		return nil, sentinel
	})))

	_, err := b.Send(context.Background(), pingCommand{valid: true})

	assert.ErrorIs(t, err, sentinel)
	assert.ErrorIs(t, rec.errs[0], sentinel)
}

func TestCommandBus_UnknownAndDuplicateHandlers(t *testing.T) {
	b := NewCommandBus()

	_, err := b.Send(context.Background(), pingCommand{valid: true})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	noop := CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) { return nil, nil })
	require.NoError(t, b.Register(pingCommand{}, noop))
	assert.Error(t, b.Register(pingCommand{}, noop))
}

func TestPipeline_FirstMiddlewareRunsOutermost(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}

	handler := NewPipeline(trace("outer"), trace("inner")).Execute(
		CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
			order = append(order, "handler")
			return nil, nil
		}))

	_, err := handler.Handle(context.Background(), pingCommand{valid: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

type spanRecorder struct {
	spans       []string
	annotations map[string]string
	metadata    map[string]interface{}
}

func newSpanRecorder() *spanRecorder {
	return &spanRecorder{annotations: map[string]string{}, metadata: map[string]interface{}{}}
}

func (s *spanRecorder) TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error {
	s.spans = append(s.spans, name)
	return fn(ctx)
}

func (s *spanRecorder) AddAnnotation(_ context.Context, key string, value string) {
	s.annotations[key] = value
}

func (s *spanRecorder) AddMetadata(_ context.Context, key string, value interface{}) {
	s.metadata[key] = value
}

type annotatedCommand struct{ sauceID string }

func (annotatedCommand) Validate() error { return nil }

func (c annotatedCommand) TraceAnnotations() map[string]string {
	return map[string]string{"sauceID": c.sauceID}
}

func TestTracingMiddleware_NamesSpanAfterCommand(t *testing.T) {
	spans := newSpanRecorder()
	b := NewCommandBus(TracingMiddleware(spans))
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
		return 42, nil
	})))

	result, err := b.Send(context.Background(), pingCommand{valid: true})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, []string{"command.pingCommand"}, spans.spans)
}

func TestTracingMiddleware_AnnotatesSpan(t *testing.T) {
	spans := newSpanRecorder()
	b := NewCommandBus(TracingMiddleware(spans))
	require.NoError(t, b.Register(annotatedCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
		return nil, errors.New("table unavailable")
	})))

	_, err := b.Send(context.Background(), annotatedCommand{sauceID: "s1"})

	require.Error(t, err)
	assert.Equal(t, map[string]string{"sauceID": "s1"}, spans.annotations)
	assert.Equal(t, "table unavailable", spans.metadata["error"])
}
