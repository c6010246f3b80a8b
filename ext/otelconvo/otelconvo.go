package otelconvo

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/convo"
	"github.com/skosovsky/convo/adapter"
)

const instrumentationName = "github.com/skosovsky/convo/ext/otelconvo"

// Span names.
const (
	SpanTranslate        = "convo.translate"
	SpanParseResponse    = "convo.parse_response"
	SpanParseStreamChunk = "convo.parse_stream_chunk"
)

// Attribute keys set on spans.
const (
	AttrConversationID = attribute.Key("convo.conversation.id")
	AttrMessagesCount  = attribute.Key("convo.messages.count")
	AttrToolsCount     = attribute.Key("convo.tools.count")
	AttrToolCallsCount = attribute.Key("convo.tool_calls.count")
	AttrStopReason     = attribute.Key("convo.response.stop_reason")
	AttrModel          = attribute.Key("convo.response.model")
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithTracerProvider sets the provider spans are created from. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Adapter) {
		if tp != nil {
			a.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithProviderName adds a "convo.provider" attribute to every span.
func WithProviderName(name string) Option {
	return func(a *Adapter) {
		a.provider = name
	}
}

// Adapter traces calls to the wrapped ProviderAdapter.
type Adapter struct {
	next     adapter.ProviderAdapter
	tracer   trace.Tracer
	provider string
}

var _ adapter.ProviderAdapter = (*Adapter)(nil)

// Wrap returns next instrumented with tracing.
func Wrap(next adapter.ProviderAdapter, opts ...Option) *Adapter {
	a := &Adapter{
		next:   next,
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Unwrap returns the wrapped adapter.
func (a *Adapter) Unwrap() adapter.ProviderAdapter { return a.next }

// Translate implements adapter.ProviderAdapter.
func (a *Adapter) Translate(ctx context.Context, conv *convo.Conversation) (any, error) {
	attrs := a.baseAttrs()
	if conv != nil {
		attrs = append(attrs,
			AttrConversationID.String(conv.ID),
			AttrMessagesCount.Int(len(conv.Messages)),
			AttrToolsCount.Int(len(conv.Tools)),
		)
	}
	ctx, span := a.tracer.Start(ctx, SpanTranslate,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	out, err := a.next.Translate(ctx, conv)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return out, nil
}

// ParseResponse implements adapter.ProviderAdapter.
func (a *Adapter) ParseResponse(ctx context.Context, raw any) (*adapter.Response, error) {
	ctx, span := a.tracer.Start(ctx, SpanParseResponse,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(a.baseAttrs()...),
	)
	defer span.End()

	resp, err := a.next.ParseResponse(ctx, raw)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		AttrToolCallsCount.Int(len(resp.Message.ToolCalls)),
		AttrStopReason.String(resp.Metadata.StopReason),
		AttrModel.String(resp.Metadata.Model),
	)
	return resp, nil
}

// ParseStreamChunk implements adapter.ProviderAdapter.
func (a *Adapter) ParseStreamChunk(ctx context.Context, rawChunk any) ([]convo.Message, error) {
	ctx, span := a.tracer.Start(ctx, SpanParseStreamChunk,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(a.baseAttrs()...),
	)
	defer span.End()

	msgs, err := a.next.ParseStreamChunk(ctx, rawChunk)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(AttrMessagesCount.Int(len(msgs)))
	return msgs, nil
}

func (a *Adapter) baseAttrs() []attribute.KeyValue {
	if a.provider == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String("convo.provider", a.provider)}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
