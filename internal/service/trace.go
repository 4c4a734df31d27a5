package service

import (
	"context"

	"community_chat/internal/pkg"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("community_chat/internal/service")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan 只把基础设施错误记为 span 错误，业务分类错误（403/404/409）不算
func endSpan(span trace.Span, err error) {
	if err != nil {
		if kind := pkg.KindOf(err); kind != nil {
			span.SetAttributes(attribute.String("app.error_kind", kind.Error()))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func idAttr(key string, id uint64) attribute.KeyValue {
	return attribute.Int64(key, int64(id))
}
