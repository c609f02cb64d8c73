package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type RequestData struct {
	UserID uuid.UUID
	Role   string
}

type requestDataKey struct{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	rd, _ := ctx.Value(requestDataKey{}).(*RequestData)
	return rd
}
