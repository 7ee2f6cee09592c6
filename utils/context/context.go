package context

import (
	"context"

	"github.com/muhammadheryan/catalog-api/constant"
	"github.com/muhammadheryan/catalog-api/model"
)

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user *model.UserEntity) context.Context {
	return context.WithValue(ctx, constant.UserKey, user)
}

func GetUser(ctx context.Context) (*model.UserEntity, bool) {
	u, ok := ctx.Value(constant.UserKey).(*model.UserEntity)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}

func GetUserID(ctx context.Context) (string, bool) {
	u, ok := GetUser(ctx)
	if !ok {
		return "", false
	}
	return u.ID, true
}
