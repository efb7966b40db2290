package api

import "context"

func contextWithUserID(ctx context.Context, externalUserID string) context.Context {
	return context.WithValue(ctx, userIDKey, externalUserID)
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
