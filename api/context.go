package api

import (
	"context"
)

type keyType string

const (
	adminKey keyType = "admin"
)

// ctxWithAdmin marks the request as coming from the authenticated admin
func ctxWithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey, true)
}

// ctxIsAdmin reports whether the request carried a current admin session token
func ctxIsAdmin(ctx context.Context) bool {
	isAdmin, _ := ctx.Value(adminKey).(bool)
	return isAdmin
}

// requestAdmin adapts a request context to blogstate.AdminChecker
type requestAdmin struct {
	ctx context.Context
}

func (a requestAdmin) IsAdmin() bool {
	return ctxIsAdmin(a.ctx)
}
