// Package authcontext carries the acting subject through a request. A subject
// is a user id or one of the system subjects below.
package authcontext

import (
	"context"
	"strings"
)

const (
	// Anonymous is the guest user id.
	Anonymous = "system:anonymous"

	Authenticated   = "system:authenticated"
	Unauthenticated = "system:unauthenticated"

	servicePrefix = "system:service:"
)

type contextKeySubject struct{}

func GetSubject(ctx context.Context) string {
	userID, ok := ctx.Value(contextKeySubject{}).(string)
	if !ok || userID == "" {
		return Anonymous
	}

	return userID
}

func WithSubject(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeySubject{}, userID)
}

// WithServiceSubject marks work done by a background component rather than a
// user.
func WithServiceSubject(ctx context.Context, serviceName string) context.Context {
	return WithSubject(ctx, servicePrefix+serviceName)
}

// IsAuthenticated reports whether the subject is a signed-in user.
func IsAuthenticated(ctx context.Context) bool {
	subject := GetSubject(ctx)

	return subject != Anonymous && !strings.HasPrefix(subject, servicePrefix)
}
