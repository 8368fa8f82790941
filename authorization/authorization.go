// Package authorization gates service actions with role based policies.
//
// Subjects are user ids or system groups from the authentication context.
// Policies name a service, a resource and an action, so ownership rules that
// depend on entity state stay in the domain services.
package authorization

import (
	"context"
	"errors"
	"fmt"
)

type Provider interface {
	CheckAccess(ctx context.Context, req CheckAccessRequest) (res *CheckAccessResponse, err error)
	AddToGroup(ctx context.Context, sub string, groups ...string) (err error)
}

type Service struct {
	provider Provider
}

func NewService(provider Provider) (*Service, error) {
	if provider == nil {
		return nil, errors.New("authorization provider must not be nil")
	}

	return &Service{provider: provider}, nil
}

type CheckAccessRequest struct {
	Subject  string
	Service  string
	Resource string
	Action   string
}

type CheckAccessResponse struct {
	Allowed bool
}

type AccessDeniedError struct {
	Subject  string
	Service  string
	Resource string
	Action   string
}

func (err AccessDeniedError) Error() string {
	if err.Resource != "" {
		return fmt.Sprintf(
			"access denied for subject '%s' on service '%s' resource '%s' action '%s'",
			err.Subject,
			err.Service,
			err.Resource,
			err.Action,
		)
	}

	return fmt.Sprintf(
		"access denied for subject '%s' on service '%s' action '%s'",
		err.Subject,
		err.Service,
		err.Action,
	)
}

func (svc *Service) CheckAccess(ctx context.Context, req CheckAccessRequest) (*CheckAccessResponse, error) {
	res, err := svc.provider.CheckAccess(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to check permission: %w", err)
	}

	return res, nil
}

func (svc *Service) AddToGroup(ctx context.Context, sub string, groups ...string) error {
	err := svc.provider.AddToGroup(ctx, sub, groups...)
	if err != nil {
		return fmt.Errorf("failed to add grouping policies: %w", err)
	}

	return nil
}
