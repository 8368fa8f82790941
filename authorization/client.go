package authorization

import (
	"context"
	"fmt"

	authcontext "github.com/nasermirzaei89/vidtube/authentication/context"
)

// Client checks access for the subject carried by the request context.
type Client struct {
	authzSvc *Service
}

func NewClient(authzSvc *Service) *Client {
	return &Client{
		authzSvc: authzSvc,
	}
}

// CheckAccess returns an *AccessDeniedError when the current subject may not
// perform action on resource of service.
func (c *Client) CheckAccess(ctx context.Context, service, resource, action string) error {
	subject := authcontext.GetSubject(ctx)

	res, err := c.authzSvc.CheckAccess(ctx, CheckAccessRequest{
		Subject:  subject,
		Service:  service,
		Resource: resource,
		Action:   action,
	})
	if err != nil {
		return fmt.Errorf("error on check permission: %w", err)
	}

	if !res.Allowed {
		return &AccessDeniedError{
			Subject:  subject,
			Service:  service,
			Resource: resource,
			Action:   action,
		}
	}

	return nil
}

func (c *Client) AddToGroup(ctx context.Context, sub string, group ...string) error {
	err := c.authzSvc.AddToGroup(ctx, sub, group...)
	if err != nil {
		return fmt.Errorf("error on add to group: %w", err)
	}

	return nil
}
