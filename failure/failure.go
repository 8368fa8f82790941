// Package failure holds the error taxonomy shared by the domain services.
//
// Services return these as pointers. Transport layers classify them with
// errors.As and map each kind to a client or server status.
package failure

import "fmt"

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field  string
	Reason string
}

func (err ValidationError) Error() string {
	if err.Field == "" {
		return err.Reason
	}

	return fmt.Sprintf("invalid %s: %s", err.Field, err.Reason)
}

// NotFoundError reports an entity id without a record.
type NotFoundError struct {
	Entity string
	ID     string
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %q not found", err.Entity, err.ID)
}

// RelationError reports two existing entities that are not linked the way the
// operation requires, e.g. a comment that does not belong to the video.
type RelationError struct {
	Parent   string
	ParentID string
	Child    string
	ChildID  string
}

func (err RelationError) Error() string {
	return fmt.Sprintf(
		"%s %q is not related to %s %q",
		err.Child,
		err.ChildID,
		err.Parent,
		err.ParentID,
	)
}

// AuthorizationError reports an actor lacking the ownership or authorship an
// action needs.
type AuthorizationError struct {
	Subject string
	Action  string
	Entity  string
	ID      string
}

func (err AuthorizationError) Error() string {
	return fmt.Sprintf(
		"user %q is not allowed to %s %s %q",
		err.Subject,
		err.Action,
		err.Entity,
		err.ID,
	)
}

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (err ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", err.Entity, err.Field, err.Value)
}
