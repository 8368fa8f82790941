package casbin

import (
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/nasermirzaei89/vidtube/authorization"
)

// ResourceNone stands for a check that does not target a single resource.
const ResourceNone = "-"

//go:embed model.conf
var casbinModelContent string

type AuthorizationProvider struct {
	enforcer *casbin.Enforcer
}

var _ authorization.Provider = (*AuthorizationProvider)(nil)

func NewAuthorizationProvider(persistAdapter persist.Adapter) (*AuthorizationProvider, error) {
	if persistAdapter == nil {
		return nil, fmt.Errorf("casbin adapter must not be nil")
	}

	casbinModel, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(casbinModel, persistAdapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)

	err = enforcer.LoadPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to load db policy: %w", err)
	}

	return &AuthorizationProvider{
		enforcer: enforcer,
	}, nil
}

func (ap *AuthorizationProvider) CheckAccess(
	_ context.Context,
	req authorization.CheckAccessRequest,
) (*authorization.CheckAccessResponse, error) {
	if req.Resource == "" {
		req.Resource = ResourceNone
	}

	allowed, err := ap.enforcer.Enforce(req.Subject, req.Service, req.Resource, req.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to check permission: %w", err)
	}

	return &authorization.CheckAccessResponse{Allowed: allowed}, nil
}

func (ap *AuthorizationProvider) AddToGroup(_ context.Context, sub string, groups ...string) error {
	for _, group := range groups {
		_, err := ap.enforcer.AddGroupingPolicy(sub, group)
		if err != nil {
			return fmt.Errorf("failed to add grouping policy: %w", err)
		}
	}

	return nil
}

// AddPolicyFromCSV merges the rules of a casbin policy file into the stored
// policy. Rules that already exist are left alone.
func (ap *AuthorizationProvider) AddPolicyFromCSV(_ context.Context, casbinPolicyContent string) error {
	reader := csv.NewReader(strings.NewReader(casbinPolicyContent))

	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to read policy content: %w", err)
		}

		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}

		line, _ := reader.FieldPos(0)

		err = ap.addPolicyFromRecord(line, record)
		if err != nil {
			return fmt.Errorf("failed to add policy from record: %w", err)
		}
	}
}

// ruleFields is the number of values after the rule type.
var ruleFields = map[string]int{
	"p": 4, // sub, svc, res, act
	"g": 2, // member, group
}

func (ap *AuthorizationProvider) addPolicyFromRecord(line int, record []string) error {
	ruleType := strings.TrimSpace(record[0])

	want, ok := ruleFields[ruleType]
	if !ok {
		return UnknownPolicyTypeError{PolicyType: ruleType, Line: line}
	}

	args := make([]any, 0, len(record)-1)

	for _, field := range record[1:] {
		args = append(args, strings.TrimSpace(field))
	}

	if len(args) != want {
		return InvalidRuleError{PolicyType: ruleType, Line: line, Fields: len(args), Want: want}
	}

	// casbin skips rules that are already present.
	if ruleType == "g" {
		_, err := ap.enforcer.AddGroupingPolicy(args...)
		if err != nil {
			return fmt.Errorf("failed to add grouping policy: %w", err)
		}

		return nil
	}

	_, err := ap.enforcer.AddPolicy(args...)
	if err != nil {
		return fmt.Errorf("failed to add policy: %w", err)
	}

	return nil
}
