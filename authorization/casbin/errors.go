package casbin

import "fmt"

type UnknownPolicyTypeError struct {
	PolicyType string
	Line       int
}

func (err UnknownPolicyTypeError) Error() string {
	return fmt.Sprintf("line %d: unknown policy type %q", err.Line, err.PolicyType)
}

// InvalidRuleError reports a rule with the wrong number of values for its type.
type InvalidRuleError struct {
	PolicyType string
	Line       int
	Fields     int
	Want       int
}

func (err InvalidRuleError) Error() string {
	return fmt.Sprintf("line %d: %s rule has %d values, want %d", err.Line, err.PolicyType, err.Fields, err.Want)
}
