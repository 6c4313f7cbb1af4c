package domain

type RuleType string

const (
	RuleTypeNonSTP  RuleType = "NON-STP"
	RuleTypeNetting RuleType = "NETTING"
)

// Attribute names a rule can match on.
const (
	AttributeCounterParty   = "counterParty"
	AttributeCurrency       = "currency"
	AttributeSettlementDate = "settlementDate"
	AttributeAmount         = "amount"
)

// BusinessRule is a named rule definition. Name and Type are unique together.
type BusinessRule struct {
	ID       int64    `json:"id" yaml:"-"`
	Name     string   `json:"name" yaml:"name"`
	Type     RuleType `json:"type" yaml:"type"`
	Active   bool     `json:"active" yaml:"active"`
	Priority int      `json:"priority" yaml:"priority"`
}

// RuleAttribute is a matching dimension owned by exactly one BusinessRule.
type RuleAttribute struct {
	ID            int64    `json:"id"`
	AttributeName string   `json:"attribute_name"`
	RuleType      RuleType `json:"rule_type"`
	RuleID        int64    `json:"rule_id"`
	DisplayName   string   `json:"display_name"`
}

// RuleValue is one operand of a RuleAttribute's match set.
type RuleValue struct {
	ID          int64  `json:"id"`
	Operand     string `json:"operand"`
	AttributeID int64  `json:"attribute_id"`
}
