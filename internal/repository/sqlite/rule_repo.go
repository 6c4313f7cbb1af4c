package sqlite

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/repository"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var _ repository.RuleConfigRepository = (*RuleRepository)(nil)

type RuleRepository struct {
	db *sql.DB
}

const ruleColumns = `id, name, type, active, priority`

func (r *RuleRepository) CreateRule(ctx context.Context, rule *domain.BusinessRule) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO business_rules (name, type, active, priority) VALUES (?, ?, ?, ?)`,
		rule.Name, string(rule.Type), boolToInt(rule.Active), rule.Priority)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: rule %s/%s", repository.ErrDuplicate, rule.Name, rule.Type)
		}
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read rule id: %w", err)
	}
	rule.ID = id

	return nil
}

func (r *RuleRepository) CreateAttribute(ctx context.Context, rule *domain.BusinessRule, attribute *domain.RuleAttribute) error {
	if _, err := r.FindBusinessRuleByID(ctx, rule.ID); err != nil {
		return err
	}

	attribute.RuleType = rule.Type
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rule_attributes (attribute_name, rule_type, rule_id, display_name) VALUES (?, ?, ?, ?)`,
		attribute.AttributeName, string(attribute.RuleType), rule.ID, attribute.DisplayName)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: attribute %s/%s", repository.ErrDuplicate, attribute.AttributeName, attribute.RuleType)
		}
		return fmt.Errorf("failed to insert attribute: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read attribute id: %w", err)
	}
	attribute.ID = id
	attribute.RuleID = rule.ID

	return nil
}

func (r *RuleRepository) CreateValue(ctx context.Context, attribute *domain.RuleAttribute, operand string) (*domain.RuleValue, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rule_values (operand, attribute_id) VALUES (?, ?)`,
		operand, attribute.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: value %q", repository.ErrDuplicate, operand)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: attribute %d", repository.ErrNotFound, attribute.ID)
		}
		return nil, fmt.Errorf("failed to insert value: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read value id: %w", err)
	}

	return &domain.RuleValue{ID: id, Operand: operand, AttributeID: attribute.ID}, nil
}

func (r *RuleRepository) SetActive(ctx context.Context, ruleID int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE business_rules SET active = ? WHERE id = ?`, boolToInt(active), ruleID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: rule %d", repository.ErrNotFound, ruleID)
	}

	return nil
}

func (r *RuleRepository) FindBusinessRule(ctx context.Context, name string, ruleType domain.RuleType) (*domain.BusinessRule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM business_rules WHERE name = ? AND type = ?`, name, string(ruleType))

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: rule %s/%s", repository.ErrNotFound, name, ruleType)
	}
	return rule, err
}

func (r *RuleRepository) FindBusinessRuleByID(ctx context.Context, id int64) (*domain.BusinessRule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM business_rules WHERE id = ?`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: rule %d", repository.ErrNotFound, id)
	}
	return rule, err
}

func (r *RuleRepository) FindRulesByType(ctx context.Context, ruleType domain.RuleType) ([]*domain.BusinessRule, error) {
	return r.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM business_rules WHERE type = ? ORDER BY priority DESC, id`, string(ruleType))
}

func (r *RuleRepository) FindActiveRules(ctx context.Context, active bool) ([]*domain.BusinessRule, error) {
	return r.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM business_rules WHERE active = ? ORDER BY priority DESC, id`, boolToInt(active))
}

func (r *RuleRepository) FindRuleAttribute(ctx context.Context, attributeName string, ruleType domain.RuleType) (*domain.RuleAttribute, error) {
	var attr domain.RuleAttribute
	var rt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, attribute_name, rule_type, rule_id, display_name
		 FROM rule_attributes WHERE attribute_name = ? AND rule_type = ?`,
		attributeName, string(ruleType)).
		Scan(&attr.ID, &attr.AttributeName, &rt, &attr.RuleID, &attr.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: attribute %s/%s", repository.ErrNotFound, attributeName, ruleType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attribute: %w", err)
	}
	attr.RuleType = domain.RuleType(rt)

	return &attr, nil
}

func (r *RuleRepository) FindRuleValues(ctx context.Context, attribute *domain.RuleAttribute) ([]*domain.RuleValue, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, operand, attribute_id FROM rule_values WHERE attribute_id = ? ORDER BY id`, attribute.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query values: %w", err)
	}
	defer rows.Close()

	var result []*domain.RuleValue
	for rows.Next() {
		var v domain.RuleValue
		if err := rows.Scan(&v.ID, &v.Operand, &v.AttributeID); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		result = append(result, &v)
	}

	return result, rows.Err()
}

func (r *RuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]*domain.BusinessRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var result []*domain.BusinessRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rule)
	}

	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(s scanner) (*domain.BusinessRule, error) {
	var rule domain.BusinessRule
	var ruleType string
	var active int
	if err := s.Scan(&rule.ID, &rule.Name, &ruleType, &active, &rule.Priority); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}
	rule.Type = domain.RuleType(ruleType)
	rule.Active = active != 0

	return &rule, nil
}
