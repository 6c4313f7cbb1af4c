package ruleengine

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateFact  = errors.New("duplicate fact key")
	ErrFactNotFound   = errors.New("fact not found")
	ErrFactType       = errors.New("fact has unexpected type")
	ErrIncompleteRule = errors.New("incomplete rule")
	ErrActionFailed   = errors.New("rule action failed")
)

// ActionError reports an action that failed during Fire. It carries the
// rule and the identity of the object the rule was bound to.
type ActionError struct {
	Rule     string
	Identity string
	Err      error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("rule %s (%s): %v", e.Rule, e.Identity, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func (e *ActionError) Is(target error) bool {
	return target == ErrActionFailed
}
