package registry

import (
	"fmt"

	"github.com/npezzotti/go-scoreboard/internal/types"
)

type ScoreOp int

const (
	OpAdd ScoreOp = iota + 1
	OpSubtract
	OpSet
)

const defaultStep = 1

func (op ScoreOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpSet:
		return "set"
	default:
		return fmt.Sprintf("ScoreOp(%d)", int(op))
	}
}

// ScoreAction is a validated score mutation. The zero value is not a valid
// action; build one with Add, Subtract, Set or ParseScoreAction.
type ScoreAction struct {
	op    ScoreOp
	value int
}

func Add(value int) ScoreAction {
	return ScoreAction{op: OpAdd, value: value}
}

func Subtract(value int) ScoreAction {
	return ScoreAction{op: OpSubtract, value: value}
}

func Set(value int) ScoreAction {
	return ScoreAction{op: OpSet, value: value}
}

func (a ScoreAction) Op() ScoreOp {
	return a.op
}

func (a ScoreAction) Value() int {
	return a.value
}

func (a ScoreAction) String() string {
	return fmt.Sprintf("%s(%d)", a.op, a.value)
}

// ParseScoreAction validates a free-form action name and optional value.
// For add and subtract a missing or zero value means a step of one.
func ParseScoreAction(action string, value *int) (ScoreAction, error) {
	switch action {
	case "add":
		return Add(stepOrDefault(value)), nil
	case "subtract":
		return Subtract(stepOrDefault(value)), nil
	case "set":
		if value == nil {
			return ScoreAction{}, fmt.Errorf("set requires a value: %w", types.ErrInvalidInput)
		}
		return Set(*value), nil
	default:
		return ScoreAction{}, fmt.Errorf("unknown score action %q: %w", action, types.ErrInvalidInput)
	}
}

func stepOrDefault(value *int) int {
	if value == nil || *value == 0 {
		return defaultStep
	}

	return *value
}

func (a ScoreAction) valid() bool {
	switch a.op {
	case OpAdd, OpSubtract, OpSet:
		return true
	}

	return false
}

// apply returns the new score. No floor or ceiling is applied.
func (a ScoreAction) apply(score int) int {
	switch a.op {
	case OpAdd:
		return score + a.value
	case OpSubtract:
		return score - a.value
	case OpSet:
		return a.value
	}

	return score
}
