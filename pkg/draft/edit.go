package draft

import (
	"errors"
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/google/uuid"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	FieldCategory        = "category"
	FieldSubcategory     = "subcategory"
	FieldGoal            = "goal"
	FieldCanJoin         = "can_join"
	FieldPreferredHelper = "preferred_helper"
)

const maxGoalLength = 1000

var (
	ErrUnknownField = errors.New("unknown draft field")
	ErrInvalidValue = errors.New("invalid draft field value")
)

// New starts an empty draft with a fresh submission key.
func New(requesterId uint64) model.Draft {
	return model.Draft{
		RequesterId:   requesterId,
		SubmissionKey: uuid.NewString(),
	}
}

// Apply sets a single form field from the raw value carried by an interaction. An empty value
// clears optional fields.
func Apply(draft *model.Draft, field, value string) error {
	value = strings.TrimSpace(value)

	switch field {
	case FieldCategory:
		if draft.Category != value {
			draft.Subcategory = ""
		}
		draft.Category = value
	case FieldSubcategory:
		draft.Subcategory = value
	case FieldGoal:
		if !utf8.ValidString(value) {
			return fmt.Errorf("%w: goal is not valid UTF-8", ErrInvalidValue)
		}

		if utf8.RuneCountInString(value) > maxGoalLength {
			return fmt.Errorf("%w: goal longer than %d characters", ErrInvalidValue, maxGoalLength)
		}
		draft.Goal = value
	case FieldCanJoin:
		if value == "" {
			draft.CanJoin = nil
			return nil
		}

		canJoin, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: can_join %q", ErrInvalidValue, value)
		}
		draft.CanJoin = &canJoin
	case FieldPreferredHelper:
		if value == "" {
			draft.PreferredHelperId = nil
			return nil
		}

		helperId, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: preferred_helper %q", ErrInvalidValue, value)
		}
		draft.PreferredHelperId = &helperId
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	return nil
}
