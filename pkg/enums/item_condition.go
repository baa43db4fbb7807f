package enums

import "fmt"

// ItemCondition is the condition a customer declares when requesting a return.
type ItemCondition string

const (
	ItemConditionUnopened  ItemCondition = "unopened"
	ItemConditionUsed      ItemCondition = "used"
	ItemConditionDamaged   ItemCondition = "damaged"
	ItemConditionDefective ItemCondition = "defective"
)

var validItemConditions = []ItemCondition{
	ItemConditionUnopened,
	ItemConditionUsed,
	ItemConditionDamaged,
	ItemConditionDefective,
}

// String implements fmt.Stringer.
func (i ItemCondition) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ItemCondition.
func (i ItemCondition) IsValid() bool {
	for _, candidate := range validItemConditions {
		if candidate == i {
			return true
		}
	}
	return false
}

// RequiresManualReview reports whether the declared condition routes the
// return through the admin exception path instead of automatic inspection.
func (i ItemCondition) RequiresManualReview() bool {
	return i == ItemConditionDamaged || i == ItemConditionDefective
}

// ParseItemCondition converts raw input into an ItemCondition.
func ParseItemCondition(value string) (ItemCondition, error) {
	for _, candidate := range validItemConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item condition %q", value)
}
