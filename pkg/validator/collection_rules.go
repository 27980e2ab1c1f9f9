package validator

import "fmt"

// MinLenSlice validates that a slice has at least min items.
func MinLenSlice[T any](field string, value []T, min int) Rule {
	return Rule{
		Check: func() bool {
			return len(value) >= min
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must have at least %d items", min),
		},
	}
}

// MaxLenSlice validates that a slice has at most max items.
func MaxLenSlice[T any](field string, value []T, max int) Rule {
	return Rule{
		Check: func() bool {
			return len(value) <= max
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must have at most %d items", max),
		},
	}
}
