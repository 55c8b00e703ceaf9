package password

import (
	"errors"
	"fmt"
	"unicode"
)

// Policy describes the complexity requirements enforced before a password is
// accepted for hashing.
type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPolicy matches the practice-wide password rules.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:      10,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
	}
}

// ErrWeakPassword is the sentinel wrapped by every complexity violation.
var ErrWeakPassword = errors.New("password does not meet complexity requirements")

// ValidateComplexity checks pw against the policy. Violations wrap
// ErrWeakPassword and name the first unmet requirement.
func ValidateComplexity(pw string, policy Policy) error {
	if policy.MinLength > 0 && len(pw) < policy.MinLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, policy.MinLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if policy.RequireUpper && !hasUpper {
		return fmt.Errorf("%w: missing uppercase letter", ErrWeakPassword)
	}
	if policy.RequireLower && !hasLower {
		return fmt.Errorf("%w: missing lowercase letter", ErrWeakPassword)
	}
	if policy.RequireDigit && !hasDigit {
		return fmt.Errorf("%w: missing digit", ErrWeakPassword)
	}
	if policy.RequireSpecial && !hasSpecial {
		return fmt.Errorf("%w: missing special character", ErrWeakPassword)
	}
	return nil
}
