package server

import "fmt"

// Input length limits, grounded on the same resource-exhaustion-guard idiom
// as the rest of this codebase's request validation.
const (
	maxStatementLength = 10000
	maxTheoryLength    = 1_000_000
	maxPathLength      = 4096

	defaultForwardChainIterations = 10
)

func validateNonEmpty(field, value string, maxLen int) error {
	if value == "" {
		return fmt.Errorf("%s: must not be empty", field)
	}
	if len(value) > maxLen {
		return fmt.Errorf("%s: exceeds maximum length of %d bytes", field, maxLen)
	}
	return nil
}
