package errors

import (
	"strings"
	"unicode"
)

// MaxIDLength bounds node and edge identifiers accepted by the engine.
const MaxIDLength = 512

// ValidateID validates a node or edge identifier.
//
// The rules are deliberately small:
//   - No empty ids
//   - No control characters or null bytes
//   - Maximum length of [MaxIDLength] bytes
//
// Everything else, including spaces and punctuation, is accepted because
// editor-generated ids routinely contain them.
func ValidateID(kind, id string) error {
	if id == "" {
		return Validation("%s id cannot be empty", kind)
	}
	if len(id) > MaxIDLength {
		return Validation("%s id too long (max %d characters)", kind, MaxIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return Validation("%s id %q contains control characters", kind, truncate(id))
		}
	}
	return nil
}

// ValidateNodeID validates a node identifier.
func ValidateNodeID(id string) error {
	return ValidateID("node", id)
}

// ValidateEdge validates an edge identifier and both of its endpoints.
// Self-loops are rejected because they can never be laid out hierarchically.
func ValidateEdge(id, source, target string) error {
	if err := ValidateID("edge", id); err != nil {
		return err
	}
	if err := ValidateID("edge source", source); err != nil {
		return err
	}
	if err := ValidateID("edge target", target); err != nil {
		return err
	}
	if source == target {
		return Validation("edge %q is a self-loop on %q", truncate(id), truncate(source))
	}
	return nil
}

// ValidateLockID validates a preview lock identifier.
func ValidateLockID(id string) error {
	if strings.TrimSpace(id) == "" {
		return New(ErrCodeInvalidConfig, "lock id cannot be blank")
	}
	return ValidateID("lock", id)
}

func truncate(s string) string {
	const max = 40
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
