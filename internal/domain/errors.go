package domain

import "fmt"

// ValidationError marks a raw item that cannot become an Item.
type ValidationError struct {
	Field string
	Ref   string
}

func (e *ValidationError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("invalid item: missing %s", e.Field)
	}
	return fmt.Sprintf("invalid item %q: missing %s", e.Ref, e.Field)
}

// ConfigError reports inconsistent configuration detected at construction time.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}
