package remotelog

import (
	"fmt"
)

const (
	// DefaultNamespace is used when no explicit namespace is provided.
	DefaultNamespace = "tarmac"

	// DefaultCategory names records that were logged without a category.
	DefaultCategory = "remotelog"
)

var (
	// ErrNamespaceInvalid is returned when a namespace contains whitespace only.
	ErrNamespaceInvalid = fmt.Errorf("namespace cannot be blank")
)

// RuntimeConfig carries configuration that is used during creation of remotelog components.
type RuntimeConfig struct {
	// Namespace is the function namespace used to scope host interactions.
	Namespace string
}

// Normalize returns a copy of the configuration with defaults applied.
func (c RuntimeConfig) Normalize() (RuntimeConfig, error) {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
		return c, nil
	}

	for _, r := range c.Namespace {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return c, nil
		}
	}

	return c, ErrNamespaceInvalid
}
