// Package yamlutil wraps YAML parsing to isolate the external dependency.
// Config files and post front matter both decode through it.
package yamlutil

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion (default 1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
	ErrNotMapping     = errors.New("yamlutil: front matter is not a mapping")
)

func validateInput(data []byte, v any) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if v == nil {
		return ErrNilDestination
	}
	return nil
}

// Unmarshal decodes leniently: unknown fields are ignored.
func Unmarshal(data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// UnmarshalStrict rejects unknown fields in the input.
func UnmarshalStrict(data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// UnmarshalFrontMatter decodes a front matter block. A blank block leaves v
// untouched, since a post may declare its fields elsewhere or not at all.
// A block that decodes to a scalar or a list fails with ErrNotMapping when
// v is a map pointer.
func UnmarshalFrontMatter(data []byte, v any) error {
	if v == nil {
		return ErrNilDestination
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if m, ok := v.(*map[string]any); ok {
		var raw any
		if err := Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == nil {
			return nil
		}
		fields, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: got %T", ErrNotMapping, raw)
		}
		if *m == nil {
			*m = make(map[string]any, len(fields))
		}
		for k, val := range fields {
			(*m)[k] = val
		}
		return nil
	}
	return Unmarshal(data, v)
}
