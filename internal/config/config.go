// Package config loads the YAML manifest describing the externally
// supplied inputs of a model, the shapes a caller binds before import.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hedgefair/glow/internal/tensor"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// InputSpec describes one externally supplied network input.
type InputSpec struct {
	Name  string `yaml:"name" validate:"required"`
	DType string `yaml:"dtype" validate:"omitempty,oneof=float32 float64 int32 int64 uint8"`
	Dims  []int  `yaml:"dims" validate:"required,min=1,dive,gt=0"`
}

// Manifest lists the inputs a model expects the caller to bind.
//
//	inputs:
//	  - name: data
//	    dtype: float32
//	    dims: [1, 3, 224, 224]
type Manifest struct {
	Inputs []InputSpec `yaml:"inputs" validate:"required,min=1,dive"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: manifest path is provided by the user
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, formatValidationError(err)
	}
	seen := make(map[string]bool, len(m.Inputs))
	for _, in := range m.Inputs {
		if seen[in.Name] {
			return nil, fmt.Errorf("input %q declared twice", in.Name)
		}
		seen[in.Name] = true
	}
	return &m, nil
}

// Tensors materializes one zero tensor per declared input, keyed by name,
// ready to hand to the import session.
func (m *Manifest) Tensors() (map[string]*tensor.Tensor, error) {
	out := make(map[string]*tensor.Tensor, len(m.Inputs))
	for _, in := range m.Inputs {
		dt, err := dataType(in.DType)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		t, err := tensor.New(tensor.Shape(in.Dims), dt)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		out[in.Name] = t
	}
	return out, nil
}

// dataType maps a manifest dtype string to the tensor type; an empty
// string defaults to float32.
func dataType(name string) (tensor.DataType, error) {
	switch name {
	case "", "float32":
		return tensor.Float32, nil
	case "float64":
		return tensor.Float64, nil
	case "int32":
		return tensor.Int32, nil
	case "int64":
		return tensor.Int64, nil
	case "uint8":
		return tensor.Uint8, nil
	default:
		return 0, fmt.Errorf("unknown dtype %q", name)
	}
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", e.Field())
		case "min":
			return fmt.Errorf("%s: must have at least %s entries", e.Field(), e.Param())
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", e.Field(), e.Param())
		case "oneof":
			return fmt.Errorf("%s: must be one of %s", e.Field(), e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", e.Field(), e.Tag())
		}
	}
	return err
}
