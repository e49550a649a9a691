package tool

import (
	"errors"
	"fmt"
	"regexp"
)

type ParamType string

const (
	String  ParamType = "string"
	Integer ParamType = "integer"
	Number  ParamType = "number"
	Boolean ParamType = "boolean"
)

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Param describes one named argument of a tool.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// Descriptor is the schema advertised to the model for one tool.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
}

func (d Descriptor) Validate() error {
	if !nameRe.MatchString(d.Name) {
		return fmt.Errorf("invalid tool name %q", d.Name)
	}
	if d.Description == "" {
		return fmt.Errorf("tool %s: empty description", d.Name)
	}

	seen := make(map[string]struct{}, len(d.Params))
	for _, p := range d.Params {
		if !nameRe.MatchString(p.Name) {
			return fmt.Errorf("tool %s: invalid param name %q", d.Name, p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("tool %s: duplicate param %s", d.Name, p.Name)
		}
		seen[p.Name] = struct{}{}

		switch p.Type {
		case String, Integer, Number, Boolean:
		default:
			return fmt.Errorf("tool %s: param %s: unknown type %q", d.Name, p.Name, p.Type)
		}
	}

	return nil
}

// Required lists the names of the mandatory params in declaration order.
func (d Descriptor) Required() []string {
	var out []string
	for _, p := range d.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

func (d Descriptor) param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func (d Descriptor) check(args Args) error {
	for _, name := range d.Required() {
		v, ok := args[name]
		if !ok || v == nil {
			return fmt.Errorf("missing required field: %s", name)
		}
	}

	for key, value := range args {
		p, ok := d.param(key)
		if !ok || value == nil {
			continue
		}
		if err := checkType(value, p.Type); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}

	return nil
}

var errType = errors.New("type mismatch")

func checkType(value any, expected ParamType) error {
	switch expected {
	case String:
		if _, ok := value.(string); ok {
			return nil
		}
	case Number:
		switch value.(type) {
		case float64, float32, int, int64, int32:
			return nil
		}
	case Integer:
		switch v := value.(type) {
		case int, int64, int32:
			return nil
		case float64:
			if v == float64(int64(v)) {
				return nil
			}
		}
	case Boolean:
		if _, ok := value.(bool); ok {
			return nil
		}
	}
	return fmt.Errorf("%w: expected %s, got %T", errType, expected, value)
}
