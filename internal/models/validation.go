package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError reports a payload that does not match the expected shape.
type ValidationError struct {
	Type   string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s response: %s", e.Type, strings.Join(e.Issues, "; "))
}

type issues struct {
	typ  string
	list []string
}

func (i *issues) addf(format string, args ...any) {
	i.list = append(i.list, fmt.Sprintf(format, args...))
}

func (i *issues) err() error {
	if len(i.list) == 0 {
		return nil
	}
	return &ValidationError{Type: i.typ, Issues: i.list}
}

func decodeStrict(typ string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return &ValidationError{Type: typ, Issues: []string{err.Error()}}
	}
	return nil
}

// flexibleFloat64 accepts a JSON number or a numeric string.
type flexibleFloat64 float64

func (v *flexibleFloat64) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = 0
		return nil
	}

	var numVal json.Number
	if err := json.Unmarshal(trimmed, &numVal); err == nil {
		f, err := numVal.Float64()
		if err != nil {
			return fmt.Errorf("invalid numeric value: %s", string(trimmed))
		}
		*v = flexibleFloat64(f)
		return nil
	}

	var strVal string
	if err := json.Unmarshal(trimmed, &strVal); err == nil {
		strVal = strings.TrimSpace(strVal)
		if strVal == "" {
			*v = 0
			return nil
		}
		f, err := json.Number(strVal).Float64()
		if err != nil {
			return fmt.Errorf("invalid numeric string: %q", strVal)
		}
		*v = flexibleFloat64(f)
		return nil
	}

	return fmt.Errorf("unsupported numeric value: %s", string(trimmed))
}
