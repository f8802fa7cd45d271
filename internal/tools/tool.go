package tools

import "context"

// Tool is a single external-I/O capability that plan steps can invoke.
//
// Invoke returns either a tool-specific success payload or an error-shaped
// payload (a map or array carrying an "error" key). Registered tools are
// expected to swallow transport failures into error payloads rather than
// returning a Go error; the error return exists so the executor can defend
// against tools that break that contract.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]string
	Validate(input map[string]interface{}) error
	Invoke(ctx context.Context, input map[string]interface{}) (interface{}, error)
}

// ShortName returns the local name of a tool identifier, the segment after
// the last dot ("weather.get_weather" -> "get_weather").
func ShortName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}
