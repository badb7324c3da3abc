package walletinterfaces

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldSecret FieldType = "secret"
	FieldSelect FieldType = "select"
)

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one adapter setting. Validate is a go-playground/validator
// tag evaluated against the raw value; Check is an optional callback for
// anything a tag cannot express.
type Field struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        FieldType `json:"type"`
	Default     string    `json:"default"`
	Required    bool      `json:"required,omitempty"`
	Min         *int64    `json:"min,omitempty"`
	Max         *int64    `json:"max,omitempty"`
	Step        int64     `json:"step,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Validate    string    `json:"validate,omitempty"`

	Check func(string) error `json:"-"`
}

// Schema is the ordered list of settings an adapter declares.
type Schema []Field

func (s Schema) Field(id string) (Field, bool) {
	for _, f := range s {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Defaults returns the default value of every field.
func (s Schema) Defaults() map[string]string {
	out := make(map[string]string, len(s))
	for _, f := range s {
		out[f.ID] = f.Default
	}
	return out
}

// Resolve checks raw values from the settings store against the schema and
// returns the typed settings an adapter constructor receives. Unknown keys
// are rejected so typos do not silently fall back to defaults.
func (s Schema) Resolve(raw map[string]string) (Settings, error) {
	known := make(map[string]struct{}, len(s))
	for _, f := range s {
		if f.ID == "" {
			return Settings{}, &ConfigurationError{Reason: "schema contains a field without id"}
		}
		if _, dup := known[f.ID]; dup {
			return Settings{}, &ConfigurationError{Field: f.ID, Reason: "duplicate field id in schema"}
		}
		known[f.ID] = struct{}{}
	}
	unknown := make([]string, 0)
	for k := range raw {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Settings{}, &ConfigurationError{Field: unknown[0], Reason: "unknown setting"}
	}

	settings := Settings{values: make(map[string]string, len(s)), types: make(map[string]FieldType, len(s))}
	for _, f := range s {
		value, ok := raw[f.ID]
		if f.Type != FieldSecret {
			value = strings.TrimSpace(value)
		}
		if !ok || value == "" {
			value = f.Default
		}
		if err := f.check(value); err != nil {
			return Settings{}, err
		}
		settings.values[f.ID] = value
		settings.types[f.ID] = f.Type
	}
	return settings, nil
}

func (f Field) check(value string) error {
	if value == "" {
		if f.Required {
			return &ConfigurationError{Field: f.ID, Reason: "is required"}
		}
		return nil
	}
	switch f.Type {
	case FieldString, FieldSecret:
	case FieldNumber:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return &ConfigurationError{Field: f.ID, Reason: fmt.Sprintf("%q is not a whole number", value)}
		}
		if f.Min != nil && n < *f.Min {
			return &ConfigurationError{Field: f.ID, Reason: fmt.Sprintf("must be >= %d", *f.Min)}
		}
		if f.Max != nil && n > *f.Max {
			return &ConfigurationError{Field: f.ID, Reason: fmt.Sprintf("must be <= %d", *f.Max)}
		}
		if f.Step > 1 {
			base := int64(0)
			if f.Min != nil {
				base = *f.Min
			}
			if (n-base)%f.Step != 0 {
				return &ConfigurationError{Field: f.ID, Reason: fmt.Sprintf("must be a multiple of %d", f.Step)}
			}
		}
	case FieldSelect:
		found := false
		for _, o := range f.Options {
			if o.Value == value {
				found = true
				break
			}
		}
		if !found {
			return &ConfigurationError{Field: f.ID, Reason: fmt.Sprintf("%q is not one of the allowed choices", value)}
		}
	default:
		return &ConfigurationError{Field: f.ID, Reason: fmt.Sprintf("unsupported field type %q", f.Type)}
	}
	if f.Validate != "" {
		if err := validate.Var(value, f.Validate); err != nil {
			return &ConfigurationError{Field: f.ID, Reason: fmt.Sprintf("%q fails %s validation", value, f.Validate)}
		}
	}
	if f.Check != nil {
		if err := f.Check(value); err != nil {
			return &ConfigurationError{Field: f.ID, Reason: err.Error()}
		}
	}
	return nil
}

// Settings is the resolved configuration handed to an adapter constructor.
type Settings struct {
	values map[string]string
	types  map[string]FieldType
}

func (s Settings) String(id string) string {
	return s.values[id]
}

// Int returns a number field. Resolve has already checked it parses.
func (s Settings) Int(id string) int64 {
	n, _ := strconv.ParseInt(s.values[id], 10, 64)
	return n
}

// Redacted is safe to log: secrets are masked.
func (s Settings) Redacted() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		if s.types[k] == FieldSecret && v != "" {
			v = "****"
		}
		out[k] = v
	}
	return out
}

func Int64(v int64) *int64 { return &v }

var (
	validate = newValidator()
	// hostnames are checked with a validator that has no custom tags, so
	// tcp_host does not refer back to the validator it is registered on.
	hostnames = validator.New()
)

func newValidator() *validator.Validate {
	v := validator.New()
	// IPv4, bracketed IPv6 such as [::1], or a DNS name.
	_ = v.RegisterValidation("tcp_host", func(fl validator.FieldLevel) bool {
		return isTCPHost(fl.Field().String())
	})
	return v
}

func isTCPHost(s string) bool {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		ip := net.ParseIP(s[1 : len(s)-1])
		return ip != nil && ip.To4() == nil
	}
	if ip := net.ParseIP(s); ip != nil {
		return ip.To4() != nil
	}
	// A numeric top label means an IPv4 literal that failed to parse,
	// e.g. 999.1.1.1; no DNS name ends in one.
	labels := strings.Split(strings.TrimSuffix(s, "."), ".")
	if isDigits(labels[len(labels)-1]) {
		return false
	}
	return hostnames.Var(s, "hostname_rfc1123") == nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// HostPort joins a tcp_host setting and a port, leaving bracketed IPv6 as is.
func HostPort(host string, port int64) string {
	if strings.HasPrefix(host, "[") {
		return fmt.Sprintf("%s:%d", host, port)
	}
	return net.JoinHostPort(host, strconv.FormatInt(port, 10))
}
