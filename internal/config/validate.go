package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describeValidationError(err)
	}
	return nil
}

// ValidateHost checks a device address given on the command line. The host may
// carry an explicit port ("192.0.2.10:2121").
func ValidateHost(host string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return errors.New("host is required")
	}
	name := host
	if h, port, err := net.SplitHostPort(host); err == nil {
		name = h
		if err := validate.Var(port, "required,numeric"); err != nil {
			return fmt.Errorf("host %q: invalid port %q", host, port)
		}
	}
	if err := validate.Var(name, "required,ip|hostname_rfc1123"); err != nil {
		return fmt.Errorf("host %q: not an IP address or hostname", host)
	}
	return nil
}

func describeValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s must be set", key))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value()))
		case "min", "max":
			messages = append(messages, fmt.Sprintf("%s must satisfy %s=%s, got %v", key, fe.Tag(), fe.Param(), fe.Value()))
		case "startswith":
			messages = append(messages, fmt.Sprintf("%s entries must start with %q, got %q", key, fe.Param(), fe.Value()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", key, fe.Tag()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}
