package validator

import (
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// Hostnames allow dots, hyphens and underscores inside, alphanumeric at
	// both ends. Site and role labels are the same minus the dots.
	deviceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._-]*[a-zA-Z0-9])?$`)
	labelRegex      = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]*[a-zA-Z0-9])?$`)
)

func jobTypeValidator(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "run_commands":
		fallthrough
	case "backup":
		fallthrough
	case "deploy_preview":
		fallthrough
	case "deploy_commit":
		return true
	default:
		return false
	}
}

func deployModeValidator(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "merge":
		fallthrough
	case "replace":
		return true
	default:
		return false
	}
}

func uuidValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(uuid.UUID)
	if !ok {
		return false
	}
	return val != uuid.UUID{}
}

func deviceNameValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return deviceNameRegex.MatchString(val)
}

// endpointValidator accepts a bare IP, a hostname or a host:port pair, which
// is everything the transport drivers know how to dial.
func endpointValidator(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return false
	}

	if ip := net.ParseIP(val); ip != nil {
		return true
	}

	if strings.Contains(val, ":") {
		host, port, err := net.SplitHostPort(val)
		if err != nil {
			return false
		}
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return false
		}
		if ip := net.ParseIP(host); ip != nil {
			return true
		}
		return deviceNameRegex.MatchString(host)
	}

	return deviceNameRegex.MatchString(val)
}

func labelValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return labelRegex.MatchString(val)
}
