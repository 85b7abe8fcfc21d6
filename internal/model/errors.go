package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Use errors.Is against these to classify a failure.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalid           = errors.New("invalid")
	ErrInvalidName       = errors.New("invalid name")
	ErrIncompatibleTypes = errors.New("incompatible types")
	ErrNotInstalled      = errors.New("not installed")
	ErrReqNotMet         = errors.New("requirements not met")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrHAModeConflict    = errors.New("ha mode conflict")
	ErrDependency        = errors.New("dependency")
	ErrDependencyCycle   = errors.New("dependency cycle")
	ErrNoContext         = errors.New("no context")
	ErrMustExit          = errors.New("must exit")
	ErrNotExist          = errors.New("not exist")
	ErrNoConfFile        = errors.New("no configuration file")
	ErrPersistence       = errors.New("persistence")
)

// Error is a typed engine failure carrying the object it concerns and the
// conflicting property.
type Error struct {
	Kind     error
	Object   string
	Name     string
	Property string
	Value    string
	Missing  []string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrNotFound, ErrNotExist:
		return fmt.Sprintf("The %s %q doesn't exist!", e.Object, e.Name)
	case ErrConflict:
		switch e.Property {
		case "component", "service", "bundle":
			return fmt.Sprintf("The %s %q is already present on the %s %q!", e.Property, e.Value, e.Object, e.Name)
		}
		return fmt.Sprintf("A %s with the %s %q already exists!", e.Object, e.Property, e.Value)
	case ErrInvalidName:
		return fmt.Sprintf("Invalid %s name %q: %s", e.Object, e.Name, e.Reason)
	case ErrIncompatibleTypes:
		return fmt.Sprintf("The type %q of the %s %q cannot be combined with other types!", e.Value, e.Object, e.Name)
	case ErrInvalid:
		return fmt.Sprintf("Invalid %s %q for the %s %q: %s", e.Property, e.Value, e.Object, e.Name, e.Reason)
	case ErrNotInstalled:
		return fmt.Sprintf("The %s %q is not installed on the %s %q!", e.Property, e.Value, e.Object, e.Name)
	case ErrReqNotMet:
		return fmt.Sprintf("The requirements to add the %s %q are not met!\nThese %s are missing:\n%s",
			e.Object, e.Name, e.Property, strings.Join(e.Missing, "\n"))
	case ErrCapacityExceeded:
		return fmt.Sprintf("The maximum number of %s %q is already installed on the %s %q.\nRemove one %q before installing a new one.",
			e.Property, e.Value, e.Object, e.Name, e.Value)
	case ErrHAModeConflict:
		return fmt.Sprintf("This operation is switching the %s %q in High Availability mode.\n"+
			"Some components installed are not compatible with this mode.\n"+
			"Remove the following %s to switch to High Availability mode:\n - %s",
			e.Object, e.Name, e.Property, strings.Join(e.Missing, "\n - "))
	case ErrDependency:
		return fmt.Sprintf("Cannot delete the %s %q because it is required for these %s installed:\n - %s",
			e.Object, e.Name, e.Property, strings.Join(e.Missing, "\n - "))
	case ErrDependencyCycle:
		return fmt.Sprintf("The requirements of the %s %q are cyclic: %s", e.Object, e.Name, e.Reason)
	case ErrNoContext:
		return `No cluster specified nor managed! Use "--cluster" to specify a cluster.`
	case ErrMustExit:
		return fmt.Sprintf("You are currently managing the cluster %q. Type \"exit\" to manage other clusters.", e.Name)
	case ErrNoConfFile:
		return fmt.Sprintf("Couldn't load the configuration of the cluster %q.\nAll cluster configuration has been lost.", e.Name)
	case ErrPersistence:
		return fmt.Sprintf("Couldn't save the %s %q: %v", e.Object, e.Name, e.Err)
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func NotFound(object, name string) *Error {
	return &Error{Kind: ErrNotFound, Object: object, Name: name}
}

func Conflict(object, name, property, value string) *Error {
	return &Error{Kind: ErrConflict, Object: object, Name: name, Property: property, Value: value}
}

func NotInstalled(object, name, property, value string) *Error {
	return &Error{Kind: ErrNotInstalled, Object: object, Name: name, Property: property, Value: value}
}

func Invalid(object, name, property, value, reason string) *Error {
	return &Error{Kind: ErrInvalid, Object: object, Name: name, Property: property, Value: value, Reason: reason}
}

// Persistence wraps a store failure.
func Persistence(object, name string, err error) *Error {
	return &Error{Kind: ErrPersistence, Object: object, Name: name, Err: err}
}

// ChainError reports a recursive install that failed part way. The services in
// Installed were installed and persisted before Err occurred.
type ChainError struct {
	Service   string
	Installed []string
	Err       error
}

func (e *ChainError) Error() string {
	if len(e.Installed) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v\nThese services were installed before the failure: %s",
		e.Err, strings.Join(e.Installed, ", "))
}

func (e *ChainError) Unwrap() error { return e.Err }
