package jsonapi

import (
	"fmt"
	"net/http"
	"strings"

	"go.llib.dev/frameless/pkg/errorkit"
)

const (
	// ErrNotFound is returned when a single-resource query matched zero records.
	ErrNotFound errorkit.Error = "jsonapi: resource not found"
	// ErrTypeMismatch is returned when a resolved resource is not of the requested type.
	ErrTypeMismatch errorkit.Error = "jsonapi: resource type mismatch"
	// ErrValidation is returned when a document is structurally invalid,
	// for example when a resource record lacks a type or an id.
	ErrValidation errorkit.Error = "jsonapi: invalid document"
	// ErrUnknownType is returned when a resource record's type has no registered schema.
	ErrUnknownType errorkit.Error = "jsonapi: unknown resource type"
)

// APIError is an error parsed from a server supplied error document.
// It carries the HTTP status of the response and every error object the
// server included in the document.
type APIError struct {
	StatusCode int
	Errors     []ErrorObject
}

// ErrorObject is a single error entry of a server error document.
type ErrorObject struct {
	// Status is the HTTP status code applicable to this problem, as a string.
	Status string
	// Code is the application-specific, machine readable error code.
	Code string
	// Title is a short, human readable summary of the problem.
	Title string
	// Detail is a human readable explanation specific to this occurrence.
	Detail string
	// Source holds per-field detail the server supplied,
	// such as a JSON pointer to the offending attribute.
	Source map[string]string
}

func (err *APIError) Error() string {
	msg := fmt.Sprintf("jsonapi: %d %s", err.StatusCode, http.StatusText(err.StatusCode))
	var parts []string
	for _, eo := range err.Errors {
		var p string
		if eo.Code != "" {
			p = "[" + eo.Code + "] "
		}
		p += eo.Title
		if eo.Detail != "" {
			p += ": " + eo.Detail
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	if 0 < len(parts) {
		msg += " - " + strings.Join(parts, "; ")
	}
	return msg
}

// Code returns the machine readable code of the first error object, if any.
func (err *APIError) Code() string {
	if len(err.Errors) == 0 {
		return ""
	}
	return err.Errors[0].Code
}

// Title returns the human readable title of the first error object, if any.
func (err *APIError) Title() string {
	if len(err.Errors) == 0 {
		return ""
	}
	return err.Errors[0].Title
}
