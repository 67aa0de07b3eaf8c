package domain

import (
	"strings"

	dErrors "chainaudit/pkg/domain-errors"
)

// Method is the mutation verb that produced an audit entry.
// Invariant: one of POST, PUT, PATCH, DELETE, always upper case.
//
// Construct via ParseMethod at trust boundaries; direct casting bypasses
// validation.
type Method string

const (
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

var validMethods = map[Method]bool{
	MethodPost:   true,
	MethodPut:    true,
	MethodPatch:  true,
	MethodDelete: true,
}

// ParseMethod normalizes case and rejects verbs that never mutate a record.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(s))
	if !validMethods[m] {
		return "", dErrors.New(dErrors.CodeInvalidHTTPMethod, "unsupported http method: "+s)
	}
	return m, nil
}

// IsValid reports whether m is one of the supported verbs.
func (m Method) IsValid() bool {
	return validMethods[m]
}

func (m Method) String() string {
	return string(m)
}

// ReadsStoredRecord reports whether the owner must be resolved from the
// stored record rather than the request body.
func (m Method) ReadsStoredRecord() bool {
	return m != MethodPost
}
