package record

import (
	"net/http"
	"strconv"
)

// StatusCode is an HTTP status code in the range 100..999.
type StatusCode uint16

type StatusClass int

const (
	StatusClassOther StatusClass = iota
	StatusClassInformational
	StatusClassSuccess
	StatusClassRedirection
	StatusClassClientError
	StatusClassServerError
)

func validStatus(code uint64) bool {
	return code >= 100 && code <= 999
}

func (s StatusCode) Class() StatusClass {
	switch s / 100 {
	case 1:
		return StatusClassInformational
	case 2:
		return StatusClassSuccess
	case 3:
		return StatusClassRedirection
	case 4:
		return StatusClassClientError
	case 5:
		return StatusClassServerError
	default:
		return StatusClassOther
	}
}

// Reason returns the canonical reason phrase, or "" when the code has none.
func (s StatusCode) Reason() string {
	return http.StatusText(int(s))
}

func (s StatusCode) String() string {
	return strconv.Itoa(int(s))
}
