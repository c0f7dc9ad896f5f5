package record

import "github.com/pkg/errors"

// Version is an HTTP protocol version as carried in the "proto" field.
type Version int

const (
	HTTP09 Version = iota
	HTTP10
	HTTP11
	HTTP2
	HTTP3
)

func (v Version) String() string {
	switch v {
	case HTTP09:
		return "HTTP/0.9"
	case HTTP10:
		return "HTTP/1.0"
	case HTTP11:
		return "HTTP/1.1"
	case HTTP2:
		return "HTTP/2.0"
	case HTTP3:
		return "HTTP/3.0"
	default:
		return "HTTP/?"
	}
}

func ParseVersion(s string) (Version, error) {
	switch s {
	case "HTTP/0.9":
		return HTTP09, nil
	case "HTTP/1.0":
		return HTTP10, nil
	case "HTTP/1.1":
		return HTTP11, nil
	case "HTTP/2.0", "HTTP/2":
		return HTTP2, nil
	case "HTTP/3.0", "HTTP/3":
		return HTTP3, nil
	default:
		return 0, errors.Errorf("invalid http version %q", s)
	}
}
