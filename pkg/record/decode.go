package record

import (
	"net/http"
	"net/netip"
	"strconv"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
	"golang.org/x/net/http/httpguts"
)

// DecodeError reports why a line could not be decoded into a LogRecord.
// Field is the dotted JSON path of the offending field, empty for
// failures of the line as a whole.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "decode record: " + e.Err.Error()
	}
	return "decode record: " + e.Field + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

func fieldError(field string, err error) *DecodeError {
	return &DecodeError{Field: field, Err: err}
}

// Decoder turns JSON lines into LogRecords. It is safe for concurrent use.
type Decoder struct {
	parsers fastjson.ParserPool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

var defaultDecoder = NewDecoder()

// Decode decodes a single line with a shared Decoder.
func Decode(line string) (*LogRecord, error) {
	return defaultDecoder.Decode(line)
}

// Decode decodes one JSON object. Every field is all-or-nothing except
// "status", which collapses to nil when malformed.
func (d *Decoder) Decode(line string) (*LogRecord, error) {
	p := d.parsers.Get()
	defer d.parsers.Put(p)

	v, err := p.Parse(line)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	o, err := v.Object()
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	rec := &LogRecord{}

	ts := o.Get("ts")
	if ts == nil {
		return nil, fieldError("ts", errors.New("missing"))
	}
	if rec.Timestamp, err = ts.Float64(); err != nil {
		return nil, fieldError("ts", err)
	}

	level, err := requiredString(o, "level")
	if err != nil {
		return nil, fieldError("level", err)
	}
	if rec.Level, err = ParseLevel(level); err != nil {
		return nil, fieldError("level", err)
	}

	if rec.Message, err = requiredString(o, "msg"); err != nil {
		return nil, fieldError("msg", err)
	}

	if req := o.Get("request"); !isNull(req) {
		if rec.Request, err = decodeRequest(req); err != nil {
			return nil, err
		}
	}

	if dur := o.Get("duration"); !isNull(dur) {
		f, err := dur.Float64()
		if err != nil {
			return nil, fieldError("duration", err)
		}
		rec.Duration = &f
	}

	rec.Status = decodeStatus(o.Get("status"))

	return rec, nil
}

func decodeRequest(v *fastjson.Value) (*LogRequest, error) {
	o, err := v.Object()
	if err != nil {
		return nil, fieldError("request", err)
	}
	req := &LogRequest{}

	ipStr, err := requiredString(o, "remote_ip")
	if err != nil {
		return nil, fieldError("request.remote_ip", err)
	}
	ip, err := netip.ParseAddr(ipStr)
	if err != nil {
		return nil, fieldError("request.remote_ip", err)
	}
	if ip.Zone() != "" {
		return nil, fieldError("request.remote_ip", errors.Errorf("unexpected zone in %q", ipStr))
	}

	portStr, err := requiredString(o, "remote_port")
	if err != nil {
		return nil, fieldError("request.remote_port", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fieldError("request.remote_port", err)
	}
	req.RemoteAddr = netip.AddrPortFrom(ip, uint16(port))

	if req.Method, err = requiredString(o, "method"); err != nil {
		return nil, fieldError("request.method", err)
	}
	// A method is an HTTP token, same grammar as a header field name.
	if !httpguts.ValidHeaderFieldName(req.Method) {
		return nil, fieldError("request.method", errors.Errorf("invalid method %q", req.Method))
	}

	if req.Host, err = requiredString(o, "host"); err != nil {
		return nil, fieldError("request.host", err)
	}
	if req.URI, err = requiredString(o, "uri"); err != nil {
		return nil, fieldError("request.uri", err)
	}

	proto, err := requiredString(o, "proto")
	if err != nil {
		return nil, fieldError("request.proto", err)
	}
	if req.Version, err = ParseVersion(proto); err != nil {
		return nil, fieldError("request.proto", err)
	}

	if req.Headers, err = decodeHeaders(o.Get("headers")); err != nil {
		return nil, fieldError("request.headers", err)
	}

	return req, nil
}

func decodeHeaders(v *fastjson.Value) (http.Header, error) {
	if v == nil {
		return nil, errors.New("missing")
	}
	o, err := v.Object()
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	var visitErr error
	o.Visit(func(key []byte, value *fastjson.Value) {
		if visitErr != nil {
			return
		}
		name := string(key)
		if !httpguts.ValidHeaderFieldName(name) {
			visitErr = errors.Errorf("invalid header name %q", name)
			return
		}
		values, err := headerValues(value)
		if err != nil {
			visitErr = errors.Wrapf(err, "header %q", name)
			return
		}
		for _, hv := range values {
			headers.Add(name, hv)
		}
	})
	if visitErr != nil {
		return nil, visitErr
	}
	return headers, nil
}

func headerValues(v *fastjson.Value) ([]string, error) {
	var raw []*fastjson.Value
	switch v.Type() {
	case fastjson.TypeString:
		raw = []*fastjson.Value{v}
	case fastjson.TypeArray:
		raw, _ = v.Array()
	default:
		return nil, errors.Errorf("expected string or array, got %s", v.Type())
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		b, err := item.StringBytes()
		if err != nil {
			return nil, err
		}
		s := string(b)
		if !httpguts.ValidHeaderFieldValue(s) || !isASCII(s) {
			return nil, errors.Errorf("invalid header value %q", s)
		}
		out = append(out, s)
	}
	return out, nil
}

// isASCII rejects obs-text: header values are restricted to visible ASCII,
// space and tab.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// decodeStatus never fails: anything but an integer in 100..999 is absent.
func decodeStatus(v *fastjson.Value) *StatusCode {
	if isNull(v) || v.Type() != fastjson.TypeNumber {
		return nil
	}
	code, err := v.Uint64()
	if err != nil || !validStatus(code) {
		return nil
	}
	s := StatusCode(code)
	return &s
}

func requiredString(o *fastjson.Object, key string) (string, error) {
	v := o.Get(key)
	if v == nil {
		return "", errors.New("missing")
	}
	b, err := v.StringBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isNull(v *fastjson.Value) bool {
	return v == nil || v.Type() == fastjson.TypeNull
}
