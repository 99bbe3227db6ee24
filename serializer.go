package smartsheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Serializer converts between JSON bytes and Go values.
// Implementations must be safe for concurrent use once constructed.
type Serializer interface {
	// Serialize encodes v.
	Serialize(v any) ([]byte, error)

	// Deserialize decodes the content of r into v. A malformed body is
	// reported as *SerializationError, a failed read as *TransportError.
	Deserialize(r io.Reader, v any) error
}

// JSONSerializer is the default Serializer. It is a plain value: configure
// it before handing it to a flow or client and never mutate it afterwards.
type JSONSerializer struct {
	// DisallowUnknownFields rejects object keys that have no matching
	// struct field. It has no effect when decoding into maps.
	DisallowUnknownFields bool
}

// NewJSONSerializer returns a lenient JSON serializer.
func NewJSONSerializer() JSONSerializer {
	return JSONSerializer{}
}

// Serialize implements Serializer.
func (s JSONSerializer) Serialize(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return data, nil
}

// Deserialize implements Serializer.
func (s JSONSerializer) Deserialize(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return &TransportError{Op: "read response body", Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if s.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return &SerializationError{Err: err}
	}
	return nil
}
