package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// SerializationError is returned when a payload cannot be encoded or decoded.
type SerializationError struct {
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s payload: %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsSerializationError ...
func IsSerializationError(err error) bool {
	var serr *SerializationError
	return errors.As(err, &serr)
}

// Encode serializes v to the wire format.
func Encode(v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, &SerializationError{Op: "encode", Err: err}
	}
	return body, nil
}

// Decode parses body into v. Unknown fields and trailing data are rejected.
func Decode(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &SerializationError{Op: "decode", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return &SerializationError{Op: "decode", Err: errors.New("trailing data after payload")}
	}
	return nil
}
