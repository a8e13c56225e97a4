package snapshot

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/ugorji/go/codec"
)

// Codec names.
const (
	CodecJSON = "json"
	CodecCBOR = "cbor"
)

var mapType = reflect.TypeOf(map[string]interface{}(nil))

// Codec encodes snapshots and envelopes into bytes. Decoded maps are
// map[string]interface{}, integers are 64 bits and floats are doubles;
// Materialize and Reconcile convert them back to the field kinds.
type Codec interface {
	Name() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// NewCodec returns the codec registered under name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case CodecJSON:
		return NewJSONCodec(), nil
	case CodecCBOR, "":
		return NewCBORCodec()
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// JSONCodec is a canonical JSON codec.
type JSONCodec struct {
	handle *codec.JsonHandle
}

// NewJSONCodec ...
func NewJSONCodec() *JSONCodec {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	jh.MapType = mapType
	jh.SignedInteger = true
	return &JSONCodec{handle: jh}
}

// Name ...
func (c *JSONCodec) Name() string {
	return CodecJSON
}

// Marshal ...
func (c *JSONCodec) Marshal(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	enc := codec.NewEncoder(b, c.handle)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (c *JSONCodec) Unmarshal(data []byte, v interface{}) error {
	b := bytes.NewBuffer(data)
	dec := codec.NewDecoder(b, c.handle)

	return dec.Decode(v)
}

// CBORCodec is a canonical CBOR codec. It is the default for the buffers
// shared between threads.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec ...
func NewCBORCodec() (*CBORCodec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{DefaultMapType: mapType}.DecMode()
	if err != nil {
		return nil, err
	}
	return &CBORCodec{enc: em, dec: dm}, nil
}

// Name ...
func (c *CBORCodec) Name() string {
	return CodecCBOR
}

// Marshal ...
func (c *CBORCodec) Marshal(v interface{}) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Unmarshal ...
func (c *CBORCodec) Unmarshal(data []byte, v interface{}) error {
	return c.dec.Unmarshal(data, v)
}
