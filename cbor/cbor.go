/*
Package cbor provides CBOR encoding/decoding functions.

It's a thin wrapper for github.com/fxamacker/cbor/v2, the reason for
having it is to make sure we use the same encoding options everywhere
(relay messages, store records and state hashing must agree byte for byte).
*/
package cbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

type Tag = uint64

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	// it is extremely unlikely that building the modes from options
	// provided by the CBOR library fails (ie memory corruption...)
	var err error
	// Core Deterministic Encoding, see <https://www.rfc-editor.org/rfc/rfc8949.html#name-deterministically-encoded-c>.
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(fmt.Errorf("initializing CBOR encoder mode: %w", err))
	}
	if decMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic(fmt.Errorf("initializing CBOR decoder mode: %w", err))
	}
}

// EncMode returns the deterministic encoding mode shared by all packages.
func EncMode() cbor.EncMode {
	return encMode
}

func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func MarshalTaggedValue(tag Tag, v any) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return Marshal(cbor.RawTag{
		Number:  tag,
		Content: data,
	})
}

func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

func UnmarshalTaggedValue(tag Tag, data []byte, v any) error {
	var raw cbor.RawTag
	if err := Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Number != tag {
		return fmt.Errorf("unexpected tag: %d, expected: %d", raw.Number, tag)
	}
	return Unmarshal(raw.Content, v)
}

// PeekTag returns the tag number of the tagged CBOR item in data without
// decoding the tag content.
func PeekTag(data []byte) (Tag, error) {
	var raw cbor.RawTag
	if err := Unmarshal(data, &raw); err != nil {
		return 0, err
	}
	return raw.Number, nil
}
