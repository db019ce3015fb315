// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CTAP2EncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// attStmt values decoded into any land in map[string]any so
		// they can be rendered as JSON. COSE keys are decoded into
		// explicitly int-keyed maps and are unaffected.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Authenticators never send duplicate keys; treat one as a
		// malformed attestation.
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v in CTAP2 canonical CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// UnmarshalFirst decodes the first CBOR item of data into v and returns
// the bytes that follow it. Authenticator data embeds a COSE key
// followed by optional extensions, so its length is only known after
// decoding.
func UnmarshalFirst(data []byte, v any) (rest []byte, err error) {
	return decMode.UnmarshalFirst(data, v)
}

// RawMessage is an encoded CBOR value left undecoded.
type RawMessage = cbor.RawMessage

// Diagnose renders data in CBOR diagnostic notation (RFC 8949 §8).
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
