// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package webauthn

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestEncodeIsUnpaddedURLAlphabet(t *testing.T) {
	// 0xfb 0xff encodes to "+/8=" in standard base64.
	got := Encode([]byte{0xfb, 0xff})
	if got != "-_8" {
		t.Errorf("Encode = %q, want -_8", got)
	}
}

func TestDecodeAcceptsVariants(t *testing.T) {
	want := []byte{0xfb, 0xff}
	for _, input := range []string{"-_8", "-_8=", "+/8", "+/8="} {
		got, err := Decode(input)
		if err != nil {
			t.Errorf("Decode(%q): %v", input, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Decode(%q) = %x, want %x", input, got, want)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	// "AB" and "AAB" set bits that the last character only pads.
	for _, input := range []string{"a", "!!!!", "ab cd", "AB", "AAB"} {
		if _, err := Decode(input); err == nil {
			t.Errorf("Decode(%q) succeeded", input)
		}
	}
}

func TestRoundTripAllByteValues(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	for length := 0; length <= len(data); length += 37 {
		decoded, err := Decode(Encode(data[:length]))
		if err != nil {
			t.Fatalf("length %d: %v", length, err)
		}
		if !bytes.Equal(decoded, data[:length]) {
			t.Fatalf("length %d: round trip mismatch", length)
		}
	}
}

func TestDecodeReencodesCanonically(t *testing.T) {
	for _, input := range []string{"", "AA", "AAA", "AQID", "-_8", "_w"} {
		decoded, err := Decode(input)
		if err != nil {
			t.Errorf("Decode(%q): %v", input, err)
			continue
		}
		if got := Encode(decoded); got != input {
			t.Errorf("Encode(Decode(%q)) = %q", input, got)
		}
	}
}

func TestBytesJSON(t *testing.T) {
	var holder struct {
		Value Bytes `json:"value"`
		Empty Bytes `json:"empty"`
	}
	if err := json.Unmarshal([]byte(`{"value":"AQID","empty":null}`), &holder); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !bytes.Equal(holder.Value, []byte{1, 2, 3}) {
		t.Errorf("Value = %x", holder.Value)
	}
	if holder.Empty != nil {
		t.Errorf("Empty = %x, want nil", holder.Empty)
	}

	encoded, err := json.Marshal(holder)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(encoded) != `{"value":"AQID","empty":""}` {
		t.Errorf("Marshal = %s", encoded)
	}

	if err := json.Unmarshal([]byte(`{"value":42}`), &holder); err == nil {
		t.Error("non-string binary field accepted")
	}
}
