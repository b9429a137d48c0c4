package stacks

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// maxClarityDepth bounds recursive descent into composite Clarity values
// (tuples, lists, optionals, responses), per spec.md §4.3.
const maxClarityDepth = 32

// Clarity value type-prefix bytes, matching the Stacks Clarity wire
// serialization used for function_args and print-event payloads.
const (
	clarityInt        = 0x00
	clarityUInt       = 0x01
	clarityBuffer     = 0x02
	clarityBoolTrue   = 0x03
	clarityBoolFalse  = 0x04
	clarityPrincipal  = 0x05
	clarityContract   = 0x06
	clarityOkResponse = 0x07
	clarityErrResponse = 0x08
	clarityNone       = 0x09
	claritySome       = 0x0a
	clarityList       = 0x0b
	clarityTuple      = 0x0c
	clarityStringASCII = 0x0d
	clarityStringUTF8  = 0x0e
)

// PrintClarityValueHex decodes a hex-serialized Clarity value and renders
// it the way the Clarity REPL prints values (spec.md §4.3: "stringify per
// Clarity printing rules"). Depth is bounded to maxClarityDepth; anything
// deeper renders as "...".
func PrintClarityValueHex(valueHex string) string {
	raw, err := hex.DecodeString(strings.TrimPrefix(valueHex, "0x"))
	if err != nil || len(raw) == 0 {
		return "0x" + valueHex
	}
	s, _ := printClarityValue(raw, 0)
	return s
}

func printClarityValue(b []byte, depth int) (string, []byte) {
	if len(b) == 0 {
		return "", b
	}
	if depth >= maxClarityDepth {
		return "...", nil
	}
	tag := b[0]
	rest := b[1:]
	switch tag {
	case clarityInt:
		if len(rest) < 16 {
			return "", nil
		}
		return fmt.Sprintf("%d", bigIntFromBytes(rest[:16], true)), rest[16:]
	case clarityUInt:
		if len(rest) < 16 {
			return "", nil
		}
		return fmt.Sprintf("u%d", bigIntFromBytes(rest[:16], false)), rest[16:]
	case clarityBoolTrue:
		return "true", rest
	case clarityBoolFalse:
		return "false", rest
	case clarityNone:
		return "none", rest
	case clarityBuffer:
		if len(rest) < 4 {
			return "", nil
		}
		n := be32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return "0x" + hex.EncodeToString(rest), nil
		}
		return "0x" + hex.EncodeToString(rest[:n]), rest[n:]
	case claritySome:
		inner, tail := printClarityValue(rest, depth+1)
		return "(some " + inner + ")", tail
	case clarityOkResponse:
		inner, tail := printClarityValue(rest, depth+1)
		return "(ok " + inner + ")", tail
	case clarityErrResponse:
		inner, tail := printClarityValue(rest, depth+1)
		return "(err " + inner + ")", tail
	case clarityList:
		if len(rest) < 4 {
			return "", nil
		}
		n := be32(rest[:4])
		rest = rest[4:]
		parts := make([]string, 0, n)
		for i := uint32(0); i < n; i++ {
			var s string
			s, rest = printClarityValue(rest, depth+1)
			parts = append(parts, s)
		}
		return "(list " + strings.Join(parts, " ") + ")", rest
	case clarityTuple:
		if len(rest) < 4 {
			return "", nil
		}
		n := be32(rest[:4])
		rest = rest[4:]
		parts := make([]string, 0, n)
		for i := uint32(0); i < n; i++ {
			if len(rest) < 1 {
				break
			}
			nameLen := int(rest[0])
			rest = rest[1:]
			if len(rest) < nameLen {
				break
			}
			name := string(rest[:nameLen])
			rest = rest[nameLen:]
			var s string
			s, rest = printClarityValue(rest, depth+1)
			parts = append(parts, fmt.Sprintf("(%s %s)", name, s))
		}
		return "(tuple " + strings.Join(parts, " ") + ")", rest
	case clarityStringASCII, clarityStringUTF8:
		if len(rest) < 4 {
			return "", nil
		}
		n := be32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return "\"" + string(rest) + "\"", nil
		}
		return "\"" + string(rest[:n]) + "\"", rest[n:]
	case clarityPrincipal, clarityContract:
		return "'" + hex.EncodeToString(rest), nil
	default:
		return "0x" + hex.EncodeToString(b), nil
	}
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// bigIntFromBytes interprets 16 big-endian bytes as a 128-bit integer and
// returns its low 64 bits as an int64, for display purposes only — good
// enough for printing, never used for arithmetic. For a signed value the
// two's-complement low 64 bits already carry the sign.
func bigIntFromBytes(b []byte, signed bool) int64 {
	var v int64
	for _, c := range b[8:] { // low 64 bits are sufficient for realistic amounts
		v = v<<8 | int64(c)
	}
	return v
}
