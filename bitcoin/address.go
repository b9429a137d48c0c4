package bitcoin

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcutil/base58"
	"github.com/btcsuite/btcutil/bech32"
	"golang.org/x/crypto/ripemd160"
)

const (
	addrVersionP2PKHMainnet = 0x00
	addrVersionP2SHMainnet  = 0x05
	addrVersionP2SHTestnet  = 0xc4
)

// Hash160 is sha256 followed by ripemd160, the standard Bitcoin address
// digest (teacher util/address.go uses the same primitive).
func Hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sum[:])
	return r.Sum(nil)
}

// DecodeBase58Address decodes a P2PKH or P2SH base58check address into its
// 20-byte hash and whether it is a script hash.
func DecodeBase58Address(addr string) (hash []byte, isScriptHash bool, err error) {
	decoded, version, err := base58.CheckDecode(addr)
	if err != nil {
		return nil, false, err
	}
	if len(decoded) != 20 {
		return nil, false, errInvalidAddressLength
	}
	switch version {
	case addrVersionP2PKHMainnet:
		return decoded, false, nil
	case addrVersionP2SHMainnet:
		return decoded, true, nil
	default:
		return decoded, version == addrVersionP2SHTestnet, nil
	}
}

// DecodeBech32Address decodes a bech32 segwit address into its witness
// version and program bytes.
func DecodeBech32Address(addr string) (witnessVersion byte, program []byte, err error) {
	_, data, err := bech32.Decode(addr)
	if err != nil {
		return 0, nil, err
	}
	if len(data) < 1 {
		return 0, nil, errInvalidAddressLength
	}
	witnessVersion = data[0]
	converted, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return 0, nil, err
	}
	return witnessVersion, converted, nil
}

// ScriptPubKeyForP2PKH builds the canonical P2PKH script template:
// OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG
func ScriptPubKeyForP2PKH(hash []byte) []byte {
	s := make([]byte, 0, 25)
	s = append(s, 0x76, 0xa9, byte(len(hash)))
	s = append(s, hash...)
	s = append(s, 0x88, 0xac)
	return s
}

// ScriptPubKeyForP2SH builds: OP_HASH160 <hash> OP_EQUAL
func ScriptPubKeyForP2SH(hash []byte) []byte {
	s := make([]byte, 0, 23)
	s = append(s, 0xa9, byte(len(hash)))
	s = append(s, hash...)
	s = append(s, 0x87)
	return s
}

// ScriptPubKeyForWitness builds: OP_<version> <program>
func ScriptPubKeyForWitness(version byte, program []byte) []byte {
	s := make([]byte, 0, len(program)+2)
	opN := byte(0x00)
	if version > 0 {
		opN = 0x50 + version
	}
	s = append(s, opN, byte(len(program)))
	s = append(s, program...)
	return s
}

// addressFromScriptPubKey recognizes a P2PKH or P2SH script and encodes it
// back to its base58check address, for reward-recipient extraction in PoX
// block commits.
func addressFromScriptPubKey(scriptPubKeyHex string) (string, bool) {
	script, err := decodeScriptHex(scriptPubKeyHex)
	if err != nil {
		return "", false
	}
	if len(script) == 25 && script[0] == 0x76 && script[1] == 0xa9 && script[2] == 20 &&
		script[23] == 0x88 && script[24] == 0xac {
		return base58.CheckEncode(script[3:23], addrVersionP2PKHMainnet), true
	}
	if len(script) == 23 && script[0] == 0xa9 && script[1] == 20 && script[22] == 0x87 {
		return base58.CheckEncode(script[2:22], addrVersionP2SHMainnet), true
	}
	return "", false
}

var errInvalidAddressLength = hexDecodeErr("decoded address has unexpected length")

type hexDecodeErr string

func (e hexDecodeErr) Error() string { return string(e) }

// ScriptPubKeyHex is a small convenience used by the predicate evaluator to
// compare a constructed script template against an output's hex script in
// the storage form (no "0x" prefix, lower-case).
func ScriptPubKeyHex(script []byte) string {
	return hex.EncodeToString(script)
}
