package wallet

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DeriveAddress returns the EIP-55 checksummed address for a hex-encoded
// secp256k1 private key (with or without 0x prefix).
func DeriveAddress(privateKeyHex string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("wallet: parse private key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

// Generate creates a fresh secp256k1 keypair and returns the hex-encoded
// private key (without 0x prefix) and the checksummed address. Used by the
// simulated wallet-connect flow, which hands each new session a throwaway
// wallet instead of talking to a browser extension.
func Generate() (privateKeyHex, address string, err error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("wallet: generate key: %w", err)
	}
	privateKeyHex = common.Bytes2Hex(crypto.FromECDSA(key))
	address = crypto.PubkeyToAddress(key.PublicKey).Hex()
	return privateKeyHex, address, nil
}

// ValidAddress reports whether s is a well-formed hex address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// Normalize returns the EIP-55 checksummed form of an address. The input must
// already be a valid hex address.
func Normalize(s string) string {
	return common.HexToAddress(s).Hex()
}
