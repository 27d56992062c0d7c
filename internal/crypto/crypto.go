// Package crypto decrypts credential payloads delivered by the CookieCloud relay.
//
// The relay encrypts with AES-256-CBC. The key is the SHA-256 digest of the
// passphrase and the IV is its MD5 digest, with PKCS#7 padding. There is no salt
// and no iteration count, so the derivation must be reproduced exactly.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// KeySize is the required size for AES-256 keys (32 bytes)
	KeySize = 32
	// IVSize is the CBC initialization vector size (16 bytes)
	IVSize = aes.BlockSize
)

var (
	ErrEmptyCiphertext  = errors.New("ciphertext is empty")
	ErrInvalidBlockSize = errors.New("ciphertext is not a multiple of the AES block size")
	ErrInvalidPadding   = errors.New("invalid PKCS#7 padding")
	ErrInvalidUTF8      = errors.New("decrypted payload is not valid UTF-8")
	ErrNoUsablePayload  = errors.New("payload is neither decryptable nor plain base64")
)

// DecryptionError means a ciphertext was present but could not be read with the
// supplied passphrase.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("failed to decrypt relay payload, verify the CookieCloud password: %v", e.Err)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// DeriveRelayKey returns the AES key and IV the relay derives from a passphrase.
func DeriveRelayKey(passphrase string) (key []byte, iv []byte) {
	k := sha256.Sum256([]byte(passphrase))
	v := md5.Sum([]byte(passphrase))
	return k[:], v[:]
}

// EncryptRelayPayload encrypts plaintext the way the relay does and returns base64.
func EncryptRelayPayload(plaintext, passphrase string) (string, error) {
	key, iv := DeriveRelayKey(passphrase)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptRelayPayload decodes base64, decrypts with AES-256-CBC and strips padding.
func DecryptRelayPayload(encodedCiphertext, passphrase string) (string, error) {
	if encodedCiphertext == "" {
		return "", &DecryptionError{Err: ErrEmptyCiphertext}
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encodedCiphertext)
	if err != nil {
		return "", &DecryptionError{Err: fmt.Errorf("failed to decode ciphertext: %w", err)}
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", &DecryptionError{Err: ErrInvalidBlockSize}
	}

	key, iv := DeriveRelayKey(passphrase)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", &DecryptionError{Err: fmt.Errorf("failed to create cipher: %w", err)}
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, err = pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", &DecryptionError{Err: err}
	}
	if !utf8.Valid(plaintext) {
		return "", &DecryptionError{Err: ErrInvalidUTF8}
	}

	return string(plaintext), nil
}

// DecodePayload turns a relay cookie_data string into plaintext JSON.
// With a passphrase the payload is decrypted. Without one it is treated as
// plain base64 and returned as is. ErrNoUsablePayload is returned when the
// passphrase is missing and the payload is not base64 either.
func DecodePayload(payload, passphrase string) (string, error) {
	if passphrase != "" {
		return DecryptRelayPayload(payload, passphrase)
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoUsablePayload, err)
	}
	return string(decoded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
