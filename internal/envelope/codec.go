package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DigestLen is the hex length of the MD5 tag that prefixes an encrypted frame
const DigestLen = md5.Size * 2

var (
	ErrMalformedFrame = errors.New("envelope: malformed frame")
	ErrDigestMismatch = errors.New("envelope: digest mismatch")
	ErrBadPadding     = errors.New("envelope: bad padding")
)

// Codec turns commands into wire frames and wire frames back into JSON payloads
type Codec interface {
	Encode(cmd Command) (string, error)
	Decode(frame string) ([]byte, error)
}

// DecodeCommand decodes a frame all the way to a Command
func DecodeCommand(c Codec, frame string) (Command, error) {
	payload, err := c.Decode(frame)
	if err != nil {
		return Command{}, err
	}
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return cmd, nil
}

// Plain sends the compact JSON as-is
type Plain struct{}

func (Plain) Encode(cmd Command) (string, error) {
	data, err := cmd.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (Plain) Decode(frame string) ([]byte, error) {
	if !json.Valid([]byte(frame)) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedFrame)
	}
	return []byte(frame), nil
}

// AES encrypts payloads with AES in ECB mode under a pre-shared key and prefixes the
// uppercase hex ciphertext with hex(MD5(ciphertextHex + salt)).
type AES struct {
	block   cipher.Block
	salt    string
	lenient bool
}

type Option func(*AES)

// WithLenientDigest skips digest verification on Decode
func WithLenientDigest() Option {
	return func(a *AES) {
		a.lenient = true
	}
}

func NewAES(key, salt string, opts ...Option) (*AES, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	a := &AES{block: block, salt: salt}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *AES) Encode(cmd Command) (string, error) {
	plain, err := cmd.MarshalJSON()
	if err != nil {
		return "", err
	}

	padded := pad(plain, a.block.BlockSize())
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += a.block.BlockSize() {
		a.block.Encrypt(out[i:], padded[i:])
	}

	body := strings.ToUpper(hex.EncodeToString(out))
	return a.digest(body) + body, nil
}

func (a *AES) Decode(frame string) ([]byte, error) {
	if len(frame) <= DigestLen {
		return nil, fmt.Errorf("%w: %d characters", ErrMalformedFrame, len(frame))
	}
	tag, body := frame[:DigestLen], frame[DigestLen:]

	if !a.lenient {
		want := a.digest(body)
		if subtle.ConstantTimeCompare([]byte(strings.ToLower(tag)), []byte(want)) != 1 {
			return nil, ErrDigestMismatch
		}
	}

	data, err := hex.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	bs := a.block.BlockSize()
	if len(data)%bs != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrMalformedFrame)
	}

	out := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		a.block.Decrypt(out[i:], data[i:])
	}
	return unpad(out, bs)
}

func (a *AES) digest(body string) string {
	sum := md5.Sum([]byte(body + a.salt))
	return hex.EncodeToString(sum[:])
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-n], nil
}
