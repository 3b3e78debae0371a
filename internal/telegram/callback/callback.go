// Package callback encodes inline button data and /start deep-link payloads.
package callback

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxDataLen is the Telegram limit for callback_data in bytes.
	MaxDataLen = 64
	// MaxStartPayloadLen is the Telegram limit for the /start parameter.
	MaxStartPayloadLen = 64

	separator = ":"
)

var (
	// ErrInvalidData is returned for callback data that cannot be decoded.
	ErrInvalidData = errors.New("invalid callback data")
	// ErrTooLong is returned when encoded data exceeds the Telegram limit.
	ErrTooLong = errors.New("callback data too long")
)

// Data is decoded callback data: a function name and its arguments.
type Data struct {
	Fn   string
	Args []string
}

// Arg returns the i-th argument or "".
func (d Data) Arg(i int) string {
	if i < 0 || i >= len(d.Args) {
		return ""
	}
	return d.Args[i]
}

// Encode joins fn and args into callback data such as "lang:set:de".
func Encode(fn string, args ...string) (string, error) {
	if fn == "" {
		return "", fmt.Errorf("%w: empty function name", ErrInvalidData)
	}
	parts := append([]string{fn}, args...)
	for _, p := range parts {
		if strings.Contains(p, separator) {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidData, p, separator)
		}
	}

	data := strings.Join(parts, separator)
	if len(data) > MaxDataLen {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLong, len(data))
	}
	return data, nil
}

// MustEncode is Encode for data that is known to be valid.
func MustEncode(fn string, args ...string) string {
	data, err := Encode(fn, args...)
	if err != nil {
		panic(err)
	}
	return data
}

// Decode splits callback data produced by Encode.
func Decode(data string) (Data, error) {
	if data == "" || len(data) > MaxDataLen {
		return Data{}, ErrInvalidData
	}
	parts := strings.Split(data, separator)
	if parts[0] == "" {
		return Data{}, ErrInvalidData
	}
	return Data{Fn: parts[0], Args: parts[1:]}, nil
}

// EncodeStartPayload packs values into a /start deep-link parameter, a
// base64url encoded JSON list.
func EncodeStartPayload(values ...string) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrInvalidData)
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	if len(payload) > MaxStartPayloadLen {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLong, len(payload))
	}
	return payload, nil
}

// DecodeStartPayload reverses EncodeStartPayload. Padded input is accepted.
func DecodeStartPayload(payload string) ([]string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidData)
	}
	return values, nil
}
