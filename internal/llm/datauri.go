package llm

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidDataURI = errors.New("invalid data uri")

// EncodeDataURI returns data:<mime>;base64,<data>.
func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI decodes a base64 data URI.
func ParseDataURI(s string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mime, ok = strings.CutSuffix(meta, ";base64")
	if !ok || !strings.Contains(mime, "/") {
		return "", nil, ErrInvalidDataURI
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return "", nil, ErrInvalidDataURI
	}
	return mime, data, nil
}

func ValidDataURI(s string) bool {
	_, _, err := ParseDataURI(s)
	return err == nil
}
