// Package dataurl reads and writes base64 "data:" URLs as produced by the
// browser camera and file inputs.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmpty     = errors.New("dataurl: empty payload")
	ErrMalformed = errors.New("dataurl: malformed data url")
)

// Decode returns the media type and bytes of a data URL. A bare base64
// string is accepted too and reported with an empty media type.
func Decode(raw string) (string, []byte, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return "", nil, ErrEmpty
	}
	mediaType := ""
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return "", nil, ErrMalformed
		}
		meta := payload[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrMalformed)
		}
		mediaType = strings.ToLower(strings.TrimSuffix(meta, ";base64"))
		payload = payload[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(data) == 0 {
		return "", nil, ErrEmpty
	}
	return mediaType, data, nil
}

// Encode builds a base64 data URL.
func Encode(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURL reports whether s looks like a data URL rather than a remote link.
func IsDataURL(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "data:")
}
