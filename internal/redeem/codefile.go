package redeem

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrBadCodeFile rejects malformed or tampered code files.
var ErrBadCodeFile = errors.New("invalid redeem code file")

// codePayload is the JSON carried inside a code file.
type codePayload struct {
	Code      string `json:"code"`
	Amount    int    `json:"limit"`
	Timestamp int64  `json:"timestamp"`
}

// EncodeCodeFile packages a token into the shareable artifact format:
// sha256(payload) in hex, a dot, then the base64 payload. The hash is an
// integrity check for accidental corruption, not a secret; the token
// itself is what gates the credit.
func EncodeCodeFile(code string, amount int) []byte {
	payload, _ := json.Marshal(codePayload{
		Code:      code,
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
	})
	sum := sha256.Sum256(payload)
	artifact := hex.EncodeToString(sum[:]) + "." + base64.StdEncoding.EncodeToString(payload)
	return []byte(artifact)
}

// DecodeCodeFile verifies an artifact and returns the embedded token.
func DecodeCodeFile(data []byte) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(string(data)), ".", 2)
	if len(parts) != 2 {
		return "", ErrBadCodeFile
	}

	payload, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrBadCodeFile
	}

	sum := sha256.Sum256(payload)
	if hex.EncodeToString(sum[:]) != parts[0] {
		return "", ErrBadCodeFile
	}

	var decoded codePayload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", ErrBadCodeFile
	}
	if decoded.Code == "" {
		return "", ErrBadCodeFile
	}
	return decoded.Code, nil
}
