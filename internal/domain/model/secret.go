package model

import (
	"encoding/json"
)

// SecretPayload is the part of a secrets store document the runner reads.
// Any field other than "password" is ignored.
type SecretPayload struct {
	Password string
}

// ParseSecretPayload decodes a JSON secret document and extracts the password.
func ParseSecretPayload(raw string) (SecretPayload, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return SecretPayload{}, NewError(KindMalformedSecret, "failed to unmarshal secret JSON", err)
	}

	value, ok := doc["password"]
	if !ok {
		return SecretPayload{}, NewError(KindMalformedSecret, "password field not found in secret", nil)
	}

	var password string
	if err := json.Unmarshal(value, &password); err != nil || string(value) == "null" {
		return SecretPayload{}, NewError(KindMalformedSecret, "password field in secret is not a string", nil)
	}

	return SecretPayload{Password: password}, nil
}
