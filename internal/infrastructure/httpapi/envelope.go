package httpapi

import (
	"bytes"
	"encoding/json"

	"github.com/procurehub/portal-client/internal/domain/errors"
)

// The backend is tolerated in two envelope dialects: entities wrapped as
// {"data": ...} (possibly keyed again inside, e.g. {"data":{"items":[...]}}),
// or served bare. Every read path defensively unwraps both and defaults to
// an empty collection or nil when the expected key is absent.

// decodeList decodes a JSON response into out (a pointer to a slice),
// unwrapping "data" and any of the given entity keys. An absent or null
// collection leaves out untouched (an empty slice).
func decodeList(raw []byte, out any, keys ...string) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '[' {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.NewInternalError("decoding response list").WithCause(err)
		}
		return nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return errors.NewInternalError("decoding response envelope").WithCause(err)
	}

	if data, ok := wrapper["data"]; ok {
		return decodeList(data, out, keys...)
	}
	for _, key := range keys {
		if inner, ok := wrapper[key]; ok {
			return decodeList(inner, out, keys...)
		}
	}

	// an object with none of the expected keys: nothing to decode
	return nil
}

// decodeObject decodes a JSON response into out (a pointer to a struct),
// unwrapping "data" and any of the given entity keys; a bare object is
// decoded directly. Null leaves out untouched.
func decodeObject(raw []byte, out any, keys ...string) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return errors.NewInternalError("decoding response envelope").WithCause(err)
	}

	if data, ok := wrapper["data"]; ok {
		return decodeObject(data, out, keys...)
	}
	for _, key := range keys {
		if inner, ok := wrapper[key]; ok {
			return decodeObject(inner, out, keys...)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewInternalError("decoding response object").WithCause(err)
	}
	return nil
}
