package values

import (
	"encoding/json"
)

// Ref is a reference to another entity as it appears on the wire. Backends
// serve references either as a bare id string or as a partially populated
// object whose identity lives in "id" or a database-style "_id". Ref
// tolerates all three shapes and normalizes identity onto ID.
type Ref struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// UnmarshalJSON accepts "abc", {"id":"abc"} and {"_id":"abc"}.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = Ref{ID: id}
		return nil
	}

	var obj struct {
		ID    string `json:"id"`
		AltID string `json:"_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	id = obj.ID
	if id == "" {
		id = obj.AltID
	}
	*r = Ref{ID: id, Name: obj.Name, Email: obj.Email}
	return nil
}

// IsZero reports whether the reference carries no identity.
func (r Ref) IsZero() bool {
	return r.ID == ""
}

// CoalesceID returns the first non-empty identity field. Normalizing an
// already-normalized pair (id == _id, or _id empty) is a no-op.
func CoalesceID(id, altID string) string {
	if id != "" {
		return id
	}
	return altID
}
