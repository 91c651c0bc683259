package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Collection names handled by the policy engine
const (
	CollectionAdmins         = "admins"
	CollectionAdminApprovals = "admin_approvals"
	CollectionAdminAudit     = "admin_audit"
	CollectionCauses         = "causes"
	CollectionWaqfs          = "waqfs"
	CollectionWaqfAudit      = "waqf_audit"
)

// Document is a stored record: an opaque key plus the entity's JSON encoding.
// The engine never rewrites Data; what passes an assertion is what gets stored.
type Document struct {
	Key       string          `json:"key" db:"key"`
	Data      json.RawMessage `json:"data" db:"data"`
	Version   int64           `json:"version" db:"version"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// NewDocument encodes v as the data of a new document
func NewDocument(key string, v interface{}) (*Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document %q: %w", key, err)
	}
	return &Document{Key: key, Data: data}, nil
}

// Decode unmarshals the document data into v
func (d *Document) Decode(v interface{}) error {
	if d == nil || len(d.Data) == 0 {
		return fmt.Errorf("document has no data")
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode document %q: %w", d.Key, err)
	}
	return nil
}

// Fields returns the top-level fields of the document data. Numbers are kept
// as json.Number so values compare exactly.
func (d *Document) Fields() (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if d == nil || len(d.Data) == 0 {
		return fields, nil
	}
	dec := json.NewDecoder(bytes.NewReader(d.Data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode document %q fields: %w", d.Key, err)
	}
	return fields, nil
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	if d.Data != nil {
		cp.Data = append(json.RawMessage(nil), d.Data...)
	}
	return &cp
}
