package postgres

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/lib/pq"
	"github.com/upb/waqf-policy-engine/repositories/sqldoc"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// schema stores documents as JSONB. Expression indexes cover the fields the
// policy engine filters on.
const schema = `
	CREATE TABLE IF NOT EXISTS documents (
		seq BIGSERIAL,
		collection VARCHAR(100) NOT NULL,
		doc_key VARCHAR(255) NOT NULL,
		data JSONB NOT NULL,
		version BIGINT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (collection, doc_key)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_collection_seq ON documents(collection, seq);
	CREATE INDEX IF NOT EXISTS idx_documents_role ON documents((data->>'role')) WHERE collection = 'admins';
	CREATE INDEX IF NOT EXISTS idx_documents_email ON documents(lower(data->>'email')) WHERE collection = 'admins';
	CREATE INDEX IF NOT EXISTS idx_documents_target_admin ON documents((data->>'targetAdmin')) WHERE collection = 'admin_approvals';
	CREATE INDEX IF NOT EXISTS idx_documents_performed_by ON documents((data->>'performedBy'), ((data->>'timestamp')::numeric)) WHERE collection = 'admin_audit';
	CREATE INDEX IF NOT EXISTS idx_documents_waqf_id ON documents((data->>'waqfId')) WHERE collection = 'waqf_audit';
`

// Dialect is the PostgreSQL flavour of the document table
var Dialect = sqldoc.Dialect{
	Name: "postgres",
	Bind: func(n int) string {
		return "$" + strconv.Itoa(n)
	},
	TextField: func(path string) string {
		return "data->>(" + path + "::text)"
	},
	NumberField: func(path string) string {
		return "(data->>(" + path + "::text))::numeric"
	},
	FieldPath: func(field string) string {
		return field
	},
	OrderColumn:            "seq",
	Schema:                 schema,
	Isolation:              sql.LevelSerializable,
	IsUniqueViolation:      hasCode(codeUniqueViolation),
	IsSerializationFailure: hasCode(codeSerializationFailure, codeDeadlockDetected),
}

func hasCode(codes ...string) func(error) bool {
	return func(err error) bool {
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) {
			return false
		}
		for _, code := range codes {
			if string(pqErr.Code) == code {
				return true
			}
		}
		return false
	}
}
