package policy

import (
	"context"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/services/audit"
	"github.com/upb/waqf-policy-engine/services/invariant"
	"github.com/upb/waqf-policy-engine/services/permission"
	"go.uber.org/zap"
)

// Deps are the collaborators of the default hook sets
type Deps struct {
	Checker *invariant.Checker
	Emitter *audit.Emitter
	Logger  *zap.Logger
}

// RegisterDefaults installs the hook sets for every governed collection.
// Within a collection checks run as: structure, permission, transition,
// time and device gates, then store-backed invariants.
func RegisterDefaults(e *Engine, deps Deps) {
	registerAdminHooks(e, deps)
	registerApprovalHooks(e, deps)
	registerAuditHooks(e, deps)
	registerCauseHooks(e, deps)
	registerWaqfHooks(e, deps)
}

// gateWrite applies the configurable business-hours and device gates
func gateWrite(checker *invariant.Checker) WriteCheck {
	return func(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
		return gates(checker, req.Collection, req.Headers), nil
	}
}

// gateDelete applies the same gates to deletes
func gateDelete(checker *invariant.Checker) DeleteCheck {
	return func(ctx context.Context, req *DeleteRequest) ([]services.Violation, error) {
		return gates(checker, req.Collection, req.Headers), nil
	}
}

func gates(checker *invariant.Checker, collection string, headers map[string]string) []services.Violation {
	if v := checker.BusinessHours(collection); len(v) > 0 {
		return v
	}
	return checker.Device(collection, headers)
}

// immutable rejects every delete of the collection
func immutable(kind string) DeleteCheck {
	return func(ctx context.Context, req *DeleteRequest) ([]services.Violation, error) {
		return []services.Violation{
			services.Violationf(services.ErrorTypeIllegalTransition, "", "%s cannot be deleted", kind),
		}, nil
	}
}

// appendOnly rejects updates of existing documents
func appendOnly(kind string) WriteCheck {
	return func(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
		if req.IsCreate() {
			return nil, nil
		}
		return []services.Violation{
			services.Violationf(services.ErrorTypeIllegalTransition, "", "%s are immutable once written", kind),
		}, nil
	}
}

// decodeProposed decodes the candidate document. A document that does not
// decode is structurally invalid.
func decodeProposed(doc *models.Document, v interface{}, kind string) []services.Violation {
	if err := doc.Decode(v); err != nil {
		return []services.Violation{
			services.Violationf(services.ErrorTypeStructuralInvalid, "", "invalid %s data: %v", kind, err),
		}
	}
	return nil
}

// decodeStored decodes a document already in the store. Failure here is not
// the caller's fault.
func decodeStored(doc *models.Document, v interface{}, kind string) error {
	if err := doc.Decode(v); err != nil {
		return services.WrapInternal("stored "+kind+" cannot be decoded", err)
	}
	return nil
}

// changedFields lists the top-level fields that differ between two documents
func changedFields(next, previous *models.Document) ([]string, error) {
	after, err := next.Fields()
	if err != nil {
		return nil, services.WrapInternal("decode fields", err)
	}
	before, err := previous.Fields()
	if err != nil {
		return nil, services.WrapInternal("decode fields", err)
	}
	return permission.ChangedFields(after, before), nil
}
