package audit

import "context"

// Store is the durable sink for compliance-grade audit entries.
//
// Append must participate in the caller's transaction when one is ambient
// (pkg/platform/tx) so a rolled-back transition leaves no orphaned entry
// and a committed one is never missing its entry.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]*Entry, error)
}
