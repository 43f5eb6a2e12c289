package outbound

import (
	"context"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
)

// CallbackSender notifies the approval's configured downstream target of the
// final outcome. Delivery is at-most-once: failures are logged by callers and
// never unwind the already-committed transition.
type CallbackSender interface {
	Dispatch(ctx context.Context, approval model.Approval, outcome model.ApprovalStatus, content model.Document) error
}
