package services

import "context"

// CapabilityAuthorizer answers permission questions for a caller.
//
// Design principle: handlers ask the authorizer before operating on items.
// This separates authorization (who may act) from the content service (what
// the action does).
type CapabilityAuthorizer interface {
	// Can reports whether the user may exercise the capability on the item.
	// itemID nil targets the tree root.
	Can(ctx context.Context, userID, capability string, itemID *string) (bool, error)

	// CanAddContent reports whether the user holds any add-family capability
	// at the given parent.
	CanAddContent(ctx context.Context, userID string, parentID *string) (bool, error)

	// CanStrong is Can evaluated against ancestry read synchronously from
	// the store, for call sites that cannot tolerate index staleness.
	CanStrong(ctx context.Context, userID, capability string, itemID *string) (bool, error)
}
