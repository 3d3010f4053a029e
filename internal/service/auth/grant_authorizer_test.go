package auth

import (
	"context"
	"log/slog"
	"testing"

	"campus/internal/authz"
	"campus/internal/capabilities"
	"campus/internal/domain"
	"campus/internal/domain/models"
	"campus/internal/domain/repositories"
)

func ptr(s string) *string { return &s }

// fakeGrantRepo serves a fixed grant set per user
type fakeGrantRepo struct {
	grants map[string][]models.RoleGrant
}

func (r *fakeGrantRepo) Create(ctx context.Context, grant *models.RoleGrant) error { return nil }
func (r *fakeGrantRepo) Delete(ctx context.Context, id string) error               { return nil }
func (r *fakeGrantRepo) List(ctx context.Context) ([]models.RoleGrant, error)      { return nil, nil }

func (r *fakeGrantRepo) ListByUser(ctx context.Context, userID string) ([]models.RoleGrant, error) {
	return r.grants[userID], nil
}

// parentOnlyItemRepo serves parent links from a map. Only GetParentID is
// implemented; CanStrong touches nothing else.
type parentOnlyItemRepo struct {
	repositories.ItemRepository
	parents map[string]*string
}

func (r *parentOnlyItemRepo) GetParentID(ctx context.Context, id string) (*string, error) {
	parent, ok := r.parents[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "item not found"}
	}
	return parent, nil
}

// staleIndex is an ancestry cache that lags behind the store
type staleIndex map[string][]string

func (s staleIndex) Ancestors(id string) ([]string, bool) {
	path, ok := s[id]
	return path, ok
}

func newAuthorizer(t *testing.T, grants map[string][]models.RoleGrant, index authz.AncestorReader, parents map[string]*string) *GrantAuthorizer {
	t.Helper()
	registry, err := capabilities.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewGrantAuthorizer(
		&fakeGrantRepo{grants: grants},
		&parentOnlyItemRepo{parents: parents},
		authz.NewEvaluator(registry, index),
		slog.New(slog.DiscardHandler),
	)
}

func TestLoadUserEmptyID(t *testing.T) {
	a := newAuthorizer(t, nil, staleIndex{}, nil)

	user, err := a.LoadUser(context.Background(), "")
	if err != nil {
		t.Fatalf("LoadUser: %v", err)
	}
	if user != nil {
		t.Errorf("got %+v, want nil user for anonymous caller", user)
	}
}

func TestCanUsesGrantsAndIndex(t *testing.T) {
	grants := map[string][]models.RoleGrant{
		"alice": {{
			Role:        models.RoleSubAdmin,
			ScopeKind:   models.ScopeFolder,
			ScopeID:     ptr("folder-1"),
			Permissions: []string{"canRename"},
		}},
	}
	index := staleIndex{
		"folder-1": {},
		"file-1":   {"folder-1"},
	}
	a := newAuthorizer(t, grants, index, nil)
	ctx := context.Background()

	allowed, err := a.Can(ctx, "alice", "canRename", ptr("file-1"))
	if err != nil {
		t.Fatalf("Can: %v", err)
	}
	if !allowed {
		t.Error("alice denied inside her scope")
	}

	allowed, err = a.Can(ctx, "bob", "canRename", ptr("file-1"))
	if err != nil {
		t.Fatalf("Can: %v", err)
	}
	if allowed {
		t.Error("bob allowed without grants")
	}
}

func TestCanStrongSeesLiveAncestry(t *testing.T) {
	// file-1 was moved out of folder-1 into folder-2; the index still shows
	// the old ancestry, the store shows the new one.
	grants := map[string][]models.RoleGrant{
		"alice": {{
			Role:        models.RoleSubAdmin,
			ScopeKind:   models.ScopeFolder,
			ScopeID:     ptr("folder-1"),
			Permissions: []string{"canDelete"},
		}},
	}
	index := staleIndex{
		"folder-1": {},
		"folder-2": {},
		"file-1":   {"folder-1"},
	}
	parents := map[string]*string{
		"folder-1": nil,
		"folder-2": nil,
		"file-1":   ptr("folder-2"),
	}
	a := newAuthorizer(t, grants, index, parents)
	ctx := context.Background()

	// The stale index still authorizes the delete
	allowed, err := a.Can(ctx, "alice", "canDelete", ptr("file-1"))
	if err != nil {
		t.Fatalf("Can: %v", err)
	}
	if !allowed {
		t.Error("stale index check denied (expected the lagging answer)")
	}

	// The strong check walks the store and denies it
	allowed, err = a.CanStrong(ctx, "alice", "canDelete", ptr("file-1"))
	if err != nil {
		t.Fatalf("CanStrong: %v", err)
	}
	if allowed {
		t.Error("strong check honored stale ancestry")
	}
}

func TestCanStrongRootTarget(t *testing.T) {
	grants := map[string][]models.RoleGrant{
		"alice": {{
			Role:        models.RoleSubAdmin,
			ScopeKind:   models.ScopeGlobal,
			Permissions: []string{"canAddClass"},
		}},
	}
	a := newAuthorizer(t, grants, staleIndex{}, nil)

	allowed, err := a.CanStrong(context.Background(), "alice", "canAddClass", nil)
	if err != nil {
		t.Fatalf("CanStrong: %v", err)
	}
	if !allowed {
		t.Error("global grant denied at root")
	}
}

func TestCanStrongDeepPath(t *testing.T) {
	grants := map[string][]models.RoleGrant{
		"alice": {{
			Role:        models.RoleSubAdmin,
			ScopeKind:   models.ScopeLevel,
			ScopeID:     ptr("level-1"),
			Permissions: []string{"canRename"},
		}},
	}
	parents := map[string]*string{
		"level-1":    nil,
		"semester-1": ptr("level-1"),
		"subject-1":  ptr("semester-1"),
		"file-1":     ptr("subject-1"),
	}
	a := newAuthorizer(t, grants, staleIndex{}, parents)

	allowed, err := a.CanStrong(context.Background(), "alice", "canRename", ptr("file-1"))
	if err != nil {
		t.Fatalf("CanStrong: %v", err)
	}
	if !allowed {
		t.Error("strong check missed an ancestor deep in the chain")
	}
}
