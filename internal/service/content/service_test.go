package content

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"

	"github.com/google/uuid"

	"campus/internal/domain"
	"campus/internal/domain/models"
	"campus/internal/domain/repositories"
	"campus/internal/domain/services"
)

// memItemRepo is an in-memory ItemRepository for service tests
type memItemRepo struct {
	items map[string]*models.Item
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{items: make(map[string]*models.Item)}
}

func (r *memItemRepo) Create(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *memItemRepo) CreateBatch(ctx context.Context, items []*models.Item) error {
	for _, item := range items {
		clone := *item
		r.items[item.ID] = &clone
	}
	return nil
}

func (r *memItemRepo) GetByID(ctx context.Context, id string) (*models.Item, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "item not found"}
	}
	clone := *item
	return &clone, nil
}

func (r *memItemRepo) GetParentID(ctx context.Context, id string) (*string, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "item not found"}
	}
	return item.ParentID, nil
}

func (r *memItemRepo) Rename(ctx context.Context, id, name string) error {
	item, ok := r.items[id]
	if !ok {
		return &domain.NotFoundError{Message: "item not found"}
	}
	item.Name = name
	return nil
}

func (r *memItemRepo) SetParent(ctx context.Context, id string, parentID *string, order int) error {
	item, ok := r.items[id]
	if !ok {
		return &domain.NotFoundError{Message: "item not found"}
	}
	item.ParentID = parentID
	item.Order = order
	return nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *memItemRepo) ListChildren(ctx context.Context, parentID *string) ([]models.Item, error) {
	var children []models.Item
	for _, item := range r.items {
		if sameParent(item.ParentID, parentID) {
			children = append(children, *item)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Order < children[j].Order })
	return children, nil
}

func (r *memItemRepo) CountChildren(ctx context.Context, parentID *string) (int, error) {
	children, _ := r.ListChildren(ctx, parentID)
	return len(children), nil
}

func (r *memItemRepo) ListSubtree(ctx context.Context, rootID string) ([]models.Item, error) {
	root, ok := r.items[rootID]
	if !ok {
		return nil, &domain.NotFoundError{Message: "item not found"}
	}

	result := []models.Item{*root}
	queue := []string{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		children, _ := r.ListChildren(ctx, &current)
		for _, child := range children {
			result = append(result, child)
			queue = append(queue, child.ID)
		}
	}
	return result, nil
}

func (r *memItemRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(r.items, id)
	}
	return nil
}

func (r *memItemRepo) SetOrders(ctx context.Context, orderedIDs []string) error {
	for i, id := range orderedIDs {
		if item, ok := r.items[id]; ok {
			item.Order = i
		}
	}
	return nil
}

func (r *memItemRepo) GetMetadataForUpdate(ctx context.Context, id string) (*models.Metadata, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "item not found"}
	}
	meta := item.Metadata
	return &meta, nil
}

func (r *memItemRepo) UpdateMetadata(ctx context.Context, id string, meta *models.Metadata) error {
	item, ok := r.items[id]
	if !ok {
		return &domain.NotFoundError{Message: "item not found"}
	}
	item.Metadata = *meta
	return nil
}

func (r *memItemRepo) ListStubs(ctx context.Context) ([]models.ItemStub, error) {
	stubs := make([]models.ItemStub, 0, len(r.items))
	for _, item := range r.items {
		stubs = append(stubs, models.ItemStub{ID: item.ID, ParentID: item.ParentID})
	}
	return stubs, nil
}

// passthroughTx runs the unit of work directly, optionally failing the first
// few attempts.
type passthroughTx struct {
	failuresLeft int
	failWith     error
	attempts     int
}

func (tm *passthroughTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tm.attempts++
	if tm.failuresLeft != 0 {
		if tm.failuresLeft > 0 {
			tm.failuresLeft--
		}
		return tm.failWith
	}
	return fn(ctx)
}

// recordingPublisher captures snapshots pushed to the change feed
type recordingPublisher struct {
	snapshots [][]models.ItemStub
}

func (p *recordingPublisher) Publish(stubs []models.ItemStub) {
	p.snapshots = append(p.snapshots, stubs)
}

// recordingNotifier captures side-channel events
type recordingNotifier struct {
	childrenChanged []*string
	accessDenied    []string
}

func (n *recordingNotifier) ChildrenChanged(ctx context.Context, parentID *string) {
	n.childrenChanged = append(n.childrenChanged, parentID)
}

func (n *recordingNotifier) AccessDenied(ctx context.Context, operation string, itemID string) {
	n.accessDenied = append(n.accessDenied, operation)
}

type fixture struct {
	service   services.ContentService
	repo      *memItemRepo
	tx        *passthroughTx
	publisher *recordingPublisher
	notifier  *recordingNotifier
}

func newFixture() *fixture {
	repo := newMemItemRepo()
	tx := &passthroughTx{}
	publisher := &recordingPublisher{}
	notifier := &recordingNotifier{}
	logger := slog.New(slog.DiscardHandler)

	return &fixture{
		service:   NewContentService(repo, tx, publisher, notifier, logger),
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		notifier:  notifier,
	}
}

// seed inserts an item directly into the repository
func (f *fixture) seed(t *testing.T, parentID *string, name string, itemType models.ItemType, order int) *models.Item {
	t.Helper()
	item := &models.Item{
		ID:       uuid.New().String(),
		ParentID: parentID,
		Name:     name,
		Type:     itemType,
		Order:    order,
	}
	if err := f.repo.Create(context.Background(), item); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return item
}

func TestCreateItemAppendsToEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	parent := f.seed(t, nil, "Year 10", models.ItemTypeLevel, 0)

	var orders []int
	for _, name := range []string{"Algebra", "Geometry", "Calculus"} {
		item, err := f.service.CreateItem(ctx, &services.CreateItemRequest{
			ParentID: &parent.ID,
			Name:     name,
			Type:     models.ItemTypeSubject,
		})
		if err != nil {
			t.Fatalf("CreateItem(%s): %v", name, err)
		}
		orders = append(orders, item.Order)
	}

	for i, order := range orders {
		if order != i {
			t.Errorf("item %d got order %d, want %d", i, order, i)
		}
	}
}

func TestCreateItemMissingParent(t *testing.T) {
	f := newFixture()
	missing := uuid.New().String()

	_, err := f.service.CreateItem(context.Background(), &services.CreateItemRequest{
		ParentID: &missing,
		Name:     "Orphan",
		Type:     models.ItemTypeFolder,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestCreateItemValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *services.CreateItemRequest
	}{
		{"empty name", &services.CreateItemRequest{Name: "", Type: models.ItemTypeFolder}},
		{"unknown type", &services.CreateItemRequest{Name: "X", Type: "playlist"}},
		{"link without url", &services.CreateItemRequest{
			Name: "X", Type: models.ItemTypeLink,
			Metadata: &models.Metadata{Link: &models.LinkMeta{}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.service.CreateItem(ctx, tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestMoveIntoSelfRejected(t *testing.T) {
	f := newFixture()
	folder := f.seed(t, nil, "Docs", models.ItemTypeFolder, 0)

	_, err := f.service.Move(context.Background(), folder.ID, &folder.ID)
	if !errors.Is(err, domain.ErrInvalidOperation) {
		t.Errorf("got %v, want ErrInvalidOperation", err)
	}
}

func TestMoveIntoOwnSubtreeRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	top := f.seed(t, nil, "Top", models.ItemTypeFolder, 0)
	mid := f.seed(t, &top.ID, "Mid", models.ItemTypeFolder, 0)
	leaf := f.seed(t, &mid.ID, "Leaf", models.ItemTypeFolder, 0)

	_, err := f.service.Move(ctx, top.ID, &leaf.ID)
	if !errors.Is(err, domain.ErrInvalidOperation) {
		t.Fatalf("got %v, want ErrInvalidOperation", err)
	}

	// Tree must be untouched after the rejection
	got, err := f.repo.GetParentID(ctx, top.ID)
	if err != nil {
		t.Fatalf("GetParentID: %v", err)
	}
	if got != nil {
		t.Errorf("top was re-parented to %v, want root", *got)
	}
}

func TestMoveToSameParentAppends(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	parent := f.seed(t, nil, "Parent", models.ItemTypeFolder, 0)
	a := f.seed(t, &parent.ID, "A", models.ItemTypeFile, 0)
	f.seed(t, &parent.ID, "B", models.ItemTypeFile, 1)

	moved, err := f.service.Move(ctx, a.ID, &parent.ID)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != parent.ID {
		t.Errorf("parent = %v, want %s", moved.ParentID, parent.ID)
	}
	if moved.Order != 2 {
		t.Errorf("order = %d, want 2 (appended to end)", moved.Order)
	}
}

func TestMoveToRoot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	parent := f.seed(t, nil, "Parent", models.ItemTypeFolder, 0)
	child := f.seed(t, &parent.ID, "Child", models.ItemTypeFolder, 0)

	moved, err := f.service.Move(ctx, child.ID, nil)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if moved.ParentID != nil {
		t.Errorf("parent = %v, want root", *moved.ParentID)
	}
}

func TestMoveNotifiesBothParents(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	src := f.seed(t, nil, "Src", models.ItemTypeFolder, 0)
	dst := f.seed(t, nil, "Dst", models.ItemTypeFolder, 1)
	child := f.seed(t, &src.ID, "Child", models.ItemTypeFile, 0)

	if _, err := f.service.Move(ctx, child.ID, &dst.ID); err != nil {
		t.Fatalf("Move: %v", err)
	}

	if len(f.notifier.childrenChanged) != 2 {
		t.Fatalf("got %d children-changed events, want 2", len(f.notifier.childrenChanged))
	}
}

func TestDeleteRemovesWholeSubtree(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	keep := f.seed(t, nil, "Keep", models.ItemTypeFolder, 0)
	doomed := f.seed(t, nil, "Doomed", models.ItemTypeFolder, 1)
	child := f.seed(t, &doomed.ID, "Child", models.ItemTypeFolder, 0)
	grandchild := f.seed(t, &child.ID, "Grandchild", models.ItemTypeFile, 0)

	if err := f.service.Delete(ctx, doomed.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, id := range []string{doomed.ID, child.ID, grandchild.ID} {
		if _, err := f.repo.GetByID(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("item %s survived deletion", id)
		}
	}
	if _, err := f.repo.GetByID(ctx, keep.ID); err != nil {
		t.Errorf("unrelated item was deleted: %v", err)
	}
}

func TestDeleteMissingItem(t *testing.T) {
	f := newFixture()
	if err := f.service.Delete(context.Background(), uuid.New().String()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestCopySubtreeShape(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	src := f.seed(t, nil, "Course", models.ItemTypeFolder, 0)
	docA := f.seed(t, &src.ID, "Notes", models.ItemTypeFile, 0)
	f.seed(t, &src.ID, "Exercises", models.ItemTypeFolder, 1)
	docA.Metadata = models.Metadata{
		Icon: &models.IconRef{Name: "book", UploadHandle: "h-123"},
	}
	f.repo.items[docA.ID].Metadata = docA.Metadata

	dst := f.seed(t, nil, "Archive", models.ItemTypeFolder, 1)
	f.seed(t, &dst.ID, "Existing", models.ItemTypeFile, 0)

	root, err := f.service.Copy(ctx, src.ID, &dst.ID)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}

	if root.ID == src.ID {
		t.Error("copy reused the source ID")
	}
	if root.Name != "Course (Copy)" {
		t.Errorf("copy root name = %q, want %q", root.Name, "Course (Copy)")
	}
	if root.Order != 1 {
		t.Errorf("copy root order = %d, want 1 (after existing child)", root.Order)
	}

	children, err := f.repo.ListChildren(ctx, &root.ID)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("copy has %d children, want 2", len(children))
	}

	// Children keep their names and relative order; only the root is renamed
	if children[0].Name != "Notes" || children[1].Name != "Exercises" {
		t.Errorf("children = %q, %q; want Notes, Exercises", children[0].Name, children[1].Name)
	}

	// Derived upload handles must not survive the copy
	if meta := children[0].Metadata; meta.Icon == nil || meta.Icon.UploadHandle != "" {
		t.Errorf("copied icon = %+v, want name kept and upload handle cleared", meta.Icon)
	}

	// Source is untouched
	srcAfter, err := f.repo.GetByID(ctx, src.ID)
	if err != nil {
		t.Fatalf("source disappeared: %v", err)
	}
	if srcAfter.Name != "Course" {
		t.Errorf("source renamed to %q", srcAfter.Name)
	}
}

func TestCopyLeafItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	file := f.seed(t, nil, "Syllabus", models.ItemTypeFile, 0)

	root, err := f.service.Copy(ctx, file.ID, nil)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if root.Name != "Syllabus (Copy)" {
		t.Errorf("copy name = %q", root.Name)
	}
	if root.Order != 1 {
		t.Errorf("copy order = %d, want 1 (appended after the source)", root.Order)
	}
}

func TestSetOrderRewritesSortKeys(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	parent := f.seed(t, nil, "Parent", models.ItemTypeFolder, 0)
	a := f.seed(t, &parent.ID, "A", models.ItemTypeFile, 0)
	b := f.seed(t, &parent.ID, "B", models.ItemTypeFile, 1)
	c := f.seed(t, &parent.ID, "C", models.ItemTypeFile, 2)

	if err := f.service.SetOrder(ctx, &parent.ID, []string{c.ID, a.ID, b.ID}); err != nil {
		t.Fatalf("SetOrder: %v", err)
	}

	children, _ := f.repo.ListChildren(ctx, &parent.ID)
	got := []string{children[0].Name, children[1].Name, children[2].Name}
	want := []string{"C", "A", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSetOrderEmptyRejected(t *testing.T) {
	f := newFixture()
	if err := f.service.SetOrder(context.Background(), nil, nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestToggleHiddenFlips(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	item := f.seed(t, nil, "Item", models.ItemTypeFolder, 0)

	hidden, err := f.service.ToggleHidden(ctx, item.ID)
	if err != nil {
		t.Fatalf("ToggleHidden: %v", err)
	}
	if !hidden {
		t.Error("first toggle = false, want true")
	}

	hidden, err = f.service.ToggleHidden(ctx, item.ID)
	if err != nil {
		t.Fatalf("ToggleHidden: %v", err)
	}
	if hidden {
		t.Error("second toggle = true, want false")
	}
}

func TestPatchMetadataPreservesOtherFields(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	item := f.seed(t, nil, "Doc", models.ItemTypeFile, 0)
	f.repo.items[item.ID].Metadata = models.Metadata{
		File: &models.FileMeta{StorageKey: "k-1", MimeType: "application/pdf"},
	}

	patched, err := f.service.PatchMetadata(ctx, item.ID, &models.MetadataPatch{
		Icon: &models.IconRef{Name: "star"},
	})
	if err != nil {
		t.Fatalf("PatchMetadata: %v", err)
	}

	if patched.Metadata.Icon == nil || patched.Metadata.Icon.Name != "star" {
		t.Errorf("icon = %+v, want star", patched.Metadata.Icon)
	}
	if patched.Metadata.File == nil || patched.Metadata.File.StorageKey != "k-1" {
		t.Errorf("file meta = %+v, want preserved", patched.Metadata.File)
	}
}

func TestConflictRetrySucceeds(t *testing.T) {
	f := newFixture()
	item := f.seed(t, nil, "Item", models.ItemTypeFolder, 0)

	f.tx.failuresLeft = 2
	f.tx.failWith = &domain.ConflictError{Message: "serialization failure"}

	if _, err := f.service.Rename(context.Background(), item.ID, "Renamed"); err != nil {
		t.Fatalf("Rename after conflicts: %v", err)
	}
	if f.tx.attempts != 3 {
		t.Errorf("attempts = %d, want 3", f.tx.attempts)
	}
}

func TestConflictRetryExhausted(t *testing.T) {
	f := newFixture()
	item := f.seed(t, nil, "Item", models.ItemTypeFolder, 0)

	f.tx.failuresLeft = -1 // fail forever
	f.tx.failWith = &domain.ConflictError{Message: "serialization failure"}

	_, err := f.service.Rename(context.Background(), item.ID, "Renamed")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if f.tx.attempts != maxConflictRetries+1 {
		t.Errorf("attempts = %d, want %d", f.tx.attempts, maxConflictRetries+1)
	}
}

func TestAccessDeniedDualReporting(t *testing.T) {
	f := newFixture()
	item := f.seed(t, nil, "Item", models.ItemTypeFolder, 0)

	f.tx.failuresLeft = -1
	f.tx.failWith = &domain.AccessDeniedError{Message: "permission denied by engine", ItemID: item.ID}

	_, err := f.service.Rename(context.Background(), item.ID, "Renamed")

	// The caller still gets the error
	if !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("got %v, want ErrAccessDenied", err)
	}
	// And the side channel got the report
	if len(f.notifier.accessDenied) != 1 || f.notifier.accessDenied[0] != "rename" {
		t.Errorf("side channel reports = %v, want [rename]", f.notifier.accessDenied)
	}
	// No retry for non-conflict errors
	if f.tx.attempts != 1 {
		t.Errorf("attempts = %d, want 1", f.tx.attempts)
	}
}

func TestMutationsPublishSnapshots(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.CreateItem(ctx, &services.CreateItemRequest{
		Name: "Root",
		Type: models.ItemTypeLevel,
	}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if len(f.publisher.snapshots) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(f.publisher.snapshots))
	}
	if len(f.publisher.snapshots[0]) != 1 {
		t.Errorf("snapshot has %d stubs, want 1", len(f.publisher.snapshots[0]))
	}
}
