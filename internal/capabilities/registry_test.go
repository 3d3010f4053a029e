package capabilities

import "testing"

func TestRegistryLoadsVocabulary(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	for _, name := range []string{"canRename", "canDelete", "canMove", "canReorder"} {
		if !r.Known(name) {
			t.Errorf("Known(%s) = false", name)
		}
	}
	if r.Known("canDoAnything") {
		t.Error("Known accepted a name outside the vocabulary")
	}
}

func TestPageCapabilitiesAreSeparate(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if !r.IsPageLevel("canAccessAdminPanel") {
		t.Error("canAccessAdminPanel not page-level")
	}
	if r.IsPageLevel("canRename") {
		t.Error("canRename reported as page-level")
	}
	// Page capabilities are still part of the known vocabulary
	if !r.Known("canAccessQuestionCreator") {
		t.Error("page capability not known")
	}
}

func TestAddFamilySubsetOfItemVocabulary(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	family := r.AddFamily()
	if len(family) == 0 {
		t.Fatal("add family is empty")
	}
	for _, name := range family {
		if !r.Known(name) {
			t.Errorf("add capability %s not in vocabulary", name)
		}
		if r.IsPageLevel(name) {
			t.Errorf("add capability %s is page-level", name)
		}
	}
}

func TestItemCapabilitiesOrderStable(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	list := r.ItemCapabilities()
	if len(list) == 0 {
		t.Fatal("item capability list is empty")
	}
	if list[0] != "canRename" {
		t.Errorf("first item capability = %s, want canRename", list[0])
	}
}
