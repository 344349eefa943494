package symbol

import "testing"

func TestIsPrimitiveType(t *testing.T) {
	primitives := []string{"int", "string", "Void", "bool", "Double", "float64", "object"}
	for _, name := range primitives {
		if !IsPrimitiveType(name) {
			t.Errorf("IsPrimitiveType(%q) = false, want true", name)
		}
	}

	types := []string{"UserService", "IRepository", "List", "Guid", ""}
	for _, name := range types {
		if IsPrimitiveType(name) {
			t.Errorf("IsPrimitiveType(%q) = true, want false", name)
		}
	}
}

func TestEdge_Resolution(t *testing.T) {
	edge := NewEdge(7, "Auth.HashPassword", EdgeCalls, 1, "main", "sha", "user/UserService.cs", 14)

	if edge.Resolved() {
		t.Error("new edge should be unresolved")
	}
	if edge.TargetName() != "Auth.HashPassword" {
		t.Errorf("TargetName = %q", edge.TargetName())
	}

	resolved := edge.WithTargetID(42)
	if !resolved.Resolved() || resolved.TargetID() != 42 {
		t.Errorf("WithTargetID: resolved=%v id=%d", resolved.Resolved(), resolved.TargetID())
	}
	// The original value is untouched.
	if edge.Resolved() {
		t.Error("WithTargetID mutated the receiver")
	}
}
