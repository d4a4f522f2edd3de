package vm

import (
	"fmt"
	"testing"
)

func TestTableSetGet(t *testing.T) {
	m := NewVM()
	defer m.Free()

	var table Table
	key := m.CopyString("answer")

	if !table.Set(key, IntVal(42)) {
		t.Error("first Set should report a new key")
	}
	if table.Set(key, IntVal(43)) {
		t.Error("second Set should report an existing key")
	}

	value, ok := table.Get(key)
	if !ok {
		t.Fatal("Get missed a present key")
	}
	if !ValuesEqual(value, IntVal(43)) {
		t.Errorf("Get = %s, want 43", FormatValue(value))
	}

	if _, ok := table.Get(m.CopyString("missing")); ok {
		t.Error("Get found an absent key")
	}
}

func TestTableDeleteAndTombstones(t *testing.T) {
	m := NewVM()
	defer m.Free()

	var table Table
	keys := make([]*ObjString, 20)
	for i := range keys {
		keys[i] = m.CopyString(fmt.Sprintf("key%d", i))
		table.Set(keys[i], IntVal(int32(i)))
	}

	for i := 0; i < 10; i++ {
		if !table.Delete(keys[i]) {
			t.Errorf("Delete(key%d) = false", i)
		}
	}
	if table.Delete(keys[0]) {
		t.Error("double Delete should report missing")
	}

	// Deleted keys stay gone; survivors stay reachable through tombstones.
	for i := 0; i < 10; i++ {
		if _, ok := table.Get(keys[i]); ok {
			t.Errorf("deleted key%d still present", i)
		}
	}
	for i := 10; i < 20; i++ {
		value, ok := table.Get(keys[i])
		if !ok || !ValuesEqual(value, IntVal(int32(i))) {
			t.Errorf("key%d lost after deletions", i)
		}
	}

	// Tombstoned slots are reusable.
	table.Set(keys[3], BoolVal(true))
	if value, ok := table.Get(keys[3]); !ok || !value.AsBool() {
		t.Error("reinsert into tombstoned slot failed")
	}
}

func TestTableGrowth(t *testing.T) {
	m := NewVM()
	defer m.Free()

	var table Table
	const n = 200
	for i := 0; i < n; i++ {
		table.Set(m.CopyString(fmt.Sprintf("g%d", i)), IntVal(int32(i)))
	}
	for i := 0; i < n; i++ {
		value, ok := table.Get(m.CopyString(fmt.Sprintf("g%d", i)))
		if !ok || value.AsInt() != int32(i) {
			t.Fatalf("g%d lost across growth", i)
		}
	}
}

func TestTableAddAll(t *testing.T) {
	m := NewVM()
	defer m.Free()

	var src, dst Table
	a := m.CopyString("a")
	b := m.CopyString("b")
	src.Set(a, IntVal(1))
	src.Set(b, IntVal(2))
	dst.Set(b, IntVal(99))

	dst.AddAll(&src)

	if value, _ := dst.Get(a); value.AsInt() != 1 {
		t.Error("AddAll did not copy new entries")
	}
	if value, _ := dst.Get(b); value.AsInt() != 2 {
		t.Error("AddAll should overwrite existing entries")
	}
}

func TestFindString(t *testing.T) {
	m := NewVM()
	defer m.Free()

	s := m.CopyString("needle")
	found := m.strings.FindString("needle", hashString("needle"))
	if found != s {
		t.Error("FindString did not return the interned object")
	}
	if m.strings.FindString("absent", hashString("absent")) != nil {
		t.Error("FindString invented an entry")
	}
}
