package vm

import (
	"fmt"
	"testing"
)

func TestStringInterningIdentity(t *testing.T) {
	m := NewVM()
	defer m.Free()

	a := m.CopyString("shared")
	b := m.CopyString("shared")
	c := m.TakeString("sha" + "red")
	if a != b || a != c {
		t.Error("byte-equal strings should intern to one object")
	}
}

func TestCollectFreesUnreachableObjects(t *testing.T) {
	m := NewVM()
	defer m.Free()
	m.CollectGarbage()
	baseline := m.BytesAllocated()
	baseCount := m.ObjectCount()

	// The collection above set nextGC to twice a tiny live tally; lift it so
	// only the explicit collection below runs.
	m.nextGC = 1 << 30

	for i := 0; i < 100; i++ {
		m.CopyString(fmt.Sprintf("garbage-%d", i))
	}
	if m.ObjectCount() != baseCount+100 {
		t.Fatalf("expected %d objects, have %d", baseCount+100, m.ObjectCount())
	}

	// Nothing roots the new strings; the weak intern table must not keep
	// them alive.
	m.CollectGarbage()

	if got := m.ObjectCount(); got != baseCount {
		t.Errorf("object count after collect = %d, want %d", got, baseCount)
	}
	if got := m.BytesAllocated(); got != baseline {
		t.Errorf("bytesAllocated after collect = %d, want %d", got, baseline)
	}
}

func TestCollectRetainsRootedObjects(t *testing.T) {
	m := NewVM()
	defer m.Free()

	s := m.CopyString("keep-me")
	m.Push(ObjVal(&s.Obj))

	list := m.NewList()
	m.Push(ObjVal(&list.Obj))
	m.ListAppend(list, ObjVal(&m.CopyString("element").Obj))

	m.CollectGarbage()

	if m.strings.FindString("keep-me", hashString("keep-me")) != s {
		t.Error("rooted string was pruned from the intern table")
	}
	if m.strings.FindString("element", hashString("element")) == nil {
		t.Error("list element reachable from the stack was collected")
	}

	m.Pop()
	m.Pop()
	m.CollectGarbage()

	if m.strings.FindString("keep-me", hashString("keep-me")) != nil {
		t.Error("unrooted string survived collection")
	}
}

func TestCollectTracesObjectGraphs(t *testing.T) {
	m := NewVM()
	defer m.Free()

	class := m.NewClass(m.CopyString("Thing"))
	m.Push(ObjVal(&class.Obj))
	instance := m.NewInstance(class)
	m.Push(ObjVal(&instance.Obj))
	instance.Fields.Set(m.CopyString("field"), ObjVal(&m.CopyString("payload").Obj))
	m.Pop() // instance stays alive through nothing but this test's locals
	m.Pop()

	// Re-push just the instance: the class and field payload must survive
	// through it.
	m.Push(ObjVal(&instance.Obj))
	m.CollectGarbage()

	if m.strings.FindString("payload", hashString("payload")) == nil {
		t.Error("instance field payload was collected")
	}
	if m.strings.FindString("Thing", hashString("Thing")) == nil {
		t.Error("class name reachable through instance was collected")
	}
	m.Pop()
}

func TestOpenUpvalueListOrdering(t *testing.T) {
	m := NewVM()
	defer m.Free()

	for i := 0; i < 10; i++ {
		m.Push(IntVal(int32(i * 10)))
	}

	// Capture out of order, with a duplicate.
	slots := []int{4, 1, 7, 4, 2, 9}
	captured := make(map[int]*ObjUpvalue)
	for _, slot := range slots {
		u := m.captureUpvalue(slot)
		if prev, ok := captured[slot]; ok && prev != u {
			t.Errorf("slot %d captured twice as distinct upvalues", slot)
		}
		captured[slot] = u
	}

	// Strictly descending by slot, no duplicates.
	last := StackMax
	for u := m.openUpvalues; u != nil; u = u.NextOpen {
		if u.Slot >= last {
			t.Fatalf("open-upvalue list not strictly descending: %d after %d", u.Slot, last)
		}
		last = u.Slot
	}
}

func TestCloseUpvalues(t *testing.T) {
	m := NewVM()
	defer m.Free()

	for i := 0; i < 5; i++ {
		m.Push(IntVal(int32(i)))
	}
	low := m.captureUpvalue(1)
	high := m.captureUpvalue(3)

	if got := m.upvalueGet(high); got.AsInt() != 3 {
		t.Fatalf("open upvalue reads %s, want 3", FormatValue(got))
	}

	m.closeUpvalues(2)

	if high.Slot != -1 {
		t.Error("upvalue above the boundary was not closed")
	}
	if got := m.upvalueGet(high); got.AsInt() != 3 {
		t.Errorf("closed upvalue reads %s, want 3", FormatValue(got))
	}
	if low.Slot != 1 {
		t.Error("upvalue below the boundary should stay open")
	}
	if m.openUpvalues != low {
		t.Error("open list should retain only the low upvalue")
	}

	// Writes through a closed upvalue no longer touch the stack.
	m.upvalueSet(high, IntVal(99))
	if m.stack[3].AsInt() != 3 {
		t.Error("write to closed upvalue leaked into the stack")
	}
	if m.upvalueGet(high).AsInt() != 99 {
		t.Error("closed upvalue lost its written value")
	}
}

func TestStressCollectionDuringAllocation(t *testing.T) {
	m := NewVM()
	defer m.Free()
	m.StressGC = true

	// Every allocation collects; rooted intermediates must survive. Values
	// ride the stack across the append, the same discipline OP_LIST_BUILD
	// uses.
	list := m.NewList()
	m.Push(ObjVal(&list.Obj))
	for i := 0; i < 50; i++ {
		m.Push(ObjVal(&m.CopyString(fmt.Sprintf("s%d", i)).Obj))
		m.ListAppend(list, m.peek(0))
		m.Pop()
	}
	for i := 0; i < 50; i++ {
		if m.strings.FindString(fmt.Sprintf("s%d", i), hashString(fmt.Sprintf("s%d", i))) == nil {
			t.Fatalf("element s%d lost under stress collection", i)
		}
	}
	m.Pop()
}
