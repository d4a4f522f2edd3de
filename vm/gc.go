package vm

// Tri-color mark-sweep collection over the intrusive object list.
//
// The tally in bytesAllocated covers object headers, string payloads, list
// storage, and finalized chunk buffers; hash-table backing arrays are owned
// by Go slices and excluded. A collection runs when the tally crosses nextGC
// (or on every allocation under StressGC); afterwards nextGC is twice the
// surviving tally.

const (
	gcInitialThreshold = 1024 * 1024
	gcHeapGrowFactor   = 2
	listInitialCapacity = 8
)

// track links an object into the object list and accounts its size. The
// threshold check runs before the object becomes visible so a collection
// triggered here can never sweep it.
func (m *VM) track(o *Obj, kind ObjKind, size int) {
	m.beforeAlloc(size)
	o.Kind = kind
	o.bytes = size
	o.Next = m.objects
	m.objects = o
}

func (m *VM) beforeAlloc(size int) {
	m.bytesAllocated += size
	if m.StressGC || m.bytesAllocated > m.nextGC {
		m.CollectGarbage()
	}
}

// accountGrowth records a size change on an already-live object, e.g. list
// storage doubling. The object must be rooted: the check may collect.
func (m *VM) accountGrowth(o *Obj, delta int) {
	o.bytes += delta
	m.beforeAlloc(delta)
}

// FinalizeFunction folds a compiled function's chunk buffers into the
// allocation tally. The compiler calls it once per function, while the
// function is still rooted through the compiler chain.
func (m *VM) FinalizeFunction(fn *ObjFunction) {
	m.accountGrowth(&fn.Obj, fn.Chunk.size())
}

func (m *VM) pushTempRoot(o *Obj) { m.tempRoots = append(m.tempRoots, o) }

func (m *VM) popTempRoot() { m.tempRoots = m.tempRoots[:len(m.tempRoots)-1] }

// CollectGarbage runs a full mark-sweep cycle.
func (m *VM) CollectGarbage() {
	before := m.bytesAllocated
	if m.LogGC {
		m.log.Debugf("gc begin, %d bytes allocated", before)
	}

	m.markRoots()
	m.traceReferences()
	m.strings.removeWhite()
	m.sweep()

	m.nextGC = m.bytesAllocated * gcHeapGrowFactor

	if m.LogGC {
		m.log.Debugf("gc end, collected %d bytes (%d -> %d), next at %d",
			before-m.bytesAllocated, before, m.bytesAllocated, m.nextGC)
	}
}

func (m *VM) markRoots() {
	for i := 0; i < m.stackTop; i++ {
		m.markValue(m.stack[i])
	}

	for i := 0; i < m.frameCount; i++ {
		m.markObject(&m.frames[i].closure.Obj)
	}

	for upvalue := m.openUpvalues; upvalue != nil; upvalue = upvalue.NextOpen {
		m.markObject(&upvalue.Obj)
	}

	m.globals.mark(m)

	for _, o := range m.tempRoots {
		m.markObject(o)
	}

	if m.initString != nil {
		m.markObject(&m.initString.Obj)
	}

	if m.CompilerRoots != nil {
		m.CompilerRoots(m.markObject)
	}
}

func (m *VM) markValue(v Value) {
	if v.IsObj() {
		m.markObject(v.AsObj())
	}
}

func (m *VM) markObject(o *Obj) {
	if o == nil || o.Marked {
		return
	}
	o.Marked = true
	m.grayStack = append(m.grayStack, o)
}

func (m *VM) traceReferences() {
	for len(m.grayStack) > 0 {
		o := m.grayStack[len(m.grayStack)-1]
		m.grayStack = m.grayStack[:len(m.grayStack)-1]
		m.blackenObject(o)
	}
}

func (m *VM) blackenObject(o *Obj) {
	switch o.Kind {
	case KindString, KindNative:
		// Leaves.

	case KindFunction:
		fn := o.AsFunction()
		if fn.Name != nil {
			m.markObject(&fn.Name.Obj)
		}
		for _, constant := range fn.Chunk.Constants {
			m.markValue(constant)
		}

	case KindClosure:
		closure := o.AsClosure()
		m.markObject(&closure.Function.Obj)
		for _, upvalue := range closure.Upvalues {
			if upvalue != nil {
				m.markObject(&upvalue.Obj)
			}
		}

	case KindUpvalue:
		m.markValue(o.AsUpvalue().Closed)

	case KindClass:
		class := o.AsClass()
		m.markObject(&class.Name.Obj)
		class.Methods.mark(m)

	case KindInstance:
		instance := o.AsInstance()
		m.markObject(&instance.Class.Obj)
		instance.Fields.mark(m)

	case KindBoundMethod:
		bound := o.AsBoundMethod()
		m.markValue(bound.Receiver)
		m.markObject(&bound.Method.Obj)

	case KindList:
		for _, item := range o.AsList().Items {
			m.markValue(item)
		}
	}
}

// sweep unlinks every unmarked object and clears the mark on survivors.
// Unlinking is the whole act of freeing: once an object leaves the list and
// the intern table nothing in the VM can reach it again.
func (m *VM) sweep() {
	var previous *Obj
	object := m.objects
	for object != nil {
		if object.Marked {
			object.Marked = false
			previous = object
			object = object.Next
			continue
		}

		unreached := object
		object = object.Next
		if previous != nil {
			previous.Next = object
		} else {
			m.objects = object
		}
		m.bytesAllocated -= unreached.bytes
		unreached.Next = nil
	}
}

// BytesAllocated exposes the current allocation tally, for tests and the GC
// log.
func (m *VM) BytesAllocated() int { return m.bytesAllocated }

// ObjectCount walks the object list; useful in tests.
func (m *VM) ObjectCount() int {
	n := 0
	for o := m.objects; o != nil; o = o.Next {
		n++
	}
	return n
}
