package vm

// List storage grows by doubling from an initial capacity of 8. Growth is
// done by hand rather than append so the collector's accounting sees it.

// ListAppend appends a value, growing the backing array if needed. The list
// and the value must both be reachable from a root: growth accounting can
// trigger a collection.
func (m *VM) ListAppend(list *ObjList, value Value) {
	if cap(list.Items) < len(list.Items)+1 {
		oldCap := cap(list.Items)
		newCap := growCapacity(oldCap)
		items := make([]Value, len(list.Items), newCap)
		copy(items, list.Items)
		list.Items = items
		m.accountGrowth(&list.Obj, (newCap-oldCap)*valueSize)
	}
	list.Items = append(list.Items, value)
}

// ListExtend appends every element of src to list.
func (m *VM) ListExtend(list, src *ObjList) {
	for _, item := range src.Items {
		m.ListAppend(list, item)
	}
}

// IsValidListIndex reports whether a raw index is in [-len, len-1]. Negative
// indices wrap only after this check passes; an index below -len is rejected,
// never wrapped a second time.
func IsValidListIndex(list *ObjList, index int) bool {
	return index >= -len(list.Items) && index <= len(list.Items)-1
}

// ListGet reads the element at index. The index must already be validated.
func ListGet(list *ObjList, index int) Value {
	if index < 0 {
		index = len(list.Items) + index
	}
	return list.Items[index]
}

// ListSet writes the element at index. The index must already be validated.
func ListSet(list *ObjList, index int, value Value) {
	if index < 0 {
		index = len(list.Items) + index
	}
	list.Items[index] = value
}

// ListDelete removes the element at index, shifting the tail down.
func ListDelete(list *ObjList, index int) {
	if index < 0 {
		index = len(list.Items) + index
	}
	copy(list.Items[index:], list.Items[index+1:])
	list.Items[len(list.Items)-1] = NoneVal()
	list.Items = list.Items[:len(list.Items)-1]
}
