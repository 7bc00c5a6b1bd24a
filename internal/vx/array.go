package vx

import (
	"encoding/binary"

	sync "github.com/sasha-s/go-deadlock"
)

// Array is a bounded list of fixed-size items. The demo's flat buffer is an
// Array created with CreateBuffer.
type Array struct {
	reference

	mu       sync.RWMutex
	itemType Type
	itemSize int
	capacity int
	numItems int
	virtual  bool
	scope    *Graph
	data     []byte
}

func (a *Array) base() *reference {
	if a == nil {
		return nil
	}
	return &a.reference
}

// ArrayRange is a host view of items [start,end) obtained from MapRange.
type ArrayRange struct {
	Stride int
	Data   []byte

	array      *Array
	start, end int
	usage      Usage
	done       bool
}

// Int32 reads item i of the range as a little endian int32.
func (r *ArrayRange) Int32(i int) int32 {
	return int32(binary.LittleEndian.Uint32(r.Data[i*r.Stride:]))
}

// SetInt32 writes item i of the range.
func (r *ArrayRange) SetInt32(i int, v int32) {
	binary.LittleEndian.PutUint32(r.Data[i*r.Stride:], uint32(v))
}

// Len is the number of items in the range.
func (r *ArrayRange) Len() int { return r.end - r.start }

// CreateArray creates an empty array of a scalar item type.
func (c *Context) CreateArray(itemType Type, capacity int) (*Array, error) {
	size := SizeOf(itemType)
	if size == 0 {
		return nil, Errorf(ErrorInvalidType, "array item type %s", itemType)
	}
	return c.newArray(itemType, size, capacity, 0)
}

// CreateUserArray creates an empty array of opaque items of itemSize bytes.
func (c *Context) CreateUserArray(itemSize, capacity int) (*Array, error) {
	if itemSize <= 0 {
		return nil, Errorf(ErrorInvalidParameters, "array item size %d", itemSize)
	}
	return c.newArray(TypeUserStruct, itemSize, capacity, 0)
}

// CreateBuffer creates a flat buffer of count elements of elemSize bytes. All
// elements exist from the start and are zero, so the whole range can be
// copied immediately.
func (c *Context) CreateBuffer(elemSize, count int) (*Array, error) {
	if elemSize <= 0 {
		return nil, Errorf(ErrorInvalidParameters, "buffer element size %d", elemSize)
	}
	t := TypeUserStruct
	switch elemSize {
	case 1:
		t = TypeUint8
	case 2:
		t = TypeInt16
	case 4:
		t = TypeInt32
	case 8:
		t = TypeInt64
	}
	return c.newArray(t, elemSize, count, count)
}

func (c *Context) newArray(t Type, itemSize, capacity, numItems int) (*Array, error) {
	if !c.Valid() {
		return nil, Errorf(ErrorInvalidReference, "create array on released context")
	}
	if capacity <= 0 {
		return nil, Errorf(ErrorInvalidDimension, "array capacity %d", capacity)
	}
	a := &Array{
		itemType: t,
		itemSize: itemSize,
		capacity: capacity,
		numItems: numItems,
		data:     make([]byte, itemSize*capacity),
	}
	c.addReference(&a.reference, TypeArray)
	return a, nil
}

// CreateVirtualArray creates an array private to graph g. A TypeInvalid item
// type or a zero capacity is taken from the producing kernel.
func (g *Graph) CreateVirtualArray(itemType Type, capacity int) (*Array, error) {
	if !g.base().valid(TypeGraph) {
		return nil, Errorf(ErrorInvalidReference, "create virtual array on invalid graph")
	}
	if capacity < 0 {
		return nil, Errorf(ErrorInvalidDimension, "virtual array capacity %d", capacity)
	}
	a := &Array{
		itemType: itemType,
		itemSize: SizeOf(itemType),
		capacity: capacity,
		virtual:  true,
		scope:    g,
	}
	g.context.addReference(&a.reference, TypeArray)
	g.adoptVirtual(a)
	return a, nil
}

// ItemType is the item value type.
func (a *Array) ItemType() Type { return a.itemType }

// ItemSize is the item size in bytes.
func (a *Array) ItemSize() int { return a.itemSize }

// Capacity is the maximum number of items.
func (a *Array) Capacity() int { return a.capacity }

// Virtual reports whether the array is graph private.
func (a *Array) Virtual() bool { return a.virtual }

// NumItems is the current number of items.
func (a *Array) NumItems() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.numItems
}

// Release drops the caller's handle.
func (a *Array) Release() error {
	return a.base().releaseExternal(TypeArray)
}

// AddItems appends packed items to the array.
func (a *Array) AddItems(items []byte) error {
	if !a.base().valid(TypeArray) {
		return Errorf(ErrorInvalidReference, "add items")
	}
	if a.data == nil {
		return Errorf(ErrorNotAllocated, "array %q has no memory", a.name)
	}
	if len(items)%a.itemSize != 0 {
		return Errorf(ErrorInvalidParameters, "%d bytes is not a whole number of %d byte items", len(items), a.itemSize)
	}
	n := len(items) / a.itemSize
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.numItems+n > a.capacity {
		return Errorf(ErrorNoResources, "array holds %d of %d items, cannot add %d", a.numItems, a.capacity, n)
	}
	copy(a.data[a.numItems*a.itemSize:], items)
	a.numItems += n
	return nil
}

// Truncate shrinks the array to n items.
func (a *Array) Truncate(n int) error {
	if !a.base().valid(TypeArray) {
		return Errorf(ErrorInvalidReference, "truncate array")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if n < 0 || n > a.numItems {
		return Errorf(ErrorInvalidParameters, "truncate to %d, array holds %d", n, a.numItems)
	}
	a.numItems = n
	return nil
}

// CopyRange moves items [start,end) between the array and buf.
func (a *Array) CopyRange(start, end int, buf []byte, usage Usage) error {
	if !a.base().valid(TypeArray) {
		return Errorf(ErrorInvalidReference, "copy range")
	}
	if a.virtual {
		return Errorf(ErrorOptimizedAway, "virtual array %q cannot be accessed", a.name)
	}
	if usage != ReadOnly && usage != WriteOnly {
		return Errorf(ErrorInvalidParameters, "copy usage %s", usage)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkRangeLocked(start, end); err != nil {
		return err
	}
	n := (end - start) * a.itemSize
	if len(buf) < n {
		return Errorf(ErrorInvalidParameters, "buffer holds %d bytes, range needs %d", len(buf), n)
	}
	region := a.data[start*a.itemSize : end*a.itemSize]
	if usage == ReadOnly {
		copy(buf, region)
	} else {
		copy(region, buf)
	}
	return nil
}

// CopyRangeInt32 is CopyRange for arrays of 4 byte items, converting from
// and to little endian.
func (a *Array) CopyRangeInt32(start, end int, vals []int32, usage Usage) error {
	if a.itemSize != 4 {
		return Errorf(ErrorInvalidType, "array items are %d bytes, not int32", a.itemSize)
	}
	if len(vals) < end-start {
		return Errorf(ErrorInvalidParameters, "slice holds %d values, range needs %d", len(vals), end-start)
	}
	buf := make([]byte, 4*max(end-start, 0))
	if usage == WriteOnly {
		for i := range end - start {
			binary.LittleEndian.PutUint32(buf[4*i:], uint32(vals[i]))
		}
		return a.CopyRange(start, end, buf, usage)
	}
	if err := a.CopyRange(start, end, buf, usage); err != nil {
		return err
	}
	for i := range end - start {
		vals[i] = int32(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return nil
}

// MapRange gives host access to items [start,end). Allowed on virtual arrays
// so kernels can use them.
func (a *Array) MapRange(start, end int, usage Usage) (*ArrayRange, error) {
	if !a.base().valid(TypeArray) {
		return nil, Errorf(ErrorInvalidReference, "map range")
	}
	if a.data == nil {
		return nil, Errorf(ErrorNotAllocated, "array %q has no memory", a.name)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkRangeLocked(start, end); err != nil {
		return nil, err
	}
	r := &ArrayRange{
		Stride: a.itemSize,
		Data:   make([]byte, (end-start)*a.itemSize),
		array:  a,
		start:  start,
		end:    end,
		usage:  usage,
	}
	if usage != WriteOnly {
		copy(r.Data, a.data[start*a.itemSize:end*a.itemSize])
	}
	return r, nil
}

// Unmap ends host access and commits writes.
func (a *Array) Unmap(r *ArrayRange) error {
	if r == nil || r.array != a || r.done {
		return Errorf(ErrorInvalidParameters, "range was not mapped from this array")
	}
	r.done = true
	if r.usage != ReadOnly {
		a.mu.Lock()
		copy(a.data[r.start*a.itemSize:r.end*a.itemSize], r.Data)
		a.mu.Unlock()
	}
	return nil
}

func (a *Array) checkRangeLocked(start, end int) error {
	if start < 0 || end <= start || end > a.numItems {
		return Errorf(ErrorInvalidParameters, "range [%d,%d) outside %d items", start, end, a.numItems)
	}
	return nil
}

func (a *Array) allocate() {
	if a.data == nil {
		a.data = make([]byte, a.itemSize*a.capacity)
	}
}

func (a *Array) applyMeta(m *MetaFormat) error {
	if a.virtual {
		if a.itemType == TypeInvalid {
			a.itemType = m.ArrayItemType
			a.itemSize = SizeOf(m.ArrayItemType)
		}
		if a.capacity == 0 {
			a.capacity = m.ArrayCapacity
		}
	}
	if a.itemType != m.ArrayItemType {
		return Errorf(ErrorInvalidType, "array holds %s, kernel produces %s", a.itemType, m.ArrayItemType)
	}
	if a.capacity < m.ArrayCapacity {
		return Errorf(ErrorInvalidDimension, "array capacity %d, kernel needs %d", a.capacity, m.ArrayCapacity)
	}
	return nil
}
