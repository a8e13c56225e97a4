package field

import (
	"testing"

	"github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOrigin struct {
	address string
	changed bool
	info    map[string]interface{}
}

func (o *testOrigin) Address() string { return o.address }
func (o *testOrigin) Changed() bool   { return o.changed }
func (o *testOrigin) InfoValue(name string) (interface{}, bool) {
	v, ok := o.info[name]
	return v, ok
}

func TestSetNotifiesOnChangeOnly(t *testing.T) {
	f := New("width", KindInteger, 0, Options{})

	count := 0
	f.AddObserver(Unscoped, "", Callback(func(Event) { count++ }), "", nil)

	changed, err := f.Set(10, true, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, count)

	changed, err = f.Set(10, true, false)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, count)

	changed, err = f.Set(11, false, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, count)
}

func TestAlwaysNotify(t *testing.T) {
	f := New("trigger", KindBoolean, false, Options{AlwaysNotify: true})

	count := 0
	f.AddObserver(Permanent, "", Callback(func(Event) { count++ }), "", nil)

	for i := 0; i < 3; i++ {
		if _, err := f.Set(true, true, false); err != nil {
			t.Fatalf("err: %v", err)
		}
	}
	assert.Equal(t, 3, count)
}

func TestNotificationOrder(t *testing.T) {
	f := New("text", KindString, "", Options{})

	var order []string
	record := func(s string) Target {
		return Callback(func(Event) { order = append(order, s) })
	}

	f.AddObserver(Scoped, "n9", record("scoped"), "", nil)
	f.AddObserver(Permanent, "", record("permanent"), "", nil)
	f.AddObserver(Unscoped, "", record("unscoped"), "", nil)

	_, err := f.Set("hello", true, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"permanent", "unscoped", "scoped"}, order)
}

func TestRemoveObservers(t *testing.T) {
	f := New("text", KindString, "", Options{})

	count := 0
	cb := Callback(func(Event) { count++ })

	f.AddObserver(Permanent, "", cb, "", nil)
	f.AddObserver(Unscoped, "", cb, "", nil)
	f.AddObserver(Scoped, "a", cb, "", nil)
	f.AddObserver(Scoped, "b", cb, "", nil)

	assert.Equal(t, 0, f.RemoveObservers(Permanent, ""))
	assert.Equal(t, 1, f.RemoveObservers(Scoped, "a"))
	assert.Equal(t, 1, f.RemoveObservers(Unscoped, ""))

	f.Set("x", true, false)
	assert.Equal(t, 2, count)

	f.Clear()
	assert.False(t, f.HasObservers())
}

func TestReentrancyGuard(t *testing.T) {
	f := New("counter", KindInteger, 0, Options{})

	calls := 0
	f.AddObserver(Unscoped, "", Callback(func(ev Event) {
		calls++
		v := ev.Value.(int32)
		if v < 5 {
			f.Set(v+1, true, false)
		}
	}), "", nil)

	f.Set(1, true, false)

	assert.Equal(t, 1, calls)
	assert.Equal(t, int32(2), f.Value())
}

func TestEventInfoFieldsReadAtNotification(t *testing.T) {
	o := &testOrigin{address: "n1", info: map[string]interface{}{"id": "before"}}
	f := New("text", KindString, "", Options{})
	f.SetOrigin(o)

	var got Event
	f.AddObserver(Unscoped, "", Callback(func(ev Event) { got = ev }), "label", []string{"id", "missing"})

	o.info["id"] = "after"
	f.Set("v", true, false)

	assert.Equal(t, "label", got.Field)
	assert.Equal(t, "v", got.Value)
	assert.Equal(t, "n1", got.Node.Address())
	assert.Equal(t, map[string]interface{}{"id": "after"}, got.Info)
}

func TestQueueTarget(t *testing.T) {
	p := NewPort(1)
	f := New("text", KindString, "", Options{})
	f.AddObserver(Scoped, "host", Queue(p), "", nil)

	assert.True(t, f.Observed("host"))
	assert.False(t, f.Observed("other"))

	f.Set("a", true, false)
	f.Set("b", true, false)

	assert.Equal(t, 1, p.Len())
	assert.Equal(t, uint64(1), p.Dropped())

	ev, ok := p.TryReceive()
	require.True(t, ok)
	assert.Equal(t, "a", ev.Value)
}

func TestTypeMismatchKeepsValue(t *testing.T) {
	f := New("width", KindInteger, 3, Options{})
	f.SetOrigin(&testOrigin{address: "n1"})

	changed, err := f.Set("wide", true, false)
	assert.False(t, changed)
	assert.True(t, common.IsFieldErr(err, common.TypeMismatch))
	assert.Equal(t, int32(3), f.Value())
	assert.False(t, f.CanAccept(map[string]interface{}{}))
}

func TestHiddenClearedOnGet(t *testing.T) {
	f := New("secret", KindString, "x", Options{Hidden: true})
	assert.True(t, f.Hidden())
	f.Value()
	assert.True(t, f.Hidden())
	f.Get()
	assert.False(t, f.Hidden())
}

func TestValueCopiedUnlessByRef(t *testing.T) {
	arr := []interface{}{"a"}

	f := New("items", KindArray, nil, Options{})
	f.Set(arr, false, false)
	arr[0] = "b"
	assert.Equal(t, []interface{}{"a"}, f.Value())

	f.Set(arr, false, true)
	arr[0] = "c"
	assert.Equal(t, []interface{}{"c"}, f.Value())
}

func TestNodeEquality(t *testing.T) {
	n := &testOrigin{address: "n2"}
	f := New("ref", KindNode, nil, Options{})

	changed, _ := f.Set(n, false, false)
	assert.True(t, changed)

	changed, _ = f.Set(n, false, false)
	assert.False(t, changed)

	n.changed = true
	changed, _ = f.Set(n, false, false)
	assert.True(t, changed)

	changed, _ = f.Set(Invalid, false, false)
	assert.True(t, changed)
}
