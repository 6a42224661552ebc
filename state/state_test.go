package state

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/weft/value"
)

func sampleState() value.Value {
	inner := value.NewMap()
	inner.MapInsert(value.String("s"), value.Int(2))
	m := value.NewMap()
	m.MapInsert(value.String("f"), inner)
	m.MapInsert(value.String("_for0"), value.NewList(value.Null(), value.Float(1.5), value.Int(-7)))
	m.MapInsert(value.String("flag"), value.Bool(true))
	m.MapInsert(value.Int(3), value.String("int key"))
	return m
}

func TestEncodeDecode(t *testing.T) {
	tests := []value.Value{
		value.Null(),
		value.Bool(false),
		value.Int(42),
		value.Int(-1 << 40),
		value.Float(2.0),
		value.String("héllo"),
		value.NewList(value.Int(1), value.NewList()),
		sampleState(),
	}
	for _, v := range tests {
		data, err := Encode(&v)
		if err != nil {
			t.Errorf("Encode(%s): %v", v.Repr(), err)
			continue
		}
		got, err := Decode(data)
		if err != nil {
			t.Errorf("Decode(Encode(%s)): %v", v.Repr(), err)
			continue
		}
		if !value.Equals(&got, &v) || got.Kind() != v.Kind() {
			t.Errorf("round trip of %s = %s", v.Repr(), got.Repr())
		}
		got.Release()
		v.Release()
	}
}

func TestEncodeIsCanonical(t *testing.T) {
	a := value.NewMap()
	a.MapInsert(value.String("x"), value.Int(1))
	a.MapInsert(value.String("y"), value.Int(2))
	b := value.NewMap()
	b.MapInsert(value.String("y"), value.Int(2))
	b.MapInsert(value.String("x"), value.Int(1))

	da, err := Encode(&a)
	if err != nil {
		t.Fatal(err)
	}
	db, err := Encode(&b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(da, db) {
		t.Errorf("encodings differ: %x vs %x", da, db)
	}
}

func TestEncodeUnsupported(t *testing.T) {
	var ptr value.Value
	ptr.SetPointer(&struct{}{})
	listKey := value.NewMap()
	listKey.MapInsert(value.NewList(value.Int(1)), value.Int(1))

	for _, v := range []value.Value{ptr, value.Errorf("boom"), listKey} {
		if _, err := Encode(&v); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Encode(%s) error = %v, want ErrUnsupported", v.Repr(), err)
		}
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0x00}); err == nil {
		t.Error("Decode of garbage succeeded")
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Load(ctx, "main"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load of missing key = %v, want ErrSnapshotNotFound", err)
	}

	st := sampleState()
	defer st.Release()
	if err := s.Save(ctx, "main", &st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	other := value.NewMap()
	if err := s.Save(ctx, "aux", &other); err != nil {
		t.Fatalf("Save aux: %v", err)
	}

	got, err := s.Load(ctx, "main")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer got.Release()
	if !value.Equals(&got, &st) {
		t.Errorf("Load = %s, want %s", got.Repr(), st.Repr())
	}

	keys, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 || keys[0] != "aux" || keys[1] != "main" {
		t.Errorf("List = %v, want [aux main]", keys)
	}

	// saving again replaces
	replacement := value.Int(9)
	if err := s.Save(ctx, "main", &replacement); err != nil {
		t.Fatalf("Save replacement: %v", err)
	}
	got2, err := s.Load(ctx, "main")
	if err != nil {
		t.Fatalf("Load replacement: %v", err)
	}
	if n, _ := got2.AsInt(); n != 9 {
		t.Errorf("Load after replace = %s, want 9", got2.Repr())
	}

	if err := s.Delete(ctx, "main"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "main"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("second Delete = %v, want ErrSnapshotNotFound", err)
	}
	if _, err := s.Load(ctx, "main"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load after Delete = %v, want ErrSnapshotNotFound", err)
	}
}

func TestStoreMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	v := value.String("kept")
	if err := s.Save(ctx, "k", &v); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if str, _ := got.AsString(); str != "kept" {
		t.Errorf("Load = %s, want \"kept\"", got.Repr())
	}
}
