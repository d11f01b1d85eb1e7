package isa

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goccy/go-json"
)

func TestParseDType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code     uint32
		want     DType
		wantSize int64
		wantStr  string
		wantErr  bool
	}{
		{code: 0, want: Float32, wantSize: 4, wantStr: "f32"},
		{code: 1, want: Float16, wantSize: 2, wantStr: "f16"},
		{code: 2, want: Int8, wantSize: 1, wantStr: "i8"},
		{code: 3, want: Uint8, wantSize: 1, wantStr: "u8"},
		{code: 4, want: Int16, wantSize: 2, wantStr: "i16"},
		{code: 7, want: Uint32, wantSize: 4, wantStr: "u32"},
		{code: 8, wantErr: true},
		{code: 255, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDType(tt.code)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseDType(%d): expected error", tt.code)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDType(%d): %v", tt.code, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDType(%d): got %v want %v", tt.code, got, tt.want)
		}
		if got.ItemSize() != tt.wantSize {
			t.Fatalf("%v.ItemSize(): got %d want %d", got, got.ItemSize(), tt.wantSize)
		}
		if got.String() != tt.wantStr {
			t.Fatalf("%v.String(): got %q want %q", got, got.String(), tt.wantStr)
		}
	}
}

func TestContiguousStride(t *testing.T) {
	t.Parallel()

	tests := []struct {
		shape []int64
		want  []int64
	}{
		{shape: []int64{1, 3, 28, 28}, want: []int64{2352, 784, 28, 1}},
		{shape: []int64{4}, want: []int64{1}},
		{shape: []int64{2, 5}, want: []int64{5, 1}},
		{shape: nil, want: []int64{}},
	}

	for _, tt := range tests {
		got := ContiguousStride(tt.shape)
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("ContiguousStride(%v): got %v want %v", tt.shape, got, tt.want)
		}
	}

	if n := Elems([]int64{2, 3, 4}); n != 24 {
		t.Fatalf("Elems: got %d want 24", n)
	}
	if n := Elems(nil); n != 1 {
		t.Fatalf("Elems(nil): got %d want 1", n)
	}
}

func TestExtractBits(t *testing.T) {
	t.Parallel()

	cmd := []byte{0b1010_0101, 0xff, 0x00, 0x12}

	tests := []struct {
		off, n uint32
		want   uint64
	}{
		{off: 0, n: 8, want: 0xa5},
		{off: 0, n: 1, want: 1},
		{off: 1, n: 1, want: 0},
		{off: 4, n: 8, want: 0xfa},
		{off: 8, n: 16, want: 0x00ff},
		{off: 24, n: 8, want: 0x12},
		{off: 0, n: 32, want: 0x1200ffa5},
	}
	for _, tt := range tests {
		got, err := ExtractBits(cmd, tt.off, tt.n)
		if err != nil {
			t.Fatalf("ExtractBits(%d, %d): %v", tt.off, tt.n, err)
		}
		if got != tt.want {
			t.Fatalf("ExtractBits(%d, %d): got %#x want %#x", tt.off, tt.n, got, tt.want)
		}
	}

	if _, err := ExtractBits(cmd, 25, 8); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if _, err := ExtractBits(cmd, 0, 0); err == nil {
		t.Fatalf("expected zero-length error")
	}
	if _, err := ExtractBits(cmd, 0, 65); err == nil {
		t.Fatalf("expected overlong field error")
	}
}

func TestRegMapOrderAndJSON(t *testing.T) {
	t.Parallel()

	reg := RegMap{
		{Name: "tsk_typ", Value: 2},
		{Name: "cmd_id", Value: 7},
		{Name: "res0_addr", Value: 0x1000},
	}

	if v, ok := reg.Get("cmd_id"); !ok || v != 7 {
		t.Fatalf("Get(cmd_id): got %d, %v", v, ok)
	}
	if _, ok := reg.Get("missing"); ok {
		t.Fatalf("Get(missing): expected false")
	}

	b, err := json.Marshal(reg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"tsk_typ":2,"cmd_id":7,"res0_addr":4096}`
	if string(b) != want {
		t.Fatalf("json mismatch:\n got %s\nwant %s", b, want)
	}
}

func TestInstProjections(t *testing.T) {
	t.Parallel()

	class := &OpClass{Name: "arith.add", Category: CatTIU, Opcode: 2}
	inst := &Inst{
		Class: class,
		Reg: RegMap{
			{Name: "tsk_typ", Value: 2},
			{Name: "length", Value: 16},
		},
		Cmd:   []byte{0x02, 0x01, 0x00, 0xab},
		Index: 3,
	}

	if got, want := inst.String(), `%3 = "tiu.arith.add" () {tsk_typ = 2, length = 16}`; got != want {
		t.Fatalf("String mismatch:\n got %s\nwant %s", got, want)
	}
	if got, want := inst.RegText(), `{tsk_typ = 2, length = 16}`; got != want {
		t.Fatalf("RegText mismatch:\n got %s\nwant %s", got, want)
	}
	if got, want := inst.BitsText(), "020100ab"; got != want {
		t.Fatalf("BitsText mismatch: got %s want %s", got, want)
	}
}

func TestNewOpSetPanicsOnBadTables(t *testing.T) {
	t.Parallel()

	mustPanic := func(name string, f func()) {
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		f()
	}

	mustPanic("duplicate opcode", func() {
		NewOpSet(16, 24, []*OpClass{
			{Name: "a", Category: CatTIU, Opcode: 1},
			{Name: "b", Category: CatTIU, Opcode: 1},
		}, nil)
	})
	mustPanic("miscategorized class", func() {
		NewOpSet(16, 24, []*OpClass{
			{Name: "a", Category: CatDMA, Opcode: 1},
		}, nil)
	})
}

func TestOpSetLookup(t *testing.T) {
	t.Parallel()

	add := &OpClass{Name: "arith.add", Category: CatTIU, Opcode: 2}
	mov := &OpClass{Name: "tensor", Category: CatDMA, Opcode: 0}
	s := NewOpSet(16, 24, []*OpClass{add}, []*OpClass{mov})

	if c, ok := s.Lookup(CatTIU, 2); !ok || c != add {
		t.Fatalf("Lookup(tiu, 2): got %v, %v", c, ok)
	}
	if c, ok := s.Lookup(CatDMA, 0); !ok || c != mov {
		t.Fatalf("Lookup(dma, 0): got %v, %v", c, ok)
	}
	if _, ok := s.Lookup(CatTIU, 9); ok {
		t.Fatalf("Lookup(tiu, 9): expected miss")
	}
	if s.CmdBytes(CatTIU) != 16 || s.CmdBytes(CatDMA) != 24 {
		t.Fatalf("CmdBytes mismatch: %d, %d", s.CmdBytes(CatTIU), s.CmdBytes(CatDMA))
	}
	cats := s.Categories()
	if len(cats["tiu"]) != 1 || len(cats["dma"]) != 1 {
		t.Fatalf("Categories mismatch: %v", cats)
	}
}

func TestMemRef(t *testing.T) {
	t.Parallel()

	if _, err := NewMemRef(0, []int64{2, 3}, Float32, []int64{1}, LayoutContiguous); err == nil {
		t.Fatalf("expected rank mismatch error")
	}

	m, err := NewMemRef(0x1000, []int64{2, 3}, Float32, []int64{3, 1}, LayoutContiguous)
	if err != nil {
		t.Fatalf("new memref: %v", err)
	}
	if _, err := m.Data(); !errors.Is(err, ErrNoMemory) {
		t.Fatalf("Data without backend: got %v want %v", err, ErrNoMemory)
	}
	if err := m.SetData([]float64{1}); !errors.Is(err, ErrNoMemory) {
		t.Fatalf("SetData without backend: got %v want %v", err, ErrNoMemory)
	}
	if got, want := m.String(), "memref<2x3xf32, 0x1000>"; got != want {
		t.Fatalf("String mismatch: got %q want %q", got, want)
	}

	xn, err := NewMemRef(0x20, []int64{4}, Float16, []int64{2}, LayoutXN)
	if err != nil {
		t.Fatalf("new xn memref: %v", err)
	}
	if got, want := xn.String(), "memref<4xf16, 0x20> {layout = continuous_xn}"; got != want {
		t.Fatalf("xn String mismatch: got %q want %q", got, want)
	}

	if !(Region{Name: "LMEM", Start: 0x100, Size: 0x10}).Contains(0x10f) {
		t.Fatalf("Contains miss at region end")
	}
	if (Region{Name: "LMEM", Start: 0x100, Size: 0x10}).Contains(0x110) {
		t.Fatalf("Contains false positive past region end")
	}
}
