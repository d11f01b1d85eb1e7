package dis

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/accelkit/bmdis/internal/device"
	"github.com/accelkit/bmdis/pkg/bmodel"
)

// testTIU returns a buffer of n BM1684X sys.end commands.
func testTIU(n int) []byte {
	buf := make([]byte, 16*n)
	for i := 0; i < n; i++ {
		buf[16*i] = 15
		binary.LittleEndian.PutUint16(buf[16*i+1:], uint16(i+1))
	}
	return buf
}

// testDMA returns a buffer of n BM1684X dma.sys commands.
func testDMA(n int) []byte {
	buf := make([]byte, 24*n)
	for i := 0; i < n; i++ {
		buf[24*i] = 15
		binary.LittleEndian.PutUint16(buf[24*i+1:], uint16(i+1))
	}
	return buf
}

func writeTestModel(t *testing.T, path string) (*bmodel.File, *device.Context) {
	t.Helper()

	nets := []bmodel.Net{
		{
			Parameters: []bmodel.Parameter{
				{
					SubNets: []bmodel.SubNet{
						{
							ID:        0,
							CmdGroups: []bmodel.CmdGroup{{TIU: testTIU(2), DMA: testDMA(1)}},
						},
						{
							ID:        1,
							CmdGroups: []bmodel.CmdGroup{{TIU: testTIU(1), DMA: nil}},
						},
					},
				},
			},
		},
	}
	if err := bmodel.WriteFile(path, "BM1684X", nets); err != nil {
		t.Fatalf("write model: %v", err)
	}
	f, err := bmodel.Open(path)
	if err != nil {
		t.Fatalf("open model: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	ctx, err := device.NewContextForChip(f.Chip)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	return f, ctx
}

func TestToModule(t *testing.T) {
	t.Parallel()

	f, ctx := writeTestModel(t, filepath.Join(t.TempDir(), "m.bmodel"))
	m, err := ToModule(ctx, f)
	if err != nil {
		t.Fatalf("to module: %v", err)
	}
	if len(m.Funcs) != 2 {
		t.Fatalf("func count: got %d want 2", len(m.Funcs))
	}
	if len(m.Funcs[0].Ops) != 3 || len(m.Funcs[1].Ops) != 1 {
		t.Fatalf("op counts: got %d, %d", len(m.Funcs[0].Ops), len(m.Funcs[1].Ops))
	}
}

func TestRegStream(t *testing.T) {
	t.Parallel()

	f, ctx := writeTestModel(t, filepath.Join(t.TempDir(), "m.bmodel"))

	var items []*RegItem
	for item, err := range RegStream(ctx, f) {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		items = append(items, item)
	}
	if len(items) != 2 {
		t.Fatalf("item count: got %d want 2", len(items))
	}
	if items[0].SubNetID != 0 || items[1].SubNetID != 1 {
		t.Fatalf("subnet order: got %d, %d", items[0].SubNetID, items[1].SubNetID)
	}
	if len(items[0].Cmds.TIU) != 2 || len(items[0].Cmds.DMA) != 1 {
		t.Fatalf("bundle sizes: tiu=%d dma=%d", len(items[0].Cmds.TIU), len(items[0].Cmds.DMA))
	}
}

func TestRegStreamEarlyStop(t *testing.T) {
	t.Parallel()

	f, ctx := writeTestModel(t, filepath.Join(t.TempDir(), "m.bmodel"))

	seen := 0
	for _, err := range RegStream(ctx, f) {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		seen++
		break
	}
	if seen != 1 {
		t.Fatalf("expected a single iteration, got %d", seen)
	}
}

func TestRegStreamYieldsDecodeError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.bmodel")
	nets := []bmodel.Net{
		{
			Parameters: []bmodel.Parameter{
				{
					SubNets: []bmodel.SubNet{
						{
							ID: 0,
							// 16 bytes with an unassigned opcode.
							CmdGroups: []bmodel.CmdGroup{{TIU: append([]byte{9}, make([]byte, 15)...)}},
						},
					},
				},
			},
		},
	}
	if err := bmodel.WriteFile(path, "BM1684X", nets); err != nil {
		t.Fatalf("write model: %v", err)
	}
	f, err := bmodel.Open(path)
	if err != nil {
		t.Fatalf("open model: %v", err)
	}
	defer func() { _ = f.Close() }()

	ctx, err := device.NewContextForChip(f.Chip)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}

	var sawErr error
	for item, err := range RegStream(ctx, f) {
		if err != nil {
			sawErr = err
			continue
		}
		t.Fatalf("unexpected item %+v", item)
	}
	if sawErr == nil {
		t.Fatalf("expected decode error from stream")
	}
}

func TestExportBin(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "m.bmodel")
	f, _ := writeTestModel(t, path)

	if err := ExportBin(f, path); err != nil {
		t.Fatalf("export: %v", err)
	}

	tests := []struct {
		file string
		want []byte
	}{
		{file: path + ".0.tiu.bin", want: testTIU(2)},
		{file: path + ".0.dma.bin", want: testDMA(1)},
		{file: path + ".1.tiu.bin", want: testTIU(1)},
		{file: path + ".1.dma.bin", want: []byte{}},
	}
	for _, tt := range tests {
		got, err := os.ReadFile(tt.file)
		if err != nil {
			t.Fatalf("read %s: %v", tt.file, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Fatalf("%s: got %d bytes, want %d", tt.file, len(got), len(tt.want))
		}
	}
}
