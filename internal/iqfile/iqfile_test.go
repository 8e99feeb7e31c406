package iqfile

import (
	"io"
	"math"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cf32")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}

	var want []complex64
	for b := 0; b < 4; b++ {
		block := make([]complex64, 256)
		for i := range block {
			phase := float64(b*256+i) * 0.01
			block[i] = complex(float32(math.Cos(phase)), float32(math.Sin(phase)))
		}
		if !w.Append(block) {
			t.Fatalf("block %d dropped", b)
		}
		want = append(want, block...)
	}
	if err = w.Close(); err != nil {
		t.Fatal(err)
	}
	if w.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", w.Dropped())
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got := make([]complex64, 0, len(want))
	buf := make([]complex64, 300)
	for {
		n, err := r.ReadBlock(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}

	if len(got) != len(want) {
		t.Fatalf("read %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReaderRewind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.cf32")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	w.Append([]complex64{1, 2i, 3, 4i})
	if err = w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	buf := make([]complex64, 4)
	if n, _ := r.ReadBlock(buf); n != 4 {
		t.Fatalf("first read: %d samples, want 4", n)
	}
	if err = r.Rewind(); err != nil {
		t.Fatal(err)
	}
	if n, _ := r.ReadBlock(buf); n != 4 {
		t.Fatalf("read after rewind: %d samples, want 4", n)
	}
	if buf[1] != 2i {
		t.Errorf("sample 1 after rewind = %v, want 2i", buf[1])
	}
}
