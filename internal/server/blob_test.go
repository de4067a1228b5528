package server

import (
	"errors"
	"testing"

	"github.com/aldenvall/inkpress/internal/apperr"
)

func TestBlobStoreRoundtrip(t *testing.T) {
	b, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	id := b.NewID()
	if len(id) != 32 {
		t.Errorf("id = %q, want 32 hex chars", id)
	}
	if id == b.NewID() {
		t.Error("ids should not repeat")
	}

	if err := b.Put(id, []byte("%PDF")); err != nil {
		t.Fatal(err)
	}
	data, err := b.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "%PDF" {
		t.Errorf("data = %q", data)
	}

	if err := b.Delete(id); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Get(id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := b.Delete(id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestBlobStoreRejectsPathIDs(t *testing.T) {
	b, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"../escape", "a/b", "", "a b", ".hidden."} {
		if err := b.Put(id, []byte("x")); err == nil {
			t.Errorf("Put(%q) accepted", id)
		}
	}
}
