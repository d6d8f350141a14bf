package cache

import (
	"crypto/sha256"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/chazu/stackfx/effect"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func key(program, ns string) Key {
	return Key{Program: sha256.Sum256([]byte(program)), Namespace: sha256.Sum256([]byte(ns))}
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)
	num := effect.Atomic(effect.KindNumber)
	sig := effect.Signature{
		Input:  []effect.ID{3, 0, 1},
		Output: []effect.ID{5},
		Types:  effect.Table{0: num, 1: num, 3: num, 5: num},
	}

	if err := s.Put(key("add add", "builtins"), sig); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(key("add add", "builtins"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, sig) {
		t.Errorf("Get = %+v, want %+v", got, sig)
	}

	if _, err := s.Get(key("add add", "other")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get with another namespace: err = %v, want ErrNotFound", err)
	}
}

func TestPutReplaces(t *testing.T) {
	s := openTemp(t)
	k := key("p", "ns")
	if err := s.Put(k, effect.Literal(effect.KindNumber)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(k, effect.Literal(effect.KindString)); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(k)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "-- string" {
		t.Errorf("Get = %s, want -- string", got)
	}
	if n, _ := s.Len(); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestPrune(t *testing.T) {
	s := openTemp(t)
	keep := key("", "current")
	for _, k := range []Key{key("a", "current"), key("b", "current"), key("a", "stale")} {
		if err := s.Put(k, effect.Empty()); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Prune(keep.Namespace, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}

	n, err = s.Prune(keep.Namespace, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned %d rows, want 2", n)
	}
	if left, _ := s.Len(); left != 0 {
		t.Errorf("Len = %d, want 0", left)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(key("x", "y"), effect.Literal(effect.KindBoolean)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(key("x", "y"))
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "-- boolean" {
		t.Errorf("Get = %s", got)
	}
}

func TestInMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Put(key("m", "n"), effect.Empty()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(key("m", "n")); err != nil {
		t.Error(err)
	}
}
