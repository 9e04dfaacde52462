package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.csv")
	dst := filepath.Join(dir, "dst.csv")

	content := []byte("Zlec;Num Art;Nowych bel;Reszta\n")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerifiedRefusesExistingTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.csv")
	dst := filepath.Join(dir, "dst.csv")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst); err == nil {
		t.Fatal("expected error for existing target")
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "old" {
		t.Fatalf("existing target was modified: %q", got)
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileVerified(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestUniqueTargetPath(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 4, 5, 6, 7, 89*int(time.Millisecond), time.UTC)

	if got := UniqueTargetPath(dir, "53479.csv", now); got != filepath.Join(dir, "53479.csv") {
		t.Fatalf("expected plain name when free, got %q", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "53479.csv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "53479_2025-03-04T05-06-07-089Z.csv")
	if got := UniqueTargetPath(dir, "53479.csv", now); got != want {
		t.Fatalf("unexpected collision name: got %q want %q", got, want)
	}
}

func TestMoveIntoDirKeepsBothOnCollision(t *testing.T) {
	base := t.TempDir()
	archive := filepath.Join(base, "archive")
	first := filepath.Join(base, "a", "order.txt")
	second := filepath.Join(base, "b", "order.txt")
	for _, p := range []string{first, second} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(p), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	now := time.Now()
	target1, err := MoveIntoDir(first, archive, now)
	if err != nil {
		t.Fatalf("first move: %v", err)
	}
	target2, err := MoveIntoDir(second, archive, now)
	if err != nil {
		t.Fatalf("second move: %v", err)
	}
	if target1 == target2 {
		t.Fatal("expected distinct targets")
	}
	if !strings.HasPrefix(filepath.Base(target2), "order_") || filepath.Ext(target2) != ".txt" {
		t.Fatalf("unexpected collision name %q", target2)
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, stat err=%v", err)
	}
	entries, err := os.ReadDir(archive)
	if err != nil || len(entries) != 2 {
		t.Fatalf("expected 2 archived files, got %d err=%v", len(entries), err)
	}
}
