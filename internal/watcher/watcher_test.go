package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRelevant(t *testing.T) {
	for _, name := range []string{"project.yml", "project.yaml", "monorepo.toml", "lock.toml"} {
		if !relevant(name) {
			t.Errorf("relevant(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"main.go", "README.md", "project.txt"} {
		if relevant(name) {
			t.Errorf("relevant(%q) = true, want false", name)
		}
	}
}

func TestWatcher_ManifestChangeTriggersCallback(t *testing.T) {
	root := t.TempDir()
	pkgDir := filepath.Join(root, "libs", "core")
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		t.Fatal(err)
	}

	changes := make(chan []string, 1)
	w, err := New(root, func(files []string) {
		select {
		case changes <- files:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()
	w.SetDebounce(20 * time.Millisecond)
	w.Start(context.Background())

	if err := os.WriteFile(filepath.Join(pkgDir, "project.yml"), []byte("name: core\nversion: 1.0.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case files := <-changes:
		if len(files) == 0 {
			t.Fatal("callback received no files")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no callback after manifest write")
	}
}

func TestWatcher_DirectoryCreatedAfterStart(t *testing.T) {
	// a package directory added while watching must be picked up so its
	// manifest triggers the callback
	root := t.TempDir()

	changes := make(chan []string, 1)
	w, err := New(root, func(files []string) {
		select {
		case changes <- files:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()
	w.SetDebounce(20 * time.Millisecond)
	w.Start(context.Background())

	pkgDir := filepath.Join(root, "newpkg")
	if err := os.Mkdir(pkgDir, 0755); err != nil {
		t.Fatal(err)
	}
	// give the create event time to land before writing into the directory
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(pkgDir, "project.yml"), []byte("name: newpkg\nversion: 1.0.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case files := <-changes:
		if len(files) == 0 {
			t.Fatal("callback received no files")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no callback after manifest write in new directory")
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	root := t.TempDir()

	changes := make(chan []string, 1)
	w, err := New(root, func(files []string) {
		select {
		case changes <- files:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()
	w.SetDebounce(20 * time.Millisecond)
	w.Start(context.Background())

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case files := <-changes:
		t.Fatalf("unexpected callback for %v", files)
	case <-time.After(200 * time.Millisecond):
	}
}
