package terminal

import (
	"os"
	"runtime"
	"testing"
)

func TestResolveShellHonorsSHELL(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell resolution only")
	}
	old := os.Getenv("SHELL")
	defer os.Setenv("SHELL", old)

	os.Setenv("SHELL", "/bin/zsh")
	shell, _ := resolveShell()
	if shell != "/bin/zsh" {
		t.Fatalf("got %q, want /bin/zsh", shell)
	}
}

func TestResolveShellDefaultsToBash(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell resolution only")
	}
	old := os.Getenv("SHELL")
	defer os.Setenv("SHELL", old)

	os.Unsetenv("SHELL")
	shell, _ := resolveShell()
	if shell != "/bin/bash" {
		t.Fatalf("got %q, want /bin/bash", shell)
	}
}

func TestBrokerUnknownIDErrors(t *testing.T) {
	b := NewBroker()
	if err := b.Write("nonexistent", []byte("x")); err == nil {
		t.Fatal("expected TerminalNotFound error")
	}
	if err := b.Resize("nonexistent", 80, 24); err == nil {
		t.Fatal("expected TerminalNotFound error")
	}
	if err := b.Close("nonexistent"); err == nil {
		t.Fatal("expected TerminalNotFound error")
	}
}
