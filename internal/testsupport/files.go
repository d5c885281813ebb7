package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteScript installs an executable shell script at path.
func WriteScript(t testing.TB, path, body string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
	return path
}

// FakeConverter installs a stand-in conversion binary that writes a byte
// into whatever path follows the -o flag and exits 0.
func FakeConverter(t testing.TB) string {
	t.Helper()

	return WriteScript(t, filepath.Join(t.TempDir(), "fakeconv"), `prev=""
out=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
if [ -n "$out" ]; then printf data > "$out"; fi
echo "conversion complete"
`)
}

// FailingConverter installs a stand-in conversion binary that prints an
// error and exits 1.
func FailingConverter(t testing.TB) string {
	t.Helper()

	return WriteScript(t, filepath.Join(t.TempDir(), "failconv"), `echo "tool error" >&2
exit 1
`)
}

// SlowConverter behaves like FakeConverter after sleeping for the given
// number of seconds, for exercising in-flight cancellation behavior.
func SlowConverter(t testing.TB, seconds string) string {
	t.Helper()

	return WriteScript(t, filepath.Join(t.TempDir(), "slowconv"), `sleep `+seconds+`
prev=""
out=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
if [ -n "$out" ]; then printf data > "$out"; fi
`)
}
