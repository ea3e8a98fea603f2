package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// ffmpegStubScript emulates the encoder invocations hindsight issues: the
// -version probe, concat merges (the output becomes the concatenation of the
// listed files), and captures (sleeps for the requested duration, then
// writes a small payload to the output path).
const ffmpegStubScript = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 7.0-test Copyright (c) test suite"
  exit 0
fi
input=""
dur=""
mode=""
prev=""
for arg in "$@"; do
  case "$prev" in
    -i) input="$arg" ;;
    -t) dur="$arg" ;;
    -f) mode="$arg" ;;
  esac
  prev="$arg"
done
out=""
for arg in "$@"; do out="$arg"; done
if [ "$mode" = "concat" ]; then
  : > "$out"
  sed -n "s/^file '\(.*\)'\$/\1/p" "$input" | while IFS= read -r f; do
    cat "$f" >> "$out"
  done
  exit 0
fi
if [ -n "$dur" ]; then
  sleep "$dur" 2>/dev/null || sleep 1
fi
printf 'chunk-payload' > "$out"
exit 0
`

const failingStubScript = `#!/bin/sh
echo "Cannot open display" >&2
exit 1
`

// WriteFFmpegStub writes the test encoder script into dir and returns its
// path. Tests hand the path to the client via WithBinary.
func WriteFFmpegStub(t testing.TB, dir string) string {
	t.Helper()
	return writeStub(t, dir, "ffmpeg", ffmpegStubScript)
}

// WriteFailingFFmpegStub writes an encoder script that always fails.
func WriteFailingFFmpegStub(t testing.TB, dir string) string {
	t.Helper()
	return writeStub(t, dir, "ffmpeg", failingStubScript)
}

func writeStub(t testing.TB, dir, name, script string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}
