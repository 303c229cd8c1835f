package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    int
		message string
	}{
		{
			name:   "marked",
			source: "package q\n\nconst QOne = `--sql 11111111-2222-4333-8444-555555555555\nselect 1;`\n",
			want:   0,
		},
		{
			name:    "missing marker",
			source:  "package q\n\nconst QOne = `select 1;`\n",
			want:    1,
			message: "missing or invalid",
		},
		{
			name:    "create without marker",
			source:  "package q\n\nconst QSchema = `create table t (id int);`\n",
			want:    1,
			message: "QSchema",
		},
		{
			name: "duplicate marker",
			source: "package q\n\nconst QOne = `--sql 11111111-2222-4333-8444-555555555555\nselect 1;`\n" +
				"const QTwo = `--sql 11111111-2222-4333-8444-555555555555\nselect 2;`\n",
			want:    1,
			message: "already used by QOne",
		},
		{
			name:   "prose is ignored",
			source: "package q\n\nconst help = \"works with any image\"\n",
			want:   0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSource(t, dir, "q.go", tc.source)
			var stderr bytes.Buffer
			if got := run([]string{dir}, &stderr); got != tc.want {
				t.Fatalf("run = %d, want %d (%s)", got, tc.want, stderr.String())
			}
			if tc.message != "" && !strings.Contains(stderr.String(), tc.message) {
				t.Fatalf("stderr = %q, want %q", stderr.String(), tc.message)
			}
		})
	}
}

func TestRunMissingTarget(t *testing.T) {
	var stderr bytes.Buffer
	if got := run([]string{filepath.Join(t.TempDir(), "nope")}, &stderr); got != 1 {
		t.Fatalf("run = %d, want 1", got)
	}
}
