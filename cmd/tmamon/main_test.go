package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tmamon/internal/record"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) (string, string, string, string) {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "repo")
	downloads := filepath.Join(base, "downloads")
	returns := filepath.Join(base, "returns")

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
repository_root = %q
downloads_dir = %q
returns_dir = %q
staging_root = %q
log_dir = %q

[logging]
level = "error"
`, root, downloads, returns, filepath.Join(base, "staging"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath, root, downloads, returns
}

// The full life of one submission: import the downloaded course folder, grade
// the sole student, then build the return archive.
func TestImportEditReturnScenario(t *testing.T) {
	configPath, root, downloads, returns := writeTestConfig(t)

	essay := filepath.Join(downloads, "XM123-24J", "01", "T1234567", "AB", "1", "A9990001", "essay.pdf")
	if err := os.MkdirAll(filepath.Dir(essay), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(essay, []byte("essay"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "--config", configPath, "import", filepath.Join(downloads, "XM123-24J"))
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}

	recordDir := filepath.Join(root, "XM123-24J", "01", "T1234567", "AB", "1")
	recordPath := filepath.Join(recordDir, "monitor.fhi")
	rec, err := record.ReadFile(recordPath)
	if err != nil {
		t.Fatalf("record not created: %v", err)
	}
	if rec.Status != record.StatusUnmonitored {
		t.Fatalf("status after import = %q", rec.Status)
	}

	out, err = runCommand(t, "--config", configPath, "--yes", "edit", recordDir,
		"--comment", "Marking consistent across the batch.",
		"--student", "A9990001",
		"--marking", "2",
		"--feedback", "3",
		"--complete", "Y",
		"--annotate", "essay.pdf=Y",
	)
	if err != nil {
		t.Fatalf("edit: %v\n%s", err, out)
	}
	rec, err = record.ReadFile(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != record.StatusMonitored {
		t.Fatalf("status after edit = %q", rec.Status)
	}

	out, err = runCommand(t, "--config", configPath, "return", recordDir)
	if err != nil {
		t.Fatalf("return: %v\n%s", err, out)
	}
	rec, err = record.ReadFile(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != record.StatusZipped {
		t.Fatalf("status after return = %q", rec.Status)
	}
	if rec.Zip.ArchiveFile == "" {
		t.Fatalf("zip metadata missing: %+v", rec.Zip)
	}
	if _, err := os.Stat(filepath.Join(returns, rec.Zip.ArchiveFile)); err != nil {
		t.Fatalf("archive missing from returns dir: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(filepath.Dir(root), "staging"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging not cleaned: %v", entries)
	}
}

func TestEditWithoutConfirmationLeavesMonitoredRecord(t *testing.T) {
	configPath, root, downloads, _ := writeTestConfig(t)

	essay := filepath.Join(downloads, "XM123-24J", "01", "T1234567", "AB", "1", "A9990001", "essay.pdf")
	if err := os.MkdirAll(filepath.Dir(essay), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(essay, []byte("essay"), 0o644); err != nil {
		t.Fatal(err)
	}
	if out, err := runCommand(t, "--config", configPath, "import", filepath.Join(downloads, "XM123-24J")); err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}

	recordDir := filepath.Join(root, "XM123-24J", "01", "T1234567", "AB", "1")
	if out, err := runCommand(t, "--config", configPath, "--yes", "edit", recordDir,
		"--comment", "first pass",
		"--student", "A9990001", "--marking", "2", "--feedback", "3", "--complete", "Y",
	); err != nil {
		t.Fatalf("edit: %v\n%s", err, out)
	}

	// Without --yes the prompt reads EOF and declines, so the comment edit
	// must not be applied.
	if _, err := runCommand(t, "--config", configPath, "edit", recordDir, "--comment", "second pass"); err == nil {
		t.Fatal("declined edit should fail")
	}

	rec, err := record.ReadFile(filepath.Join(recordDir, "monitor.fhi"))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != record.StatusMonitored || rec.Comment != "first pass" {
		t.Fatalf("record changed despite declined confirmation: %+v", rec)
	}
}
