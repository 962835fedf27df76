package coreinstall

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"coldstakepool/internal/logging"
)

func TestFromEnvDefaultsAndOverrides(t *testing.T) {
	t.Setenv("CAPRICOINPLUS_BINDIR", t.TempDir())
	t.Setenv("CAPRICOINPLUS_VERSION", "0.19.0.1")
	t.Setenv("CAPRICOINPLUS_VERSION_TAG", "rc1")

	env, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if env.Version != "0.19.0.1" || env.VersionTag != "rc1" {
		t.Fatalf("version overrides not applied: %+v", env)
	}
	if env.DaemonName != "capricoinplusd" || env.Repo != "Capricoinofficial" {
		t.Fatalf("defaults not applied: %+v", env)
	}
}

func TestReleaseNaming(t *testing.T) {
	inst := New(Env{
		BinDir:  t.TempDir(),
		Version: "0.18.1.7",
		Arch:    "x86_64-linux-gnu.tar.gz",
		Repo:    "Capricoinofficial",
	}, logging.NewNop())

	if got := inst.releaseFilename(); got != "capricoinplus-0.18.1.7-x86_64-linux-gnu.tar.gz" {
		t.Fatalf("unexpected release filename %q", got)
	}
	dir, file := inst.assertFilename()
	if dir != "linux" || file != "capricoinplus-linux-0.18.1.7-build.assert" {
		t.Fatalf("unexpected assert naming %q %q", dir, file)
	}
	wantURL := "https://github.com/Capricoinofficial/capricoinplus-core/releases/download/v0.18.1.7/capricoinplus-0.18.1.7-x86_64-linux-gnu.tar.gz"
	if got := inst.releaseURL(); got != wantURL {
		t.Fatalf("unexpected release url %q", got)
	}
}

func TestAssertNamingForOtherPlatforms(t *testing.T) {
	inst := New(Env{Version: "0.18.1.7", Arch: "osx64.tar.gz"}, logging.NewNop())
	if dir, file := inst.assertFilename(); dir != "osx-unsigned" || file != "capricoinplus-osx-0.18.1.7-build.assert" {
		t.Fatalf("unexpected osx naming %q %q", dir, file)
	}

	inst = New(Env{Version: "0.18.1.7", Arch: "win64-setup.exe"}, logging.NewNop())
	if dir, file := inst.assertFilename(); dir != "win-signed" || file != "capricoinplus-win-signer-build.assert" {
		t.Fatalf("unexpected win-signed naming %q %q", dir, file)
	}
}

func TestVerifyHashAgainstAssertFile(t *testing.T) {
	dir := t.TempDir()
	inst := New(Env{BinDir: dir, Version: "0.18.1.7", Arch: "x86_64-linux-gnu.tar.gz"}, logging.NewNop())

	packed := filepath.Join(dir, "release.tar.gz")
	if err := os.WriteFile(packed, []byte("release-bytes"), 0o644); err != nil {
		t.Fatalf("write release: %v", err)
	}

	// sha256("release-bytes")
	const wantHash = "a7240e889d036c5a4a5538438f3863fc18085e08ff537f7b89b2295937457d8a"

	assertPath := filepath.Join(dir, "build.assert")
	if err := os.WriteFile(assertPath, []byte("out_manifest:\n"+wantHash+"  capricoinplus.tar.gz\n"), 0o644); err != nil {
		t.Fatalf("write assert: %v", err)
	}
	if err := inst.verifyHash(packed, assertPath); err != nil {
		t.Fatalf("verifyHash: %v", err)
	}

	if err := os.WriteFile(assertPath, []byte("different hashes only\n"), 0o644); err != nil {
		t.Fatalf("write assert: %v", err)
	}
	if err := inst.verifyHash(packed, assertPath); err == nil {
		t.Fatal("expected hash mismatch error")
	}
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "core.tar.gz")

	file, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	gz := gzip.NewWriter(file)
	tw := tar.NewWriter(gz)
	entries := map[string]string{
		"capricoinplus-0.18.1.7/bin/capricoinplusd":    "#!/bin/sh\necho daemon\n",
		"capricoinplus-0.18.1.7/bin/capricoinplus-cli": "#!/bin/sh\necho cli\n",
		"capricoinplus-0.18.1.7/share/doc/readme":      "ignored",
	}
	for name, content := range entries {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(content)), Typeflag: tar.TypeReg}); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	destDir := filepath.Join(dir, "bin")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		t.Fatalf("mkdir dest: %v", err)
	}
	wanted := map[string]string{
		"capricoinplus-0.18.1.7/bin/capricoinplusd":    "capricoinplusd",
		"capricoinplus-0.18.1.7/bin/capricoinplus-cli": "capricoinplus-cli",
	}
	if err := extractTarGz(archivePath, destDir, wanted); err != nil {
		t.Fatalf("extractTarGz: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(destDir, "capricoinplusd"))
	if err != nil {
		t.Fatalf("read extracted daemon: %v", err)
	}
	if string(data) != "#!/bin/sh\necho daemon\n" {
		t.Fatalf("unexpected daemon contents %q", data)
	}
	if _, err := os.Stat(filepath.Join(destDir, "readme")); !os.IsNotExist(err) {
		t.Fatal("unexpected extra file extracted")
	}

	// A missing wanted binary is an error.
	missing := map[string]string{"capricoinplus-0.18.1.7/bin/capricoinplus-tx": "capricoinplus-tx"}
	if err := extractTarGz(archivePath, destDir, missing); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
