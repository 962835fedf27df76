package coreinstall

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"coldstakepool/internal/logging"
	"coldstakepool/internal/services"
)

const (
	signingKeyFingerprint = "8BE6C158D381E7AA68095502B48A2245CFE7C482"
	signingKeyName        = "CapricoinPlus"

	downloadTimeout = 10 * time.Minute
)

var keyservers = []string{"keyserver.ubuntu.com", "hkp://subset.pool.sks-keyservers.net"}

// Installer downloads, verifies and extracts capricoinplus-core releases
// into the binaries directory.
type Installer struct {
	env    Env
	client *http.Client
	logger *slog.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithHTTPClient overrides the download client (primarily for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(i *Installer) {
		if client != nil {
			i.client = client
		}
	}
}

// New constructs an installer for the given release environment.
func New(env Env, logger *slog.Logger, opts ...Option) *Installer {
	inst := &Installer{
		env:    env,
		client: &http.Client{Timeout: downloadTimeout},
		logger: logging.NewComponentLogger(logger, "coreinstall"),
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

func (i *Installer) releaseFilename() string {
	return fmt.Sprintf("capricoinplus-%s-%s", i.env.Version, i.env.Arch)
}

func (i *Installer) assertFilename() (dirName, fileName string) {
	osName := "linux"
	dirName = "linux"
	switch {
	case strings.Contains(i.env.Arch, "osx"):
		dirName, osName = "osx-unsigned", "osx"
	case strings.Contains(i.env.Arch, "win32-setup"), strings.Contains(i.env.Arch, "win64-setup"):
		dirName, osName = "win-signed", "win-signer"
	case strings.Contains(i.env.Arch, "win32"), strings.Contains(i.env.Arch, "win64"):
		dirName, osName = "win-unsigned", "win"
	}
	if dirName == "win-signed" {
		return dirName, fmt.Sprintf("capricoinplus-%s-build.assert", osName)
	}
	return dirName, fmt.Sprintf("capricoinplus-%s-%s-build.assert", osName, i.env.Version)
}

func (i *Installer) assertURL() (string, string) {
	dirName, fileName := i.assertFilename()
	url := fmt.Sprintf("https://raw.githubusercontent.com/%s/gitian.sigs/master/%s-%s/%s/%s",
		i.env.Repo, i.env.Version+i.env.VersionTag, dirName, signingKeyName, fileName)
	return url, fileName
}

func (i *Installer) releaseURL() string {
	return fmt.Sprintf("https://github.com/%s/capricoinplus-core/releases/download/v%s/%s",
		i.env.Repo, i.env.Version+i.env.VersionTag, i.releaseFilename())
}

// Download fetches the release archive, the gitian assert file and its
// signature, then checks the archive hash and the gpg signature.
func (i *Installer) Download(ctx context.Context) error {
	if err := os.MkdirAll(i.env.BinDir, 0o755); err != nil {
		return fmt.Errorf("create binaries directory: %w", err)
	}

	assertURL, assertName := i.assertURL()
	assertPath := filepath.Join(i.env.BinDir, assertName)
	if err := i.fetchIfMissing(ctx, assertURL, assertPath); err != nil {
		return err
	}

	sigPath := assertPath + ".sig"
	if err := i.fetchIfMissing(ctx, assertURL+".sig", sigPath); err != nil {
		return err
	}

	packedPath := filepath.Join(i.env.BinDir, i.releaseFilename())
	if err := i.fetchIfMissing(ctx, i.releaseURL(), packedPath); err != nil {
		return err
	}

	if err := i.verifyHash(packedPath, assertPath); err != nil {
		return err
	}
	return i.verifySignature(ctx, sigPath, assertPath)
}

func (i *Installer) fetchIfMissing(ctx context.Context, url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		i.logger.Debug("already downloaded", logging.String("path", dest))
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", dest, err)
	}

	i.logger.Info("downloading", logging.String("url", url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "coreinstall", "download", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrExternalTool, "coreinstall", "download",
			fmt.Sprintf("%s returned %d", url, resp.StatusCode), nil)
	}

	tmp := dest + ".part"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, dest)
}

// verifyHash checks that the archive's sha256 appears in the gitian assert
// file.
func (i *Installer) verifyHash(packedPath, assertPath string) error {
	file, err := os.Open(packedPath)
	if err != nil {
		return fmt.Errorf("open release archive: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return fmt.Errorf("hash release archive: %w", err)
	}
	releaseHash := hex.EncodeToString(hasher.Sum(nil))

	assertData, err := os.ReadFile(assertPath)
	if err != nil {
		return fmt.Errorf("read assert file: %w", err)
	}
	if !bytes.Contains(assertData, []byte(releaseHash)) {
		return services.Wrap(services.ErrValidation, "coreinstall", "verify",
			fmt.Sprintf("release hash %s not found in assert file", releaseHash), nil)
	}
	i.logger.Info("release hash found in assert file", logging.String("sha256", releaseHash))
	return nil
}

// verifySignature ensures the signing key is present in the local keyring
// and checks the detached signature over the assert file.
func (i *Installer) verifySignature(ctx context.Context, sigPath, assertPath string) error {
	if err := exec.CommandContext(ctx, "gpg", "--list-keys", signingKeyFingerprint).Run(); err != nil {
		i.logger.Info("downloading release signing pubkey")
		received := false
		for _, ks := range keyservers {
			if err := exec.CommandContext(ctx, "gpg", "--keyserver", ks, "--recv-keys", signingKeyFingerprint).Run(); err == nil {
				received = true
				break
			}
		}
		if !received {
			return services.Wrap(services.ErrExternalTool, "coreinstall", "gpg",
				"unable to receive signing key from any keyserver", nil)
		}
	}

	out, err := exec.CommandContext(ctx, "gpg", "--verify", sigPath, assertPath).CombinedOutput()
	if err != nil {
		return services.Wrap(services.ErrValidation, "coreinstall", "gpg",
			fmt.Sprintf("signature verification failed: %s", strings.TrimSpace(string(out))), err)
	}
	i.logger.Info("release signature verified")
	return nil
}

// Extract unpacks the daemon, cli and tx binaries from the release archive
// and checks the extracted daemon reports the expected version.
func (i *Installer) Extract(ctx context.Context) error {
	packedPath := filepath.Join(i.env.BinDir, i.releaseFilename())
	wanted := map[string]string{
		path.Join(fmt.Sprintf("capricoinplus-%s", i.env.Version), "bin", i.env.DaemonName): i.env.DaemonName,
		path.Join(fmt.Sprintf("capricoinplus-%s", i.env.Version), "bin", i.env.CLIName):    i.env.CLIName,
		path.Join(fmt.Sprintf("capricoinplus-%s", i.env.Version), "bin", i.env.TxName):     i.env.TxName,
	}

	if err := extractTarGz(packedPath, i.env.BinDir, wanted); err != nil {
		return err
	}

	daemonPath := filepath.Join(i.env.BinDir, i.env.DaemonName)
	out, err := exec.CommandContext(ctx, daemonPath, "--version").Output()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "coreinstall", "version-check", daemonPath, err)
	}
	firstLine := strings.SplitN(string(out), "\n", 2)[0]
	if !strings.Contains(firstLine, i.env.Version) {
		return services.Wrap(services.ErrValidation, "coreinstall", "version-check",
			fmt.Sprintf("daemon reports %q, expected %s", firstLine, i.env.Version), nil)
	}
	i.logger.Info("core binaries installed", logging.String("version", firstLine), logging.String("bindir", i.env.BinDir))
	return nil
}

func extractTarGz(archivePath, destDir string, wanted map[string]string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open release archive: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	reader := tar.NewReader(gz)
	remaining := len(wanted)
	for remaining > 0 {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		name, ok := wanted[path.Clean(header.Name)]
		if !ok || header.Typeflag != tar.TypeReg {
			continue
		}

		dest := filepath.Join(destDir, name)
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
		if err != nil {
			return fmt.Errorf("create %s: %w", dest, err)
		}
		if _, err := io.Copy(out, reader); err != nil {
			out.Close()
			return fmt.Errorf("extract %s: %w", name, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("close %s: %w", dest, err)
		}
		remaining--
	}
	if remaining > 0 {
		return services.Wrap(services.ErrValidation, "coreinstall", "extract",
			fmt.Sprintf("%d expected binaries missing from archive", remaining), nil)
	}
	return nil
}
