package driver

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// hashMarker prefixes the digest line at the top of a cached artifact.
const hashMarker = "#"

// ReadStoredHash returns the digest recorded on the first line of the artifact
// at path. A missing or unreadable file yields a *CacheReadError; a file whose
// first line is not "#<hex>" yields a *CacheReadError wrapping ErrNoStoredHash.
func ReadStoredHash(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &CacheReadError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", &CacheReadError{Path: path, Err: err}
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, hashMarker) {
		return "", &CacheReadError{Path: path, Err: ErrNoStoredHash}
	}
	digest := strings.TrimPrefix(line, hashMarker)
	if digest == "" {
		return "", &CacheReadError{Path: path, Err: ErrNoStoredHash}
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", &CacheReadError{Path: path, Err: fmt.Errorf("%w: %q is not hex", ErrNoStoredHash, digest)}
	}
	return Digest(digest), nil
}

// PrependHash writes "#<digest>\n" as the first line of the artifact at path,
// keeping everything that was there after it. The rewrite goes through a temp
// file in the same directory and a rename.
func PrependHash(path string, digest Digest) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading artifact %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat artifact %s: %w", path, err)
	}

	data := make([]byte, 0, len(hashMarker)+len(digest)+1+len(content))
	data = append(data, hashMarker...)
	data = append(data, digest...)
	data = append(data, '\n')
	data = append(data, content...)

	if err := writeFileAtomic(path, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing hash to %s: %w", path, err)
	}
	return nil
}

// LoadArtifact returns the artifact content without its leading hash line.
// Artifacts that carry no hash line are returned unchanged.
func LoadArtifact(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading artifact %s: %w", path, err)
	}
	content := string(data)
	if !strings.HasPrefix(content, hashMarker) {
		return content, nil
	}
	if _, err := ReadStoredHash(path); err != nil {
		// A leading comment that is not a digest belongs to the artifact.
		return content, nil
	}
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		return content[i+1:], nil
	}
	return "", nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
