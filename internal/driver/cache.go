package driver

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kcl-lang/compiler/internal/driver/filelock"
)

// ToolchainVersion is stamped into every cache key; bumping it
// invalidates every existing cache entry on next run.
const ToolchainVersion = "kcl-go-1"

// Cache is the per-package disk cache (§4.7.5): artifacts are keyed by
// (toolchain version, content fingerprint) and stored under
// <root>/<version-checksum>/<target>/, written atomically via a
// lock-file-guarded tmp-rename.
type Cache struct {
	root   string
	target string
}

// NewCache returns a Cache rooted at root for the given build target
// (e.g. "exec", "fmt"); root is typically $KCL_CACHE_PATH or a default
// under the user's cache directory.
func NewCache(root, target string) *Cache {
	return &Cache{root: root, target: target}
}

// Fingerprint computes the package's content fingerprint: MD5 of the
// concatenated bytes of every file, in a fixed (lexicographic path)
// order, exactly as §4.7.5 specifies ("content hash, e.g. MD5 of
// concatenated bytes in a fixed order").
func Fingerprint(files map[string][]byte) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := md5.New()
	for _, p := range paths {
		h.Write(files[p])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) dir() string {
	return filepath.Join(c.root, versionChecksum(), c.target)
}

func versionChecksum() string {
	sum := md5.Sum([]byte(ToolchainVersion))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) infoPath() string           { return filepath.Join(c.dir(), "info") }
func (c *Cache) artifactPath(pkg string) string { return filepath.Join(c.dir(), sanitizePkg(pkg)) }

func sanitizePkg(pkg string) string {
	return hex.EncodeToString([]byte(pkg))
}

// Lookup returns the cached artifact path for (pkg, fingerprint) if the
// info file records a matching fingerprint, i.e. a cache hit.
func (c *Cache) Lookup(pkg, fingerprint string) (path string, hit bool) {
	info, err := readInfo(c.infoPath())
	if err != nil {
		return "", false
	}
	if info[pkg] != fingerprint {
		return "", false
	}
	art := c.artifactPath(pkg)
	if _, err := os.Stat(art); err != nil {
		return "", false
	}
	return art, true
}

// Store writes artifact bytes for pkg under fingerprint, atomically
// (tmp-file then rename) under a <dst>.lock guard (§4.7.5), and records
// the new fingerprint in the info file.
func (c *Cache) Store(pkg, fingerprint string, artifact []byte) (path string, err error) {
	if err := os.MkdirAll(c.dir(), 0o755); err != nil {
		return "", err
	}

	art := c.artifactPath(pkg)
	if err := atomicWrite(art, artifact); err != nil {
		return "", err
	}

	lock, err := filelock.Acquire(c.infoPath() + ".lock")
	if err != nil {
		return "", err
	}
	defer lock.Unlock()

	info, err := readInfo(c.infoPath())
	if err != nil {
		info = map[string]string{}
	}
	info[pkg] = fingerprint
	if err := writeInfo(c.infoPath(), info); err != nil {
		return "", err
	}
	return art, nil
}

func atomicWrite(dst string, data []byte) error {
	lock, err := filelock.Acquire(dst + ".lock")
	if err != nil {
		return err
	}
	defer lock.Unlock()

	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// readInfo/writeInfo use a trivial "key=fingerprint\n" per-line format:
// the info file is a pure internal cache-key index, never an external
// wire format, so it does not need the JSON/YAML codec's ordering or
// escaping guarantees.
func readInfo(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	var key, val []byte
	inKey := true
	for _, b := range data {
		switch {
		case b == '=' && inKey:
			inKey = false
		case b == '\n':
			if len(key) > 0 {
				out[string(key)] = string(val)
			}
			key, val, inKey = nil, nil, true
		case inKey:
			key = append(key, b)
		default:
			val = append(val, b)
		}
	}
	return out, nil
}

func writeInfo(path string, info map[string]string) error {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf []byte
	for _, k := range keys {
		buf = append(buf, fmt.Sprintf("%s=%s\n", k, info[k])...)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
