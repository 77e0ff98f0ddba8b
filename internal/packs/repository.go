// Package packs is the filesystem-backed repository for analysis packs:
// prompts, policy, fixture snapshots and the golden digest, one directory
// per pack id.
package packs

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"civicdiff/internal/apperr"
	"civicdiff/internal/digest"
	"civicdiff/internal/safeio"
)

// Relative paths every bundle must provide.
var RequiredFiles = []string{
	"pack.yaml",
	"prompts/system.md",
	"prompts/digest_task.md",
	"prompts/selfcheck_task.md",
	"fixtures/snapshot_old.txt",
	"fixtures/snapshot_new.txt",
	"golden/expected_digest.json",
}

// File is one member of an uploaded or downloaded bundle.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Bundle is a fully loaded pack, read-only during analysis.
type Bundle struct {
	ID                  string
	Config              PackConfig
	SystemPrompt        string
	DigestTaskPrompt    string
	SelfcheckTaskPrompt string
	Policy              string
	OldSnapshot         string
	NewSnapshot         string
	Golden              digest.Digest
}

// Archive is the downloadable form of a pack.
type Archive struct {
	PackID string `json:"packId"`
	Files  []File `json:"files"`
	Readme string `json:"readme"`
}

const bundleCacheSize = 64

// Repository reads and writes pack bundles under a fixed root directory.
// Reads of the same pack are safe concurrently; concurrent uploads to one
// id are last-writer-wins, acceptable for curated low-frequency packs.
type Repository struct {
	fs    *safeio.FS
	cache *lru.Cache[string, *Bundle]
}

// NewRepository locks all pack operations to root, which must exist.
func NewRepository(root string) (*Repository, error) {
	fsys, err := safeio.New(root)
	if err != nil {
		return nil, fmt.Errorf("pack root: %w", err)
	}
	cache, err := lru.New[string, *Bundle](bundleCacheSize)
	if err != nil {
		return nil, err
	}
	return &Repository{fs: fsys, cache: cache}, nil
}

var idUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeID restricts a pack id to a safe slug: alphanumerics,
// underscore and hyphen, at most 64 characters. Prevents the id from
// escaping the pack root.
func SanitizeID(id string) string {
	safe := idUnsafe.ReplaceAllString(id, "_")
	if len(safe) > 64 {
		safe = safe[:64]
	}
	if strings.Trim(safe, "_") == "" {
		return ""
	}
	return safe
}

// sanitizeRelPath strips traversal segments and leading separators from
// an uploaded member path so the join below cannot leave the pack
// directory.
func sanitizeRelPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "..", "")
	p = strings.TrimLeft(filepath.ToSlash(p), "/")
	p = filepath.Clean(filepath.FromSlash(p))
	if p == "." || p == "" || filepath.IsAbs(p) {
		return "", fmt.Errorf("unsafe path %q", p)
	}
	return p, nil
}

// List enumerates pack ids by directory listing, sorted.
func (r *Repository) List() ([]string, error) {
	entries, err := r.fs.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads the pack's full bundle. The seven bundle files are read
// concurrently; a missing directory is ErrPackNotFound, any other gap in
// the bundle is a BundleError.
func (r *Repository) Load(ctx context.Context, id string) (*Bundle, error) {
	safe := SanitizeID(id)
	if safe == "" {
		return nil, &apperr.BundleError{Reason: "invalid pack id"}
	}
	if b, ok := r.cache.Get(safe); ok {
		return b, nil
	}

	if _, err := r.fs.Stat(safe); err != nil {
		return nil, apperr.ErrPackNotFound
	}

	read := func(rel string, dst *string) func() error {
		return func() error {
			raw, err := r.fs.ReadFile(filepath.Join(safe, filepath.FromSlash(rel)))
			if err != nil {
				return &apperr.BundleError{Reason: fmt.Sprintf("read %s: %v", rel, err)}
			}
			*dst = string(raw)
			return nil
		}
	}

	var system, digestTask, selfcheckTask, oldSnap, newSnap, goldenRaw, yamlRaw string
	g, _ := errgroup.WithContext(ctx)
	g.Go(read("prompts/system.md", &system))
	g.Go(read("prompts/digest_task.md", &digestTask))
	g.Go(read("prompts/selfcheck_task.md", &selfcheckTask))
	g.Go(read("fixtures/snapshot_old.txt", &oldSnap))
	g.Go(read("fixtures/snapshot_new.txt", &newSnap))
	g.Go(read("golden/expected_digest.json", &goldenRaw))
	g.Go(read("pack.yaml", &yamlRaw))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cfg, err := ParseConfig([]byte(yamlRaw))
	if err != nil {
		return nil, &apperr.BundleError{Reason: err.Error()}
	}
	var golden digest.Digest
	if err := json.Unmarshal([]byte(goldenRaw), &golden); err != nil {
		return nil, &apperr.BundleError{Reason: fmt.Sprintf("golden digest is not valid JSON: %v", err)}
	}

	b := &Bundle{
		ID:                  safe,
		Config:              *cfg,
		SystemPrompt:        system,
		DigestTaskPrompt:    digestTask,
		SelfcheckTaskPrompt: selfcheckTask,
		Policy:              cfg.SafetyPolicy,
		OldSnapshot:         oldSnap,
		NewSnapshot:         newSnap,
		Golden:              golden,
	}
	r.cache.Add(safe, b)
	return b, nil
}

// Save validates and writes an uploaded bundle. Nothing is written unless
// the whole bundle passes the checklist. Returns the sanitized id and the
// number of files written. Re-uploading an existing id overwrites it.
func (r *Repository) Save(id string, files []File) (string, int, error) {
	safe := SanitizeID(id)
	if safe == "" {
		return "", 0, &apperr.BundleError{Reason: "invalid pack id"}
	}

	provided := make(map[string]*File, len(files))
	for i := range files {
		provided[files[i].Path] = &files[i]
	}
	var missing []string
	for _, req := range RequiredFiles {
		if _, ok := provided[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return "", 0, &apperr.BundleError{Missing: missing}
	}

	if _, err := ParseConfig([]byte(provided["pack.yaml"].Content)); err != nil {
		return "", 0, &apperr.BundleError{Reason: err.Error()}
	}
	var goldenAny any
	if err := json.Unmarshal([]byte(provided["golden/expected_digest.json"].Content), &goldenAny); err != nil {
		return "", 0, &apperr.BundleError{Reason: "golden/expected_digest.json must be valid JSON"}
	}

	// Resolve every member path before touching the disk.
	type member struct {
		rel     string
		content string
	}
	members := make([]member, 0, len(files))
	for _, f := range files {
		rel, err := sanitizeRelPath(f.Path)
		if err != nil {
			return "", 0, &apperr.BundleError{Reason: fmt.Sprintf("rejected path %q", f.Path)}
		}
		members = append(members, member{rel: rel, content: f.Content})
	}

	for _, m := range members {
		if err := r.fs.WriteFile(filepath.Join(safe, m.rel), []byte(m.content), 0o644); err != nil {
			return "", 0, err
		}
	}
	r.cache.Remove(safe)
	return safe, len(members), nil
}

// Download collects every file in the pack directory into an Archive.
func (r *Repository) Download(id string) (*Archive, error) {
	safe := SanitizeID(id)
	if safe == "" {
		return nil, apperr.ErrPackNotFound
	}
	if _, err := r.fs.Stat(safe); err != nil {
		return nil, apperr.ErrPackNotFound
	}

	var files []File
	err := fs.WalkDir(r.fs, safe, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, err := fs.ReadFile(r.fs, path)
		if err != nil {
			return err
		}
		files = append(files, File{Path: strings.TrimPrefix(path, safe+"/"), Content: string(raw)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return &Archive{PackID: safe, Files: files, Readme: downloadReadme(safe)}, nil
}

func downloadReadme(id string) string {
	return fmt.Sprintf(`# Pack: %s

This pack was downloaded from CivicDiff Packs.
You can modify the files and re-upload to test with your own data.

## Structure
- pack.yaml - Pack configuration
- prompts/ - System and task prompts
- fixtures/ - Old and new document snapshots
- golden/ - Expected output for demo mode
- schemas/ - JSON schemas for validation`, id)
}
