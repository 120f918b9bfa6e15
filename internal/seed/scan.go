package seed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conceptrag/core/internal/chunk"
)

var titleCaser = cases.Title(language.English)

// sourceFile is one document discovered under FilesDir, read into memory
// once and reused across chunking, hashing, and extraction.
type sourceFile struct {
	path        string // relative to FilesDir
	absPath     string
	content     []byte
	contentHash string
}

// scanFiles walks dir and returns every file a registered chunker can
// handle, sorted by relative path for a deterministic processing order.
// A document corpus has no VCS or submodule concerns the way a git tree
// does, so a plain filepath.WalkDir suffices here.
func scanFiles(dir string, chunkers []chunk.Chunker) ([]sourceFile, error) {
	exts := make(map[string]bool)
	for _, c := range chunkers {
		for _, ext := range c.SupportedExtensions() {
			exts[strings.ToLower(ext)] = true
		}
	}

	var files []sourceFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}

		files = append(files, sourceFile{
			path:        filepath.ToSlash(rel),
			absPath:     path,
			content:     content,
			contentHash: hashContent(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, nil
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// chunkerFor picks the registered chunker whose SupportedExtensions
// includes the file's extension; callers only invoke scanFiles with
// extensions already known to resolve, so a missing match is a bug.
func chunkerFor(path string, chunkers []chunk.Chunker) chunk.Chunker {
	ext := strings.ToLower(filepath.Ext(path))
	for _, c := range chunkers {
		for _, supported := range c.SupportedExtensions() {
			if strings.ToLower(supported) == ext {
				return c
			}
		}
	}
	return nil
}

// chunkFile splits one source file into passages using the appropriate
// chunker.
func chunkFile(ctx context.Context, f sourceFile, chunkers []chunk.Chunker) ([]*chunk.Chunk, error) {
	c := chunkerFor(f.path, chunkers)
	if c == nil {
		return nil, fmt.Errorf("no chunker registered for %s", f.path)
	}
	return c.Chunk(ctx, &chunk.FileInput{Path: f.path, Content: f.content})
}

// deriveTitle picks a document title from its first markdown H1, or falls
// back to a humanized filename stem when the document has no heading.
func deriveTitle(path string, content []byte) string {
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ReplaceAll(strings.ReplaceAll(stem, "_", " "), "-", " ")
	return titleCaser.String(stem)
}

// deriveSummary takes the first non-heading paragraph of a document as a
// deterministic stand-in for a true summary, avoiding an extra LLM call
// per document purely for catalog display text.
func deriveSummary(content []byte) string {
	for _, para := range strings.Split(string(content), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" || strings.HasPrefix(para, "#") {
			continue
		}
		para = strings.Join(strings.Fields(para), " ")
		if len(para) > 280 {
			return para[:280] + "…"
		}
		return para
	}
	return ""
}
