package assets

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// matcher selects files by their slash-separated path relative to the root
// being collected.
type matcher func(rel string) bool

func withExt(exts ...string) matcher {
	return func(rel string) bool {
		ext := strings.ToLower(filepath.Ext(rel))
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
		return false
	}
}

func allFiles(string) bool { return true }

// collect walks root and returns the matching regular files in lexical
// order. A missing root yields no files.
func collect(root string, match matcher) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if match(filepath.ToSlash(rel)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// destFor maps src under srcRoot to the same relative location under
// destRoot.
func destFor(srcRoot, destRoot, src string) (string, error) {
	rel, err := filepath.Rel(srcRoot, src)
	if err != nil {
		return "", err
	}
	return filepath.Join(destRoot, rel), nil
}

// groupByDir buckets files by their directory relative to srcRoot.
func groupByDir(srcRoot string, files []string) (map[string][]string, []string) {
	groups := make(map[string][]string)
	var dirs []string
	for _, f := range files {
		rel, err := filepath.Rel(srcRoot, filepath.Dir(f))
		if err != nil {
			rel = "."
		}
		if _, ok := groups[rel]; !ok {
			dirs = append(dirs, rel)
		}
		groups[rel] = append(groups[rel], f)
	}
	sort.Strings(dirs)
	return groups, dirs
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// copyFlat copies files into destDir by base name. When two sources share a
// name the later one wins.
func copyFlat(files []string, destDir string) error {
	for _, f := range files {
		if err := copyFile(f, filepath.Join(destDir, filepath.Base(f))); err != nil {
			return fmt.Errorf("copy %s: %w", f, err)
		}
	}
	return nil
}

// removeAllExcept empties dir but keeps the named child. The directory itself
// is removed when nothing is kept.
func removeAllExcept(dir, keep string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	kept := false
	for _, entry := range entries {
		if entry.Name() == keep {
			kept = true
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	if !kept {
		return os.Remove(dir)
	}
	return nil
}

// chunk splits files into batches of at most size entries.
func chunk(files []string, size int) [][]string {
	var batches [][]string
	for len(files) > size {
		batches = append(batches, files[:size])
		files = files[size:]
	}
	if len(files) > 0 {
		batches = append(batches, files)
	}
	return batches
}
