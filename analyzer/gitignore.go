package analyzer

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// newGitignoreRules reads rootDir/.gitignore; a missing file yields no rules
func newGitignoreRules(rootDir string) *gitignoreRules {
	rules := &gitignoreRules{
		rootDir: rootDir,
	}
	rules.load()
	return rules
}

func (gr *gitignoreRules) load() {
	file, err := os.Open(filepath.Join(gr.rootDir, ".gitignore"))
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if pattern, ok := strings.CutPrefix(line, "!"); ok {
			gr.negationPatterns = append(gr.negationPatterns, pattern)
		} else {
			gr.ignorePatterns = append(gr.ignorePatterns, line)
		}
	}
}

// shouldIgnore checks if a path should be ignored based on .gitignore patterns
func (gr *gitignoreRules) shouldIgnore(path string) bool {
	relPath, err := filepath.Rel(gr.rootDir, path)
	if err != nil || relPath == "." {
		return false
	}
	relPath = filepath.ToSlash(relPath)

	ignored := false
	for _, pattern := range gr.ignorePatterns {
		if matchGitignorePattern(pattern, relPath) {
			ignored = true
			break
		}
	}
	if !ignored {
		return false
	}

	for _, pattern := range gr.negationPatterns {
		if matchGitignorePattern(pattern, relPath) {
			return false
		}
	}
	return true
}

// matchGitignorePattern covers the common .gitignore forms: "dir/",
// "/anchored", "*.ext" and plain names matched against any path segment.
func matchGitignorePattern(pattern, relPath string) bool {
	pattern = strings.TrimSuffix(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "**/")

	if anchored, ok := strings.CutPrefix(pattern, "/"); ok {
		return matchPathPrefix(anchored, relPath)
	}

	if strings.Contains(pattern, "/") {
		return matchPathPrefix(pattern, relPath)
	}

	for _, part := range strings.Split(relPath, "/") {
		if ok, _ := filepath.Match(pattern, part); ok {
			return true
		}
	}
	return false
}

// matchPathPrefix matches pattern against relPath or any of its parent directories
func matchPathPrefix(pattern, relPath string) bool {
	parts := strings.Split(relPath, "/")
	for i := len(parts); i >= 1; i-- {
		if ok, _ := filepath.Match(pattern, strings.Join(parts[:i], "/")); ok {
			return true
		}
	}
	return false
}
