package actions

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ChamsBouzaiene/runloop/internal/engine"
)

const maxReadBytes = 64 * 1024

// resolve joins path onto root and rejects anything that escapes it.
func resolve(root, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	full := filepath.Clean(filepath.Join(root, path))
	cleanRoot := filepath.Clean(root)
	if full != cleanRoot && !strings.HasPrefix(full, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the working root", path)
	}
	return full, nil
}

// NewReadFile returns an action that reads one file relative to root.
func NewReadFile(fs FileSystem, root string) engine.Action {
	return engine.Action{
		ID:           "read_file",
		Description:  "read the content of one file; the path is relative to the working root",
		InputSchema:  `{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`,
		InputExample: map[string]any{"path": "go.mod"},
		Execute: func(ctx context.Context, input map[string]any, run *engine.Run) (map[string]any, error) {
			path, _ := input["path"].(string)
			full, err := resolve(root, path)
			if err != nil {
				return nil, err
			}
			data, err := fs.ReadFile(full)
			if err != nil {
				return nil, err
			}
			truncated := false
			if len(data) > maxReadBytes {
				data = data[:maxReadBytes]
				truncated = true
			}
			return map[string]any{
				"path":      path,
				"content":   string(data),
				"truncated": truncated,
			}, nil
		},
		FormatResult: func(seed string, output map[string]any) string {
			content, _ := output["content"].(string)
			lines := strings.Count(content, "\n") + 1
			note := ""
			if t, _ := output["truncated"].(bool); t {
				note = ", truncated"
			}
			return fmt.Sprintf("%s: %v (%d lines%s)", seed, output["path"], lines, note)
		},
	}
}

// NewWriteFile returns an action that writes one file relative to root,
// creating parent directories as needed.
func NewWriteFile(fs FileSystem, root string) engine.Action {
	return engine.Action{
		ID:          "write_file",
		Description: "write content to one file, creating it and its parent directories if needed",
		InputSchema: `{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"}},"required":["path","content"]}`,
		InputExample: map[string]any{
			"path":    "notes/plan.md",
			"content": "# Plan\n",
		},
		Execute: func(ctx context.Context, input map[string]any, run *engine.Run) (map[string]any, error) {
			path, _ := input["path"].(string)
			content, _ := input["content"].(string)
			full, err := resolve(root, path)
			if err != nil {
				return nil, err
			}
			if err := fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return nil, err
			}
			if err := fs.WriteFile(full, []byte(content), 0o644); err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "bytes": len(content)}, nil
		},
		FormatResult: func(seed string, output map[string]any) string {
			return fmt.Sprintf("%s: wrote %v bytes to %v", seed, output["bytes"], output["path"])
		},
	}
}

// NewListFiles returns an action that lists one directory relative to root.
func NewListFiles(fs FileSystem, root string) engine.Action {
	return engine.Action{
		ID:           "list_files",
		Description:  "list the entries of one directory; directories carry a trailing slash",
		InputSchema:  `{"type":"object","properties":{"path":{"type":"string"}}}`,
		InputExample: map[string]any{"path": "."},
		Execute: func(ctx context.Context, input map[string]any, run *engine.Run) (map[string]any, error) {
			path, _ := input["path"].(string)
			if path == "" {
				path = "."
			}
			full, err := resolve(root, path)
			if err != nil {
				return nil, err
			}
			entries, err := fs.ReadDir(full)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				name := e.Name()
				if e.IsDir() {
					name += "/"
				}
				names = append(names, name)
			}
			sort.Strings(names)
			return map[string]any{"path": path, "entries": names}, nil
		},
	}
}
