package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jhl-labs/sepilot-desktop-sub001/internal/fsio"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

const (
	maxSearchMatches   = 100
	maxSearchFileBytes = 512 * 1024
)

// NewBuiltinTools returns the local tool suite rooted at workdir. File
// tools refuse paths that resolve outside the workdir; command_execute is
// unconfined and relies on the approval policy instead.
func NewBuiltinTools(workdir string, reader fsio.Reader, writer fsio.Writer, shell Shell) []Tool {
	pathParam := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}

	return []Tool{
		&FuncTool{
			ToolName: types.ToolFileRead,
			ToolDesc: "Read the contents of a file at the given path.",
			ToolParams: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": pathParam("Path to the file to read, relative to the working directory"),
				},
				"required": []string{"path"},
			},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				path, errMsg := resolveArgPath(workdir, args, "path")
				if errMsg != "" {
					return errMsg, nil
				}
				content, err := reader.ReadFile(path)
				if err != nil {
					if os.IsNotExist(err) {
						return "Error: file not found: " + path, nil
					}
					return "", err
				}
				return string(content), nil
			},
		},
		&FuncTool{
			ToolName: types.ToolFileWrite,
			ToolDesc: "Write content to a file, creating it and any parent directories if needed.",
			ToolParams: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":    pathParam("Path to write, relative to the working directory"),
					"content": map[string]any{"type": "string", "description": "Content to write"},
				},
				"required": []string{"path", "content"},
			},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				path, errMsg := resolveArgPath(workdir, args, "path")
				if errMsg != "" {
					return errMsg, nil
				}
				content, _ := args["content"].(string)
				if err := writer.MkdirAll(filepath.Dir(path), 0755); err != nil {
					return "", err
				}
				if err := writer.WriteFile(path, []byte(content), 0644); err != nil {
					return "", err
				}
				return fmt.Sprintf("File written: %s (%d bytes)", path, len(content)), nil
			},
		},
		&FuncTool{
			ToolName: types.ToolFileEdit,
			ToolDesc: "Edit a file by replacing old_text with new_text. The old_text must be an exact match.",
			ToolParams: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":     pathParam("Path to the file to edit, relative to the working directory"),
					"old_text": map[string]any{"type": "string", "description": "Exact text to find and replace"},
					"new_text": map[string]any{"type": "string", "description": "Text to replace old_text with"},
				},
				"required": []string{"path", "old_text", "new_text"},
			},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				path, errMsg := resolveArgPath(workdir, args, "path")
				if errMsg != "" {
					return errMsg, nil
				}
				oldText, _ := args["old_text"].(string)
				newText, _ := args["new_text"].(string)
				if oldText == "" {
					return "Error: old_text is required", nil
				}

				orig, err := reader.ReadFile(path)
				if err != nil {
					if os.IsNotExist(err) {
						return "Error: file not found: " + path, nil
					}
					return "", err
				}
				count := strings.Count(string(orig), oldText)
				if count == 0 {
					return "Error: old_text not found in " + path, nil
				}
				updated := strings.Replace(string(orig), oldText, newText, 1)
				if err := writer.WriteFile(path, []byte(updated), 0644); err != nil {
					return "", err
				}
				return fmt.Sprintf("File edited: %s (1 of %d occurrence(s) replaced)", path, count), nil
			},
		},
		&FuncTool{
			ToolName: types.ToolFileDelete,
			ToolDesc: "Delete a file at the given path.",
			ToolParams: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": pathParam("Path to the file to delete, relative to the working directory"),
				},
				"required": []string{"path"},
			},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				path, errMsg := resolveArgPath(workdir, args, "path")
				if errMsg != "" {
					return errMsg, nil
				}
				if _, err := os.Stat(path); os.IsNotExist(err) {
					return "Error: file not found: " + path, nil
				}
				if err := writer.Remove(path); err != nil {
					return "", err
				}
				return "File deleted: " + path, nil
			},
		},
		&FuncTool{
			ToolName: types.ToolFileList,
			ToolDesc: "List files and directories at a given path. Returns names and sizes.",
			ToolParams: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": pathParam("Directory to list, relative to the working directory (default: the working directory)"),
				},
			},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				path := workdir
				if raw, _ := args["path"].(string); strings.TrimSpace(raw) != "" {
					resolved, errMsg := resolveArgPath(workdir, args, "path")
					if errMsg != "" {
						return errMsg, nil
					}
					path = resolved
				}
				entries, err := os.ReadDir(path)
				if err != nil {
					if os.IsNotExist(err) {
						return "Error: directory not found: " + path, nil
					}
					return "", err
				}
				if len(entries) == 0 {
					return "(empty directory)", nil
				}
				var b strings.Builder
				for _, entry := range entries {
					if entry.IsDir() {
						fmt.Fprintf(&b, "%s/\n", entry.Name())
						continue
					}
					info, err := entry.Info()
					if err != nil {
						continue
					}
					fmt.Fprintf(&b, "%s\t%d\n", entry.Name(), info.Size())
				}
				return b.String(), nil
			},
		},
		&FuncTool{
			ToolName: types.ToolFileSearch,
			ToolDesc: "Search file contents for a regular expression. Returns matching lines with file paths and line numbers.",
			ToolParams: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern": map[string]any{"type": "string", "description": "Search pattern (Go regular expression)"},
					"path":    pathParam("Directory to search in, relative to the working directory (default: the working directory)"),
				},
				"required": []string{"pattern"},
			},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				pattern, _ := args["pattern"].(string)
				if pattern == "" {
					return "Error: pattern is required", nil
				}
				re, err := regexp.Compile(pattern)
				if err != nil {
					return "Error: invalid pattern: " + err.Error(), nil
				}
				root := workdir
				if raw, _ := args["path"].(string); strings.TrimSpace(raw) != "" {
					resolved, errMsg := resolveArgPath(workdir, args, "path")
					if errMsg != "" {
						return errMsg, nil
					}
					root = resolved
				}
				matches := searchFiles(ctx, reader, root, re)
				if len(matches) == 0 {
					return "(no matches)", nil
				}
				return strings.Join(matches, "\n"), nil
			},
		},
		&FuncTool{
			ToolName: types.ToolCommandExecute,
			ToolDesc: "Execute a shell command in the working directory. Returns exit code, stdout and stderr.",
			ToolParams: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{"type": "string", "description": "Shell command to execute"},
				},
				"required": []string{"command"},
			},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				command, _ := args["command"].(string)
				if strings.TrimSpace(command) == "" {
					return "Error: command is required", nil
				}
				res, err := shell.Run(ctx, workdir, command)
				if err != nil {
					return "", err
				}
				return formatShellResult(res), nil
			},
		},
	}
}

func formatShellResult(res Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "exit=%d\n", res.ExitCode)
	if res.Stdout != "" {
		b.WriteString("stdout:\n")
		b.WriteString(res.Stdout)
		if !strings.HasSuffix(res.Stdout, "\n") {
			b.WriteString("\n")
		}
	}
	if res.Stderr != "" {
		b.WriteString("stderr:\n")
		b.WriteString(res.Stderr)
		if !strings.HasSuffix(res.Stderr, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// resolveArgPath resolves args[key] against workdir and rejects escapes.
// The second return is a model-facing error message; empty means ok.
func resolveArgPath(workdir string, args map[string]any, key string) (string, string) {
	raw, _ := args[key].(string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Sprintf("Error: %s is required", key)
	}

	path := raw
	if !filepath.IsAbs(path) {
		path = filepath.Join(workdir, path)
	}
	path = filepath.Clean(path)

	root := filepath.Clean(workdir)
	if path != root && !strings.HasPrefix(path, root+string(os.PathSeparator)) {
		return "", fmt.Sprintf("Error: path escapes the working directory: %s", raw)
	}
	return path, ""
}

func searchFiles(ctx context.Context, reader fsio.Reader, root string, re *regexp.Regexp) []string {
	var matches []string

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skipDirNames[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if len(matches) >= maxSearchMatches {
			return filepath.SkipAll
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxSearchFileBytes {
			return nil
		}
		content, err := reader.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		for i, line := range strings.Split(string(content), "\n") {
			if len(matches) >= maxSearchMatches {
				break
			}
			if re.MatchString(line) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimRight(line, "\r")))
			}
		}
		return nil
	})

	return matches
}
