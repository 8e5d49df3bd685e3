package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jhl-labs/sepilot-desktop-sub001/internal/clock"
	"github.com/jhl-labs/sepilot-desktop-sub001/internal/fsio"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

const (
	// maxTransactionFiles bounds how many paths one transaction snapshots.
	maxTransactionFiles = 160

	filePerm = os.FileMode(0644)
	dirPerm  = os.FileMode(0755)
)

// RollbackReason states why a transaction is being rolled back. The reason
// decides whether generated scripts survive the rollback.
type RollbackReason string

const (
	ReasonVerificationFailed RollbackReason = "verification_failed"
	ReasonScriptNotExecuted  RollbackReason = "script_not_executed"
)

// pathArgKeys are the tool-call argument keys that may carry file paths.
var pathArgKeys = []string{"path", "file_path", "source", "destination", "src", "dst"}

// preservedScriptExts are kept on rollback when the failure reason is a
// script that was written but never executed, so the next iteration can run
// it instead of regenerating it.
var preservedScriptExts = []string{".py", ".sh", ".bash"}

// Manager captures file content before a tool-call batch runs and restores
// it when verification fails.
type Manager struct {
	workdir string
	reader  fsio.Reader
	writer  fsio.Writer
	clock   clock.Clock
}

func NewManager(workdir string, r fsio.Reader, w fsio.Writer, c clock.Clock) *Manager {
	return &Manager{workdir: workdir, reader: r, writer: w, clock: c}
}

// Begin snapshots every unique file path referenced by the batch's
// arguments. Unreadable paths are skipped; missing files are recorded as
// non-existent so rollback knows to delete them.
func (m *Manager) Begin(description string, calls []types.ToolCall) types.Transaction {
	tx := types.Transaction{
		ID:          uuid.NewString(),
		CreatedAt:   m.clock.Now(),
		Description: description,
	}

	for _, path := range m.collectPaths(calls) {
		if len(tx.Snapshots) >= maxTransactionFiles {
			break
		}
		snap, ok := m.capture(path)
		if !ok {
			continue
		}
		tx.Snapshots = append(tx.Snapshots, snap)
	}

	return tx
}

// Rollback restores every snapshot to its pre-transaction content, deleting
// files that did not exist before. Script files are preserved when reason is
// ReasonScriptNotExecuted. Per-file failures are aggregated, never fatal.
func (m *Manager) Rollback(tx types.Transaction, reason RollbackReason) types.RollbackResult {
	var result types.RollbackResult

	for _, snap := range tx.Snapshots {
		if preserveOnRollback(snap.AbsolutePath, reason) {
			result.Preserved = append(result.Preserved, snap.AbsolutePath)
			continue
		}

		if snap.Existed {
			if err := m.writer.MkdirAll(filepath.Dir(snap.AbsolutePath), dirPerm); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", snap.AbsolutePath, err))
				continue
			}
			if err := m.writer.WriteFile(snap.AbsolutePath, []byte(snap.Content), filePerm); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", snap.AbsolutePath, err))
				continue
			}
			result.Restored++
			continue
		}

		if err := m.writer.Remove(snap.AbsolutePath); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", snap.AbsolutePath, err))
			continue
		}
		result.Deleted++
	}

	return result
}

// Point records the current divergence from the transaction's snapshots as a
// rollback point for external display and undo.
func (m *Manager) Point(description string, tx types.Transaction) types.RollbackPoint {
	point := types.RollbackPoint{
		ID:          uuid.NewString(),
		Timestamp:   m.clock.Now(),
		Description: description,
	}

	for _, snap := range tx.Snapshots {
		current, err := m.reader.ReadFile(snap.AbsolutePath)
		existsNow := err == nil

		change := types.FileChange{
			FilePath:  snap.AbsolutePath,
			Timestamp: point.Timestamp,
		}

		switch {
		case !snap.Existed && existsNow:
			change.Operation = types.FileOpCreate
			change.After = string(current)
		case snap.Existed && !existsNow:
			change.Operation = types.FileOpDelete
			change.Before = snap.Content
		case snap.Existed && existsNow && snap.Content != string(current):
			change.Operation = types.FileOpModify
			change.Before = snap.Content
			change.After = string(current)
		default:
			continue
		}

		change.Diff = UnifiedDiff(snap.AbsolutePath, change.Before, change.After)
		point.Changes = append(point.Changes, change)
	}

	return point
}

func (m *Manager) capture(path string) (types.FileSnapshot, bool) {
	content, err := m.reader.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.FileSnapshot{AbsolutePath: path, Existed: false}, true
		}
		// unreadable (permissions, directory): nothing restorable
		return types.FileSnapshot{}, false
	}

	return types.FileSnapshot{
		AbsolutePath: path,
		Existed:      true,
		Content:      string(content),
	}, true
}

// collectPaths extracts the unique path-like arguments across the batch,
// resolved against the workdir, in deterministic order.
func (m *Manager) collectPaths(calls []types.ToolCall) []string {
	seen := make(map[string]bool)
	var out []string

	for _, call := range calls {
		for _, key := range pathArgKeys {
			raw := strings.TrimSpace(call.StringArg(key))
			if raw == "" {
				continue
			}

			abs := raw
			if !filepath.IsAbs(abs) {
				abs = filepath.Join(m.workdir, abs)
			}
			abs = filepath.Clean(abs)

			if seen[abs] {
				continue
			}
			seen[abs] = true
			out = append(out, abs)
		}
	}

	sort.Strings(out)
	return out
}

func preserveOnRollback(path string, reason RollbackReason) bool {
	if reason != ReasonScriptNotExecuted {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, keep := range preservedScriptExts {
		if ext == keep {
			return true
		}
	}
	return false
}
