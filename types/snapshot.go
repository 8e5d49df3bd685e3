package types

import "time"

type FileSnapshot struct {
	AbsolutePath string `json:"absolute_path"`
	Existed      bool   `json:"existed"`
	Content      string `json:"content,omitempty"`
}

type Transaction struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	Description string         `json:"description"`
	Snapshots   []FileSnapshot `json:"snapshots"`
}

type FileOperation string

const (
	FileOpCreate FileOperation = "create"
	FileOpModify FileOperation = "modify"
	FileOpDelete FileOperation = "delete"
)

type FileChange struct {
	FilePath  string        `json:"file_path"`
	Operation FileOperation `json:"operation"`
	Before    string        `json:"before,omitempty"`
	After     string        `json:"after,omitempty"`
	Diff      string        `json:"diff,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type RollbackPoint struct {
	ID          string       `json:"id"`
	Timestamp   time.Time    `json:"timestamp"`
	Description string       `json:"description"`
	Changes     []FileChange `json:"changes"`
}

type RollbackResult struct {
	Restored  int      `json:"restored"`
	Deleted   int      `json:"deleted"`
	Preserved []string `json:"preserved,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}
