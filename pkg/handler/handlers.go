package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"workspace-bridge/pkg/events"
	"workspace-bridge/pkg/rpc"
	"workspace-bridge/pkg/workspace"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Register wires the two bridge methods into the dispatcher.
// The hub is optional; pass nil when no event stream is exposed.
func Register(d *rpc.Dispatcher, store *workspace.Store, committer workspace.Committer, hub *events.Hub) {
	d.Register("getContext", makeGetContextHandler(store))
	d.Register("applyChanges", makeApplyChangesHandler(store, committer, hub))
}

// --- getContext ---

// GetContextParams defines the parameters for the getContext method.
type GetContextParams struct {
	FilePaths []string `json:"file_paths"`
}

// ContextResult is the getContext result: one entry per readable path, keyed
// by the path exactly as requested. Unreadable paths are omitted (best-effort
// policy); the call itself still succeeds.
type ContextResult struct {
	Files map[string]string `json:"files"`
}

func makeGetContextHandler(store *workspace.Store) rpc.HandlerFunc {
	return func(params json.RawMessage) (any, *rpc.Error) {
		var p GetContextParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, rpc.InvalidParams("Failed to parse parameters", err.Error())
		}
		if len(p.FilePaths) == 0 {
			return nil, rpc.InvalidParams("'file_paths' must be a non-empty list", "")
		}

		files := make(map[string]string)
		for _, path := range p.FilePaths {
			if path == "" {
				return nil, rpc.InvalidParams("'file_paths' entries must be non-empty strings", "")
			}
			absPath, err := store.Resolve(path)
			if err != nil {
				slog.Warn("Skipping unresolvable path", "path", path, "error", err)
				continue
			}
			content, err := store.Read(absPath)
			if err != nil {
				if os.IsNotExist(err) {
					slog.Warn("Skipping missing file", "path", path)
				} else {
					slog.Warn("Skipping unreadable file", "path", path, "error", err)
				}
				continue
			}
			files[path] = string(content)
		}

		return &ContextResult{Files: files}, nil
	}
}

// --- applyChanges ---

// ApplyChangesParams defines the parameters for the applyChanges method.
// Content is a pointer so an absent member is distinguishable from an empty
// string, which is a valid value meaning "truncate to empty file".
type ApplyChangesParams struct {
	FilePath string  `json:"file_path"`
	Content  *string `json:"content"`
}

// ApplyResult is the applyChanges result. Success is false when the file was
// written but the commit step failed; Message distinguishes the two outcomes.
type ApplyResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Commit  string `json:"commit,omitempty"`
}

// makeApplyChangesHandler builds the read-modify-commit handler. The write and
// the commit are two sequential side effects with no rollback: a commit
// failure after a successful write leaves the new content in place and is
// reported as success:false. Concurrent calls on the same path may interleave
// their write+commit sequences; the bridge does no per-path locking.
func makeApplyChangesHandler(store *workspace.Store, committer workspace.Committer, hub *events.Hub) rpc.HandlerFunc {
	return func(params json.RawMessage) (any, *rpc.Error) {
		var p ApplyChangesParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, rpc.InvalidParams("Failed to parse parameters", err.Error())
		}
		if p.FilePath == "" {
			return nil, rpc.InvalidParams("'file_path' is required", "")
		}
		if p.Content == nil {
			return nil, rpc.InvalidParams("'content' is required", "")
		}

		absPath, err := store.Resolve(p.FilePath)
		if err != nil {
			return nil, rpc.InvalidParams("'file_path' escapes the workspace root", err.Error())
		}
		relPath, err := filepath.Rel(store.Root(), absPath)
		if err != nil {
			return nil, rpc.InternalError("Failed to resolve path within workspace", err)
		}

		var before string
		existed := false
		if prev, err := store.Read(absPath); err == nil {
			before = string(prev)
			existed = true
		}

		if err := store.Write(absPath, []byte(*p.Content)); err != nil {
			return nil, rpc.InternalError("Failed to write file", err)
		}
		slog.Info("Applied changes", "path", p.FilePath, "bytes", len(*p.Content))

		description := fmt.Sprintf("bridge: apply changes to %s (%s)", p.FilePath, changeSummary(before, *p.Content))
		rev, err := committer.Record(relPath, description)
		if err != nil {
			slog.Error("Failed to record change", "path", p.FilePath, "error", err)
			publishChange(hub, p.FilePath, existed, "")
			return &ApplyResult{
				Success: false,
				Message: fmt.Sprintf("changes written to %s but not committed: %v", p.FilePath, err),
			}, nil
		}

		publishChange(hub, p.FilePath, existed, rev)
		msg := fmt.Sprintf("changes applied to %s", p.FilePath)
		if rev != "" {
			msg = fmt.Sprintf("changes applied and committed to %s", p.FilePath)
		}
		return &ApplyResult{Success: true, Message: msg, Commit: rev}, nil
	}
}

func publishChange(hub *events.Hub, path string, existed bool, rev string) {
	if hub == nil {
		return
	}
	evtType := "file.created"
	if existed {
		evtType = "file.updated"
	}
	evt := events.Event{
		Type:  evtType,
		Path:  path,
		Actor: &events.Actor{Kind: "rpc"},
	}
	if rev != "" {
		evt.Commit = &rev
	}
	hub.Publish(evt)
}

// changeSummary reports how many bytes a replacement inserted and deleted
// relative to the prior content, for the commit description.
func changeSummary(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	var ins, del int
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			ins += len(d.Text)
		case diffmatchpatch.DiffDelete:
			del += len(d.Text)
		}
	}
	return fmt.Sprintf("+%dB -%dB", ins, del)
}
