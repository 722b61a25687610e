package stdlib

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
)

func loadFS(_ *evaluator.Interpreter) *evaluator.Object {
	return evaluator.NewObject(map[string]evaluator.Value{
		"read":   native("fs.read", 1, 1, stdlibFSRead),
		"write":  native("fs.write", 2, 3, stdlibFSWrite),
		"exists": native("fs.exists", 1, 1, stdlibFSExists),
		"list":   native("fs.list", 1, 1, stdlibFSList),
		"remove": native("fs.remove", 1, 1, stdlibFSRemove),
	})
}

func fsPath(a args) (string, error) {
	p, err := a.str(0)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.Abs(p)
	if err != nil {
		return "", evaluator.Errorf(diagnostics.EIO, "%s: invalid path: %s", a.name, err)
	}
	return resolved, nil
}

// fs.read(path) → string
func stdlibFSRead(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	resolved, err := fsPath(a)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, evaluator.Errorf(diagnostics.EIO, "fs.read: %s", err)
	}
	return str(string(data)), nil
}

// fs.write(path, data, format?) → { kind, path, bytes, sha256 }
// format "json" pretty-prints data; otherwise strings are written as is
// and other values as compact JSON.
func stdlibFSWrite(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	resolved, err := fsPath(a)
	if err != nil {
		return nil, err
	}
	format := "raw"
	if a.has(2) {
		if format, err = a.str(2); err != nil {
			return nil, err
		}
	}

	data := a.value(1)
	var content string
	if s, ok := data.(evaluator.String); ok && format != "json" {
		content = s.Value
	} else {
		jsonBytes, err := evaluator.ValueToJSON(data)
		if err != nil {
			return nil, err
		}
		content = string(jsonBytes)
		if format == "json" {
			var raw any
			if err := json.Unmarshal(jsonBytes, &raw); err == nil {
				if pretty, err := json.MarshalIndent(raw, "", "  "); err == nil {
					content = string(pretty)
				}
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return nil, evaluator.Errorf(diagnostics.EIO, "fs.write: cannot create directory: %s", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return nil, evaluator.Errorf(diagnostics.EIO, "fs.write: %s", err)
	}

	hash := sha256.Sum256([]byte(content))
	return evaluator.NewObject(map[string]evaluator.Value{
		"kind":   str("file"),
		"path":   str(resolved),
		"bytes":  num(float64(len(content))),
		"sha256": str(fmt.Sprintf("%x", hash)),
	}), nil
}

// fs.exists(path) → boolean
func stdlibFSExists(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	resolved, err := fsPath(a)
	if err != nil {
		if evaluator.ErrorCode(err) == diagnostics.EIO {
			return boolean(false), nil
		}
		return nil, err
	}
	_, err = os.Stat(resolved)
	return boolean(err == nil), nil
}

// fs.list(path) → list of { name, type }
func stdlibFSList(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	resolved, err := fsPath(a)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, evaluator.Errorf(diagnostics.EIO, "fs.list: %s", err)
	}
	items := make([]evaluator.Value, len(entries))
	for i, entry := range entries {
		entryType := "other"
		if entry.IsDir() {
			entryType = "directory"
		} else if entry.Type().IsRegular() {
			entryType = "file"
		}
		items[i] = evaluator.NewObject(map[string]evaluator.Value{
			"name": str(entry.Name()),
			"type": str(entryType),
		})
	}
	return evaluator.NewArray(items), nil
}

// fs.remove(path) → boolean, false when nothing was there
func stdlibFSRemove(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	resolved, err := fsPath(a)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(resolved); err != nil {
		if os.IsNotExist(err) {
			return boolean(false), nil
		}
		return nil, evaluator.Errorf(diagnostics.EIO, "fs.remove: %s", err)
	}
	return boolean(true), nil
}
