package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/docket/internal/model"
)

// Reconcile rewrites the stored justicesFor of every record with a majority
// bloc to majority ∪ concurring. It returns how many records changed.
// Running it twice changes nothing the second time.
func Reconcile(records []model.CaseRecord) int {
	changed := 0
	for i := range records {
		if reconcileRecord(&records[i]) {
			changed++
		}
	}
	return changed
}

func reconcileRecord(c *model.CaseRecord) bool {
	if !c.MajorityJustices.Present() {
		return false
	}
	want := model.Union(c.MajorityJustices, c.ConcurringJustices)
	stale := !c.JusticesFor.Present() || !model.SameMembers(c.JusticesFor, want) || len(c.JusticesFor) != len(want)
	if stale {
		c.JusticesFor = want
	}
	c.Reconcile()
	return stale
}

// DocumentResult describes one ReconcileDocument run
type DocumentResult struct {
	Records int
	Changed int
}

// ReconcileDocument applies Reconcile to a raw dataset document and returns
// the rewritten document. Only the justicesFor key of changed records is
// replaced: unknown keys, wrong-shaped values and elements that are not
// objects are carried through untouched.
func ReconcileDocument(data []byte) ([]byte, DocumentResult, error) {
	var res DocumentResult

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, res, ErrNotArray
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, res, fmt.Errorf("decode dataset: %w", err)
	}
	res.Records = len(elems)

	for i, elem := range elems {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
			continue
		}
		var rec model.CaseRecord
		if err := json.Unmarshal(elem, &rec); err != nil {
			continue
		}
		if !reconcileRecord(&rec) {
			continue
		}

		value, err := marshalRaw(rec.JusticesFor, false)
		if err != nil {
			return nil, res, fmt.Errorf("encode justicesFor of record %d: %w", i, err)
		}
		fields["justicesFor"] = value
		if elems[i], err = marshalRaw(fields, false); err != nil {
			return nil, res, fmt.Errorf("encode record %d: %w", i, err)
		}
		res.Changed++
	}

	out, err := marshalRaw(elems, true)
	if err != nil {
		return nil, res, fmt.Errorf("encode dataset: %w", err)
	}
	return append(out, '\n'), res, nil
}

// marshalRaw encodes v without HTML escaping so string values keep their
// original text
func marshalRaw(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteFile replaces path with data atomically, keeping the file mode
func WriteFile(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
