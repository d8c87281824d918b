package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/timoknapp/sports-meet/pkg/models"
)

// Patch holds the fields to overwrite on update, keyed by JSON field name.
// Merging is shallow: a provided key replaces the whole previous value.
type Patch map[string]any

// Collection is the CRUD view over one persisted entity list.
type Collection[T models.Entity] struct {
	key   string
	store *Store
}

func newCollection[T models.Entity](s *Store, key string) *Collection[T] {
	return &Collection[T]{key: key, store: s}
}

func (c *Collection[T]) Key() string {
	return c.key
}

// GetAll returns the full persisted list, or an empty slice when nothing is
// stored or the stored value cannot be read.
func (c *Collection[T]) GetAll() []T {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.load()
}

// SaveAll replaces the persisted list.
func (c *Collection[T]) SaveAll(items []T) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.save(items)
}

// Add assigns a fresh id, stamps the creation time where the entity has one,
// appends and persists. It returns the stored record.
func (c *Collection[T]) Add(item T) T {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	items := c.load()
	now := c.store.now()
	item.SetID(NewID(now, idSet(items)))
	if stamped, ok := any(item).(models.Stamped); ok {
		stamped.Stamp(now)
	}
	items = append(items, item)
	c.save(items)
	return item
}

// Update merges patch into the record with the given id. It reports false,
// without side effects, when no such record exists or the patch does not fit
// the record. The id itself is never patched. True means the record was
// updated in memory; a failed backend write is logged and counted like every
// other persistence failure, not reported here.
func (c *Collection[T]) Update(id string, patch Patch) bool {
	found, err := c.UpdateChecked(id, patch)
	if err != nil {
		c.store.log.Error("Failed to merge update into %s/%s: %v", c.key, id, err)
		return false
	}
	return found
}

// UpdateChecked is Update with a *PatchError for patches whose values do not
// decode into the record, so callers can tell them apart from a missing id.
func (c *Collection[T]) UpdateChecked(id string, patch Patch) (bool, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	items := c.load()
	idx := indexOf(items, id)
	if idx == -1 {
		return false, nil
	}

	merged, err := merge(items[idx], patch)
	if err != nil {
		return true, err
	}
	items[idx] = merged
	c.save(items)
	return true, nil
}

// Delete removes the record with the given id and reports whether it existed.
func (c *Collection[T]) Delete(id string) bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	items := c.load()
	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if item.GetID() != id {
			filtered = append(filtered, item)
		}
	}
	if len(filtered) == len(items) {
		return false
	}
	c.save(filtered)
	return true
}

func (c *Collection[T]) Find(id string) (T, bool) {
	for _, item := range c.GetAll() {
		if item.GetID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) Filter(keep func(T) bool) []T {
	var out []T
	for _, item := range c.GetAll() {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func (c *Collection[T]) Count() int {
	return len(c.GetAll())
}

func (c *Collection[T]) load() []T {
	data, found, err := c.store.backend.Load(c.key)
	if err != nil {
		c.store.fail("Error reading %s: %v", c.key, err)
		return []T{}
	}
	if !found || len(data) == 0 {
		return []T{}
	}
	items, dropped, err := decodeItems[T](data)
	if err != nil {
		c.store.fail("Error reading %s: %v", c.key, err)
		return []T{}
	}
	if dropped > 0 {
		c.store.log.Warn("Skipped %d null records in %s", dropped, c.key)
	}
	return items
}

// decodeItems reads a JSON array of records, skipping null elements, and
// reports how many were skipped.
func decodeItems[T models.Entity](data []byte) ([]T, int, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, 0, err
	}
	items := make([]T, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		if string(bytes.TrimSpace(raw)) == "null" {
			dropped++
			continue
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, dropped, nil
}

func (c *Collection[T]) save(items []T) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		c.store.fail("Error saving %s: %v", c.key, err)
		return
	}
	if err := c.store.backend.Save(c.key, data); err != nil {
		c.store.fail("Error saving %s: %v", c.key, err)
	}
}

func indexOf[T models.Entity](items []T, id string) int {
	for i, item := range items {
		if item.GetID() == id {
			return i
		}
	}
	return -1
}

func idSet[T models.Entity](items []T) map[string]struct{} {
	ids := make(map[string]struct{}, len(items))
	for _, item := range items {
		ids[item.GetID()] = struct{}{}
	}
	return ids
}

func merge[T models.Entity](current T, patch Patch) (T, error) {
	var zero T

	base, err := json.Marshal(current)
	if err != nil {
		return zero, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return zero, err
	}

	for k, v := range patch {
		if k == "id" {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return zero, &PatchError{Field: k, Err: err}
		}
		fields[k] = raw
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return zero, err
	}
	var merged T
	if err := json.Unmarshal(out, &merged); err != nil {
		perr := &PatchError{Err: err}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			perr.Field = typeErr.Field
		}
		return zero, perr
	}
	return merged, nil
}

// PatchError reports a patch value that does not fit the record's field.
type PatchError struct {
	Field string
	Err   error
}

func (e *PatchError) Error() string {
	if e.Field == "" {
		return "invalid patch: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid value for %s: %v", e.Field, e.Err)
}

func (e *PatchError) Unwrap() error {
	return e.Err
}
