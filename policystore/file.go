package policystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/zeu5/pacman-adapter/util"
)

// FileBackend keeps the mapping as one JSON object keyed by agent id.
type FileBackend struct {
	path string
}

var _ Backend = &FileBackend{}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) Load() (Policies, bool, error) {
	bs, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(bs, &raw); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", f.path, err)
	}
	out := make(Policies, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, false, fmt.Errorf("decode %s: agent id %q: %w", f.path, k, err)
		}
		out[id] = v
	}
	return out, true, nil
}

func (f *FileBackend) Save(p Policies) error {
	raw := make(map[string]json.RawMessage, len(p))
	for id, blob := range p {
		raw[strconv.Itoa(id)] = blob
	}
	return util.SaveJson(f.path, raw)
}
