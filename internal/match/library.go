package match

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
	"gopkg.in/yaml.v3"
)

const manifestName = "library.yaml"

type manifestEntry struct {
	ID   int64  `yaml:"id"`
	File string `yaml:"file"`
}

type manifest struct {
	NextID  int64           `yaml:"next_id"`
	Entries []manifestEntry `yaml:"entries"`
}

// Library is the on-disk pool of registered identity crops. Each identity
// is one PNG under the library directory plus a manifest row mapping its
// id to the file.
type Library struct {
	mu     sync.Mutex
	dir    string
	refs   []Ref
	nextID int64
}

// OpenLibrary loads the manifest from dir, creating an empty library when
// none exists yet.
func OpenLibrary(dir string) (*Library, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("library: %w", err)
	}
	lib := &Library{dir: dir, nextID: 1}

	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if os.IsNotExist(err) {
		return lib, nil
	}
	if err != nil {
		return nil, fmt.Errorf("library: %w", err)
	}
	var mf manifest
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("library: parse manifest: %w", err)
	}
	lib.nextID = mf.NextID
	for _, e := range mf.Entries {
		lib.refs = append(lib.refs, Ref{ID: e.ID, Path: filepath.Join(dir, e.File)})
		if e.ID >= lib.nextID {
			lib.nextID = e.ID + 1
		}
	}
	return lib, nil
}

// Refs returns a snapshot of the registered identities.
func (l *Library) Refs() []Ref {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Ref, len(l.refs))
	copy(out, l.refs)
	return out
}

func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.refs)
}

// Add registers a crop as a new identity: writes it under the library
// directory and appends it to the manifest.
func (l *Library) Add(crop gocv.Mat) (Ref, error) {
	if crop.Empty() {
		return Ref{}, fmt.Errorf("library: empty crop")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	name := uuid.NewString() + ".png"
	path := filepath.Join(l.dir, name)
	if ok := gocv.IMWrite(path, crop); !ok {
		return Ref{}, fmt.Errorf("library: write %s failed", path)
	}

	ref := Ref{ID: l.nextID, Path: path}
	l.nextID++
	l.refs = append(l.refs, ref)
	if err := l.saveLocked(); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

func (l *Library) saveLocked() error {
	mf := manifest{NextID: l.nextID}
	for _, r := range l.refs {
		mf.Entries = append(mf.Entries, manifestEntry{ID: r.ID, File: filepath.Base(r.Path)})
	}
	data, err := yaml.Marshal(&mf)
	if err != nil {
		return fmt.Errorf("library: %w", err)
	}
	tmp := filepath.Join(l.dir, manifestName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("library: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(l.dir, manifestName)); err != nil {
		return fmt.Errorf("library: %w", err)
	}
	return nil
}
