package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// DefaultDebounce is how long the file watcher waits after the last
// change event before re-reading the credentials file. Editors and
// secret managers often write a file in several bursts.
const DefaultDebounce = 500 * time.Millisecond

// RotateFunc is called with the new secret list for a back-end after
// the credentials file changed on disk.
type RotateFunc func(backend string, secrets []string)

// FileSource reads secrets from a YAML file mapping back-end name to a
// list of secrets:
//
//	groq:
//	  - gsk_aaaa
//	  - gsk_bbbb
//	gemini:
//	  - AIzaCccc
//
// Watch re-reads the file when it changes and reports rotated back-ends
// through a callback.
type FileSource struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	current  map[string][]string
	watcher  *fsnotify.Watcher
	onRotate RotateFunc
	timer    *time.Timer
	stopCh   chan struct{}
	closed   bool
}

// NewFileSource creates a file source for the given path. The file is
// not read until Load is called.
func NewFileSource(path string) *FileSource {
	return &FileSource{
		path:     path,
		logger:   slog.Default().With("component", "secrets"),
		debounce: DefaultDebounce,
	}
}

// Load reads and parses the credentials file.
func (s *FileSource) Load() (map[string][]string, error) {
	parsed, err := s.read()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = parsed
	s.mu.Unlock()

	return copyMap(parsed), nil
}

// Watch starts watching the credentials file for changes. After a
// change settles, the file is re-read and onRotate fires once per
// back-end whose secret list differs from the previous read. Back-ends
// removed from the file are ignored until restart.
func (s *FileSource) Watch(onRotate RotateFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory rather than the file itself so that atomic
	// saves (write to temp, rename over) are still observed.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.onRotate = onRotate
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	go s.watchLoop()

	s.logger.Info("watching credentials file", "path", s.path)
	return nil
}

// Close stops the watcher. Safe to call if Watch was never started.
func (s *FileSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	watcher := s.watcher
	stopCh := s.stopCh
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	if watcher != nil {
		return watcher.Close()
	}
	return nil
}

// watchLoop processes file system events until Close is called.
func (s *FileSource) watchLoop() {
	base := filepath.Base(s.path)
	for {
		select {
		case <-s.stopCh:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Rename == fsnotify.Rename {
				s.logger.Debug("credentials file changed", "path", s.path, "op", event.Op.String())
				s.scheduleReload()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("credentials watcher error", "error", err)
		}
	}
}

// scheduleReload arms the debounce timer, restarting it if a reload is
// already pending.
func (s *FileSource) scheduleReload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.reload)
	} else {
		s.timer.Reset(s.debounce)
	}
}

// reload re-reads the file and notifies for every changed back-end. A
// read or parse failure keeps the previous secrets.
func (s *FileSource) reload() {
	parsed, err := s.read()
	if err != nil {
		s.logger.Error("failed to reload credentials file", "path", s.path, "error", err)
		return
	}

	type rotation struct {
		backend string
		secrets []string
	}
	var rotations []rotation

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	previous := s.current
	for backend, values := range parsed {
		if !equalSecrets(previous[backend], values) {
			rotations = append(rotations, rotation{backend: backend, secrets: values})
		}
	}
	for backend := range previous {
		if _, ok := parsed[backend]; !ok {
			s.logger.Warn("back-end removed from credentials file, keeping existing keys until restart",
				"backend", backend)
		}
	}
	s.current = parsed
	onRotate := s.onRotate
	s.mu.Unlock()

	for _, r := range rotations {
		s.logger.Info("credentials rotated", "backend", r.backend, "keys", len(r.secrets))
		if onRotate != nil {
			onRotate(r.backend, r.secrets)
		}
	}
}

// read parses the YAML file into a back-end to secrets map, trimming
// whitespace and dropping empty entries.
func (s *FileSource) read() (map[string][]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", s.path, err)
	}

	out := make(map[string][]string, len(raw))
	for backend, values := range raw {
		cleaned := make([]string, 0, len(values))
		for _, v := range values {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			out[backend] = cleaned
		}
	}
	return out, nil
}

func equalSecrets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func copyMap(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}
