package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrPathTraversal is returned for secret names that escape the base directory.
var ErrPathTraversal = errors.New("invalid secret path: directory traversal detected")

// FileProvider reads one secret per file from a directory. Files must be
// regular files with mode 0600 or 0400.
type FileProvider struct {
	BasePath string

	logger   *slog.Logger
	onChange func(name string)

	mu    sync.RWMutex
	cache map[string]string

	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// FileOption configures a FileProvider.
type FileOption func(*FileProvider)

// WithLogger sets the provider's logger.
func WithLogger(logger *slog.Logger) FileOption {
	return func(p *FileProvider) { p.logger = logger }
}

// WithOnChange registers a callback run after a watched file changes.
// It receives the changed file's name.
func WithOnChange(fn func(name string)) FileOption {
	return func(p *FileProvider) { p.onChange = fn }
}

// NewFileProvider creates a provider over basePath. With watch set, the
// directory is watched and the cache is dropped on every change.
func NewFileProvider(basePath string, watch bool, opts ...FileOption) (*FileProvider, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path is not a directory: %s", basePath)
	}

	p := &FileProvider{
		BasePath: basePath,
		logger:   slog.Default(),
		cache:    make(map[string]string),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if !watch {
		close(p.done)
		return p, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(basePath); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}
	p.watcher = watcher
	go p.watchLoop()

	p.logger.Info("watching secrets directory", "path", basePath)
	return p, nil
}

// GetSecret reads the file named after the secret, trimming surrounding
// whitespace.
func (p *FileProvider) GetSecret(_ context.Context, name string) (string, error) {
	p.mu.RLock()
	value, ok := p.cache[name]
	p.mu.RUnlock()
	if ok {
		return value, nil
	}

	path, err := p.resolvePath(name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("secret file not found: %s", name)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", name)
	}
	if mode := info.Mode().Perm(); mode != 0o600 && mode != 0o400 {
		return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
	}

	// #nosec G304 - path is confined to BasePath by resolvePath
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	value = strings.TrimSpace(string(data))

	p.mu.Lock()
	p.cache[name] = value
	p.mu.Unlock()
	return value, nil
}

func (p *FileProvider) resolvePath(name string) (string, error) {
	absBase, err := filepath.Abs(p.BasePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(p.BasePath, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return absPath, nil
}

// ListSecrets returns the names of the regular files in the directory.
func (p *FileProvider) ListSecrets(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Provider returns "file".
func (p *FileProvider) Provider() string {
	return "file"
}

// Supports reports whether a regular file named after the secret exists.
func (p *FileProvider) Supports(name string) bool {
	path, err := p.resolvePath(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Refresh drops every cached value.
func (p *FileProvider) Refresh(_ context.Context) error {
	p.mu.Lock()
	p.cache = make(map[string]string)
	p.mu.Unlock()
	return nil
}

// Close stops watching. It is safe to call more than once.
func (p *FileProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.watcher != nil {
			err = p.watcher.Close()
			<-p.done
		}
	})
	return err
}

func (p *FileProvider) watchLoop() {
	defer close(p.done)
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			// Kubernetes swaps mounted secrets by renaming a symlink, so
			// every mutating op counts.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(event.Name)
			p.logger.Debug("secret file changed", "file", name, "op", event.Op.String())
			_ = p.Refresh(context.Background())
			if p.onChange != nil {
				p.onChange(name)
			}

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("secret watcher error", "error", err)
		}
	}
}
