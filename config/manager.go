package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SettingsManager owns the settings JSON file. Writes are atomic and external
// edits are picked up by Watch.
type SettingsManager struct {
	path         string
	mu           sync.RWMutex
	settings     Settings
	watcher      *fsnotify.Watcher
	debounce     time.Duration
	onChange     func(Settings)
	suppressSelf atomic.Bool
}

type managerOptions struct {
	settingsPath    string
	initialSettings *Settings
	debounce        time.Duration
}

type ManagerOption func(*managerOptions)

func NewSettingsManager(opts ...ManagerOption) (*SettingsManager, error) {
	options := managerOptions{
		debounce: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&options)
	}

	settingsPath := options.settingsPath
	if settingsPath == "" {
		var err error
		settingsPath, err = defaultSettingsPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(settingsPath), 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}

	settings, err := loadOrCreateSettings(settingsPath, options)
	if err != nil {
		return nil, err
	}

	return &SettingsManager{
		path:     settingsPath,
		settings: settings,
		debounce: options.debounce,
	}, nil
}

func (m *SettingsManager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.Clone()
}

func (m *SettingsManager) Path() string {
	return m.path
}

func (m *SettingsManager) UpdateFromJSON(data []byte) error {
	settings, err := ParseSettings(data)
	if err != nil {
		return err
	}
	return m.Update(settings)
}

// Update validates and persists the whole document.
func (m *SettingsManager) Update(newSettings Settings) error {
	if err := newSettings.Validate(); err != nil {
		return err
	}

	m.mu.RLock()
	current := m.settings
	m.mu.RUnlock()
	if reflect.DeepEqual(current, newSettings) {
		return nil
	}

	m.suppressSelf.Store(true)
	defer time.AfterFunc(m.debounce, func() { m.suppressSelf.Store(false) })

	if err := writeSettingsFile(m.path, newSettings); err != nil {
		m.suppressSelf.Store(false)
		return err
	}

	m.apply(newSettings.Clone())
	return nil
}

func (m *SettingsManager) Reset() error {
	return m.Update(DefaultSettings())
}

// Secret implements SecretStore over the api_keys section.
func (m *SettingsManager) Secret(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings.APIKeys[name]
	return v, ok && v != ""
}

func (m *SettingsManager) SetSecret(name, value string) error {
	settings := m.Get()
	settings.APIKeys[name] = value
	return m.Update(settings)
}

func (m *SettingsManager) Watch(ctx context.Context, onChange func(Settings)) error {
	m.mu.Lock()
	m.onChange = onChange
	if m.watcher != nil {
		m.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.watcher = watcher
	debounce := m.debounce
	settingsPath := m.path
	m.mu.Unlock()

	if err := watcher.Add(filepath.Dir(settingsPath)); err != nil {
		return fmt.Errorf("watch settings dir: %w", err)
	}

	go m.watchLoop(ctx, watcher, settingsPath, debounce)
	return nil
}

func (m *SettingsManager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, settingsPath string, debounce time.Duration) {
	defer watcher.Close()

	var timerMu sync.Mutex
	var timer *time.Timer
	trigger := func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, m.reloadFromDisk)
		timerMu.Unlock()
	}

	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isSettingsEvent(evt, settingsPath) {
				continue
			}
			if m.suppressSelf.Load() {
				continue
			}
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				log.Printf("[settings] watcher error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func isSettingsEvent(evt fsnotify.Event, settingsPath string) bool {
	if filepath.Clean(evt.Name) != filepath.Clean(settingsPath) {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (m *SettingsManager) reloadFromDisk() {
	settings, err := loadSettingsFromFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			settings = DefaultSettings()
			if err := writeSettingsFile(m.path, settings); err != nil {
				log.Printf("[settings] recreate failed: %v", err)
				return
			}
		} else {
			log.Printf("[settings] reload failed: %v", err)
			return
		}
	}
	if err := settings.Validate(); err != nil {
		log.Printf("[settings] validation failed: %v", err)
		return
	}

	m.mu.RLock()
	current := m.settings
	m.mu.RUnlock()
	if reflect.DeepEqual(current, settings) {
		return
	}
	m.apply(settings)
}

func (m *SettingsManager) apply(settings Settings) {
	m.mu.Lock()
	m.settings = settings
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(settings.Clone())
	}
}

func loadOrCreateSettings(path string, options managerOptions) (Settings, error) {
	if _, err := os.Stat(path); err == nil {
		settings, err := loadSettingsFromFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("load settings: %w", err)
		}
		if err := settings.Validate(); err != nil {
			return Settings{}, err
		}
		return settings, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("stat settings: %w", err)
	}

	settings := DefaultSettings()
	if options.initialSettings != nil {
		settings = options.initialSettings.Clone()
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	if err := writeSettingsFile(path, settings); err != nil {
		return Settings{}, fmt.Errorf("write initial settings: %w", err)
	}
	return settings, nil
}

func loadSettingsFromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	return ParseSettings(data)
}

func defaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "TradingAgents", "settings.json"), nil
}

func writeSettingsFile(path string, settings Settings) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "settings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&settings); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("flush settings: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("close temp settings: %w", err)
	}
	return os.Rename(tmpFile.Name(), path)
}

func WithSettingsPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.settingsPath = path
		}
	}
}

func WithSettingsDir(dir string) ManagerOption {
	return func(o *managerOptions) {
		if dir == "" {
			return
		}
		o.settingsPath = filepath.Join(dir, "settings.json")
	}
}

func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

func WithInitialSettings(s *Settings) ManagerOption {
	return func(o *managerOptions) {
		o.initialSettings = s
	}
}
