// Package settings wraps the persisted settings in an explicit store
// with per-key change subscriptions. Components receive the store by
// reference instead of reaching for shared global state.
package settings

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"loopremote/internal/models"
)

// Change notifies a subscriber that a setting was written. Settings is
// the full post-change snapshot; semantics are last-write-wins.
type Change struct {
	Key      string
	Settings *models.Settings
}

// Store is the observable settings store backing the whole service.
// External edits to the settings file are picked up through a
// filesystem watch and published like local writes.
type Store struct {
	mu      sync.Mutex
	path    string
	current *models.Settings
	subs    map[string][]chan Change
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open loads the settings file (or defaults) and starts watching it
func Open(path string) (*Store, error) {
	current := &models.Settings{}
	if err := current.LoadFrom(path); err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating settings watcher: %w", err)
	}
	// Watch the directory: editors and sync tools replace the file,
	// which drops a watch set on the file itself
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching settings directory: %w", err)
	}

	s := &Store{
		path:    path,
		current: current,
		subs:    make(map[string][]chan Change),
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go s.watch()

	return s, nil
}

// Settings returns the live settings object. It is internally locked
// and shared across components.
func (s *Store) Settings() *models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Save persists the current settings to disk
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.SaveTo(s.path)
}

// Update applies new settings, persists them and notifies subscribers
// of every changed key
func (s *Store) Update(next *models.Settings) error {
	s.mu.Lock()
	old := s.current.Clone()
	s.current.Update(next)
	snapshot := s.current.Clone()
	err := s.current.SaveTo(s.path)
	s.mu.Unlock()

	if err != nil {
		return err
	}

	s.publish(diffKeys(old, snapshot), snapshot)
	return nil
}

// Subscribe returns a channel receiving changes for the given settings
// key (its JSON name). The empty key subscribes to every change.
func (s *Store) Subscribe(key string) <-chan Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Change, 4)
	s.subs[key] = append(s.subs[key], ch)
	return ch
}

// Close stops the watcher. Subscriber channels are not closed; they
// simply stop receiving.
func (s *Store) Close() error {
	close(s.done)
	return s.watcher.Close()
}

// watch folds external file edits back into the store
func (s *Store) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.reload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			fmt.Printf("Settings watcher error: %v\n", err)
		}
	}
}

// reload reads the file and publishes whatever differs from the
// in-memory state. A local Save also lands here; the diff is empty
// then and nothing is published.
func (s *Store) reload() {
	loaded := &models.Settings{}
	if err := loaded.LoadFrom(s.path); err != nil {
		fmt.Printf("Error reloading settings: %v\n", err)
		return
	}

	s.mu.Lock()
	old := s.current.Clone()
	s.current.Update(loaded)
	snapshot := s.current.Clone()
	s.mu.Unlock()

	s.publish(diffKeys(old, snapshot), snapshot)
}

// publish fans a change out to key subscribers and catch-all
// subscribers without blocking
func (s *Store) publish(keys []string, snapshot *models.Settings) {
	if len(keys) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		change := Change{Key: key, Settings: snapshot}
		for _, ch := range s.subs[key] {
			select {
			case ch <- change:
			default:
			}
		}
		for _, ch := range s.subs[""] {
			select {
			case ch <- change:
			default:
			}
		}
	}
}

// diffKeys returns the JSON names of settings that differ between two
// snapshots
func diffKeys(old, next *models.Settings) []string {
	oldMap := toMap(old)
	nextMap := toMap(next)

	var keys []string
	for key, nextVal := range nextMap {
		if oldVal, ok := oldMap[key]; !ok || oldVal != nextVal {
			keys = append(keys, key)
		}
	}
	return keys
}

// toMap flattens settings to their JSON representation for comparison
func toMap(s *models.Settings) map[string]interface{} {
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
