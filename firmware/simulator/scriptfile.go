/*
DESCRIPTION
  scriptfile.go adds optional hot-reload of Script overrides from a JSON
  file, for integration tests and local development that want to flip
  forced-parameter-change/forced-timeout scenarios without recompiling
  or restarting the process under test.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package simulator

import (
	"encoding/json"
	"os"

	"github.com/fsnotify/fsnotify"
)

// scriptFileContents is the JSON shape a watched script file holds.
// Overrides apply to every decoder handle currently open on the
// Simulator, matching the single-decoder-under-test shape integration
// tests actually use.
type scriptFileContents struct {
	ForceVideoParametersChanged bool `json:"forceVideoParametersChanged"`
	ForceTimeout                bool `json:"forceTimeout"`
}

// ScriptFileWatch holds the resources behind WatchScriptFile; Close
// stops the watch.
type ScriptFileWatch struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchScriptFile reads path as JSON on entry and again on every
// subsequent write to it, applying the decoded overrides to every
// decoder handle open on s at the time of the (re)load. The caller must
// call Close on the returned ScriptFileWatch to stop watching.
func (s *Simulator) WatchScriptFile(path string) (*ScriptFileWatch, error) {
	if err := s.reloadScriptFile(path); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	sw := &ScriptFileWatch{watcher: w, done: make(chan struct{})}
	go s.watchLoop(sw, path)
	return sw, nil
}

func (s *Simulator) watchLoop(sw *ScriptFileWatch, path string) {
	defer close(sw.done)
	for {
		select {
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.reloadScriptFile(path)
		case _, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (s *Simulator) reloadScriptFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var c scriptFileContents
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.decoders {
		s.decoders[id].forceVideoParamsChanged = c.ForceVideoParametersChanged
		s.decoders[id].forceTimeout = c.ForceTimeout
	}
	return nil
}

// Close stops watching the script file. Safe to call more than once.
func (w *ScriptFileWatch) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
