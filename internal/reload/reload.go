/*
Maddy Mail Server - Composable all-in-one email server.
Copyright 2021, Steve Blinch <dev@blinch.ca>, Max Mazurov <fox.cpp@disroot.org>, Maddy Mail Server contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package reload watches a configuration file's directory for changes
// and recompiles it into a running configstore.Store, the Go
// counterpart to tcp_table_server.py's configuration_watchdog
// coroutine. Watching the directory rather than the file itself
// survives editors that save by renaming a temp file over the
// original, which a direct file-descriptor watch would miss.
package reload

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"trualias/internal/applog"
	"trualias/internal/configstore"
)

// Watcher re-reads Path into Store whenever its containing directory
// reports a write, create or rename event naming it.
type Watcher struct {
	Path  string
	Store *configstore.Store
}

// Run watches until ctx is cancelled or the underlying fsnotify
// watcher fails to start. Each detected change triggers a fresh
// Store.Reload; a reload that fails to compile is logged and the
// previously published ConfigurationSet stays in effect.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.Path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	name := filepath.Base(w.Path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			applog.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	source, err := os.ReadFile(w.Path)
	if err != nil {
		applog.Warn("unable to read configuration for reload, keeping running configuration", zap.Error(err))
		return
	}
	if diags := w.Store.Reload(string(source)); diags.HasErrors() {
		applog.Warn("configuration reload failed, keeping running configuration", zap.Error(diags))
		return
	}
	applog.Info("configuration reloaded")
}
