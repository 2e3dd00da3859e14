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

package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trualias/internal/configstore"
)

const firstSource = `ACCOUNT foo MATCHES "%account%-%code%" WITH CHARS();`
const secondSource = `ACCOUNT bar MATCHES "%account%-%code%" WITH CHARS();`

func Test_Watcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trualias.conf")
	if err := os.WriteFile(path, []byte(firstSource), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store, err := configstore.New(firstSource)
	if err != nil {
		t.Fatalf("configstore.New() error = %v", err)
	}

	w := &Watcher{Path: path, Store: store}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(secondSource), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	deadline := time.Now().Add(1500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if store.Current().Specifications[0].Accounts[0] == "bar" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if got := store.Current().Specifications[0].Accounts[0]; got != "bar" {
		t.Errorf("Current().Specifications[0].Accounts[0] = %q, want bar (reload did not apply)", got)
	}

	cancel()
	<-done
}

func Test_Watcher_KeepsRunningConfigOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trualias.conf")
	if err := os.WriteFile(path, []byte(firstSource), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store, err := configstore.New(firstSource)
	if err != nil {
		t.Fatalf("configstore.New() error = %v", err)
	}
	w := &Watcher{Path: path, Store: store}

	if err := os.WriteFile(path, []byte(`ACCOUNT foo MATCHES "%account%" WITH CHARS();`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	w.reload()

	if got := store.Current().Specifications[0].Accounts[0]; got != "foo" {
		t.Errorf("Current().Specifications[0].Accounts[0] = %q, want foo (bad reload should not replace it)", got)
	}
}
