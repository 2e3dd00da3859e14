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

package hook

import "strings"

// plusTagHook strips a "+tag" suffix from the local part before
// lookup and leaves the resolved account untouched. It is new code
// written to preprocessing_sample.py's preprocess/postprocess
// contract; that file's own functions are both null ops.
type plusTagHook struct{}

func (plusTagHook) Pre(local, domain string) (string, string, error) {
	if i := strings.IndexByte(local, '+'); i >= 0 {
		local = local[:i]
	}
	return local, domain, nil
}

func (plusTagHook) Post(account, domain string) (string, string, error) {
	return account, domain, nil
}

func init() {
	Register("strip_plus_tag", plusTagHook{})
}
