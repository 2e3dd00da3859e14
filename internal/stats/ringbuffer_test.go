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

package stats

import "testing"

func Test_CountingRingBuffer_AccumulatesWithinSecond(t *testing.T) {
	rb := NewCounting()
	rb.Add(1)
	rb.Add(2)
	rb.Add(3)
	w := rb.Stats()
	if w.One != 6 {
		t.Errorf("One = %v, want 6", w.One)
	}
}

func Test_AveragingRingBuffer_CurrentBucketHoldsSum(t *testing.T) {
	rb := NewAveraging()
	rb.Add(4)
	rb.Add(6)
	w := rb.Stats()
	if w.One != 10 {
		t.Errorf("One = %v, want 10 (not yet retired)", w.One)
	}
}

func Test_LevelingRingBuffer_NetsPositiveAndNegative(t *testing.T) {
	rb := NewLeveling()
	rb.Add(1)
	rb.Add(1)
	rb.Add(-1)
	w := rb.Stats()
	if w.One != 1 {
		t.Errorf("One = %v, want 1", w.One)
	}
}

func Test_Collector_Stats(t *testing.T) {
	c := New(nil)
	c.ConnOpened()
	c.ReadReceived()
	c.Success()
	snap := c.Stats()
	if snap.Connections.One != 1 {
		t.Errorf("Connections.One = %v, want 1", snap.Connections.One)
	}
	if snap.Reads.One != 1 {
		t.Errorf("Reads.One = %v, want 1", snap.Reads.One)
	}
	if snap.Success.One != 1 {
		t.Errorf("Success.One = %v, want 1", snap.Success.One)
	}
}
