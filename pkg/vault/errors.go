// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package vault

import "errors"

// ErrIndexOutOfRange signals a slot index at or beyond the vault's capacity.
// This indicates a programmer error, and hence is not worth retrying.
var ErrIndexOutOfRange = errors.New("slot index out of range")

// ErrPoolExhausted signals that no free slot existed at the moment the
// allocation scan ran.  Whether to retry or back off is the caller's
// decision, as the vault itself never waits for space to appear.
var ErrPoolExhausted = errors.New("no free slot available")

// ErrNotAllocated signals an attempt to view a slot which is not currently
// occupied.  Typically this arises from a stale index, where the slot in
// question was released after the index was recorded.
var ErrNotAllocated = errors.New("slot not allocated")
