// Copyright 2025 The markov-d Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package training

// TopicPrefix is the leading element of training topics. Topics follow the
// "train@<namespace>" format so one publisher can feed several models.
const TopicPrefix = "train"

// LineBatch represents a batch of training lines published for one
// namespace. It is encoded as a msgpack array.
type LineBatch struct {
	_ struct{} `msgpack:",array"`
	// TS is the publisher's timestamp, seconds since the epoch.
	TS float64
	// Lines are the token sequences to index.
	Lines [][]string
}
