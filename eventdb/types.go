// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range bounds the epochs of matched events, both ends inclusive. A To below
// From leaves the range open ended.
type Range struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// Filter selects journaled events. Empty criteria match everything.
type Filter struct {
	Range   *Range   `json:"range"`
	Names   []string `json:"names"`
	Subject string   `json:"subject"`
	Options *Options `json:"options"`
	Order   Order    `json:"order"` // default asc
}
