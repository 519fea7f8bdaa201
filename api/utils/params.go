// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// ParseAddress parses a base58 account address, naming the field on failure.
func ParseAddress(field, s string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, BadRequest(errors.WithMessage(err, field))
	}
	return key, nil
}

// ParseUint64 parses an optional decimal query value, returning def when empty.
func ParseUint64(field, s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, BadRequest(errors.WithMessage(err, field))
	}
	return v, nil
}
