// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package request decodes signing requests handed over by a front end and
// routes them to the handler registered for their kind.
package request

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/psbtsigner/psbterr"
)

// Kind is the kind of operation a PSBT belongs to.
type Kind uint8

const (
	// ChannelRequest funds a channel.
	ChannelRequest Kind = iota + 1

	// Withdrawal moves funds out.
	Withdrawal
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case ChannelRequest:
		return "channel_request"
	case Withdrawal:
		return "withdrawal"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseKind maps a request type label to a Kind. Case, spaces, hyphens and
// underscores are ignored, so "ChannelRequest" and "channel-request" are the
// same kind.
func ParseKind(s string) (Kind, error) {
	norm := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	switch norm {
	case "channelrequest", "channel":
		return ChannelRequest, nil
	case "withdrawal", "withdraw":
		return Withdrawal, nil
	default:
		return 0, psbterr.Errorf(psbterr.ErrParse,
			"unknown request type %q", s)
	}
}

// Request is a PSBT to sign together with what it is for.
type Request struct {
	Kind Kind

	// Psbt is the base64 encoded packet.
	Psbt string

	// Amount is the amount the front end displays for the operation. It
	// is informational only; the fee and outputs come from the packet.
	Amount btcutil.Amount
}

// payload is the wire form sent by the front end. Every field is optional
// on the wire.
type payload struct {
	Psbt        *string `json:"psbt"`
	RequestType *string `json:"request_type"`
	Amount      *string `json:"amount"`
}

// Decode parses a request payload. The packet and the request type are
// required; the amount, in BTC, may be omitted.
func Decode(data []byte) (*Request, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, psbterr.New(psbterr.ErrParse,
			"invalid request payload", err)
	}

	if p.Psbt == nil || strings.TrimSpace(*p.Psbt) == "" {
		return nil, psbterr.Errorf(psbterr.ErrParse,
			"request carries no psbt")
	}

	if p.RequestType == nil {
		return nil, psbterr.Errorf(psbterr.ErrParse,
			"request carries no request type")
	}

	kind, err := ParseKind(*p.RequestType)
	if err != nil {
		return nil, err
	}

	req := &Request{Kind: kind, Psbt: strings.TrimSpace(*p.Psbt)}

	if p.Amount != nil && strings.TrimSpace(*p.Amount) != "" {
		btc, err := strconv.ParseFloat(strings.TrimSpace(*p.Amount), 64)
		if err != nil {
			return nil, psbterr.New(psbterr.ErrParse,
				"invalid amount", err)
		}

		req.Amount, err = btcutil.NewAmount(btc)
		if err != nil {
			return nil, psbterr.New(psbterr.ErrParse,
				"invalid amount", err)
		}

		if req.Amount < 0 {
			return nil, psbterr.Errorf(psbterr.ErrParse,
				"negative amount %v", req.Amount)
		}
	}

	return req, nil
}
