package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"solana-signal-engine/internal/domain"
)

// errNotTrade marks feed messages that are not trade payloads
// (subscription acks and other control messages). They are skipped
// without a warning.
var errNotTrade = errors.New("not a trade message")

// createdLooksLikeMsThreshold separates millisecond "created" values from
// junk; anything at or below it falls back to the seconds timestamp.
const createdLooksLikeMsThreshold = 10_000

// tradeMessage is the raw wire shape of one feed trade. Numeric amount
// fields are kept raw because the feed delivers them as either JSON
// strings or numbers.
type tradeMessage struct {
	Mint                 string          `json:"mint"`
	Signature            string          `json:"signature"`
	Slot                 int64           `json:"slot"`
	TxIndex              int             `json:"tx_index"`
	IsBuy                bool            `json:"is_buy"`
	SolAmount            json.RawMessage `json:"sol_amount"`    // lamports, string or number
	TokenAmount          json.RawMessage `json:"token_amount"`
	Timestamp            int64           `json:"timestamp"` // seconds
	Created              float64         `json:"created"`   // milliseconds, when present
	VirtualSolReserves   json.RawMessage `json:"virtual_sol_reserves"`   // lamports
	VirtualTokenReserves json.RawMessage `json:"virtual_token_reserves"` // raw token units
	User                 string          `json:"user"`
}

// ParseTrade normalizes one raw feed message into a canonical Trade.
// Malformed payloads return an error and affect only that message; the
// connection is never aborted over a bad payload.
func ParseTrade(raw []byte) (*domain.Trade, error) {
	var msg tradeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal trade message: %w", err)
	}

	if msg.Mint == "" {
		return nil, errNotTrade
	}
	if !isValidMint(msg.Mint) {
		return nil, fmt.Errorf("mint %q is not a valid address", msg.Mint)
	}

	lamports, err := parseLamports(msg.SolAmount)
	if err != nil {
		return nil, fmt.Errorf("sol_amount: %w", err)
	}

	tokenAmount, err := parseFiniteFloat(msg.TokenAmount)
	if err != nil {
		return nil, fmt.Errorf("token_amount: %w", err)
	}
	if tokenAmount <= 0 {
		return nil, fmt.Errorf("token_amount %v is not positive", tokenAmount)
	}

	trade := &domain.Trade{
		Mint:              msg.Mint,
		Signature:         msg.Signature,
		Slot:              msg.Slot,
		TxIndex:           msg.TxIndex,
		IsBuy:             msg.IsBuy,
		SolAmountLamports: lamports,
		TokenAmount:       tokenAmount,
		PriceSolPerToken:  float64(lamports) / domain.LamportsPerSol / tokenAmount,
		TimestampMs:       resolveTimestampMs(msg.Created, msg.Timestamp),
	}

	// Malformed wallet addresses are treated as absent rather than
	// rejecting the trade; they only feed the unique-trader counts.
	if msg.User != "" && isWalletAddress(msg.User) {
		trade.UserAddress = msg.User
	}

	if len(msg.VirtualSolReserves) > 0 {
		v, err := parseFiniteFloat(msg.VirtualSolReserves)
		if err != nil {
			return nil, fmt.Errorf("virtual_sol_reserves: %w", err)
		}
		vSol := v / domain.LamportsPerSol
		trade.VSol = &vSol
	}
	if len(msg.VirtualTokenReserves) > 0 {
		v, err := parseFiniteFloat(msg.VirtualTokenReserves)
		if err != nil {
			return nil, fmt.Errorf("virtual_token_reserves: %w", err)
		}
		trade.VTok = &v
	}

	return trade, nil
}

// resolveTimestampMs prefers the "created" field when it plausibly holds
// milliseconds, else scales the feed's seconds timestamp.
func resolveTimestampMs(created float64, timestampSec int64) int64 {
	if created > createdLooksLikeMsThreshold {
		return int64(created)
	}
	return timestampSec * 1000
}

// parseLamports parses a lamport amount delivered as a JSON string or
// number into an exact integer. Fractional or non-numeric values fail.
func parseLamports(raw json.RawMessage) (int64, error) {
	s, err := rawScalar(raw)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer lamport amount", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("lamport amount %d is negative", v)
	}
	return v, nil
}

// parseFiniteFloat parses a numeric field delivered as a JSON string or
// number, rejecting NaN and infinities.
func parseFiniteFloat(raw json.RawMessage) (float64, error) {
	s, err := rawScalar(raw)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}

// rawScalar unwraps a JSON string token, leaving bare numbers untouched.
func rawScalar(raw json.RawMessage) (string, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", fmt.Errorf("value is missing")
	}
	if s[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err != nil {
			return "", fmt.Errorf("malformed string value: %w", err)
		}
		return strings.TrimSpace(unquoted), nil
	}
	return s, nil
}
