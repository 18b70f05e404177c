package chain

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// Decimals is the fixed scale between the smallest on-chain unit and the
// human readable amount.
const Decimals = 18

var (
	// ErrInvalidAmount is returned for amounts that are not plain decimals.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidAddress is returned for strings that are not 20-byte hex addresses.
	ErrInvalidAddress = errors.New("invalid address")

	decimalPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)
	weiPerUnit     = new(big.Rat).SetInt(big.NewInt(params.Ether))
)

// ToWei converts a human readable decimal such as "0.1" into the smallest
// unit. More than 18 fractional digits is rejected rather than rounded.
func ToWei(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if !decimalPattern.MatchString(amount) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	r.Mul(r, weiPerUnit)
	if !r.IsInt() {
		return nil, fmt.Errorf("%w: more than %d decimals", ErrInvalidAmount, Decimals)
	}
	return new(big.Int).Set(r.Num()), nil
}

// FromWei renders the smallest unit as a trimmed decimal string.
func FromWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether))
	s := r.FloatString(Decimals)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// NormalizeAddress validates a hex address and returns its lowercase form.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

// SameAddress compares two addresses ignoring checksum casing.
func SameAddress(a, b string) bool {
	na, errA := NormalizeAddress(a)
	nb, errB := NormalizeAddress(b)
	return errA == nil && errB == nil && na == nb
}

// IsZeroAddress reports whether addr is the zero-address sentinel.
func IsZeroAddress(addr string) bool {
	n, err := NormalizeAddress(addr)
	return err == nil && n == lowerHex(common.Address{})
}

// FormatRemaining renders a remaining cycle time in whole days, hours and minutes.
func FormatRemaining(seconds int64) string {
	if seconds <= 0 {
		return "cycle ended"
	}
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

func lowerHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
