package identity

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

const personalSignPrefix = "\x19Ethereum Signed Message:\n"

// ChallengeMessage is the exact text a wallet signs to link a chat identity.
func ChallengeMessage(chatID int64) string {
	return fmt.Sprintf("Link this wallet to Telegram ID: %d", chatID)
}

// PersonalMessageHash hashes message the way wallets do for personal_sign:
// keccak256(prefix + byte length + message).
func PersonalMessageHash(message string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(fmt.Sprintf("%s%d", personalSignPrefix, len(message))))
	h.Write([]byte(message))
	return h.Sum(nil)
}

// RecoverAddress returns the lowercase address that produced signature over
// message. The signature is 65 hex-encoded bytes with v in {0,1,27,28}.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return "", fmt.Errorf("%w: bad recovery id", ErrInvalidSignature)
	}

	pub, err := crypto.SigToPub(PersonalMessageHash(message), sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}
