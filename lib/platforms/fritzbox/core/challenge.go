package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// SupportedVersion is the only login_sid.lua challenge version implemented.
const SupportedVersion = 2

// Challenge is a decoded `<version>$<iter1>$<salt1>$<iter2>$<salt2>` string.
type Challenge struct {
	Version int
	Iter1   int
	Salt1   []byte
	Iter2   int
	Salt2   []byte
}

func parseIterations(field, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: challenge %s %q is not an integer", ErrProtocol, field, value)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: challenge %s %d is not positive", ErrProtocol, field, n)
	}
	return n, nil
}

func parseSalt(field, value string) ([]byte, error) {
	salt, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: challenge %s is not hex: %v", ErrProtocol, field, err)
	}
	return salt, nil
}

// ParseChallenge parses a challenge string, it fails with ErrProtocol unless
// there are exactly 5 fields and the version is SupportedVersion.
func ParseChallenge(challenge string) (Challenge, error) {
	challenge = strings.TrimSpace(challenge)
	tokens := strings.Split(challenge, "$")
	if len(tokens) != 5 {
		return Challenge{}, fmt.Errorf(
			"%w: challenge %q has %d fields, expected 5",
			ErrProtocol, challenge, len(tokens),
		)
	}

	version, err := strconv.Atoi(tokens[0])
	if err != nil {
		return Challenge{}, fmt.Errorf("%w: challenge version %q is not an integer", ErrProtocol, tokens[0])
	}
	if version != SupportedVersion {
		return Challenge{}, fmt.Errorf("%w: login version %d is not supported", ErrProtocol, version)
	}

	iter1, err := parseIterations("iter1", tokens[1])
	if err != nil {
		return Challenge{}, err
	}
	salt1, err := parseSalt("salt1", tokens[2])
	if err != nil {
		return Challenge{}, err
	}
	iter2, err := parseIterations("iter2", tokens[3])
	if err != nil {
		return Challenge{}, err
	}
	salt2, err := parseSalt("salt2", tokens[4])
	if err != nil {
		return Challenge{}, err
	}

	return Challenge{
		Version: version,
		Iter1:   iter1,
		Salt1:   salt1,
		Iter2:   iter2,
		Salt2:   salt2,
	}, nil
}

// Response computes `hex(salt2)$hex(hash2)` where
// hash1 = PBKDF2-HMAC-SHA256(password, salt1, iter1) and
// hash2 = PBKDF2-HMAC-SHA256(hash1, salt2, iter2).
func (c Challenge) Response(password string) string {
	hash1 := pbkdf2.Key([]byte(password), c.Salt1, c.Iter1, sha256.Size, sha256.New)
	hash2 := pbkdf2.Key(hash1, c.Salt2, c.Iter2, sha256.Size, sha256.New)
	return fmt.Sprintf("%s$%s", hex.EncodeToString(c.Salt2), hex.EncodeToString(hash2))
}
