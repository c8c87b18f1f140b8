package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// pbkdf2SingleBlock is the textbook definition of PBKDF2 for a derived key
// that fits into a single digest.
func pbkdf2SingleBlock(password, salt []byte, iterations int) []byte {
	block := make([]byte, 4)
	binary.BigEndian.PutUint32(block, 1)

	mac := hmac.New(sha256.New, password)
	mac.Write(salt)
	mac.Write(block)
	u := mac.Sum(nil)

	out := make([]byte, len(u))
	copy(out, u)
	for i := 1; i < iterations; i++ {
		mac = hmac.New(sha256.New, password)
		mac.Write(u)
		u = mac.Sum(nil)
		for j := range out {
			out[j] ^= u[j]
		}
	}
	return out
}

func TestParseChallenge(t *testing.T) {
	challenge, err := ParseChallenge("2$10000$5A1711$2000$5A1722\n")
	require.NoError(t, err)
	require.Equal(t, Challenge{
		Version: 2,
		Iter1:   10000,
		Salt1:   []byte{0x5a, 0x17, 0x11},
		Iter2:   2000,
		Salt2:   []byte{0x5a, 0x17, 0x22},
	}, challenge)
}

func TestParseChallengeInvalid(t *testing.T) {
	cases := []string{
		"",
		"2",
		"2$10000$5A1711$2000",
		"2$10000$5A1711$2000$5A1722$00",
		"1$10000$5A1711$2000$5A1722",
		"3$10000$5A1711$2000$5A1722",
		"v2$10000$5A1711$2000$5A1722",
		"2$abc$5A1711$2000$5A1722",
		"2$0$5A1711$2000$5A1722",
		"2$10000$5A1711$-1$5A1722",
		"2$10000$XYZ$2000$5A1722",
		"2$10000$5A1711$2000$5A172",
		// legacy md5 challenges have no separators at all
		"1234567z",
	}
	for _, test := range cases {
		_, err := ParseChallenge(test)
		require.ErrorIs(t, err, ErrProtocol, test)
	}
}

func TestChallengeResponse(t *testing.T) {
	challenge, err := ParseChallenge("2$10000$5A1711$2000$5A1722")
	if err != nil {
		t.Fatal(err)
	}

	password := "1example!"
	hash1 := pbkdf2SingleBlock([]byte(password), challenge.Salt1, challenge.Iter1)
	hash2 := pbkdf2SingleBlock(hash1, challenge.Salt2, challenge.Iter2)
	expected := "5a1722$" + hex.EncodeToString(hash2)

	response := challenge.Response(password)
	require.Equal(t, expected, response)
	require.Equal(t, response, challenge.Response(password))
	require.NotEqual(t, response, challenge.Response("2example!"))

	parts := strings.Split(response, "$")
	require.Len(t, parts, 2)
	require.Len(t, parts[1], 64)
}

func TestSessionInfoSessionId(t *testing.T) {
	cases := []struct {
		sid         string
		blockTime   int
		expectedSid SessionId
		expectedErr error
	}{
		{sid: "0123456789abcdef", expectedSid: "0123456789abcdef"},
		{sid: "  0123456789abcdef\n", expectedSid: "0123456789abcdef"},
		{sid: "0000000000000000", expectedErr: ErrAuth},
		{sid: "\n\t0000000000000000  ", expectedErr: ErrAuth},
		{sid: "0000000000000000", blockTime: 8, expectedErr: ErrAuth},
		{sid: "", expectedErr: ErrAuth},
		{sid: "0123", expectedErr: ErrProtocol},
		{sid: "0123456789abcdeg", expectedErr: ErrProtocol},
	}
	for _, test := range cases {
		sid, err := SessionInfo{SID: test.sid, BlockTime: test.blockTime}.SessionId()
		if test.expectedErr != nil {
			require.ErrorIs(t, err, test.expectedErr, test.sid)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, test.expectedSid, sid)
	}
}

func TestParseSessionInfo(t *testing.T) {
	info, err := parseSessionInfo([]byte(`<?xml version="1.0" encoding="utf-8"?>
<SessionInfo>
	<SID>0000000000000000</SID>
	<Challenge>2$60000$0123abcd$6000$4567ef01</Challenge>
	<BlockTime>5</BlockTime>
	<Rights></Rights>
	<Users><User last="1">fritz1234</User><User>admin</User></Users>
</SessionInfo>`))
	require.NoError(t, err)
	require.Equal(t, "2$60000$0123abcd$6000$4567ef01", info.Challenge)
	require.Equal(t, 5, info.BlockTime)
	require.Equal(t, []User{{Name: "fritz1234", Last: 1}, {Name: "admin"}}, info.Users)

	_, err = parseSessionInfo([]byte("<html>not a session</html>"))
	require.ErrorIs(t, err, ErrProtocol)

	_, err = parseSessionInfo([]byte("<SessionInfo><BlockTime>-1</BlockTime></SessionInfo>"))
	require.ErrorIs(t, err, ErrProtocol)
}
