package core

import (
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strings"
)

// InvalidSessionId is what the router answers with when a login was rejected.
const InvalidSessionId SessionId = "0000000000000000"

// SessionId is the 16 hex character token proving an authenticated session.
type SessionId string

// SessionInfo is the document returned by every call to login_sid.lua.
type SessionInfo struct {
	XMLName   xml.Name `xml:"SessionInfo"`
	SID       string   `xml:"SID"`
	Challenge string   `xml:"Challenge"`
	BlockTime int      `xml:"BlockTime"`
	Users     []User   `xml:"Users>User"`
	Rights    []Right  `xml:"Rights>Name"`
}

type User struct {
	Name string `xml:",chardata"`
	Last int    `xml:"last,attr"`
}

type Right struct {
	Name string `xml:",chardata"`
}

func parseSessionInfo(body []byte) (SessionInfo, error) {
	var info SessionInfo
	err := xml.Unmarshal(body, &info)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("%w: decode session info: %v", ErrProtocol, err)
	}
	if info.BlockTime < 0 {
		return SessionInfo{}, fmt.Errorf("%w: negative block time %d", ErrProtocol, info.BlockTime)
	}
	return info, nil
}

// SessionId validates the SID field, the all-zero sentinel (and an empty
// field) fails with ErrAuth, anything else that is not 16 hex characters
// fails with ErrProtocol.
func (s SessionInfo) SessionId() (SessionId, error) {
	sid := strings.TrimSpace(s.SID)
	if sid == "" || SessionId(sid) == InvalidSessionId {
		if s.BlockTime > 0 {
			return "", fmt.Errorf("%w: wrong username or password, blocked for %ds", ErrAuth, s.BlockTime)
		}
		return "", fmt.Errorf("%w: wrong username or password", ErrAuth)
	}
	if len(sid) != len(InvalidSessionId) {
		return "", fmt.Errorf("%w: session id has %d characters, expected 16", ErrProtocol, len(sid))
	}
	_, err := hex.DecodeString(sid)
	if err != nil {
		return "", fmt.Errorf("%w: session id is not hex", ErrProtocol)
	}
	return SessionId(sid), nil
}
