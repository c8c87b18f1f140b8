// Package fritzboxtest provides an in-process fake of the router's web
// interface for tests.
package fritzboxtest

import (
	"encoding/xml"
	"fmt"
	"fritzy-backend/lib/platforms/fritzbox/core"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const (
	DefaultUsername = "fritz1234"
	DefaultPassword = "1example!"
	// iteration counts are far below a real router's to keep tests fast
	DefaultChallenge = "2$1000$5A1711$100$5A1722"
	DefaultSid       = core.SessionId("1a2b3c4d5e6f7a8b")
)

// Call is a single request received by a Router.
type Call struct {
	Method string
	Path   string
	Form   map[string]string
}

// Router fakes login_sid.lua and data.lua. Status fields that are zero
// answer with 200.
type Router struct {
	Username  string
	Password  string
	Challenge string
	BlockTime int
	Sid       core.SessionId
	// NetCntPage is the body answered for page=netCnt.
	NetCntPage []byte

	ChallengeStatus int
	ResponseStatus  int
	LogoutStatus    int
	StatsStatus     int

	// OnCall is invoked for every request before it is answered.
	OnCall func(call Call)

	server *httptest.Server
	mutex  sync.Mutex
	calls  []Call
}

func NewRouter(t testing.TB) *Router {
	r := &Router{
		Username:  DefaultUsername,
		Password:  DefaultPassword,
		Challenge: DefaultChallenge,
		Sid:       DefaultSid,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/login_sid.lua", r.handleLogin)
	mux.HandleFunc("/data.lua", r.handleData)
	r.server = httptest.NewServer(mux)
	t.Cleanup(r.server.Close)
	return r
}

// URL is the base url of the router, with a trailing slash like the
// router's default address.
func (r *Router) URL() string {
	return r.server.URL + "/"
}

func (r *Router) Calls() []Call {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *Router) record(req *http.Request) Call {
	err := req.ParseForm()
	form := map[string]string{}
	if err == nil {
		for key := range req.PostForm {
			form[key] = req.PostForm.Get(key)
		}
	}
	call := Call{Method: req.Method, Path: req.URL.Path, Form: form}

	r.mutex.Lock()
	r.calls = append(r.calls, call)
	r.mutex.Unlock()

	if r.OnCall != nil {
		r.OnCall(call)
	}
	return call
}

func status(code int) int {
	if code == 0 {
		return http.StatusOK
	}
	return code
}

func (r *Router) writeSessionInfo(w http.ResponseWriter, code int, info core.SessionInfo) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status(code))
	body, err := xml.Marshal(info)
	if err != nil {
		panic(err)
	}
	w.Write([]byte(xml.Header))
	w.Write(body)
}

func (r *Router) expectedResponse() string {
	challenge, err := core.ParseChallenge(r.Challenge)
	if err != nil {
		return ""
	}
	return challenge.Response(r.Password)
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	call := r.record(req)
	if req.URL.Query().Get("version") != "2" {
		http.Error(w, "unsupported version", http.StatusBadRequest)
		return
	}
	invalid := core.SessionInfo{
		SID:       string(core.InvalidSessionId),
		Challenge: r.Challenge,
		BlockTime: r.BlockTime,
	}

	switch {
	case req.Method == http.MethodGet:
		r.writeSessionInfo(w, r.ChallengeStatus, invalid)
	case req.Method == http.MethodPost && call.Form["logout"] == "1":
		w.WriteHeader(status(r.LogoutStatus))
		fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?><SessionInfo><SID>0000000000000000</SID></SessionInfo>`)
	case req.Method == http.MethodPost:
		if call.Form["username"] != r.Username || call.Form["response"] != r.expectedResponse() {
			r.writeSessionInfo(w, r.ResponseStatus, invalid)
			return
		}
		r.writeSessionInfo(w, r.ResponseStatus, core.SessionInfo{
			SID:   string(r.Sid),
			Users: []core.User{{Name: r.Username, Last: 1}},
		})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (r *Router) handleData(w http.ResponseWriter, req *http.Request) {
	call := r.record(req)
	if req.Method != http.MethodPost || call.Form["sid"] != string(r.Sid) || call.Form["page"] != "netCnt" {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status(r.StatsStatus))
	w.Write(r.NetCntPage)
}
