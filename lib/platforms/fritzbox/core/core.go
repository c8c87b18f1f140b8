package core

import (
	"context"
	"fmt"
	"fritzy-backend/internal/components/chrono"
	"fritzy-backend/internal/components/telemetry"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	report_client_login  = "client.login"
	report_client_logout = "client.logout"
)

const loginPath = "/login_sid.lua"

var tracer = otel.Tracer("platforms/fritzbox/core")

type HttpOptions struct {
	// Timeout is applied to every single request, defaults to 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond limits the request rate, defaults to 2.
	RequestsPerSecond float64
}

// NewHttpClient creates the resty client every fritzbox component talks through.
func NewHttpClient(opts HttpOptions, tel telemetry.API) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("user-agent", "fritzy/1.0")

	// the router's web server is slow, keep it from queueing up requests
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, "platforms/fritzbox/http", tel)
	return client
}

// ResolveUrl resolves an absolute `path` against `baseUrl`, replacing any
// path `baseUrl` might have.
func ResolveUrl(baseUrl, path string) (string, error) {
	base, err := url.Parse(baseUrl)
	if err != nil {
		return "", err
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", baseUrl)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// State is the progress of a single authentication cycle.
type State int

const (
	Unauthenticated State = iota
	ChallengeObtained
	ResponseComputed
	Authenticated
	LoggedOut
	Failed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case ChallengeObtained:
		return "challenge-obtained"
	case ResponseComputed:
		return "response-computed"
	case Authenticated:
		return "authenticated"
	case LoggedOut:
		return "logged-out"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type ClientOptions struct {
	BaseUrl  string
	Username string
	Password string
	// Http configures the transport built by NewClient when none is passed in.
	Http HttpOptions
	// Time defaults to chrono.StandardImpl in the host timezone.
	Time chrono.TimeAPI
}

// Client authenticates against login_sid.lua. It is meant for one
// authentication cycle at a time and is not safe for concurrent use.
type Client struct {
	loginUrl string
	username string
	password string

	http  *resty.Client
	time  chrono.TimeAPI
	tel   telemetry.API
	state State
}

func NewClient(opts ClientOptions, http *resty.Client, tel telemetry.API) (*Client, error) {
	tel = telemetry.NewScopedAPI("fritzbox_core", tel)

	loginUrl, err := ResolveUrl(opts.BaseUrl, loginPath)
	if err != nil {
		return nil, err
	}
	if http == nil {
		http = NewHttpClient(opts.Http, tel)
	}
	clock := opts.Time
	if clock == nil {
		clock, err = chrono.NewStandardImpl("")
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		loginUrl: loginUrl,
		username: opts.Username,
		password: opts.Password,
		http:     http,
		time:     clock,
		tel:      tel,
		state:    Unauthenticated,
	}, nil
}

func (c *Client) State() State {
	return c.state
}

func (c *Client) fail(err error) error {
	c.state = Failed
	c.tel.ReportBroken(report_client_login, err)
	return err
}

func (c *Client) sessionInfo(req *resty.Request, method string) (SessionInfo, error) {
	res, err := req.
		SetQueryParam("version", fmt.Sprint(SupportedVersion)).
		Execute(method, c.loginUrl)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, loginPath, err)
	}
	if !res.IsSuccess() {
		return SessionInfo{}, fmt.Errorf(
			"%w: %s %s: received status-code %d",
			ErrTransport, method, loginPath, res.StatusCode(),
		)
	}
	return parseSessionInfo(res.Body())
}

// Login runs the challenge-response handshake and returns the session id.
func (c *Client) Login(ctx context.Context) (SessionId, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	c.state = Unauthenticated

	info, err := c.sessionInfo(c.http.R().SetContext(ctx), resty.MethodGet)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch challenge")
		return "", c.fail(fmt.Errorf("get challenge: %w", err))
	}
	if info.Challenge == "" {
		span.SetStatus(codes.Error, "empty challenge")
		return "", c.fail(fmt.Errorf("%w: unable to find challenge in session info", ErrProtocol))
	}
	c.state = ChallengeObtained

	if info.BlockTime > 0 {
		wait := time.Duration(info.BlockTime) * time.Second
		c.tel.ReportDebug("waiting for block time", wait.String())
		span.AddEvent("block time", trace.WithAttributes(attribute.Int("seconds", info.BlockTime)))
		err = c.time.Sleep(ctx, wait)
		if err != nil {
			span.SetStatus(codes.Error, "interrupted while waiting for block time")
			return "", c.fail(fmt.Errorf("wait block time: %w", err))
		}
	}

	challenge, err := ParseChallenge(info.Challenge)
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse challenge")
		return "", c.fail(err)
	}
	response := challenge.Response(c.password)
	c.state = ResponseComputed

	info, err = c.sessionInfo(
		c.http.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"username": c.username,
				"response": response,
			}),
		resty.MethodPost,
	)
	if err != nil {
		span.SetStatus(codes.Error, "failed to post challenge response")
		return "", c.fail(fmt.Errorf("get session id: %w", err))
	}

	sid, err := info.SessionId()
	if err != nil {
		span.SetStatus(codes.Error, "invalid session id")
		return "", c.fail(err)
	}
	c.state = Authenticated
	return sid, nil
}

// Logout ends the session `sid`, whether the router tolerates logging out
// the same session twice is up to the router.
func (c *Client) Logout(ctx context.Context, sid SessionId) error {
	ctx, span := tracer.Start(ctx, "client:Logout")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("version", fmt.Sprint(SupportedVersion)).
		SetFormData(map[string]string{
			"username": c.username,
			"sid":      string(sid),
			"logout":   "1",
		}).
		Post(c.loginUrl)
	if err != nil {
		err = fmt.Errorf("%w: logout: %v", ErrTransport, err)
		span.SetStatus(codes.Error, "failed to post logout")
		c.tel.ReportBroken(report_client_logout, err)
		return err
	}
	if !res.IsSuccess() {
		err = fmt.Errorf("%w: unable to logout, received status-code %d", ErrTransport, res.StatusCode())
		span.SetStatus(codes.Error, "logout rejected")
		c.tel.ReportBroken(report_client_logout, err)
		return err
	}

	c.state = LoggedOut
	return nil
}
