package blink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/cweiture/blink-lapse/internal/auth"
)

// DefaultBaseURL is the login host. After login the client moves to the
// account's regional host (rest-<tier>.immedia-semi.com).
const DefaultBaseURL = "https://rest-prod.immedia-semi.com"

// The cloud rejects clients it does not recognize, so we present the same
// identity the official Android app does.
const (
	appBuild  = "ANDROID_28799573"
	userAgent = "27.0ANDROID_28799573"
)

const headerAuth = "TOKEN_AUTH"

// DefaultTimeout bounds every vendor call. The capture loop is a single
// sequential actor, so one stalled request with no deadline would wedge
// every camera and every tick behind it.
const DefaultTimeout = 30 * time.Second

type Client struct {
	HTTP   *resty.Client
	Config ClientConfig

	// Account identity, filled by Login or Resume.
	AccountID int
	ClientID  int
	Tier      string

	// pinnedHost keeps an explicit BaseURL (tests, proxies) from being
	// replaced by the tier host after login.
	pinnedHost bool
}

type ClientConfig struct {
	BaseURL  string        // optional override; empty means DefaultBaseURL
	UniqueID string        // stable per-install client ID; the cloud ties 2FA trust to it
	Timeout  time.Duration // per-request timeout, zero means DefaultTimeout
}

// LoginPayload matches the JSON body of POST /api/v5/account/login.
type LoginPayload struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	UniqueID         string `json:"unique_id"`
	DeviceIdentifier string `json:"device_identifier"`
	ClientName       string `json:"client_name"`
	Reauth           bool   `json:"reauth"`
}

// LoginResponse captures the account identity and token returned by login.
type LoginResponse struct {
	Account struct {
		AccountID                  int    `json:"account_id"`
		UserID                     int    `json:"user_id"`
		ClientID                   int    `json:"client_id"`
		Tier                       string `json:"tier"` // region shard, e.g. "prod", "u011"
		Region                     string `json:"region"`
		ClientVerificationRequired bool   `json:"client_verification_required"`
	} `json:"account"`
	Auth struct {
		Token string `json:"token"`
	} `json:"auth"`
}

// VerifyResponse is the body of the PIN verify call.
type VerifyResponse struct {
	Valid         bool   `json:"valid"`
	RequireNewPIN bool   `json:"require_new_pin"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
}

func New(cfg ClientConfig) *Client {
	pinned := cfg.BaseURL != ""
	if !pinned {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	r := resty.New()
	r.SetBaseURL(cfg.BaseURL)
	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("User-Agent", userAgent)
	r.SetHeader("APP-BUILD", appBuild)
	r.SetTimeout(cfg.Timeout)

	return &Client{
		HTTP:       r,
		Config:     cfg,
		pinnedHost: pinned,
	}
}

// Login authenticates with email and password, adopts the regional host
// and token for all future requests, and returns the full response so the
// caller can persist it and handle client verification.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	payload := LoginPayload{
		Email:            email,
		Password:         password,
		UniqueID:         c.Config.UniqueID,
		DeviceIdentifier: "blink-lapse",
		ClientName:       "Computer",
		Reauth:           true,
	}

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&LoginResponse{}).
		Post("/api/v5/account/login")

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		if isAuthStatus(resp.StatusCode()) {
			return nil, fmt.Errorf("%w: login: %s", ErrAuth, resp.String())
		}
		return nil, fmt.Errorf("login failed: %s", resp.String())
	}

	login, ok := resp.Result().(*LoginResponse)
	if !ok {
		return nil, errors.New("failed to parse login response")
	}

	if login.Auth.Token == "" {
		return nil, errors.New("login succeeded but no token returned")
	}

	c.adopt(login.Account.AccountID, login.Account.ClientID, login.Account.Tier, login.Auth.Token)
	return login, nil
}

// VerifyPIN completes client verification with the one-time PIN the cloud
// sent out of band. A rejected PIN is an auth failure.
func (c *Client) VerifyPIN(ctx context.Context, pin string) error {
	var respData VerifyResponse

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetBody(map[string]string{"pin": pin}).
		SetResult(&respData).
		Post(fmt.Sprintf("/api/v4/account/%d/client/%d/pin/verify", c.AccountID, c.ClientID))

	if err != nil {
		return err
	}

	if resp.IsError() {
		if isAuthStatus(resp.StatusCode()) {
			return fmt.Errorf("%w: pin verify: %s", ErrAuth, resp.String())
		}
		return fmt.Errorf("pin verify failed: %s", resp.String())
	}

	if !respData.Valid {
		return fmt.Errorf("%w: pin rejected: %s", ErrAuth, respData.Message)
	}

	return nil
}

// Resume adopts a previously issued token without a login round trip.
// Whether the token still works is discovered by the first call made with it.
func (c *Client) Resume(creds *auth.Credentials) {
	c.adopt(creds.AccountID, creds.ClientID, creds.Tier, creds.Token)
}

func (c *Client) adopt(accountID, clientID int, tier, token string) {
	c.AccountID = accountID
	c.ClientID = clientID
	c.Tier = tier
	c.HTTP.SetHeader(headerAuth, token)
	if tier != "" && !c.pinnedHost {
		c.HTTP.SetBaseURL(fmt.Sprintf("https://rest-%s.immedia-semi.com", tier))
	}
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// Connector dials authenticated sessions. Each Dial is one authentication
// attempt: resume the cached token when one exists, otherwise perform an
// interactive login. A rejected cached token is dropped, so the caller's
// next Dial reaches the login path.
type Connector struct {
	Config   ClientConfig
	Email    string // optional, from flags or env; empty means prompt
	Password string
	Store    *auth.Store
	Prompt   auth.Provider
	Settle   time.Duration
}

// Dial returns a refreshed session or ErrAuth when the attempt was
// rejected. Callers decide how often to retry.
func (cn *Connector) Dial(ctx context.Context) (*Session, error) {
	creds := cn.Store.Load()

	uniqueID := ""
	if creds != nil {
		uniqueID = creds.UniqueID
	}
	if uniqueID == "" {
		uniqueID = auth.NewUniqueID()
	}

	cfg := cn.Config
	cfg.UniqueID = uniqueID
	c := New(cfg)

	if creds != nil && creds.Token != "" {
		c.Resume(creds)
		s := &Session{Client: c, Settle: cn.Settle}
		err := s.Refresh(ctx)
		if err == nil {
			return s, nil
		}
		if errors.Is(err, ErrAuth) {
			// Drop the token but keep the unique client ID: it is the
			// identity 2FA trust hangs off, not the token.
			log.Warn().Str("email", creds.Email).Msg("cached token rejected")
			creds.Token = ""
			if serr := cn.Store.Save(creds); serr != nil {
				log.Warn().Err(serr).Msg("failed to clear cached token")
			}
		}
		return nil, err
	}

	return cn.login(ctx, c, uniqueID)
}

// login performs the interactive path: prompt for anything not configured,
// authenticate, verify the client when the account demands it, and rewrite
// the credential cache.
func (cn *Connector) login(ctx context.Context, c *Client, uniqueID string) (*Session, error) {
	email, password := cn.Email, cn.Password
	if email == "" || password == "" {
		if cn.Prompt == nil {
			return nil, errors.New("no credentials configured and no prompt available")
		}
		var err error
		email, password, err = cn.Prompt.Credentials(ctx)
		if err != nil {
			return nil, err
		}
	}

	login, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if login.Account.ClientVerificationRequired {
		if cn.Prompt == nil {
			return nil, Err2FARequired
		}
		pin, err := cn.Prompt.PIN(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.VerifyPIN(ctx, pin); err != nil {
			return nil, err
		}
	}

	saved := &auth.Credentials{
		Email:     email,
		Token:     login.Auth.Token,
		AccountID: login.Account.AccountID,
		ClientID:  login.Account.ClientID,
		Tier:      login.Account.Tier,
		UniqueID:  uniqueID,
	}
	if err := cn.Store.Save(saved); err != nil {
		// A dead cache costs one extra login next run, not the capture.
		log.Warn().Err(err).Str("path", cn.Store.Path).Msg("failed to save credentials")
	}

	s := &Session{Client: c, Settle: cn.Settle}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
