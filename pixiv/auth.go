package pixiv

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultAuthURL = "https://oauth.secure.pixiv.net/auth/token"
	clientID       = "MOBrBDS8blbauoSck0ZfDbtuzpyT"
	clientSecret   = "lsACyCD94FhDUtGTXi3QzcFE2uU1hqtDaKeqrdwj"

	// Sessions are treated as expired a little early so a token never dies
	// mid-request.
	expiryMargin = 5 * time.Minute
)

// Session is a short-lived access token derived from the refresh token.
// Replaced wholesale on every refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

// Authenticator owns the cached session and exchanges the refresh token for
// access tokens as needed. It is not safe for concurrent use; the downloader
// runs strictly sequentially.
type Authenticator struct {
	http         *resty.Client
	logger       *zap.Logger
	authURL      string
	refreshToken string
	session      *Session
	now          func() time.Time
}

// AuthOptions configures an Authenticator. TokenURL defaults to the platform
// oauth endpoint.
type AuthOptions struct {
	RefreshToken string
	TokenURL     string
}

func NewAuthenticator(http *resty.Client, opts AuthOptions, logger *zap.Logger) *Authenticator {
	if opts.TokenURL == "" {
		opts.TokenURL = defaultAuthURL
	}
	return &Authenticator{
		http:         http,
		logger:       logger,
		authURL:      opts.TokenURL,
		refreshToken: opts.RefreshToken,
		now:          time.Now,
	}
}

// GetValidSession returns the cached session, refreshing first when the cache
// is empty or expired. At most one refresh call happens per invocation.
func (a *Authenticator) GetValidSession(ctx context.Context) (*Session, error) {
	if a.session != nil && a.now().Before(a.session.ExpiresAt) {
		return a.session, nil
	}
	return a.refresh(ctx)
}

// OnUnauthorized drops the cached session after a request observed a 401,
// forcing the next GetValidSession to refresh.
func (a *Authenticator) OnUnauthorized() {
	a.session = nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

func (a *Authenticator) refresh(ctx context.Context) (*Session, error) {
	if a.refreshToken == "" {
		return nil, &AuthError{Message: "no refresh token configured, set PIXIV_REFRESH_TOKEN or pass --token"}
	}

	a.logger.Debug("refreshing access token", zap.String("refresh_token", maskToken(a.refreshToken)))

	var token tokenResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":      clientID,
			"client_secret":  clientSecret,
			"get_secure_url": "true",
			"grant_type":     "refresh_token",
			"refresh_token":  a.refreshToken,
		}).
		SetResult(&token).
		ForceContentType("application/json").
		Post(a.authURL)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &AuthError{
			StatusCode: resp.StatusCode(),
			Message:    truncate(strings.TrimSpace(resp.String()), 200),
		}
	}

	// The platform rotates the refresh token on every exchange.
	if token.RefreshToken != "" {
		a.refreshToken = token.RefreshToken
	}

	a.session = &Session{
		AccessToken:  token.AccessToken,
		RefreshToken: a.refreshToken,
		UserID:       token.User.ID,
		ExpiresAt:    a.now().Add(time.Duration(token.ExpiresIn)*time.Second - expiryMargin),
	}

	a.logger.Info("access token refreshed",
		zap.String("user_id", a.session.UserID),
		zap.Time("expires_at", a.session.ExpiresAt),
	)

	return a.session, nil
}

func maskToken(token string) string {
	if len(token) <= 10 {
		return "***"
	}
	return token[:5] + "..." + token[len(token)-5:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
