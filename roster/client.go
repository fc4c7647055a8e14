package roster

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2/clientcredentials"
)

// Member is one entry of the upstream roster: a known person with a
// reference photo. Members are fetched fresh on every reconciliation
// pass and never persisted.
type Member struct {
	ID       int64  `json:"id"`
	Name     string `json:"first_name"`
	PhotoURL string `json:"photo"`
}

// IdentityID derives the member's stable identity UUID from the
// upstream numeric id: the integer laid out big-endian in the UUID's
// 128 bits. The same upstream id always yields the same UUID.
func (m Member) IdentityID() uuid.UUID {
	var raw [16]byte
	binary.BigEndian.PutUint64(raw[8:], uint64(m.ID))
	return uuid.UUID(raw)
}

// ContentHash computes the change-detection fingerprint for a photo:
// the hex MD5 of its bytes. This is a cheap change detector, not a
// security primitive.
func ContentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Client talks to the upstream roster source over JSON-over-HTTPS with
// client-credentials OAuth2. A fresh token is obtained per pass; the
// token endpoint caches nothing here.
type Client struct {
	rosterURL  string
	oauth      clientcredentials.Config
	httpClient *http.Client
}

func NewClient(rosterURL, tokenURL, clientID, clientSecret string) *Client {
	return &Client{
		rosterURL: rosterURL,
		oauth: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ListMembers fetches the authoritative roster. A failure here aborts
// the whole reconciliation pass; the caller retries on the next tick.
func (c *Client) ListMembers(ctx context.Context) ([]Member, error) {
	token, err := c.oauth.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not obtain roster access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rosterURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create roster request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch roster: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster request failed with status %d", resp.StatusCode)
	}

	var members []Member
	if err := json.NewDecoder(resp.Body).Decode(&members); err != nil {
		return nil, fmt.Errorf("could not unmarshal roster response: %w", err)
	}

	return members, nil
}

// DownloadPhoto fetches a member's reference photo. Failures are
// per-member; the caller logs and moves to the next entry.
func (c *Client) DownloadPhoto(ctx context.Context, photoURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create photo request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not download photo '%s': %w", photoURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo download '%s' failed with status %d", photoURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read photo body: %w", err)
	}

	return data, nil
}
