package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Codec produces and verifies expiring, tamper-proof access links for
// derived asset paths. A signed path carries a hex signature of
// SHA-256(path) in a query parameter; the expiry is a path segment and
// therefore covered by the same signature. A link is valid only when
// both the signature verifies and the expiry lies in the future.
type Codec struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// LoadCodec reads the PEM-encoded RSA key pair from disk once at
// startup. The key pair is immutable for the process lifetime.
func LoadCodec(privateKeyPath, publicKeyPath string) (*Codec, error) {
	privPEM, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key '%s': %w", privateKeyPath, err)
	}
	private, err := parsePrivateKey(privPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key '%s': %w", privateKeyPath, err)
	}

	pubPEM, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key '%s': %w", publicKeyPath, err)
	}
	public, err := parsePublicKey(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key '%s': %w", publicKeyPath, err)
	}

	return &Codec{private: private, public: public}, nil
}

// NewCodec wraps an in-memory key pair, mainly for tests.
func NewCodec(private *rsa.PrivateKey) *Codec {
	return &Codec{private: private, public: &private.PublicKey}
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return key, nil
}

func parsePublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return key, nil
}

// Sign appends a signature query parameter to the given path. The
// signature covers the path string exactly as presented, including any
// embedded item id and expiry segments.
func (c *Codec) Sign(path string) (string, error) {
	digest := sha256.Sum256([]byte(path))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.private, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign path: %w", err)
	}
	return fmt.Sprintf("%s?signature=%s", path, hex.EncodeToString(signature)), nil
}

// Verify reports whether signatureHex is a valid signature of path.
// Malformed hex, a key mismatch, or a tampered path all yield false;
// Verify never fails upward. Freshness is the caller's second check.
func (c *Codec) Verify(path, signatureHex string) bool {
	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(path))
	return rsa.VerifyPKCS1v15(c.public, crypto.SHA256, digest[:], signature) == nil
}

// ItemURLs is the pair of signed asset links handed out for an item.
type ItemURLs struct {
	Full  string `json:"path"`
	Cover string `json:"cover_path"`
}

// SignItemURLs builds the full and cover asset links for an item with
// an expiry ttl from now, and signs both.
func (c *Codec) SignItemURLs(baseURL string, itemID uuid.UUID, ttl time.Duration) (ItemURLs, error) {
	expiry := time.Now().Add(ttl).Unix()

	full, err := c.Sign(fmt.Sprintf("%s/items/%s/%d/full", baseURL, itemID, expiry))
	if err != nil {
		return ItemURLs{}, err
	}
	cover, err := c.Sign(fmt.Sprintf("%s/items/%s/%d/cover", baseURL, itemID, expiry))
	if err != nil {
		return ItemURLs{}, err
	}
	return ItemURLs{Full: full, Cover: cover}, nil
}
