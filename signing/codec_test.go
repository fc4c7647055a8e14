package signing

import (
	"crypto/rand"
	"crypto/rsa"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return NewCodec(key)
}

func splitSigned(t *testing.T, signed string) (path, signature string) {
	t.Helper()
	idx := strings.Index(signed, "?signature=")
	require.NotEqual(t, -1, idx, "signed path must carry a signature parameter")
	return signed[:idx], signed[idx+len("?signature="):]
}

func TestSignVerifyRoundTrip(t *testing.T) {
	codec := testCodec(t)

	path := "http://localhost:8080/items/abc/1700000000/full"
	signed, err := codec.Sign(path)
	require.NoError(t, err)

	gotPath, signature := splitSigned(t, signed)
	assert.Equal(t, path, gotPath)
	assert.True(t, codec.Verify(path, signature))
}

func TestVerifyRejectsTamperedPath(t *testing.T) {
	codec := testCodec(t)

	path := "http://localhost:8080/items/abc/1700000000/full"
	signed, err := codec.Sign(path)
	require.NoError(t, err)
	_, signature := splitSigned(t, signed)

	// flip a single character of the path
	tampered := path[:len(path)-1] + "x"
	require.NotEqual(t, path, tampered)
	assert.False(t, codec.Verify(tampered, signature))
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	codec := testCodec(t)

	assert.False(t, codec.Verify("/items/x", "not-hex"))
	assert.False(t, codec.Verify("/items/x", "deadbeef"))
	assert.False(t, codec.Verify("/items/x", ""))
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	codec := testCodec(t)
	other := testCodec(t)

	signed, err := other.Sign("/items/x")
	require.NoError(t, err)
	_, signature := splitSigned(t, signed)

	assert.False(t, codec.Verify("/items/x", signature))
}

func TestSignItemURLsEmbedsFutureExpiry(t *testing.T) {
	codec := testCodec(t)
	itemID := uuid.New()

	urls, err := codec.SignItemURLs("http://localhost:8080", itemID, time.Hour)
	require.NoError(t, err)

	for _, signed := range []string{urls.Full, urls.Cover} {
		path, signature := splitSigned(t, signed)
		assert.True(t, codec.Verify(path, signature))

		parsed, err := url.Parse(path)
		require.NoError(t, err)
		segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		require.Len(t, segments, 4)
		assert.Equal(t, "items", segments[0])
		assert.Equal(t, itemID.String(), segments[1])

		expiry, err := strconv.ParseInt(segments[2], 10, 64)
		require.NoError(t, err)
		assert.Greater(t, expiry, time.Now().Unix())
	}
}

func TestExpiredSignatureStillVerifiesButIsStale(t *testing.T) {
	// the signature check alone does not imply freshness; the caller
	// must additionally reject paths whose embedded expiry has passed
	codec := testCodec(t)

	expiry := time.Now().Add(-time.Minute).Unix()
	path := "http://localhost:8080/items/abc/" + strconv.FormatInt(expiry, 10) + "/full"
	signed, err := codec.Sign(path)
	require.NoError(t, err)
	_, signature := splitSigned(t, signed)

	assert.True(t, codec.Verify(path, signature))
	assert.Less(t, expiry, time.Now().Unix())
}
