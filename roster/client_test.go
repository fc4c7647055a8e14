package roster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashIsStableHex(t *testing.T) {
	data := []byte("same bytes")

	first := ContentHash(data)
	second := ContentHash(data)

	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
	assert.NotContains(t, first, "-")
}

func TestContentHashDiffersForDifferentBytes(t *testing.T) {
	assert.NotEqual(t, ContentHash([]byte("a")), ContentHash([]byte("b")))
}

func TestIdentityIDIsDeterministic(t *testing.T) {
	m := Member{ID: 42}

	first := m.IdentityID()
	second := Member{ID: 42, Name: "different name"}.IdentityID()

	assert.Equal(t, first, second)
	assert.Equal(t, "00000000-0000-0000-0000-00000000002a", first.String())
}

func TestIdentityIDDiffersPerMember(t *testing.T) {
	assert.NotEqual(t, Member{ID: 1}.IdentityID(), Member{ID: 2}.IdentityID())
}

func TestListMembersFetchesTokenThenRoster(t *testing.T) {
	var tokenCalls, rosterCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
		rosterCalls++
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 7, "first_name": "Ann", "photo": "https://example.test/ann.jpg"},
			{"id": 8, "first_name": "Bob", "photo": "https://example.test/bob.jpg"},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL+"/members", server.URL+"/token", "id", "secret")
	members, err := client.ListMembers(context.Background())

	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, int64(7), members[0].ID)
	assert.Equal(t, "Ann", members[0].Name)
	assert.Equal(t, "https://example.test/ann.jpg", members[0].PhotoURL)
	assert.Equal(t, 1, tokenCalls)
	assert.Equal(t, 1, rosterCalls)
}

func TestListMembersFailsOnUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "t", "token_type": "bearer"})
	})
	mux.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL+"/members", server.URL+"/token", "id", "secret")
	_, err := client.ListMembers(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestDownloadPhoto(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg bytes"))
	}))
	defer server.Close()

	client := NewClient("", "", "", "")
	data, err := client.DownloadPhoto(context.Background(), server.URL+"/photo.jpg")

	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), data)
}

func TestDownloadPhotoRejectsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient("", "", "", "")
	_, err := client.DownloadPhoto(context.Background(), server.URL+"/missing.jpg")

	require.Error(t, err)
}
