package vk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadharvest/internal/domain"
)

// newTestServer routes /method/<name> to the given canned bodies.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(Config{BaseURL: srv.URL + "/method", Token: "test-token"}, srv.Client())
	return srv, client
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

func TestGroupMembersMapsTypedCandidates(t *testing.T) {
	var gotForm map[string]string
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/method/groups.getMembers": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotForm = map[string]string{
				"group_id":     r.PostForm.Get("group_id"),
				"offset":       r.PostForm.Get("offset"),
				"count":        r.PostForm.Get("count"),
				"fields":       r.PostForm.Get("fields"),
				"access_token": r.PostForm.Get("access_token"),
				"v":            r.PostForm.Get("v"),
			}
			io.WriteString(w, `{"response":{"count":2,"items":[
				{"id":1,"first_name":"Anna","last_name":"K","sex":1,"bdate":"15.03.2000",
				 "city":{"id":2,"title":"Saint Petersburg"},"can_write_private_message":1,
				 "online":0,"last_seen":{"time":1717200000,"platform":7},"has_mobile":1},
				{"id":2,"first_name":"DELETED","last_name":"","deactivated":"deleted"}
			]}}`)
		},
	})

	page, err := client.GroupMembers(context.Background(), "fitness", 200, 5000)
	require.NoError(t, err)

	assert.Equal(t, "fitness", gotForm["group_id"])
	assert.Equal(t, "200", gotForm["offset"])
	assert.Equal(t, "1000", gotForm["count"], "count is clamped to the API maximum")
	assert.Equal(t, MemberFields, gotForm["fields"])
	assert.Equal(t, "test-token", gotForm["access_token"])
	assert.Equal(t, DefaultVersion, gotForm["v"])

	require.Len(t, page.Items, 2)
	anna := page.Items[0]
	assert.Equal(t, int64(1), anna.ID)
	assert.Equal(t, domain.SexFemale, anna.Sex)
	assert.Equal(t, int64(2), anna.CityID)
	assert.Equal(t, "Saint Petersburg", anna.CityTitle)
	assert.True(t, anna.CanMessage)
	assert.True(t, anna.HasMobile)
	assert.False(t, anna.Online)
	require.NotNil(t, anna.LastSeenAt)
	assert.Equal(t, int64(1717200000), anna.LastSeenAt.Unix())
	assert.Equal(t, "https://vk.com/id1", anna.ProfileURL)

	assert.True(t, page.Items[1].IsDeactivated())
}

func TestAPIErrorClassification(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/method/groups.getMembers": respond(`{"error":{"error_code":15,"error_msg":"Access denied: group hide members"}}`),
		"/method/messages.send":     respond(`{"error":{"error_code":9,"error_msg":"Flood control"}}`),
		"/method/users.get":         respond(`{"error":{"error_code":5,"error_msg":"User authorization failed: user is blocked."}}`),
	})
	ctx := context.Background()

	_, err := client.GroupMembers(ctx, "closed", 0, 10)
	require.Error(t, err)
	assert.True(t, IsAccessDenied(err))
	assert.False(t, IsFloodControl(err))

	_, err = client.SendMessage(ctx, 1, "hi", nil, 42)
	require.Error(t, err)
	assert.True(t, IsFloodControl(err))
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "messages.send", apiErr.Method)

	_, err = client.CurrentUser(ctx)
	require.Error(t, err)
	assert.True(t, IsSenderBlocked(err))
	assert.True(t, IsAuthFailure(err))
}

func TestGroupHandlesBothResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"list", `{"response":[{"id":7,"name":"Fitness","screen_name":"fit","members_count":1200}]}`},
		{"wrapped", `{"response":{"groups":[{"id":7,"name":"Fitness","screen_name":"fit","members_count":1200}],"profiles":[]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newTestServer(t, map[string]http.HandlerFunc{
				"/method/groups.getById": respond(tt.body),
			})
			g, err := client.Group(context.Background(), "fit")
			require.NoError(t, err)
			assert.Equal(t, int64(7), g.ID)
			assert.Equal(t, 1200, g.MembersCount)
		})
	}
}

func TestWallPostsUsesNegativeOwnerForNumericGroups(t *testing.T) {
	var owner, domainParam string
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/method/wall.get": func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			owner = r.PostForm.Get("owner_id")
			domainParam = r.PostForm.Get("domain")
			io.WriteString(w, `{"response":{"count":1,"items":[{"id":10,"owner_id":-123,"date":1717200000,"text":"hello"}]}}`)
		},
	})

	posts, err := client.WallPosts(context.Background(), "123", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "-123", owner)
	assert.Empty(t, domainParam)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(1717200000), posts[0].Date.Unix())

	_, err = client.WallPosts(context.Background(), "moregorewear", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "moregorewear", domainParam)
}

func TestUploadMessagePhoto(t *testing.T) {
	var uploadedName string
	mux := http.NewServeMux()
	mux.HandleFunc("/method/photos.getMessagesUploadServer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"response":{"upload_url":%q}}`, "http://"+r.Host+"/upload")
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("photo")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		uploadedName = header.Filename
		io.WriteString(w, `{"server":1,"photo":"[{\"photo\":\"abc\"}]","hash":"h"}`)
	})
	mux.HandleFunc("/method/photos.saveMessagesPhoto", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("hash") != "h" {
			io.WriteString(w, `{"error":{"error_code":100,"error_msg":"bad hash"}}`)
			return
		}
		io.WriteString(w, `{"response":[{"id":456,"owner_id":123}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	client := NewClient(Config{BaseURL: srv.URL + "/method/", Token: "t"}, srv.Client())

	ref, err := client.UploadMessagePhoto(context.Background(), 99, "promo.jpg", []byte("jpegdata"))
	require.NoError(t, err)
	assert.Equal(t, "photo123_456", ref)
	assert.Equal(t, "promo.jpg", uploadedName)
}

func TestSendMessageJoinsAttachments(t *testing.T) {
	var attachment, randomID string
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/method/messages.send": func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			attachment = r.PostForm.Get("attachment")
			randomID = r.PostForm.Get("random_id")
			io.WriteString(w, `{"response":777}`)
		},
	})

	id, err := client.SendMessage(context.Background(), 5, "hi", []string{"photo1_2", "photo1_3"}, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(777), id)
	assert.Equal(t, "photo1_2,photo1_3", attachment)
	assert.Equal(t, "12345", randomID)
}

func TestMessageAvailability(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"/method/users.get": func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			assert.True(t, strings.Contains(r.PostForm.Get("user_ids"), "1,2"))
			io.WriteString(w, `{"response":[{"id":1,"can_write_private_message":1},{"id":2,"can_write_private_message":0}]}`)
		},
	})
	got, err := client.MessageAvailability(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{1: true, 2: false}, got)
}
