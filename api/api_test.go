package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/memoirhq/memoir/pkg/blob/local"
	"github.com/memoirhq/memoir/pkg/committer"
	"github.com/memoirhq/memoir/pkg/extract"
	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/pages"
	pagesmem "github.com/memoirhq/memoir/pkg/pages/inmemory"
	storagemem "github.com/memoirhq/memoir/pkg/storage/inmemory"
)

const testSecret = "test-secret"

// scriptedModel feeds canned responses to the extractor, in order.
type scriptedModel struct {
	mu        sync.Mutex
	responses []string
	err       error
}

func (m *scriptedModel) push(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response)
}

func (m *scriptedModel) call(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func signToken(uid, name string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  uid,
		"name": name,
	})
	signed, err := token.SignedString([]byte(testSecret))
	Expect(err).NotTo(HaveOccurred())
	return signed
}

var _ = Describe("Server", func() {
	var (
		server *Server
		store  *storagemem.Driver
		model  *scriptedModel
		ref    time.Time
	)

	BeforeEach(func() {
		ref = time.Date(2026, 2, 18, 15, 0, 0, 0, time.UTC)

		store = storagemem.NewDriver()
		model = &scriptedModel{}
		pageSvc := pages.NewService(pagesmem.NewStore(), zap.NewNop())
		cmt := committer.New(store, extract.NewExtractor(model.call), zap.NewNop())

		var err error
		server, err = NewServer(
			Config{ListenAddr: ":0", JWTSecret: testSecret},
			store, pageSvc, cmt, zap.NewNop(),
			WithClock(func() time.Time { return ref }),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	request := func(method, path, token string, body any) *http.Response {
		var reader io.Reader
		if body != nil {
			encoded, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(encoded)
		}
		req := httptest.NewRequest(method, path, reader)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response) map[string]any {
		defer resp.Body.Close()
		var out map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
		return out
	}

	createPage := func(token, slug, title, visibility string) {
		resp := request("POST", "/pages", token, CreatePageRequest{
			Slug: slug, Title: title, Visibility: visibility,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		resp.Body.Close()
	}

	Describe("health", func() {
		It("responds on /healthz", func() {
			resp := request("GET", "/healthz", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decode(resp)).To(HaveKeyWithValue("status", "ok"))
		})

		It("serves routes behind an /api prefix", func() {
			resp := request("GET", "/api/healthz", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("authentication", func() {
		It("rejects unauthenticated writes", func() {
			resp := request("POST", "/pages", "", CreatePageRequest{Slug: "x", Title: "X", Visibility: "public"})
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("rejects tokens signed with the wrong secret", func() {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": "alice"})
			signed, err := token.SignedString([]byte("other-secret"))
			Expect(err).NotTo(HaveOccurred())

			resp := request("GET", "/users/me", signed, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("creates a personal page on first sight of a user", func() {
			resp := request("GET", "/users/me", signToken("alice", "Alice"), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body := decode(resp)
			Expect(body).To(HaveKeyWithValue("uid", "alice"))
			Expect(body).To(HaveKeyWithValue("display_name", "Alice"))
			Expect(body).To(HaveKeyWithValue("personal_slug", "u-alice"))
		})
	})

	Describe("page management", func() {
		var alice, bob string

		BeforeEach(func() {
			alice = signToken("alice", "Alice")
			bob = signToken("bob", "Bob")
		})

		It("creates and returns a page", func() {
			createPage(alice, "team", "Team Events", "public")

			resp := request("GET", "/pages/team", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body := decode(resp)
			Expect(body).To(HaveKeyWithValue("slug", "team"))
			Expect(body).To(HaveKeyWithValue("title", "Team Events"))
			Expect(body).To(HaveKeyWithValue("visibility", "public"))
			Expect(body["owners"]).To(ConsistOf("alice"))
		})

		It("rejects duplicate slugs", func() {
			createPage(alice, "team", "Team Events", "public")

			resp := request("POST", "/pages", bob, CreatePageRequest{Slug: "team", Title: "Other", Visibility: "public"})
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("rejects unknown visibility values", func() {
			resp := request("POST", "/pages", alice, CreatePageRequest{Slug: "x", Title: "X", Visibility: "secret"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("hides personal pages from everyone but their owners", func() {
			createPage(alice, "journal", "Journal", "personal")

			resp := request("GET", "/pages/journal", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			resp = request("GET", "/pages/journal", bob, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			resp = request("GET", "/pages/journal", alice, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("patches title and visibility for owners only", func() {
			createPage(alice, "team", "Team Events", "public")

			title := "Team Calendar"
			resp := request("PATCH", "/pages/team", bob, UpdatePageRequest{Title: &title})
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

			resp = request("PATCH", "/pages/team", alice, UpdatePageRequest{Title: &title})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decode(resp)).To(HaveKeyWithValue("title", "Team Calendar"))
		})

		It("soft-deletes and restores pages", func() {
			createPage(alice, "team", "Team Events", "public")

			resp := request("DELETE", "/pages/team", alice, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			resp = request("GET", "/pages/team", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			resp = request("POST", "/pages/team/restore", alice, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp = request("GET", "/pages/team", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("refuses to remove the last owner", func() {
			createPage(alice, "team", "Team Events", "public")

			resp := request("DELETE", "/pages/team/owners/alice", alice, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("lists the caller's pages", func() {
			createPage(alice, "team", "Team Events", "public")

			resp := request("GET", "/users/me/pages", alice, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body := decode(resp)
			listed, ok := body["pages"].([]any)
			Expect(ok).To(BeTrue())

			slugs := make([]string, 0, len(listed))
			for _, entry := range listed {
				page, ok := entry.(map[string]any)
				Expect(ok).To(BeTrue())
				slugs = append(slugs, page["slug"].(string))
			}
			Expect(slugs).To(ConsistOf("team", "u-alice"))
		})
	})

	Describe("invites", func() {
		var alice, bob string

		BeforeEach(func() {
			alice = signToken("alice", "Alice")
			bob = signToken("bob", "Bob")
			createPage(alice, "team", "Team Events", "public")
		})

		It("adds the accepting user as an owner", func() {
			resp := request("POST", "/pages/team/invites", alice, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			inviteID := decode(resp)["id"].(string)

			resp = request("POST", "/invites/"+inviteID+"/accept", bob, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decode(resp)["owners"]).To(ConsistOf("alice", "bob"))
		})

		It("rejects a second accept", func() {
			resp := request("POST", "/pages/team/invites", alice, nil)
			inviteID := decode(resp)["id"].(string)

			resp = request("POST", "/invites/"+inviteID+"/accept", bob, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()

			resp = request("POST", "/invites/"+inviteID+"/accept", signToken("carol", "Carol"), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("requires ownership to mint invites", func() {
			resp := request("POST", "/pages/team/invites", bob, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})
	})

	Describe("memories", func() {
		var alice string

		const createResponse = `{
			"action": "create",
			"target": "2026-03-05",
			"expires": "2026-04-04",
			"title": "Team Meeting",
			"slug": "team-meeting",
			"time": "10:00",
			"place": "Room A",
			"content": "Quarterly planning session."
		}`

		BeforeEach(func() {
			alice = signToken("alice", "Alice")
			createPage(alice, "team", "Team Events", "public")
		})

		It("commits a message into a memory", func() {
			model.push(createResponse)

			resp := request("POST", "/pages/team/memories", alice, CommitRequest{
				Message: "Team meeting March 5th at 10am in Room A",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			body := decode(resp)
			Expect(body).To(HaveKeyWithValue("action", "create"))

			mem, ok := body["memory"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(mem).To(HaveKeyWithValue("id", "2026-03-05-team-meeting"))
			Expect(mem).To(HaveKeyWithValue("target", "2026-03-05"))
			Expect(mem).To(HaveKeyWithValue("title", "Team Meeting"))
			Expect(mem).To(HaveKeyWithValue("place", "Room A"))
		})

		It("requires page ownership to commit", func() {
			resp := request("POST", "/pages/team/memories", signToken("bob", "Bob"), CommitRequest{
				Message: "hi",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})

		It("lists a page's live memories anonymously on public pages", func() {
			model.push(createResponse)
			resp := request("POST", "/pages/team/memories", alice, CommitRequest{Message: "meeting"})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			resp.Body.Close()

			resp = request("GET", "/pages/team/memories", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body := decode(resp)
			Expect(body).To(HaveKeyWithValue("count", float64(1)))
		})

		It("maps a failing model call to 502", func() {
			model.err = fmt.Errorf("model unavailable")

			resp := request("POST", "/pages/team/memories", alice, CommitRequest{Message: "meeting"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})

		It("maps an unusable extraction to 422", func() {
			model.push(`{"action": "teleport", "content": "x"}`)

			resp := request("POST", "/pages/team/memories", alice, CommitRequest{Message: "meeting"})
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		})

		It("deletes a memory by identity", func() {
			model.push(createResponse)
			resp := request("POST", "/pages/team/memories", alice, CommitRequest{Message: "meeting"})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			resp.Body.Close()

			resp = request("DELETE", "/pages/team/memories/2026-03-05-team-meeting", alice, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			records, err := store.LoadLive(context.Background(), memory.PageScope("team"), ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("refuses to delete a memory through the wrong page", func() {
			model.push(createResponse)
			resp := request("POST", "/pages/team/memories", alice, CommitRequest{Message: "meeting"})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			resp.Body.Close()

			createPage(alice, "other", "Other Page", "public")
			resp = request("DELETE", "/pages/other/memories/2026-03-05-team-meeting", alice, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("digest", func() {
		It("renders the page's memories as HTML", func() {
			alice := signToken("alice", "Alice")
			createPage(alice, "team", "Team Events", "public")

			model.push(`{
				"action": "create",
				"target": "2026-02-20",
				"expires": "2026-02-22",
				"title": "Friday Standup",
				"slug": "friday-standup",
				"content": "Weekly sync."
			}`)
			resp := request("POST", "/pages/team/memories", alice, CommitRequest{Message: "standup friday"})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			resp.Body.Close()

			resp = request("GET", "/pages/team/digest", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("text/html"))

			html, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(html)).To(ContainSubstring("Team Events"))
			Expect(string(html)).To(ContainSubstring("Friday Standup"))
		})
	})

	Describe("attachments", func() {
		It("responds 501 when no blob store is configured", func() {
			alice := signToken("alice", "Alice")
			createPage(alice, "team", "Team Events", "public")

			req := httptest.NewRequest("POST", "/pages/team/attachments", strings.NewReader(""))
			req.Header.Set("Authorization", "Bearer "+alice)
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotImplemented))
		})

		It("stores uploads and returns their URL", func() {
			blobs, err := local.NewStore(GinkgoT().TempDir(), "http://localhost:8080/attachments")
			Expect(err).NotTo(HaveOccurred())

			pageSvc := pages.NewService(pagesmem.NewStore(), zap.NewNop())
			cmt := committer.New(store, extract.NewExtractor(model.call), zap.NewNop())
			server, err = NewServer(
				Config{ListenAddr: ":0", JWTSecret: testSecret},
				store, pageSvc, cmt, zap.NewNop(),
				WithBlobStore(blobs),
			)
			Expect(err).NotTo(HaveOccurred())

			alice := signToken("alice", "Alice")
			createPage(alice, "team", "Team Events", "public")

			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile("file", "poster.png")
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte("image-bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			req := httptest.NewRequest("POST", "/pages/team/attachments", &buf)
			req.Header.Set("Authorization", "Bearer "+alice)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			body := decode(resp)
			Expect(body["url"]).To(HavePrefix("http://localhost:8080/attachments/"))
			Expect(body["url"]).To(HaveSuffix(".png"))
		})
	})
})
