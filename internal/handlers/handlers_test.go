package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtyhub/internal/metrics"
	"realtyhub/internal/middleware"
	"realtyhub/internal/models"
	"realtyhub/internal/ratelimit"
	"realtyhub/internal/rbac"
	"realtyhub/internal/repository/memory"
	"realtyhub/internal/security"
	"realtyhub/internal/service"
	"realtyhub/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var cheapHash = security.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

type objects struct {
	mu     sync.Mutex
	data   map[string][]byte
	putErr error
}

func (o *objects) Bucket() string { return "property-images" }

func (o *objects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.putErr != nil {
		return o.putErr
	}
	o.data[key] = b
	return nil
}

func (o *objects) Remove(_ context.Context, key string) error {
	o.mu.Lock()
	delete(o.data, key)
	o.mu.Unlock()
	return nil
}

func (o *objects) PublicURL(key string) string {
	return "http://objects.local/property-images/" + key
}

type testAPI struct {
	t       *testing.T
	engine  *gin.Engine
	stores  service.Stores
	tokens  *security.TokenService
	objects *objects
	users   map[models.UserRole]models.User
}

func newTestAPI(t *testing.T, opts ...Option) *testAPI {
	t.Helper()
	db := memory.New()
	stores := service.MemoryStores(db)
	tokens, err := security.NewTokenService("0123456789abcdef0123456789abcdef", 24*time.Hour)
	require.NoError(t, err)
	objs := &objects{data: make(map[string][]byte)}
	log := zerolog.Nop()

	svc := Services{
		Auth:         service.NewAuthService(stores.Users, stores.Grants, tokens, log),
		Users:        service.NewUserService(stores.Users, stores.Grants, log),
		Properties:   service.NewPropertyService(stores.Properties, stores.Agents, log),
		Agents:       service.NewAgentService(stores.Agents, log),
		Contacts:     service.NewContactService(stores.Contacts, stores.Properties, stores.Agents, nil, log),
		Testimonials: service.NewTestimonialService(stores.Testimonials, log),
		Analytics:    service.NewAnalyticsService(stores.Analytics, stores.Views, stores.Properties, log),
		Uploads:      service.NewUploadService(stores.Uploads, objs, nil, 1<<20, log),
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(middleware.RequestID())
	engine.NoRoute(NotFound)
	engine.NoMethod(MethodNotAllowed)
	NewHandlerSet(log, svc, opts...).Register(engine.Group("/api"))

	api := &testAPI{t: t, engine: engine, stores: stores, tokens: tokens, objects: objs, users: make(map[models.UserRole]models.User)}
	for _, role := range rbac.Roles() {
		api.users[role] = api.seed(string(role), string(role)+"@example.com", "secret123", role)
	}
	return api
}

func (a *testAPI) seed(id, email, password string, role models.UserRole) models.User {
	a.t.Helper()
	hash, err := security.HashPasswordWithParams(password, cheapHash)
	require.NoError(a.t, err)
	u := models.User{ID: id, Name: "User " + id, Email: email, PasswordHash: hash, Role: role, Active: true}
	require.NoError(a.t, a.stores.Users.Create(context.Background(), u))
	return u
}

func (a *testAPI) token(role models.UserRole) string {
	a.t.Helper()
	tok, _, err := a.tokens.Issue(a.users[role])
	require.NoError(a.t, err)
	return tok
}

type response struct {
	*httptest.ResponseRecorder
	body map[string]any
}

func (a *testAPI) do(method, path, token string, body any) response {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.serve(req)
}

func (a *testAPI) serve(req *http.Request) response {
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	res := response{ResponseRecorder: rec}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &res.body)
	}
	return res
}

func (r response) data() map[string]any {
	m, _ := r.body["data"].(map[string]any)
	return m
}

func TestLoginReturnsRoleDefaults(t *testing.T) {
	api := newTestAPI(t)
	api.seed("u-admin", "admin@realty.example.com", "secret123", models.RoleAdmin)

	res := api.do(http.MethodPost, "/api/auth", "", gin.H{"action": "login", "email": "admin@realty.example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.NotEmpty(t, res.body["token"])

	user := res.body["user"].(map[string]any)
	assert.Equal(t, "admin", user["role"])
	assert.NotNil(t, user["lastLogin"])
	var perms []string
	for _, p := range user["permissions"].([]any) {
		perms = append(perms, p.(string))
	}
	assert.ElementsMatch(t, rbac.DefaultPermissionsFor(models.RoleAdmin).List(), perms)

	wrong := api.do(http.MethodPost, "/api/auth", "", gin.H{"action": "login", "email": "admin@realty.example.com", "password": "nope12345"})
	unknown := api.do(http.MethodPost, "/api/auth", "", gin.H{"action": "login", "email": "ghost@realty.example.com", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.body["error"], unknown.body["error"])
}

func TestRegisterAndVerify(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(http.MethodPost, "/api/auth", "", gin.H{"action": "register", "name": "Marta", "email": "marta@example.com", "password": "abc12345"})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Equal(t, "viewer", res.body["user"].(map[string]any)["role"])
	token := res.body["token"].(string)

	dup := api.do(http.MethodPost, "/api/auth", "", gin.H{"action": "register", "name": "Marta", "email": "marta@example.com", "password": "abc12345"})
	assert.Equal(t, http.StatusBadRequest, dup.Code)

	verified := api.do(http.MethodPost, "/api/auth", token, gin.H{"action": "verify"})
	require.Equal(t, http.StatusOK, verified.Code)
	assert.Equal(t, "marta@example.com", verified.body["user"].(map[string]any)["email"])

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/auth", "", gin.H{"action": "verify"}).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/auth", "garbage", gin.H{"action": "verify"}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/auth", "", gin.H{"action": "dance"}).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/auth", token, gin.H{"action": "logout"}).Code)
}

func TestUnroutedRequests(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(http.MethodGet, "/api/auth", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, res.Code)
	assert.Equal(t, "method not allowed", res.body["error"])

	res = api.do(http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "not found", res.body["error"])
}

func property(title string) gin.H {
	return gin.H{"title": title, "price": 320000, "address": "12 Harbour Street", "city": "Porto", "area": 95, "bedrooms": 3, "type": "sale"}
}

func TestPropertyLifecycle(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/properties", "", property("Loft")).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/properties", api.token(models.RoleViewer), property("Loft")).Code)

	created := api.do(http.MethodPost, "/api/properties", api.token(models.RoleEditor), property("Loft"))
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	id := created.data()["id"].(string)
	assert.Equal(t, "available", created.data()["status"])

	invalid := api.do(http.MethodPost, "/api/properties", api.token(models.RoleEditor), gin.H{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, invalid.Code)

	updated := api.do(http.MethodPut, "/api/properties?id="+id, api.token(models.RoleEditor), gin.H{"price": 299000})
	require.Equal(t, http.StatusOK, updated.Code, updated.Body.String())
	assert.Equal(t, 299000.0, updated.data()["price"])
	assert.Equal(t, "Loft", updated.data()["title"])

	list := api.do(http.MethodGet, "/api/properties?city=por&limit=5", "", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Len(t, list.body["data"], 1)
	assert.Equal(t, map[string]any{"page": 1.0, "limit": 5.0, "total": 1.0, "totalPages": 1.0}, list.body["pagination"])

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/properties?minPrice=abc", "", nil).Code)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/properties/"+id, api.token(models.RoleEditor), nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/properties/"+id, api.token(models.RoleAdmin), nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/properties/"+id, "", nil).Code)
}

func TestLiveRoleAndActiveState(t *testing.T) {
	api := newTestAPI(t)
	token := api.token(models.RoleEditor)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/properties", token, property("Studio")).Code)

	editor := api.users[models.RoleEditor]
	editor.Role = models.RoleViewer
	require.NoError(t, api.stores.Users.Update(context.Background(), editor))
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/properties", token, property("Studio 2")).Code)

	editor.Active = false
	require.NoError(t, api.stores.Users.Update(context.Background(), editor))
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/properties", token, property("Studio 3")).Code)
}

func TestGrantThroughAPI(t *testing.T) {
	api := newTestAPI(t)
	admin := api.token(models.RoleAdmin)
	editor := api.token(models.RoleEditor)

	created := api.do(http.MethodPost, "/api/properties", editor, property("Cottage"))
	require.Equal(t, http.StatusCreated, created.Code)
	id := created.data()["id"].(string)

	first := api.do(http.MethodPost, "/api/users/editor/permissions", admin, gin.H{"permission": rbac.PropertiesDelete})
	second := api.do(http.MethodPost, "/api/users/editor/permissions", admin, gin.H{"permission": rbac.PropertiesDelete})
	assert.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, http.StatusOK, second.Code)

	grants, err := api.stores.Grants.ListForUser(context.Background(), "editor")
	require.NoError(t, err)
	assert.Len(t, grants, 1)

	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/properties/"+id, editor, nil).Code)

	revoked := api.do(http.MethodDelete, "/api/users/editor/permissions/"+rbac.PropertiesDelete, admin, nil)
	assert.Equal(t, http.StatusOK, revoked.Code)
	assert.Equal(t, "permission revoked", revoked.body["message"])

	detail := api.do(http.MethodGet, "/api/users/editor", admin, nil)
	require.Equal(t, http.StatusOK, detail.Code)
	assert.Empty(t, detail.data()["grants"])

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/users/admin/permissions", admin, gin.H{"permission": rbac.UsersView}).Code)
}

func TestGrantRequiresAdminRole(t *testing.T) {
	api := newTestAPI(t)
	admin := api.token(models.RoleAdmin)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/users/editor/permissions", admin, gin.H{"permission": rbac.UsersEdit}).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/users/editor/permissions", admin, gin.H{"permission": rbac.UsersView}).Code)

	editor := api.token(models.RoleEditor)
	grant := api.do(http.MethodPost, "/api/users/viewer/permissions", editor, gin.H{"permission": rbac.UsersView})
	assert.Equal(t, http.StatusForbidden, grant.Code)
	assert.Equal(t, "insufficient access level", grant.body["error"])

	revoke := api.do(http.MethodDelete, "/api/users/viewer/permissions/"+rbac.UsersView, editor, nil)
	assert.Equal(t, http.StatusForbidden, revoke.Code)
	assert.Equal(t, "insufficient access level", revoke.body["error"])

	grants, err := api.stores.Grants.ListForUser(context.Background(), "viewer")
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestUserManagement(t *testing.T) {
	api := newTestAPI(t)
	admin := api.token(models.RoleAdmin)

	created := api.do(http.MethodPost, "/api/users", admin, gin.H{"name": "Nuno", "email": "nuno@example.com", "password": "pass1234", "role": "editor"})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	id := created.data()["id"].(string)

	promote := api.do(http.MethodPost, "/api/users", admin, gin.H{"name": "Rui", "email": "rui@example.com", "password": "pass1234", "role": "super_admin"})
	assert.Equal(t, http.StatusForbidden, promote.Code)

	dup := api.do(http.MethodPost, "/api/users", admin, gin.H{"name": "Nuno", "email": "nuno@example.com", "password": "pass1234", "role": "viewer"})
	assert.Equal(t, http.StatusConflict, dup.Code)

	self := api.do(http.MethodPut, "/api/users/viewer", api.token(models.RoleViewer), gin.H{"name": "Vera"})
	assert.Equal(t, http.StatusOK, self.Code, self.Body.String())
	other := api.do(http.MethodPut, "/api/users/"+id, api.token(models.RoleViewer), gin.H{"name": "Hacked"})
	assert.Equal(t, http.StatusForbidden, other.Code)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/users/"+id, admin, nil).Code)
	root := api.token(models.RoleSuperAdmin)
	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/users/"+id, root, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/users/super_admin", root, nil).Code)

	list := api.do(http.MethodGet, "/api/users?role=viewer", admin, nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Len(t, list.body["data"], 1)

	perms := api.do(http.MethodGet, "/api/permissions", admin, nil)
	require.Equal(t, http.StatusOK, perms.Code)
	assert.Len(t, perms.data()["categories"], 5)
}

func TestContactAndTestimonials(t *testing.T) {
	api := newTestAPI(t)

	sent := api.do(http.MethodPost, "/api/contact", "", gin.H{"name": "Rita", "email": "rita@example.com", "message": "Is the loft still available?"})
	require.Equal(t, http.StatusCreated, sent.Code, sent.Body.String())
	msgID := sent.data()["id"].(string)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/contact", "", nil).Code)
	inbox := api.do(http.MethodGet, "/api/contact?status=new", api.token(models.RoleViewer), nil)
	require.Equal(t, http.StatusOK, inbox.Code)
	assert.Equal(t, 1.0, inbox.body["pagination"].(map[string]any)["total"])

	replied := api.do(http.MethodPut, "/api/contact/"+msgID, api.token(models.RoleEditor), gin.H{"status": "replied"})
	require.Equal(t, http.StatusOK, replied.Code)
	assert.Equal(t, "editor", replied.data()["handledBy"])

	submitted := api.do(http.MethodPost, "/api/testimonials", "", gin.H{"name": "Paulo", "content": "Found our home in two weeks.", "rating": 5})
	require.Equal(t, http.StatusCreated, submitted.Code, submitted.Body.String())
	tID := submitted.data()["id"].(string)

	assert.Empty(t, api.do(http.MethodGet, "/api/testimonials", "", nil).body["data"])
	assert.Empty(t, api.do(http.MethodGet, "/api/testimonials?approvedOnly=false", "", nil).body["data"])
	assert.Len(t, api.do(http.MethodGet, "/api/testimonials?approvedOnly=false", api.token(models.RoleSuperAdmin), nil).body["data"], 1)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/testimonials/"+tID, "", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/testimonials/"+tID, api.token(models.RoleSuperAdmin), nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/testimonials/missing", api.token(models.RoleSuperAdmin), nil).Code)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPut, "/api/testimonials/"+tID, api.token(models.RoleAdmin), gin.H{"approved": true}).Code)
	approved := api.do(http.MethodPut, "/api/testimonials/"+tID, api.token(models.RoleSuperAdmin), gin.H{"approved": true})
	require.Equal(t, http.StatusOK, approved.Code)
	list := api.do(http.MethodGet, "/api/testimonials?page=1&limit=5", "", nil)
	assert.Len(t, list.body["data"], 1)
	pagination := list.body["pagination"].(map[string]any)
	assert.Equal(t, 1.0, pagination["total"])
	assert.Equal(t, 5.0, pagination["limit"])

	one := api.do(http.MethodGet, "/api/testimonials/"+tID, "", nil)
	require.Equal(t, http.StatusOK, one.Code)
	assert.Equal(t, "Paulo", one.data()["name"])
}

func TestAnalytics(t *testing.T) {
	api := newTestAPI(t)
	created := api.do(http.MethodPost, "/api/properties", api.token(models.RoleEditor), property("Villa"))
	require.Equal(t, http.StatusCreated, created.Code)
	id := created.data()["id"].(string)

	assert.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/analytics", "", gin.H{"propertyId": id}).Code)
	again := api.do(http.MethodPost, "/api/analytics", "", gin.H{"propertyId": id})
	assert.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "view already recorded", again.body["message"])
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/analytics", "", gin.H{"propertyId": "missing"}).Code)

	admin := api.token(models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/analytics", api.token(models.RoleEditor), nil).Code)

	dash := api.do(http.MethodGet, "/api/analytics", admin, nil)
	require.Equal(t, http.StatusOK, dash.Code)
	totals := dash.data()["totals"].(map[string]any)
	assert.Equal(t, 1.0, totals["properties"])
	assert.Equal(t, 1.0, totals["views"])

	views := api.do(http.MethodGet, "/api/analytics?type=views&days=7", admin, nil)
	require.Equal(t, http.StatusOK, views.Code)
	assert.Equal(t, 1.0, views.data()["totalViews"])

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/analytics?type=weather", admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/analytics?type=views&days=999", admin, nil).Code)
}

func multipartImage(t *testing.T, field, name, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func pngBytes(size int) []byte {
	head := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return append(head, bytes.Repeat([]byte{1}, size-len(head))...)
}

func TestUploadAndDelete(t *testing.T) {
	m := metrics.New()
	api := newTestAPI(t, WithMetrics(m))

	upload := func(token string, content []byte, contentType string) response {
		body, ct := multipartImage(t, "files", "front.png", contentType, content)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return api.serve(req)
	}

	assert.Equal(t, http.StatusUnauthorized, upload("", pngBytes(64), "image/png").Code)
	assert.Equal(t, http.StatusForbidden, upload(api.token(models.RoleViewer), pngBytes(64), "image/png").Code)
	assert.Equal(t, http.StatusBadRequest, upload(api.token(models.RoleEditor), []byte("GIF? no, plain text"), "text/plain").Code)

	res := upload(api.token(models.RoleEditor), pngBytes(256), "image/png")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	files := res.body["files"].([]any)
	require.Len(t, files, 1)
	file := files[0].(map[string]any)
	assert.Equal(t, "image/png", file["contentType"])
	assert.Equal(t, 256.0, file["size"])
	require.Len(t, api.objects.data, 1)

	del := api.do(http.MethodDelete, "/api/upload?filePath="+file["url"].(string), api.token(models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, del.Code, del.Body.String())
	assert.Empty(t, api.objects.data)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodDelete, "/api/upload", api.token(models.RoleAdmin), nil).Code)
}

func TestUploadStorageErrors(t *testing.T) {
	tests := []struct {
		name    string
		putErr  error
		status  int
		message string
	}{
		{
			name:    "rejected by the store",
			putErr:  &storage.RejectedError{Code: "EntityTooLarge", Message: "Your proposed upload exceeds the maximum allowed object size."},
			status:  http.StatusBadRequest,
			message: "store front.png: Your proposed upload exceeds the maximum allowed object size.",
		},
		{
			name:    "store unreachable",
			putErr:  errors.New("dial tcp 10.0.0.5:9000: i/o timeout"),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.objects.putErr = tt.putErr

			body, ct := multipartImage(t, "files", "front.png", "image/png", pngBytes(128))
			req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
			req.Header.Set("Content-Type", ct)
			req.Header.Set("Authorization", "Bearer "+api.token(models.RoleEditor))
			res := api.serve(req)

			assert.Equal(t, tt.status, res.Code)
			assert.Equal(t, tt.message, res.body["error"])
		})
	}
}

func TestUploadIsAllOrNothing(t *testing.T) {
	api := newTestAPI(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, part := range []struct {
		name, contentType string
		content           []byte
	}{
		{"front.png", "image/png", pngBytes(128)},
		{"notes.txt", "text/plain", []byte("not an image")},
	} {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+part.name+`"`)
		h.Set("Content-Type", part.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(part.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+api.token(models.RoleEditor))
	res := api.serve(req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.body["error"], "notes.txt")
	assert.Empty(t, api.objects.data)
}

func TestUploadBodyTooLarge(t *testing.T) {
	api := newTestAPI(t)
	// 10 files of 1 MiB plus 1 MiB of form overhead is the cap.
	body, ct := multipartImage(t, "files", "huge.png", "image/png", pngBytes(12<<20))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+api.token(models.RoleEditor))
	res := api.serve(req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.body["error"], "files: ")
	assert.Empty(t, api.objects.data)
}

func TestRateLimitedAPI(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), time.Minute, 2)
	api := newTestAPI(t, WithRateLimit(limiter))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/agents", "", nil).Code)
	}
	res := api.do(http.MethodGet, "/api/agents", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.NotEmpty(t, res.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/healthz", "", nil).Code)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t,
		WithHealthCheck(HealthCheck{Name: "database", Ping: func(context.Context) error { return nil }}),
		WithHealthCheck(HealthCheck{Name: "redis", Ping: func(context.Context) error { return errors.New("down") }}),
	)
	res := api.do(http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Equal(t, map[string]any{"database": "ok", "redis": "error"}, res.body["dependencies"])
}
