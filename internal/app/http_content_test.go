package app

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"testing"
	"time"

	"studio/admin/internal/docstore"
)

func createProject(t *testing.T, env *testEnv, token, title, category string) string {
	t.Helper()
	rr, payload := env.do(t, http.MethodPost, "/api/projects", token, map[string]any{"title": title, "category": category})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create %s: got %d body=%s", title, rr.Code, rr.Body.String())
	}
	return payload["id"].(string)
}

func listProjects(t *testing.T, env *testEnv, token, category string) []string {
	t.Helper()
	rr, payload := env.do(t, http.MethodGet, "/api/projects?category="+category, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: got %d body=%s", rr.Code, rr.Body.String())
	}
	return itemIDs(t, payload)
}

func TestCreateProjectGoesFirst(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")

	first := createProject(t, env, editor.Token, "Harbour Hall", "Architecture")
	second := createProject(t, env, editor.Token, "Dune House", "Architecture")
	other := createProject(t, env, editor.Token, "Quiet Room", "Interior")

	if got, want := listProjects(t, env, editor.Token, "Architecture"), []string{second, first}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Architecture = %v, want %v", got, want)
	}
	if got, want := listProjects(t, env, editor.Token, "Interior"), []string{other}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Interior = %v, want %v", got, want)
	}

	_, payload := env.do(t, http.MethodGet, "/api/projects/"+first, editor.Token, nil)
	if payload["order"] != float64(1) {
		t.Fatalf("first project order = %v, want 1", payload["order"])
	}

	_, all := env.do(t, http.MethodGet, "/api/projects", editor.Token, nil)
	if got, want := itemIDs(t, all), []string{second, first, other}; !reflect.DeepEqual(got, want) {
		t.Fatalf("all projects = %v, want %v", got, want)
	}
	if all["scopeField"] != "category" {
		t.Fatalf("scopeField = %v", all["scopeField"])
	}
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")

	rr, payload := env.do(t, http.MethodPost, "/api/projects", editor.Token, map[string]any{"title": "Nowhere", "category": "Fashion"})
	if rr.Code != http.StatusUnprocessableEntity || payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("unknown category: got %d %v", rr.Code, payload)
	}
	rr, payload = env.do(t, http.MethodPost, "/api/projects", editor.Token, map[string]any{"category": "Interior"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing title: got %d %v", rr.Code, payload)
	}
	problems := payload["details"].(map[string]any)["problems"].([]any)
	if problems[0].(map[string]any)["field"] != "title" {
		t.Fatalf("problems = %v", problems)
	}
}

func TestReorderProjects(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")
	a := createProject(t, env, editor.Token, "A", "Architecture")
	b := createProject(t, env, editor.Token, "B", "Architecture")
	c := createProject(t, env, editor.Token, "C", "Architecture")

	rr, payload := env.do(t, http.MethodPost, "/api/projects/reorder", editor.Token, map[string]any{
		"category": "Architecture",
		"ids":      []string{a, c, b},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("reorder: got %d body=%s", rr.Code, rr.Body.String())
	}
	if got, want := itemIDs(t, payload), []string{a, c, b}; !reflect.DeepEqual(got, want) {
		t.Fatalf("reorder response = %v, want %v", got, want)
	}
	if got := listProjects(t, env, editor.Token, "Architecture"); !reflect.DeepEqual(got, []string{a, c, b}) {
		t.Fatalf("after reorder = %v", got)
	}
}

func TestReorderRejectsPartialPermutation(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")
	a := createProject(t, env, editor.Token, "A", "Architecture")
	b := createProject(t, env, editor.Token, "B", "Architecture")

	rr, payload := env.do(t, http.MethodPost, "/api/projects/reorder", editor.Token, map[string]any{
		"category": "Architecture",
		"ids":      []string{a, "stranger"},
	})
	if rr.Code != http.StatusUnprocessableEntity || payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("got %d %v", rr.Code, payload)
	}
	details := payload["details"].(map[string]any)
	if !reflect.DeepEqual(details["missing"], []any{b}) || !reflect.DeepEqual(details["unknown"], []any{"stranger"}) {
		t.Fatalf("details = %v", details)
	}
	if got := listProjects(t, env, editor.Token, "Architecture"); !reflect.DeepEqual(got, []string{b, a}) {
		t.Fatalf("order changed after rejected reorder: %v", got)
	}
}

func TestReorderPartialFailureAsksForRefetch(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")
	a := createProject(t, env, editor.Token, "A", "Architecture")
	b := createProject(t, env, editor.Token, "B", "Architecture")
	env.store.failSetOrder(a)

	rr, payload := env.do(t, http.MethodPost, "/api/projects/reorder", editor.Token, map[string]any{
		"category": "Architecture",
		"ids":      []string{a, b},
	})
	if rr.Code != http.StatusBadGateway || payload["code"] != "PARTIAL_WRITE" {
		t.Fatalf("got %d %v", rr.Code, payload)
	}
	details := payload["details"].(map[string]any)
	if details["refetch"] != true || !reflect.DeepEqual(details["failedIds"], []any{a}) {
		t.Fatalf("details = %v", details)
	}
}

func TestCreatePartialFailureReportsNewID(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")
	a := createProject(t, env, editor.Token, "A", "Architecture")
	env.store.failSetOrder(a)

	rr, payload := env.do(t, http.MethodPost, "/api/projects", editor.Token, map[string]any{"title": "B", "category": "Architecture"})
	if rr.Code != http.StatusBadGateway || payload["code"] != "PARTIAL_WRITE" {
		t.Fatalf("got %d %v", rr.Code, payload)
	}
	details := payload["details"].(map[string]any)
	id, _ := details["id"].(string)
	if id == "" || details["refetch"] != true {
		t.Fatalf("details = %v", details)
	}
	record, err := env.store.Get(context.Background(), "projects", id)
	if err != nil || record.Order == nil || *record.Order != 0 {
		t.Fatalf("new project = %+v, %v", record, err)
	}
}

func TestDeleteProjectLeavesGap(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")
	a := createProject(t, env, editor.Token, "A", "Architecture")
	b := createProject(t, env, editor.Token, "B", "Architecture")
	c := createProject(t, env, editor.Token, "C", "Architecture")

	rr, _ := env.do(t, http.MethodDelete, "/api/projects/"+b, editor.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: got %d", rr.Code)
	}
	if got := listProjects(t, env, editor.Token, "Architecture"); !reflect.DeepEqual(got, []string{c, a}) {
		t.Fatalf("after delete = %v", got)
	}
	record, _ := env.store.Get(context.Background(), "projects", a)
	if *record.Order != 2 {
		t.Fatalf("remaining order = %d, want 2 (no renumbering)", *record.Order)
	}

	rr, _ = env.do(t, http.MethodDelete, "/api/projects/"+b, editor.Token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: got %d", rr.Code)
	}
}

func TestLegacyRecordsListAfterOrdered(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")
	now := time.Now().UTC()
	env.store.Put(docstore.Record{ID: "legacy-old", Collection: "books", Fields: map[string]any{"title": "Old"}, CreatedAt: now.Add(-48 * time.Hour)})
	env.store.Put(docstore.Record{ID: "legacy-new", Collection: "books", Fields: map[string]any{"title": "New"}, CreatedAt: now.Add(-time.Hour)})

	rr, payload := env.do(t, http.MethodPost, "/api/books", editor.Token, map[string]any{"title": "Fresh"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d body=%s", rr.Code, rr.Body.String())
	}
	fresh := payload["id"].(string)

	_, list := env.do(t, http.MethodGet, "/api/books", editor.Token, nil)
	if got, want := itemIDs(t, list), []string{fresh, "legacy-new", "legacy-old"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("books = %v, want %v", got, want)
	}
}

func TestUpdateProjectCannotMoveCategory(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")
	id := createProject(t, env, editor.Token, "A", "Architecture")

	rr, payload := env.do(t, http.MethodPut, "/api/projects/"+id, editor.Token, map[string]any{"summary": "Concrete and light"})
	if rr.Code != http.StatusOK || payload["summary"] != "Concrete and light" || payload["order"] != float64(0) {
		t.Fatalf("update: got %d %v", rr.Code, payload)
	}
	rr, _ = env.do(t, http.MethodPut, "/api/projects/"+id, editor.Token, map[string]any{"category": "Interior"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("category change: got %d", rr.Code)
	}
}

func TestNewsIsNotReorderable(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")
	rr, _ := env.do(t, http.MethodPost, "/api/news", editor.Token, map[string]any{"title": "Opening", "date": "2026-04-01"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create news: got %d body=%s", rr.Code, rr.Body.String())
	}
	rr, _ = env.do(t, http.MethodPost, "/api/news/reorder", editor.Token, map[string]any{"ids": []string{}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("reorder news: got %d", rr.Code)
	}
}

func TestTextsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")

	rr, payload := env.do(t, http.MethodPut, "/api/texts/about", editor.Token, map[string]any{"title": "About", "body": "We build."})
	if rr.Code != http.StatusOK || payload["key"] != "about" {
		t.Fatalf("put: got %d %v", rr.Code, payload)
	}
	rr, payload = env.do(t, http.MethodGet, "/api/texts/about", editor.Token, nil)
	if rr.Code != http.StatusOK || payload["body"] != "We build." {
		t.Fatalf("get: got %d %v", rr.Code, payload)
	}
	rr, _ = env.do(t, http.MethodGet, "/api/texts/missing", editor.Token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing text: got %d", rr.Code)
	}
	rr, _ = env.do(t, http.MethodPut, "/api/texts/BadKey", editor.Token, map[string]any{"body": "x"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad key: got %d", rr.Code)
	}
}

func TestInquiryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	rr, payload := env.do(t, http.MethodPost, "/api/public/inquiries", "", map[string]any{
		"name":    "Renée",
		"email":   "renee@example.org",
		"message": "Could you design a library?",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit: got %d body=%s", rr.Code, rr.Body.String())
	}
	id := payload["id"].(string)

	rr, _ = env.do(t, http.MethodPost, "/api/public/inquiries", "", map[string]any{"name": "X", "email": "nope", "message": "hi"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid submit: got %d", rr.Code)
	}

	editor := env.signIn(t, "editor")
	_, list := env.do(t, http.MethodGet, "/api/inquiries", editor.Token, nil)
	if got := itemIDs(t, list); !reflect.DeepEqual(got, []string{id}) {
		t.Fatalf("inquiries = %v", got)
	}

	rr, payload = env.do(t, http.MethodPost, "/api/inquiries/"+id+"/handled", editor.Token, map[string]any{})
	if rr.Code != http.StatusOK || payload["handled"] != true {
		t.Fatalf("handled: got %d %v", rr.Code, payload)
	}
	_, payload = env.do(t, http.MethodPost, "/api/inquiries/"+id+"/handled", editor.Token, map[string]any{"handled": false})
	if payload["handled"] != false {
		t.Fatalf("unhandled: %v", payload)
	}

	admin := env.signIn(t, "admin")
	rr, _ = env.do(t, http.MethodDelete, "/api/inquiries/"+id, admin.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: got %d", rr.Code)
	}
}

func TestSearchFallsBackToScan(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")
	id := createProject(t, env, editor.Token, "Harbour Hall", "Architecture")
	createProject(t, env, editor.Token, "Dune House", "Architecture")

	rr, payload := env.do(t, http.MethodGet, "/api/search?q=harbour", editor.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("search: got %d body=%s", rr.Code, rr.Body.String())
	}
	if payload["backend"] != "scan" || payload["total"] != float64(1) {
		t.Fatalf("payload = %v", payload)
	}
	hit := payload["results"].([]any)[0].(map[string]any)
	if hit["id"] != id || hit["kind"] != "projects" {
		t.Fatalf("hit = %v", hit)
	}

	rr, _ = env.do(t, http.MethodGet, "/api/search?q=x&type=widgets", editor.Token, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown type: got %d", rr.Code)
	}
	rr, _ = env.do(t, http.MethodGet, "/api/search?q=x&limit=-1", editor.Token, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative limit: got %d", rr.Code)
	}
}

func uploadRequest(t *testing.T, token, fileName, contentType string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("prefix", "projects"); err != nil {
		t.Fatal(err)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(body); err != nil {
		t.Fatal(err)
	}
	if err := form.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/assets", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAssetUploadListDelete(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")

	rr := serve(env, uploadRequest(t, editor.Token, "Façade Study.png", "image/png", []byte("png-bytes")))
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload: got %d body=%s", rr.Code, rr.Body.String())
	}
	if len(env.assets.objects) != 1 {
		t.Fatalf("objects = %v", env.assets.objects)
	}
	var key string
	for k := range env.assets.objects {
		key = k
	}

	_, list := env.do(t, http.MethodGet, "/api/assets?prefix=projects/", editor.Token, nil)
	if items := list["items"].([]any); len(items) != 1 {
		t.Fatalf("list = %v", list)
	}

	viewer := env.signIn(t, "viewer")
	rr, stat := env.do(t, http.MethodGet, "/api/assets/"+key, viewer.Token, nil)
	if rr.Code != http.StatusOK || stat["key"] != key || stat["originalName"] != "Façade Study.png" {
		t.Fatalf("stat: got %d body=%s", rr.Code, rr.Body.String())
	}

	rr, _ = env.do(t, http.MethodDelete, "/api/assets/"+key, editor.Token, nil)
	if rr.Code != http.StatusOK || len(env.assets.objects) != 0 {
		t.Fatalf("delete: got %d, objects = %v", rr.Code, env.assets.objects)
	}

	rr, payload := env.do(t, http.MethodGet, "/api/assets/"+key, viewer.Token, nil)
	if rr.Code != http.StatusNotFound || payload["code"] != "NOT_FOUND" {
		t.Fatalf("stat after delete: got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAssetUploadRejectsType(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")
	rr := serve(env, uploadRequest(t, editor.Token, "notes.exe", "application/x-msdownload", []byte("MZ")))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAssetUploadTooLarge(t *testing.T) {
	env := newTestEnv(t)
	editor := env.signIn(t, "editor")
	big := bytes.Repeat([]byte("x"), int(env.svc.MaxUploadBytes())+2<<20)
	rr := serve(env, uploadRequest(t, editor.Token, "huge.png", "image/png", big))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d body=%s", rr.Code, rr.Body.String())
	}
}
