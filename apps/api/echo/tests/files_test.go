package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/hazard-Tom2004/TESA-API/core/material"
	"github.com/hazard-Tom2004/TESA-API/core/user"
	testutil "github.com/hazard-Tom2004/TESA-API/tests"
)

func Test_fileApi(t *testing.T) {
	ta := newTestApp(t)
	seedCourse(t, ta)
	admin := testutil.CreateUser(t, ta.usrRepo, "Admin", "admin@tesa.edu", "Sekr3tword", user.RoleAdmin, true)

	mat, err := ta.matSvc.Upload(context.Background(), material.NewMaterial{
		CourseCode:  "GEM 201",
		Name:        "Week 1",
		Description: "Notes",
		Category:    material.CategoryBooks,
	}, &material.Upload{
		Filename:    "notes.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4 content"),
	}, admin.ID)
	if err != nil {
		t.Fatalf("Upload(): %v", err)
	}

	// the files group takes no auth, links must work from embedded viewers
	rec := ta.do(newRequest(http.MethodGet, "/v1/files/"+mat.ID+"/type"))
	checkCode(t, rec, http.StatusOK)
	var data struct {
		FileType material.FileKind `json:"fileType"`
	}
	if err := json.Unmarshal(decodeEnv(t, rec).Data, &data); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if data.FileType != material.KindPDF {
		t.Errorf("fileType = %q; want %q", data.FileType, material.KindPDF)
	}

	// preview redirects to the stored URL; no envelope on a redirect
	rec = ta.do(newRequest(http.MethodGet, "/v1/files/"+mat.ID+"/preview"))
	if rec.Code != http.StatusFound {
		t.Fatalf("code = %d; want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "https://files.test/") {
		t.Errorf("Location = %q; want the stored file URL", loc)
	}

	rec = ta.do(newRequest(http.MethodGet, "/v1/files/nope/type"))
	checkCode(t, rec, http.StatusNotFound)
}
