package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"schemaplane/internal/controller/middleware"
	"schemaplane/internal/executor"
	"schemaplane/internal/store"
	"schemaplane/pkg/api"
)

const testAdminSecret = "super-secret"

func doAdmin(t *testing.T, handler http.HandlerFunc, method, target string, body interface{}, adminUser string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Authorization", "Bearer "+testAdminSecret)
	if adminUser != "" {
		req.Header.Set("X-Admin-User", adminUser)
	}
	rec := httptest.NewRecorder()

	path := strings.SplitN(target, "?", 2)[0]
	pattern := method + " " + path
	if strings.HasPrefix(path, "/admin/groups/") && path != "/admin/groups/pending" {
		pattern = method + " /admin/groups/{id}" + path[strings.LastIndex(path, "/"):]
	}

	mux := http.NewServeMux()
	mux.Handle(pattern, middleware.RequireInternalAuth(testAdminSecret)(handler))
	mux.ServeHTTP(rec, req)
	return rec
}

func TestApproveGroup_RecordsActingAdmin(t *testing.T) {
	fs := newFakeStore()
	h := newTestHandlers(fs, &fakeRunner{}, &fakeQueryDB{})

	group := &store.OperationGroup{
		ID:       uuid.New(),
		TenantID: fs.tenant.ID,
		Status:   store.GroupStatusPendingApproval,
	}
	fs.groups[group.ID] = group

	rec := doAdmin(t, h.ApproveGroup, "POST",
		fmt.Sprintf("/admin/groups/%s/approve", group.ID),
		api.ReviewGroupRequest{Notes: "looks fine"}, "alice")

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	if group.Status != store.GroupStatusApproved {
		t.Errorf("group status is %s, want approved", group.Status)
	}
	if group.ApprovedBy == nil || *group.ApprovedBy != "alice" {
		t.Errorf("approved_by not recorded: %v", group.ApprovedBy)
	}

	var resp api.ReviewGroupResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Applied {
		t.Error("expected applied=true")
	}
}

func TestApproveGroup_MissingAdminUserRejected(t *testing.T) {
	fs := newFakeStore()
	h := newTestHandlers(fs, &fakeRunner{}, &fakeQueryDB{})

	rec := doAdmin(t, h.ApproveGroup, "POST",
		fmt.Sprintf("/admin/groups/%s/approve", uuid.New()), nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", rec.Code)
	}
}

func TestApproveGroup_FromDraftNotApplied(t *testing.T) {
	fs := newFakeStore()
	h := newTestHandlers(fs, &fakeRunner{}, &fakeQueryDB{})

	group := &store.OperationGroup{
		ID:       uuid.New(),
		TenantID: fs.tenant.ID,
		Status:   store.GroupStatusDraft,
	}
	fs.groups[group.ID] = group

	rec := doAdmin(t, h.ApproveGroup, "POST",
		fmt.Sprintf("/admin/groups/%s/approve", group.ID), nil, "alice")

	if rec.Code != http.StatusConflict {
		t.Fatalf("got status %d, want 409", rec.Code)
	}
	var resp api.ReviewGroupResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Applied {
		t.Error("expected applied=false")
	}
	if group.Status != store.GroupStatusDraft {
		t.Errorf("group status changed to %s", group.Status)
	}
}

func TestRejectGroup_Success(t *testing.T) {
	fs := newFakeStore()
	h := newTestHandlers(fs, &fakeRunner{}, &fakeQueryDB{})

	group := &store.OperationGroup{
		ID:     uuid.New(),
		Status: store.GroupStatusPendingApproval,
	}
	fs.groups[group.ID] = group

	rec := doAdmin(t, h.RejectGroup, "POST",
		fmt.Sprintf("/admin/groups/%s/reject", group.ID), nil, "bob")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	if group.Status != store.GroupStatusRejected {
		t.Errorf("group status is %s, want rejected", group.Status)
	}
}

func TestGetPendingGroups_Paginated(t *testing.T) {
	fs := newFakeStore()
	fs.pending = []store.OperationGroup{
		{ID: uuid.New(), TenantID: fs.tenant.ID, Status: store.GroupStatusPendingApproval},
		{ID: uuid.New(), TenantID: fs.tenant.ID, Status: store.GroupStatusRejected},
	}
	h := newTestHandlers(fs, &fakeRunner{}, &fakeQueryDB{})

	rec := doAdmin(t, h.GetPendingGroups, "GET", "/admin/groups/pending?limit=10", nil, "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	var resp api.PendingGroupsResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Groups) != 2 {
		t.Errorf("expected 2 groups, got %d", len(resp.Groups))
	}
	if resp.Limit != 10 {
		t.Errorf("got limit %d, want 10", resp.Limit)
	}
}

func TestExecuteGroup_ReturnsBatchResult(t *testing.T) {
	fs := newFakeStore()
	groupID := uuid.New()
	runner := &fakeRunner{
		batchResult: &store.BatchResult{
			GroupID:              groupID,
			Status:               store.GroupStatusFailed,
			TotalOperations:      3,
			SuccessfulOperations: 2,
			FailedOperations:     1,
		},
	}
	h := newTestHandlers(fs, runner, &fakeQueryDB{})

	rec := doAdmin(t, h.ExecuteGroup, "POST",
		fmt.Sprintf("/admin/groups/%s/execute", groupID), nil, "alice")

	// Partial failure is still a 200 with the result payload.
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	var resp api.BatchResultResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.TotalOperations != 3 || resp.SuccessfulOperations != 2 || resp.FailedOperations != 1 {
		t.Errorf("unexpected result: %+v", resp)
	}
}

func TestExecuteGroup_NotApproved(t *testing.T) {
	fs := newFakeStore()
	runner := &fakeRunner{batchErr: executor.ErrGroupNotApproved}
	h := newTestHandlers(fs, runner, &fakeQueryDB{})

	rec := doAdmin(t, h.ExecuteGroup, "POST",
		fmt.Sprintf("/admin/groups/%s/execute", uuid.New()), nil, "alice")
	if rec.Code != http.StatusConflict {
		t.Errorf("got status %d, want 409", rec.Code)
	}
}

func TestExecuteGroup_AlreadyExecuting(t *testing.T) {
	fs := newFakeStore()
	runner := &fakeRunner{batchErr: store.ErrAlreadyExecuting}
	h := newTestHandlers(fs, runner, &fakeQueryDB{})

	rec := doAdmin(t, h.ExecuteGroup, "POST",
		fmt.Sprintf("/admin/groups/%s/execute", uuid.New()), nil, "alice")
	if rec.Code != http.StatusConflict {
		t.Errorf("got status %d, want 409", rec.Code)
	}
}

func TestAdminEndpoints_WrongSecretRejected(t *testing.T) {
	fs := newFakeStore()
	h := newTestHandlers(fs, &fakeRunner{}, &fakeQueryDB{})

	req := httptest.NewRequest("GET", "/admin/groups/pending", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	req.Header.Set("X-Admin-User", "alice")
	rec := httptest.NewRecorder()

	middleware.RequireInternalAuth(testAdminSecret)(http.HandlerFunc(h.GetPendingGroups)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", rec.Code)
	}
}
