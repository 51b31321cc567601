package dashboard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

// ---------------------------------------------------------------------------
// POST /orgs
// ---------------------------------------------------------------------------

func TestCreateOrganization_Success(t *testing.T) {
	r, mock := newDashboardRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orgs").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "rate_limit_rpm", "monthly_quota", "created_at"}).
			AddRow(int64(10), 60, int64(10000), time.Now()))
	mock.ExpectExec("INSERT INTO org_members").
		WithArgs(int64(10), int64(7)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := postJSON(r, "/orgs", `{"name":"acme"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"name":"acme"`) {
		t.Errorf("expected organization in body, got %s", w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateOrganization_MissingName(t *testing.T) {
	r, _ := newDashboardRouter(t)

	w := postJSON(r, "/orgs", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestCreateOrganization_NameTooLong(t *testing.T) {
	r, _ := newDashboardRouter(t)

	w := postJSON(r, "/orgs", `{"name":"`+strings.Repeat("x", 121)+`"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for oversized name, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// GET /orgs
// ---------------------------------------------------------------------------

func TestListOrganizations_Success(t *testing.T) {
	r, mock := newDashboardRouter(t)

	mock.ExpectQuery("SELECT.*FROM orgs o.*JOIN org_members").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(orgCols).
			AddRow(int64(10), "acme", 60, int64(10000), time.Now()).
			AddRow(int64(11), "globex", 120, int64(50000), time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/orgs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, want := range []string{`"name":"acme"`, `"name":"globex"`} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("expected %s in body, got %s", want, w.Body.String())
		}
	}
}

func TestListOrganizations_EmptyIsArray(t *testing.T) {
	r, mock := newDashboardRouter(t)

	mock.ExpectQuery("SELECT.*FROM orgs o.*JOIN org_members").
		WillReturnRows(sqlmock.NewRows(orgCols))

	req := httptest.NewRequest(http.MethodGet, "/orgs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"organizations":[]`) {
		t.Errorf("expected empty JSON array, got %s", w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// GET /orgs/:org_id
// ---------------------------------------------------------------------------

func TestGetOrganization_Success(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	expectMemberLookup(mock, 10, 7, "member")

	req := httptest.NewRequest(http.MethodGet, "/orgs/10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"name":"acme"`) {
		t.Errorf("expected organization in body, got %s", w.Body.String())
	}
}

func TestGetOrganization_NotAMember(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	mock.ExpectQuery("SELECT.*FROM org_members.*WHERE org_id.*AND user_id").
		WillReturnRows(sqlmock.NewRows(memberCols))

	req := httptest.NewRequest(http.MethodGet, "/orgs/10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for non-member, got %d", w.Code)
	}
}

func TestGetOrganization_NotFound(t *testing.T) {
	r, mock := newDashboardRouter(t)

	mock.ExpectQuery("SELECT.*FROM orgs.*WHERE id").
		WillReturnRows(sqlmock.NewRows(orgCols))

	req := httptest.NewRequest(http.MethodGet, "/orgs/404", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /orgs/:org_id/members
// ---------------------------------------------------------------------------

func TestAddMember_Success(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	expectMemberLookup(mock, 10, 7, "admin")
	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(8), "bob@example.com", "$2a$12$hash", time.Now()))
	mock.ExpectQuery("INSERT INTO org_members").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).
			AddRow(int64(2), time.Now()))

	w := postJSON(r, "/orgs/10/members", `{"email":"bob@example.com","role":"member"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"role":"member"`) {
		t.Errorf("expected member role in body, got %s", w.Body.String())
	}
}

func TestAddMember_MemberCannotInvite(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	expectMemberLookup(mock, 10, 7, "member")

	w := postJSON(r, "/orgs/10/members", `{"email":"bob@example.com","role":"member"}`)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", w.Code)
	}
}

func TestAddMember_OrgNotFound(t *testing.T) {
	r, mock := newDashboardRouter(t)

	mock.ExpectQuery("SELECT.*FROM orgs.*WHERE id").
		WillReturnRows(sqlmock.NewRows(orgCols))

	w := postJSON(r, "/orgs/404/members", `{"email":"bob@example.com","role":"member"}`)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestAddMember_InvalidRole(t *testing.T) {
	r, _ := newDashboardRouter(t)

	w := postJSON(r, "/orgs/10/members", `{"email":"bob@example.com","role":"superuser"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestAddMember_InvalidOrgID(t *testing.T) {
	r, _ := newDashboardRouter(t)

	w := postJSON(r, "/orgs/abc/members", `{"email":"bob@example.com","role":"member"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for non-numeric org id, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// DELETE /orgs/:org_id/members/:user_id
// ---------------------------------------------------------------------------

func deleteReq(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRemoveMember_Success(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	expectMemberLookup(mock, 10, 7, "owner")
	expectMemberLookup(mock, 10, 8, "member")
	mock.ExpectExec("DELETE FROM org_members").
		WithArgs(int64(10), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := deleteReq(r, "/orgs/10/members/8")

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRemoveMember_LastOwnerCannotLeave(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	expectMemberLookup(mock, 10, 7, "owner")
	expectMemberLookup(mock, 10, 7, "owner")
	mock.ExpectQuery("SELECT COUNT.*FROM org_members").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w := deleteReq(r, "/orgs/10/members/7")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "last owner") {
		t.Errorf("expected last-owner message, got %s", w.Body.String())
	}
}

func TestRemoveMember_OwnerWithCoOwnerMayLeave(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	expectMemberLookup(mock, 10, 7, "owner")
	expectMemberLookup(mock, 10, 7, "owner")
	mock.ExpectQuery("SELECT COUNT.*FROM org_members").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("DELETE FROM org_members").
		WithArgs(int64(10), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := deleteReq(r, "/orgs/10/members/7")

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRemoveMember_AdminCannotRemoveAdmin(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	expectMemberLookup(mock, 10, 7, "admin")
	expectMemberLookup(mock, 10, 8, "admin")

	w := deleteReq(r, "/orgs/10/members/8")

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", w.Code)
	}
}

func TestRemoveMember_TargetNotAMember(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	expectMemberLookup(mock, 10, 7, "owner")
	mock.ExpectQuery("SELECT.*FROM org_members.*WHERE org_id.*AND user_id").
		WillReturnRows(sqlmock.NewRows(memberCols))

	w := deleteReq(r, "/orgs/10/members/99")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// GET /orgs/:org_id/usage
// ---------------------------------------------------------------------------

func TestUsage_Success(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	expectMemberLookup(mock, 10, 7, "member")
	mock.ExpectQuery("SELECT COUNT.*FROM events").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1234)))

	req := httptest.NewRequest(http.MethodGet, "/orgs/10/usage", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, want := range []string{`"events_total":1234`, `"monthly_quota":10000`, `"rate_limit_rpm":60`} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("expected %s in body, got %s", want, w.Body.String())
		}
	}
}

func TestUsage_RequiresMembership(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	mock.ExpectQuery("SELECT.*FROM org_members.*WHERE org_id.*AND user_id").
		WillReturnRows(sqlmock.NewRows(memberCols))

	req := httptest.NewRequest(http.MethodGet, "/orgs/10/usage", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for non-member, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// GET /orgs/:org_id/members
// ---------------------------------------------------------------------------

func TestListMembers_Success(t *testing.T) {
	r, mock := newDashboardRouter(t)

	expectOrgLookup(mock, 10)
	expectMemberLookup(mock, 10, 7, "member")
	mock.ExpectQuery("SELECT.*FROM org_members m.*JOIN users").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(memberWithUserCols).
			AddRow(int64(1), int64(10), int64(7), "owner", time.Now(), "alice@example.com").
			AddRow(int64(2), int64(10), int64(8), "member", time.Now(), "bob@example.com"))

	req := httptest.NewRequest(http.MethodGet, "/orgs/10/members", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, want := range []string{"alice@example.com", "bob@example.com"} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("expected %s in body, got %s", want, w.Body.String())
		}
	}
}
