package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/dashboard"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
	logsvc "github.com/trezcool/alama/services/logger"
	dummydb "github.com/trezcool/alama/storage/database/dummy"
	"github.com/trezcool/alama/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	conf       *core.Config
	app        *echoapi.Server
	auth       *echoapi.Authenticator
	usrRepo    user.Repository
	schoolRepo school.Repository
	rosterRepo roster.Repository
	markRepo   mark.Repository
}

// setup returns a server backed by a fresh in-memory database.
func setup(t *testing.T) env {
	t.Helper()
	conf := testutil.TestConfig()

	validate, translator := testutil.NewValidatorAndTranslator()
	db := dummydb.Open()
	e := env{
		conf:       conf,
		auth:       echoapi.NewAuthenticator(conf),
		usrRepo:    dummydb.NewUserRepository(db),
		schoolRepo: dummydb.NewSchoolRepository(db),
		rosterRepo: dummydb.NewRosterRepository(db),
		markRepo:   dummydb.NewMarkRepository(db),
	}

	usrSvc := user.NewService(e.usrRepo)
	schoolSvc := school.NewService(e.schoolRepo)
	rosterSvc := roster.NewService(e.rosterRepo)
	markSvc := mark.NewService(e.markRepo, e.rosterRepo)

	e.app = echoapi.NewServer(
		echoapi.Options{DisableReqLogs: true},
		echoapi.Deps{
			Conf:         conf,
			Logger:       logsvc.NewDiscardLogger(),
			Validate:     validate,
			Translator:   translator,
			UserSvc:      usrSvc,
			SchoolSvc:    schoolSvc,
			RosterSvc:    rosterSvc,
			MarkSvc:      markSvc,
			DashboardSvc: dashboard.NewService(usrSvc, schoolSvc, rosterSvc, markSvc),
		},
	)
	return e
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (e env) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := e.auth.Token(usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (e env) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			e.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// decodeIDs returns the "id" of every object in a JSON list response.
func decodeIDs(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var objs []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &objs); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	ids := make([]string, 0, len(objs))
	for _, o := range objs {
		id, _ := o["id"].(string)
		ids = append(ids, id)
	}
	return ids
}

// assertIDs checks the ids of a list response, ignoring order.
func assertIDs(t *testing.T, rec *httptest.ResponseRecorder, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	assert.ElementsMatch(t, want, decodeIDs(t, rec))
}

func decodeObjID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &obj); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	return obj.ID
}
