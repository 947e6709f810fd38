package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgehrsitz/rexscan/pkg/catalog"
	"rgehrsitz/rexscan/pkg/resource"
	"rgehrsitz/rexscan/pkg/runtime"
	"rgehrsitz/rexscan/pkg/store"
)

const inventory = `{
	"EC2Instances": [
		{"GroupId": "sg-1", "GroupName": "web", "IpPermissions": [{"IpProtocol": "tcp"}], "PublicIp": "54.0.0.1"},
		{"GroupId": "sg-2", "GroupName": "internal", "IpPermissions": []}
	],
	"S3Buckets": [
		{"Name": "public-assets", "CreationDate": "2022-11-12", "PublicAccess": true, "Encrypted": false, "LoggingEnabled": false},
		{"Name": "audit-logs", "CreationDate": "2023-04-01", "PublicAccess": false, "Encrypted": true, "LoggingEnabled": true},
		{"Name": "scratch", "CreationDate": "2023-05-01", "PublicAccess": true, "Encrypted": true, "LoggingEnabled": true}
	],
	"RDSInstances": []
}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cat, err := catalog.Load(catalog.DefaultDefinitions())
	require.NoError(t, err)
	ing, err := resource.NewIngester(nil)
	require.NoError(t, err)
	return NewServer(st, runtime.NewEngine(cat, 2), ing)
}

func upload(t *testing.T, s *Server, field, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func queryResources(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/resources", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(7), body["rules"])
}

func TestUploadAndQuery(t *testing.T) {
	s := newTestServer(t)

	rec := upload(t, s, "file", "inventory.json", inventory)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var msg string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "Data has been loaded. 5 Items Accepted.", msg)

	rec = queryResources(s, `{"type": "s3", "min_score": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Run-Id"))

	out := rec.Body.String()
	assert.Less(t, strings.Index(out, `"1":`), strings.Index(out, `"3":`), "higher score first")

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "public-assets", body["1"]["name"])
	assert.Equal(t, float64(3), body["1"]["Score"])
	assert.Equal(t, float64(6), body["1"]["WeightedScore"])
	assert.Equal(t, []interface{}{"PublicAccessEnabled"}, body["3"]["Violations"])

	rec = queryResources(s, `{"type": "EC2", "min_score": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var ec2Body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ec2Body))
	require.Len(t, ec2Body, 1)
	assert.Equal(t, "sg-1", ec2Body["1"]["group_id"])
	assert.NotContains(t, ec2Body, "3")
}

func TestQueryDefaultsToZeroThreshold(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, upload(t, s, "file", "inv.json", inventory).Code)

	rec := queryResources(s, `{"type": "ec2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, 1, "resources without violations are never reported")
}

func TestReuploadKeepsRowIDs(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, upload(t, s, "file", "inv.json", inventory).Code)
	require.Equal(t, http.StatusOK, upload(t, s, "file", "inv.json", inventory).Code)

	rec := queryResources(s, `{"type": "s3", "min_score": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, 2)
	assert.Contains(t, body, "1")
	assert.Contains(t, body, "3")
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		field    string
		filename string
		content  string
	}{
		{"missing file part", "document", "inv.json", inventory},
		{"invalid json", "file", "inv.json", `{"S3Buckets": [`},
		{"missing natural key", "file", "inv.json", `{"S3Buckets": [{"Name": "nodate"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, s, tt.field, tt.filename, tt.content)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestResourcesErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid type", `{"type": "gcs"}`, "Invalid resource type"},
		{"negative threshold", `{"type": "s3", "min_score": -1}`, "invalid threshold"},
		{"missing type", `{"min_score": 1}`, "type field"},
		{"not json", `type=s3`, "type field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := queryResources(s, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestRules(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rules", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []ruleView `json:"items"`
		Count int        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 7, body.Count)
	assert.Equal(t, "s3-public-access", body.Items[0].Name)
	assert.Equal(t, "S3", body.Items[0].Category)
	assert.Equal(t, "BY_COL(public_access, true)", body.Items[0].Condition)
	assert.Equal(t, 1, body.Items[0].ID)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
