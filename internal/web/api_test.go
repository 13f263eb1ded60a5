package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

// apiResult mirrors APIResponse with the payload left raw.
type apiResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Hint    string          `json:"hint"`
}

// newTestServer starts a server with default settings.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(Options{})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

// doJSON sends body (if not nil) as JSON and decodes the envelope.
func doJSON(t *testing.T, method, url string, body any) (int, apiResult) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			rdr = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var res apiResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return resp.StatusCode, res
}

func decodeData(t *testing.T, res apiResult, dst any) {
	t.Helper()
	if err := json.Unmarshal(res.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", res.Data, err)
	}
}

// createTree creates a tree and returns its id.
func createTree(t *testing.T, ts *httptest.Server, name string, order int) string {
	t.Helper()
	status, res := doJSON(t, "POST", ts.URL+"/api/trees", CreateTreeRequest{Name: name, Order: order})
	if status != http.StatusCreated {
		t.Fatalf("create tree: status %d: %s", status, res.Error)
	}
	var tree TreeResponse
	decodeData(t, res, &tree)
	return tree.ID
}

func insertKeys(t *testing.T, ts *httptest.Server, id string, keys ...int) MutationResponse {
	t.Helper()
	var last MutationResponse
	for _, k := range keys {
		k := k
		status, res := doJSON(t, "POST", ts.URL+"/api/trees/"+id+"/insert", KeyRequest{Key: &k})
		if status != http.StatusOK {
			t.Fatalf("insert %d: status %d: %s", k, status, res.Error)
		}
		decodeData(t, res, &last)
	}
	return last
}

func TestAPICreateAndListTrees(t *testing.T) {
	_, ts := newTestServer(t)

	status, res := doJSON(t, "POST", ts.URL+"/api/trees", CreateTreeRequest{Name: "demo", Order: 3})
	if status != http.StatusCreated {
		t.Fatalf("expected status 201, got %d (%s)", status, res.Error)
	}
	var tree TreeResponse
	decodeData(t, res, &tree)
	if tree.Name != "demo" || tree.Order != 3 {
		t.Errorf("expected demo/3, got %s/%d", tree.Name, tree.Order)
	}
	if tree.ID == "" {
		t.Error("expected an id")
	}
	if len(tree.View.Nodes) != 0 {
		t.Errorf("expected an empty picture, got %d nodes", len(tree.View.Nodes))
	}

	status, res = doJSON(t, "GET", ts.URL+"/api/trees", nil)
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	var list TreeListResponse
	decodeData(t, res, &list)
	if len(list.Trees) != 1 || list.Trees[0].ID != tree.ID {
		t.Errorf("expected the one tree, got %+v", list.Trees)
	}
}

func TestAPICreateTreeDefaults(t *testing.T) {
	_, ts := newTestServer(t)

	status, res := doJSON(t, "POST", ts.URL+"/api/trees", "{}")
	if status != http.StatusCreated {
		t.Fatalf("expected status 201, got %d (%s)", status, res.Error)
	}
	var tree TreeResponse
	decodeData(t, res, &tree)
	if tree.Order != 4 {
		t.Errorf("expected the configured order 4, got %d", tree.Order)
	}
	if !strings.HasPrefix(tree.Name, "tree-") {
		t.Errorf("expected a generated name, got %q", tree.Name)
	}
}

func TestAPICreateTreeInvalid(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"order too small", CreateTreeRequest{Order: 2}},
		{"order too large", CreateTreeRequest{Order: MaxOrder + 1}},
		{"bad name", CreateTreeRequest{Name: "<b>bold</b>", Order: 3}},
		{"unknown field", `{"order": 3, "color": "red"}`},
		{"not json", `order=3`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, res := doJSON(t, "POST", ts.URL+"/api/trees", tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", status)
			}
			if res.Success || res.Error == "" {
				t.Errorf("expected an error envelope, got %+v", res)
			}
		})
	}

	status, res := doJSON(t, "POST", ts.URL+"/api/trees", CreateTreeRequest{Order: 2})
	if status != http.StatusBadRequest || res.Hint == "" {
		t.Errorf("expected a hint for a bad order, got %d %+v", status, res)
	}
}

func TestAPIInsertDeleteFind(t *testing.T) {
	_, ts := newTestServer(t)
	id := createTree(t, ts, "ops", 3)
	base := ts.URL + "/api/trees/" + id

	last := insertKeys(t, ts, id, 10, 20, 30)
	if !reflect.DeepEqual(last.Keys, []int{10, 20, 30}) {
		t.Errorf("expected keys [10 20 30], got %v", last.Keys)
	}
	if last.Operation != "insert" || last.Key != 30 {
		t.Errorf("expected insert 30, got %s %d", last.Operation, last.Key)
	}
	if last.Steps == 0 || len(last.Commands) == 0 {
		t.Error("expected a command log")
	}
	if last.Stats.Splits != 1 {
		t.Errorf("expected one split at order 3, got %d", last.Stats.Splits)
	}
	if len(last.Breakpoints) == 0 {
		t.Error("expected the split to be a breakpoint")
	}

	dup := 20
	status, res := doJSON(t, "POST", base+"/insert", KeyRequest{Key: &dup})
	if status != http.StatusConflict {
		t.Errorf("expected status 409 for a duplicate, got %d", status)
	}
	if res.Hint == "" {
		t.Error("expected a hint for a duplicate")
	}

	status, res = doJSON(t, "GET", base+"/find?key=20", nil)
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	var found FindResponse
	decodeData(t, res, &found)
	if !found.Found {
		t.Error("expected 20 to be found")
	}

	_, res = doJSON(t, "GET", base+"/find?key=99", nil)
	decodeData(t, res, &found)
	if found.Found {
		t.Error("expected 99 to be missing")
	}

	if status, _ := doJSON(t, "GET", base+"/find?key=abc", nil); status != http.StatusBadRequest {
		t.Errorf("expected status 400 for a bad key, got %d", status)
	}

	key := 20
	status, res = doJSON(t, "POST", base+"/delete", KeyRequest{Key: &key})
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", status, res.Error)
	}
	var del MutationResponse
	decodeData(t, res, &del)
	if !reflect.DeepEqual(del.Keys, []int{10, 30}) {
		t.Errorf("expected keys [10 30], got %v", del.Keys)
	}

	missing := 99
	if status, _ := doJSON(t, "POST", base+"/delete", KeyRequest{Key: &missing}); status != http.StatusNotFound {
		t.Errorf("expected status 404 for a missing key, got %d", status)
	}
	if status, _ := doJSON(t, "POST", base+"/insert", "{}"); status != http.StatusBadRequest {
		t.Errorf("expected status 400 without a key, got %d", status)
	}
	big := MaxKey + 1
	if status, _ := doJSON(t, "POST", base+"/insert", KeyRequest{Key: &big}); status != http.StatusBadRequest {
		t.Errorf("expected status 400 for an out of range key, got %d", status)
	}
}

func TestAPIClear(t *testing.T) {
	_, ts := newTestServer(t)
	id := createTree(t, ts, "", 4)
	base := ts.URL + "/api/trees/" + id
	insertKeys(t, ts, id, 1, 2, 3, 4, 5)

	status, res := doJSON(t, "POST", base+"/clear", nil)
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	var cleared MutationResponse
	decodeData(t, res, &cleared)
	if len(cleared.Keys) != 0 {
		t.Errorf("expected no keys, got %v", cleared.Keys)
	}

	key := 1
	status, res = doJSON(t, "POST", base+"/delete", KeyRequest{Key: &key})
	if status != http.StatusNotFound {
		t.Errorf("expected status 404 on an empty tree, got %d", status)
	}
	if !strings.Contains(res.Hint, "empty") {
		t.Errorf("expected the empty tree hint, got %q", res.Hint)
	}
}

func TestAPIScript(t *testing.T) {
	_, ts := newTestServer(t)
	id := createTree(t, ts, "script", 3)
	base := ts.URL + "/api/trees/" + id

	status, res := doJSON(t, "POST", base+"/script", ScriptRequest{Script: "INSERT 1, 2, 3; DELETE 9; KEYS;"})
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", status, res.Error)
	}
	var out ScriptResponse
	decodeData(t, res, &out)
	if len(out.Outcomes) != 5 {
		t.Fatalf("expected 5 outcomes, got %d", len(out.Outcomes))
	}
	if out.Failed != 1 {
		t.Errorf("expected one failed outcome, got %d", out.Failed)
	}
	if !reflect.DeepEqual(out.Keys, []int{1, 2, 3}) {
		t.Errorf("expected keys [1 2 3], got %v", out.Keys)
	}

	status, res = doJSON(t, "POST", base+"/script", ScriptRequest{Script: "INSERT ;"})
	if status != http.StatusBadRequest {
		t.Errorf("expected status 400 for a syntax error, got %d", status)
	}
	if !strings.Contains(res.Hint, "INSERT") {
		t.Errorf("expected the syntax hint, got %q", res.Hint)
	}

	if status, _ := doJSON(t, "POST", base+"/script", ScriptRequest{Script: "  "}); status != http.StatusBadRequest {
		t.Errorf("expected status 400 for an empty script, got %d", status)
	}
}

func TestAPIHistoryAndTrace(t *testing.T) {
	_, ts := newTestServer(t)
	id := createTree(t, ts, "history", 3)
	base := ts.URL + "/api/trees/" + id
	insertKeys(t, ts, id, 10, 20, 30)

	status, res := doJSON(t, "GET", base+"/history", nil)
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	var hist HistoryResponse
	decodeData(t, res, &hist)
	if len(hist.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(hist.Entries))
	}

	entry := hist.Entries[2].ID
	status, res = doJSON(t, "GET", base+"/history/"+itoa(entry)+"/trace", nil)
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", status, res.Error)
	}
	var trace OperationTrace
	decodeData(t, res, &trace)
	if trace.Operation != "insert" || trace.Key != 30 {
		t.Errorf("expected insert 30, got %s %d", trace.Operation, trace.Key)
	}
	if len(trace.Created) == 0 {
		t.Error("expected the split to create nodes")
	}

	resp, err := http.Get(base + "/history/" + itoa(entry) + "/trace?format=text")
	if err != nil {
		t.Fatalf("GET trace text: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "insert 30 ===") {
		t.Errorf("expected the text header, got %q", body)
	}

	if status, _ := doJSON(t, "GET", base+"/history/999/trace", nil); status != http.StatusNotFound {
		t.Errorf("expected status 404 for an unknown entry, got %d", status)
	}
	if status, _ := doJSON(t, "GET", base+"/history/x/trace", nil); status != http.StatusBadRequest {
		t.Errorf("expected status 400 for a bad entry, got %d", status)
	}
}

func TestAPIGetAndDeleteTree(t *testing.T) {
	_, ts := newTestServer(t)
	id := createTree(t, ts, "doomed", 3)
	insertKeys(t, ts, id, 5, 6, 7)
	base := ts.URL + "/api/trees/" + id

	status, res := doJSON(t, "GET", base, nil)
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	var tree TreeResponse
	decodeData(t, res, &tree)
	if len(tree.Nodes) != 3 {
		t.Errorf("expected root and two leaves, got %d nodes", len(tree.Nodes))
	}
	if len(tree.View.Nodes) != len(tree.Nodes) {
		t.Errorf("picture has %d nodes, tree has %d", len(tree.View.Nodes), len(tree.Nodes))
	}

	if status, _ := doJSON(t, "DELETE", base, nil); status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	status, res = doJSON(t, "GET", base, nil)
	if status != http.StatusNotFound {
		t.Errorf("expected status 404 after delete, got %d", status)
	}
	if res.Hint == "" {
		t.Error("expected a hint for an unknown tree")
	}
}
