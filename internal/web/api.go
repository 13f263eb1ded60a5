// Package web provides the HTTP server for the B+ tree visualizer.
//
// This file contains the JSON API endpoints for programmatic access.

package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cabewaldrop/bplusviz/internal/algorithm"
	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cabewaldrop/bplusviz/internal/render"
	"github.com/cabewaldrop/bplusviz/internal/replay"
	"github.com/cabewaldrop/bplusviz/internal/script"
	"github.com/cabewaldrop/bplusviz/internal/session"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
)

// ============================================================================
// API Response Types
// ============================================================================

// APIResponse wraps all API responses with success/error info.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// ErrEntryNotFound is returned for history entries that were never recorded
// or have been dropped.
var ErrEntryNotFound = errors.New("history entry not found")

// TreeListResponse contains the list of trees.
type TreeListResponse struct {
	Trees []session.Info `json:"trees"`
}

// TreeResponse describes one tree and its current picture.
type TreeResponse struct {
	session.Info
	Nodes []bptree.NodeInfo `json:"nodes"`
	View  render.View       `json:"view"`
}

// MutationResponse is returned by insert, delete and clear.
type MutationResponse struct {
	Operation   string            `json:"operation"`
	Key         int               `json:"key"`
	Entry       int               `json:"entry"`
	Keys        []int             `json:"keys"`
	Stats       algorithm.Stats   `json:"stats"`
	Steps       int               `json:"steps"`
	Breakpoints []int             `json:"breakpoints"`
	Commands    []command.Command `json:"commands"`
}

// FindResponse is returned by find.
type FindResponse struct {
	Key   int  `json:"key"`
	Found bool `json:"found"`
}

// ScriptResponse is returned by script runs.
type ScriptResponse struct {
	Outcomes []script.Outcome `json:"outcomes"`
	Keys     []int            `json:"keys"`
	Failed   int              `json:"failed"`
}

// HistoryResponse lists retained operations, oldest first.
type HistoryResponse struct {
	Entries []session.HistoryEntry `json:"entries"`
}

// CreateTreeRequest is the body for tree creation.
type CreateTreeRequest struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// KeyRequest is the body for insert and delete.
type KeyRequest struct {
	Key *int `json:"key"`
}

// ScriptRequest is the body for script runs.
type ScriptRequest struct {
	Script string `json:"script"`
}

// ============================================================================
// Helper Functions
// ============================================================================

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful API response.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error API response.
func writeError(w http.ResponseWriter, status int, message, hint string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   message,
		Hint:    hint,
	})
}

// writeErr writes err with the status and hint it maps to.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error(), GetErrorHint(err))
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxScriptLen+1024))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrapf(ErrInvalidInput, "invalid JSON body: %v", err)
	}
	return nil
}

func treeResponse(s *session.Session) TreeResponse {
	return TreeResponse{
		Info:  s.Info(),
		Nodes: s.Nodes(),
		View:  s.Projection().Snapshot(),
	}
}

func mutationResponse(op string, key int, res session.Result) MutationResponse {
	steps := replay.Split(res.Commands)
	cmds := res.Commands
	if cmds == nil {
		cmds = []command.Command{}
	}
	return MutationResponse{
		Operation:   op,
		Key:         key,
		Entry:       res.Entry,
		Keys:        res.Keys,
		Stats:       res.Stats,
		Steps:       len(steps),
		Breakpoints: replay.Breakpoints(steps),
		Commands:    cmds,
	}
}

// ============================================================================
// API Handlers
// ============================================================================

// handleListTrees returns all trees.
// GET /api/trees
func (s *Server) handleListTrees(w http.ResponseWriter, r *http.Request) {
	sessions := GetRegistry(r).List()
	infos := make([]session.Info, len(sessions))
	for i, sess := range sessions {
		infos[i] = sess.Info()
	}
	writeSuccess(w, http.StatusOK, TreeListResponse{Trees: infos})
}

// handleCreateTree creates an empty tree.
// POST /api/trees {"name": "...", "order": 4}
func (s *Server) handleCreateTree(w http.ResponseWriter, r *http.Request) {
	var req CreateTreeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if !IsValidName(req.Name) {
		writeErr(w, errors.Wrapf(ErrInvalidInput, "tree name %q", req.Name))
		return
	}
	if req.Order == 0 {
		req.Order = s.cfg.Tree.Order
	}
	if err := ValidateOrder(req.Order); err != nil {
		writeErr(w, err)
		return
	}

	sess, err := GetRegistry(r).Create(req.Name, req.Order)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, treeResponse(sess))
}

// handleGetTree returns one tree.
// GET /api/trees/{id}
func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, treeResponse(GetSession(r)))
}

// handleDeleteTree deletes one tree.
// DELETE /api/trees/{id}
func (s *Server) handleDeleteTree(w http.ResponseWriter, r *http.Request) {
	if err := GetRegistry(r).Delete(GetSession(r).ID()); err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) keyFromBody(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req KeyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeErr(w, err)
		return 0, false
	}
	if req.Key == nil {
		writeErr(w, errors.Wrap(ErrInvalidInput, "key is required"))
		return 0, false
	}
	if err := ValidateKey(*req.Key); err != nil {
		writeErr(w, err)
		return 0, false
	}
	return *req.Key, true
}

// handleInsert inserts a key and returns the command log.
// POST /api/trees/{id}/insert {"key": 10}
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyFromBody(w, r)
	if !ok {
		return
	}
	res, err := GetSession(r).Insert(key)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, mutationResponse("insert", key, res))
}

// handleDelete deletes a key and returns the command log.
// POST /api/trees/{id}/delete {"key": 10}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyFromBody(w, r)
	if !ok {
		return
	}
	res, err := GetSession(r).Delete(key)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, mutationResponse("delete", key, res))
}

// handleFind reports whether a key is present.
// GET /api/trees/{id}/find?key=10
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	key, err := ParseKey(r.URL.Query().Get("key"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, FindResponse{Key: key, Found: GetSession(r).Find(key)})
}

// handleClear empties the tree.
// POST /api/trees/{id}/clear
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	res, err := GetSession(r).Clear()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, mutationResponse("clear", 0, res))
}

// handleScript runs a script against the tree.
// POST /api/trees/{id}/script {"script": "INSERT 1, 2; DELETE 1;"}
func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	var req ScriptRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		writeErr(w, errors.Wrap(ErrInvalidInput, "script is required"))
		return
	}
	if len(req.Script) > MaxScriptLen {
		writeErr(w, errors.Wrapf(ErrInvalidInput, "script is longer than %d bytes", MaxScriptLen))
		return
	}

	sess := GetSession(r)
	out, err := sess.RunScript(r.Context(), req.Script)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := ScriptResponse{Outcomes: out, Keys: sess.Keys()}
	if resp.Outcomes == nil {
		resp.Outcomes = []script.Outcome{}
	}
	for _, o := range out {
		if o.Err != nil {
			resp.Failed++
		}
	}
	writeSuccess(w, http.StatusOK, resp)
}

// handleHistory lists the retained operations.
// GET /api/trees/{id}/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := GetSession(r).History()
	if entries == nil {
		entries = []session.HistoryEntry{}
	}
	writeSuccess(w, http.StatusOK, HistoryResponse{Entries: entries})
}

// handleTrace summarizes one operation's command log.
// GET /api/trees/{id}/history/{entry}/trace?format=text
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "entry"))
	if err != nil {
		writeErr(w, errors.Wrapf(ErrInvalidInput, "entry %q", chi.URLParam(r, "entry")))
		return
	}
	entry, ok := GetSession(r).Entry(n)
	if !ok {
		writeErr(w, errors.Wrapf(ErrEntryNotFound, "entry %d", n))
		return
	}

	trace := BuildTrace(entry)
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(trace.FormatText()))
		return
	}
	writeSuccess(w, http.StatusOK, trace)
}
