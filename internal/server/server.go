// Package server exposes the webhook receiver over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"

	"example.com/sttpipeline/internal/database"
	"example.com/sttpipeline/internal/dispatch"
	"example.com/sttpipeline/internal/types"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/urfave/negroni"
)

// maxBodyBytes caps the webhook payload; notifications are small JSON documents.
const maxBodyBytes = 1 << 20

type UploadHandler interface {
	HandleUploadEvent(ctx context.Context, ev types.UploadEvent) dispatch.Result
}

type Server struct {
	dispatcher UploadHandler
	ledger     database.Ledger
}

func New(dispatcher UploadHandler, ledger database.Ledger) *Server {
	if ledger == nil {
		ledger = database.Nop{}
	}
	return &Server{dispatcher: dispatcher, ledger: ledger}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ping", s.PingHandler).Methods(http.MethodGet)
	r.HandleFunc("/webhook", s.WebhookHandler).Methods(http.MethodPost)
	// File ids may be storage keys containing slashes.
	r.HandleFunc("/jobs/{fileId:.+}", s.JobHandler).Methods(http.MethodGet)
	return r
}

// Handler wraps the router with panic recovery and request logging.
func (s *Server) Handler() http.Handler {
	n := negroni.New(negroni.NewRecovery(), negroni.NewLogger())
	n.UseHandler(s.Router())
	return n
}

func (s *Server) PingHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Printf("webhook: read body: %v", err)
		body = nil
	}
	res := s.dispatcher.HandleUploadEvent(r.Context(), dispatch.ParseUploadEvent(body))
	WriteJSON(w, res.StatusCode, res.Body)
}

func (s *Server) JobHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["fileId"]
	rec, err := s.ledger.Get(r.Context(), id)
	switch {
	case errors.Cause(err) == database.ErrNoRecord:
		WriteJSON(w, http.StatusNotFound, ErrorBody{Error: "no job for " + id})
	case err != nil:
		log.Printf("jobs: get %s: %v", id, err)
		WriteJSON(w, http.StatusInternalServerError, ErrorBody{Error: "ledger unavailable"})
	default:
		WriteJSON(w, http.StatusOK, rec)
	}
}

type ErrorBody struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("encode response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintln(w, string(data))
}
