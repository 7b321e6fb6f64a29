// SPDX-License-Identifier: MIT

/*
Package server exposes the capture pipeline over HTTP: a small
plain-text control surface, chunked live PCM streams and a WebSocket
feed of spectrum messages.

Every control response is text/plain with a trailing newline. PUT and
POST are interchangeable on control routes; HEAD answers 200 on any
path without touching the pipeline.
*/
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"sdrfile/internal/capture"
	"sdrfile/internal/container"
	applog "sdrfile/internal/log"
)

// Server routes control and streaming requests onto one pipeline.
type Server struct {
	pipe *capture.Pipeline
	hub  *Hub

	routes map[routeKey]http.HandlerFunc
}

type routeKey struct {
	method string
	path   string
}

// New builds the route table. hub may be nil when the WebSocket feed is
// not wanted.
func New(pipe *capture.Pipeline, hub *Hub) *Server {
	s := &Server{pipe: pipe, hub: hub}
	s.routes = map[routeKey]http.HandlerFunc{
		{http.MethodPut, "/quit"}:      s.putQuit,
		{http.MethodPut, "/rate"}:      s.putRate,
		{http.MethodPut, "/frequency"}: s.putFrequency,
		{http.MethodPut, "/gain"}:      s.putGain,
		{http.MethodPut, "/agc"}:       s.putAGC,
		{http.MethodPut, "/pause"}:     s.putPause,

		{http.MethodGet, "/rate"}:      s.getRate,
		{http.MethodGet, "/frequency"}: s.getFrequency,
		{http.MethodGet, "/gain"}:      s.getGain,
		{http.MethodGet, "/agc"}:       s.getAGC,
		{http.MethodGet, "/pause"}:     s.getPause,
		{http.MethodGet, "/peak"}:      s.getPeak,
		{http.MethodGet, "/setting"}:   s.getSettingList,

		{http.MethodGet, "/s16"}:  s.streamHandler(container.S16, true),
		{http.MethodGet, "/f32"}:  s.streamHandler(container.F32, true),
		{http.MethodGet, "/cf32"}: s.streamHandler(container.F32, false),
	}
	if hub != nil {
		s.routes[routeKey{http.MethodGet, "/ws"}] = hub.ServeWS
	}
	return s
}

// ServeHTTP dispatches on method and exact path, with /setting/<name>
// as the one prefixed route. POST aliases PUT.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.Method
	if method == http.MethodPost {
		method = http.MethodPut
	}
	if method == http.MethodHead {
		respond(w, http.StatusOK, "OK")
		return
	}

	if name, ok := strings.CutPrefix(r.URL.Path, "/setting/"); ok && name != "" {
		switch method {
		case http.MethodPut:
			s.putSetting(w, r, name)
		case http.MethodGet:
			s.getSetting(w, name)
		default:
			respond(w, http.StatusNotFound, "Not Found")
		}
		return
	}

	if h, ok := s.routes[routeKey{method, r.URL.Path}]; ok {
		h(w, r)
		return
	}
	respond(w, http.StatusNotFound, "Not Found")
}

// Run serves until the pipeline quits, then shuts down gracefully so
// in-flight control responses complete.
func (s *Server) Run(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	go func() {
		<-s.pipe.Context().Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	applog.Infof("server: listening on %s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
