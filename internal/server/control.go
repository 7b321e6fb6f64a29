// SPDX-License-Identifier: MIT
package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	applog "sdrfile/internal/log"
)

// respond writes a plain-text body with a trailing newline and an
// explicit Content-Length.
func respond(w http.ResponseWriter, status int, body string) {
	payload := body + "\n"
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(status)
	io.WriteString(w, payload)
}

func badRequest(w http.ResponseWriter) {
	respond(w, http.StatusBadRequest, "Bad Request")
}

func ok(w http.ResponseWriter) {
	respond(w, http.StatusOK, "OK")
}

// readBody returns the trimmed request body.
func readBody(r *http.Request) (string, error) {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// parseBool accepts y, n, yes, no, true and false, case-insensitive.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "y", "yes", "true":
		return true, nil
	case "n", "no", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// parseFloat accepts any Go float syntax, including exponent forms
// like 103e6.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func (s *Server) bodyFloat(w http.ResponseWriter, r *http.Request) (float64, bool) {
	body, err := readBody(r)
	if err != nil {
		badRequest(w)
		return 0, false
	}
	v, err := parseFloat(body)
	if err != nil {
		badRequest(w)
		return 0, false
	}
	return v, true
}

func (s *Server) bodyBool(w http.ResponseWriter, r *http.Request) (bool, bool) {
	body, err := readBody(r)
	if err != nil {
		badRequest(w)
		return false, false
	}
	v, err := parseBool(body)
	if err != nil {
		badRequest(w)
		return false, false
	}
	return v, true
}

// putQuit answers first, then signals quit, so the client sees the OK
// before the listener shuts down.
func (s *Server) putQuit(w http.ResponseWriter, r *http.Request) {
	v, okv := s.bodyBool(w, r)
	if !okv {
		return
	}
	ok(w)
	if v {
		applog.Infof("server: quit requested")
		s.pipe.Quit()
	}
}

// putRate is only honored while recording is paused; a live rate change
// would corrupt the open file and every stream header.
func (s *Server) putRate(w http.ResponseWriter, r *http.Request) {
	v, okv := s.bodyFloat(w, r)
	if !okv {
		return
	}
	if !s.pipe.Paused() {
		badRequest(w)
		return
	}
	s.pipe.Radio.SetRate(v)
	ok(w)
}

func (s *Server) putFrequency(w http.ResponseWriter, r *http.Request) {
	v, okv := s.bodyFloat(w, r)
	if !okv {
		return
	}
	s.pipe.Radio.SetFrequency(v)
	ok(w)
}

// putGain drops out of AGC before applying the manual value.
func (s *Server) putGain(w http.ResponseWriter, r *http.Request) {
	v, okv := s.bodyFloat(w, r)
	if !okv {
		return
	}
	s.pipe.Radio.SetAGC(false)
	s.pipe.Radio.SetGain(v)
	ok(w)
}

func (s *Server) putAGC(w http.ResponseWriter, r *http.Request) {
	v, okv := s.bodyBool(w, r)
	if !okv {
		return
	}
	s.pipe.Radio.SetAGC(v)
	ok(w)
}

func (s *Server) putPause(w http.ResponseWriter, r *http.Request) {
	v, okv := s.bodyBool(w, r)
	if !okv {
		return
	}
	s.pipe.SetPause(v)
	ok(w)
}

func (s *Server) putSetting(w http.ResponseWriter, r *http.Request, name string) {
	body, err := readBody(r)
	if err != nil {
		badRequest(w)
		return
	}
	s.pipe.Radio.WriteSetting(name, body)
	ok(w)
}

func (s *Server) getRate(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, strconv.FormatInt(int64(s.pipe.Radio.Rate()), 10))
}

func (s *Server) getFrequency(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, strconv.FormatInt(int64(s.pipe.Radio.Frequency()), 10))
}

func (s *Server) getGain(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, strconv.FormatFloat(s.pipe.Radio.Gain(), 'g', -1, 64))
}

func (s *Server) getAGC(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, strconv.FormatBool(s.pipe.Radio.AGC()))
}

func (s *Server) getPause(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, strconv.FormatBool(s.pipe.Paused()))
}

// getPeak reports NaN until the meter has completed a window.
func (s *Server) getPeak(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, fmt.Sprintf("%.2f", s.pipe.Peak()))
}

func (s *Server) getSettingList(w http.ResponseWriter, r *http.Request) {
	var sb strings.Builder
	names := s.pipe.Radio.SettingNames()
	for i, name := range names {
		if i > 0 {
			sb.WriteByte('\n')
		}
		value, _ := s.pipe.Radio.ReadSetting(name)
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(value)
	}
	respond(w, http.StatusOK, sb.String())
}

func (s *Server) getSetting(w http.ResponseWriter, name string) {
	value, found := s.pipe.Radio.ReadSetting(name)
	if !found {
		badRequest(w)
		return
	}
	respond(w, http.StatusOK, value)
}
