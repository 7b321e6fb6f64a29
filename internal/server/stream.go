// SPDX-License-Identifier: MIT
package server

import (
	"net/http"

	"sdrfile/internal/container"
	applog "sdrfile/internal/log"
)

// streamHandler serves the live sample feed as a chunked response.
// Containered streams get a WAV header with the unknown-size
// placeholder up front; it is never patched, the client reads until
// the connection closes. The raw variant sends bare interleaved
// float32 I/Q.
func (s *Server) streamHandler(f container.Format, containered bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, canFlush := w.(http.Flusher)
		if !canFlush {
			respond(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		q := s.pipe.Bus.Register()
		defer s.pipe.Bus.Unregister(q)

		if containered {
			w.Header().Set("Content-Type", "audio/wav")
		} else {
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		w.WriteHeader(http.StatusOK)

		if containered {
			hdr := container.Header(container.Params{
				Format:     f,
				Kind:       container.WAV,
				SampleRate: uint32(s.pipe.Radio.Rate()),
				Frequency:  uint32(s.pipe.Radio.Frequency()),
			}, container.UnknownSize)
			if _, err := w.Write(hdr); err != nil {
				return
			}
			flusher.Flush()
		}

		applog.Debugf("server: stream client %s connected (%s)", r.RemoteAddr, r.URL.Path)
		defer applog.Debugf("server: stream client %s disconnected", r.RemoteAddr)

		var enc []byte
		for {
			select {
			case block, open := <-q.C():
				if !open {
					return
				}
				enc = container.Encode(f, enc[:0], block)
				if _, err := w.Write(enc); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}
}
