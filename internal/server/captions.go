package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/internal/observe"
	"github.com/MrWong99/versecap/internal/transcript"
)

// readLimit bounds a single inbound segment message.
const readLimit = 64 << 10

// handleCaptions upgrades to a WebSocket and runs one [transcript.Stream]
// for the lifetime of the connection. The optional stream query parameter
// names the stream in archive rows and logs.
func (s *Server) handleCaptions(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("stream")
	if id == "" {
		id = uuid.NewString()
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		// Accept already wrote the HTTP error.
		observe.Logger(r.Context()).Debug("caption stream: accept failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	log := observe.Logger(observe.WithStreamID(r.Context(), id))
	log.Info("caption stream opened")

	opts := append([]transcript.StreamOption{
		transcript.WithMetrics(s.metrics),
	}, s.streamOpts...)
	opts = append(opts, transcript.WithStreamID(id))
	stream := transcript.NewStream(s.canonicalizer(), opts...)

	in := make(chan caption.Segment)
	out := make(chan transcript.Caption)
	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		defer close(in)
		for {
			var seg caption.Segment
			if err := wsjson.Read(ctx, conn, &seg); err != nil {
				if isClientClose(err) {
					return nil
				}
				return err
			}
			select {
			case in <- seg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	g.Go(func() error {
		return stream.Run(ctx, in, out)
	})
	g.Go(func() error {
		for c := range out {
			if err := wsjson.Write(ctx, conn, c); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil && !isClientClose(err) && !errors.Is(err, context.Canceled) {
		log.Warn("caption stream ended with error", "err", err)
		conn.Close(websocket.StatusInternalError, "stream error")
		return
	}
	log.Info("caption stream closed")
	conn.Close(websocket.StatusNormalClosure, "")
}

// isClientClose reports whether err is the peer closing the connection
// normally.
func isClientClose(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
