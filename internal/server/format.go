package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrWong99/versecap/internal/caption"
)

type formatRequest struct {
	Text    string               `json:"text"`
	Pending caption.PendingState `json:"pending"`
}

type formatResponse struct {
	Text     string               `json:"text"`
	Pending  caption.PendingState `json:"pending"`
	Rewrites []caption.Rewrite    `json:"rewrites"`
	Expired  bool                 `json:"expired,omitempty"`
}

type renderRequest struct {
	Segments []caption.Segment `json:"segments"`
}

type renderResponse struct {
	Captions []caption.Rendered `json:"captions"`
}

// handleFormat canonicalizes one finalized segment. The caller owns the
// carried state and passes the returned pending state with its next request.
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	pending, err := req.Pending.Pending()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("pending: %w", err))
		return
	}

	res := s.canonicalizer().FormatWithCarry(req.Text, pending)
	ctx := r.Context()
	for _, rw := range res.Rewrites {
		s.metrics.RecordRewrite(ctx, string(rw.Stage))
	}

	rewrites := res.Rewrites
	if rewrites == nil {
		rewrites = []caption.Rewrite{}
	}
	writeJSON(w, http.StatusOK, formatResponse{
		Text:     res.Text,
		Pending:  caption.StateOf(res.Pending),
		Rewrites: rewrites,
		Expired:  res.Expired,
	})
}

// handleRender renders a batch of segments from a fresh stream state.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Segments == nil {
		writeError(w, http.StatusBadRequest, errors.New("segments is required"))
		return
	}

	rendered := caption.RenderSegments(s.canonicalizer(), req.Segments)
	writeJSON(w, http.StatusOK, renderResponse{Captions: rendered})
}
