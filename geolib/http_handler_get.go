package geolib

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type handleGetResponse struct {
	Result *Coordinate `json:"result"`
}

func (h httpHandler) handleGetSelf(w http.ResponseWriter, req *http.Request) {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		// RealIP middleware sets an address without a port
		host = req.RemoteAddr
	}

	if net.ParseIP(host) == nil {
		h.sendError(w, nil, "Cannot detect your IP address", http.StatusBadRequest)

		return
	}

	h.encodeJSON(w, handleGetResponse{
		Result: h.resolver.Resolve(req.Context(), host),
	})
}

func (h httpHandler) handleGetIP(w http.ResponseWriter, req *http.Request) {
	ip := chi.URLParam(req, "ip")

	if len(ip) > MaxAddressLength {
		h.sendError(w, nil, "Address is too long", http.StatusBadRequest)

		return
	}

	h.encodeJSON(w, handleGetResponse{
		Result: h.resolver.Resolve(req.Context(), ip),
	})
}

func (h httpHandler) handleGetSource(w http.ResponseWriter, req *http.Request) {
	source := h.resolver.Source()

	h.encodeJSON(w, handleGetResponse{
		Result: &source,
	})
}

func (h httpHandler) handleGetStats(w http.ResponseWriter, req *http.Request) {
	h.encodeJSON(w, h.resolver.Stats())
}
