package geolib

import "net/http"

func (h httpHandler) handleDeleteCache(w http.ResponseWriter, req *http.Request) {
	h.resolver.ClearCache()

	w.WriteHeader(http.StatusNoContent)
}

func (h httpHandler) handleResetCircuit(w http.ResponseWriter, req *http.Request) {
	h.resolver.ResetCircuitBreaker()

	w.WriteHeader(http.StatusNoContent)
}
