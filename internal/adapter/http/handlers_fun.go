package http

import (
	"net/http"

	"github.com/Strob0t/nextup/internal/domain/fun"
)

// WeightedRandomFuns handles GET /api/v1/funs/weighted-random
func (h *Handlers) WeightedRandomFuns(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n", defaultPickCount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	picked, err := h.Funs.WeightedRandom(r.Context(), n, queryList(r, "exclude_ids"))
	if err != nil {
		writeDomainError(w, err, "nothing to select")
		return
	}
	if picked == nil {
		picked = []fun.Fun{}
	}
	writeJSON(w, http.StatusOK, picked)
}
