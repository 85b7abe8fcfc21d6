package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/clusterplan/internal/api/response"
	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/core"
	"github.com/edvin/clusterplan/internal/session"
	"github.com/edvin/clusterplan/internal/store"
)

// Cluster serves read-only views of the clusters in a store.
type Cluster struct {
	store   store.Store
	catalog *catalog.Catalog
	bundles catalog.BundleSource
}

func NewCluster(st store.Store, cat *catalog.Catalog, bundles catalog.BundleSource) *Cluster {
	return &Cluster{store: st, catalog: cat, bundles: bundles}
}

func (h *Cluster) List(w http.ResponseWriter, r *http.Request) {
	m := session.NewManager(h.store, h.catalog, session.WithBundleSource(h.bundles))
	clusters, err := m.List(r.Context())
	if err != nil {
		response.WriteModelError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, clusters)
}

func (h *Cluster) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		response.WriteModelError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, c)
}

// Placement returns service -> component -> hosting nodes, resolved against
// the catalog of the cluster's bundles.
func (h *Cluster) Placement(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		response.WriteModelError(w, err)
		return
	}

	e, err := core.New(h.catalog, c, h.store, core.WithBundleSource(h.bundles))
	if err != nil {
		response.WriteModelError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, e.View())
}
