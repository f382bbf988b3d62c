package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lapse/internal/lifecycle"
	"github.com/starford/lapse/internal/tracker"
)

// Handler holds API route handlers.
type Handler struct {
	svc *tracker.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *tracker.Service) *Handler {
	return &Handler{svc: svc}
}

// ListItems handles GET /api/items.
//
//	@Summary		List items with filtering, sorting and pagination
//	@Tags			items
//	@Produce		json
//	@Param			search		query		string	false	"Case-insensitive match on name or description"
//	@Param			category	query		string	false	"Category id or all"
//	@Param			status		query		string	false	"Status or all"	Enums(all, active, expiring-soon, expired, renewed)
//	@Param			sort		query		string	false	"Sort key"	Enums(expiry-date, name, priority, created)
//	@Param			page		query		int		false	"Page number (1-based)"
//	@Param			pageSize	query		int		false	"Page size"
//	@Success		200			{object}	ItemListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items [get]
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("page must be an integer"))
		return
	}
	pageSize, err := intParam(q.Get("pageSize"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("pageSize must be an integer"))
		return
	}

	res, err := h.svc.ListItems(r.Context(), tracker.ListQuery{
		Filter: lifecycle.Filter{
			Search:   q.Get("search"),
			Category: q.Get("category"),
			Status:   q.Get("status"),
		},
		Sort:     q.Get("sort"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeError(w, "list items", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetItem handles GET /api/items/{id}.
//
//	@Summary		Get a single item
//	@Tags			items
//	@Produce		json
//	@Param			id	path		string	true	"Item id"
//	@Success		200	{object}	ItemCard
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id} [get]
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	card, err := h.svc.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get item", err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// CreateItem handles POST /api/items.
//
//	@Summary		Create an item
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ItemRequest	true	"Item fields"
//	@Success		201		{object}	ItemCard
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items [post]
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	card, err := h.svc.CreateItem(r.Context(), req)
	if err != nil {
		writeError(w, "create item", err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// EditItem handles PUT /api/items/{id}.
//
//	@Summary		Replace the editable fields of an item
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Item id"
//	@Param			body	body		ItemRequest	true	"Item fields"
//	@Success		200		{object}	ItemCard
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id} [put]
func (h *Handler) EditItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	card, err := h.svc.EditItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "edit item", err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// RenewItem handles POST /api/items/{id}/renew.
//
//	@Summary		Renew an item
//	@Description	Records a renewal at the item's current cost and stamps lastRenewed.
//	@Tags			items
//	@Produce		json
//	@Param			id	path		string	true	"Item id"
//	@Success		200	{object}	ItemCard
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id}/renew [post]
func (h *Handler) RenewItem(w http.ResponseWriter, r *http.Request) {
	card, err := h.svc.RenewItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "renew item", err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// DeleteItem handles DELETE /api/items/{id}.
//
//	@Summary		Delete an item
//	@Tags			items
//	@Param			id	path	string	true	"Item id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id} [delete]
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /api/categories.
//
//	@Summary		List categories with item counts
//	@Tags			categories
//	@Produce		json
//	@Success		200	{object}	CategoryListResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CategoryListResponse{Categories: h.svc.ListCategories(r.Context())})
}

// GetCategory handles GET /api/categories/{id}.
//
//	@Summary		Get a single category
//	@Tags			categories
//	@Produce		json
//	@Param			id	path		string	true	"Category id"
//	@Success		200	{object}	models.Category
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{id} [get]
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get category", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCategory handles POST /api/categories.
//
//	@Summary		Create a category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CategoryRequest	true	"Category fields"
//	@Success		201		{object}	models.Category
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories [post]
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), req)
	if err != nil {
		writeError(w, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// EditCategory handles PUT /api/categories/{id}.
//
//	@Summary		Edit a category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Category id"
//	@Param			body	body		CategoryRequest	true	"Category fields"
//	@Success		200		{object}	models.Category
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{id} [put]
func (h *Handler) EditCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.EditCategory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "edit category", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/categories/{id}.
// Items in the category keep their reference and display as Unknown.
//
//	@Summary		Delete a category
//	@Tags			categories
//	@Param			id	path	string	true	"Category id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{id} [delete]
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// intParam parses an optional integer query parameter; empty means zero.
func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
