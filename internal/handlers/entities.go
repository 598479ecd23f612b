package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"medconnect-server/internal/logger"
	"medconnect-server/internal/store"
	"medconnect-server/internal/utils"
)

// EntityRepository is the generic table access behind /entities.
type EntityRepository interface {
	ListEntities(ctx context.Context, e store.Entity, query store.EntityQuery) (interface{}, error)
	GetEntity(ctx context.Context, e store.Entity, id string) (interface{}, error)
	CreateEntity(ctx context.Context, e store.Entity, payload []byte) (interface{}, error)
	UpdateEntity(ctx context.Context, e store.Entity, id string, payload []byte) (interface{}, error)
	DeleteEntity(ctx context.Context, e store.Entity, id string) error
	Stats(ctx context.Context) (*store.Stats, error)
}

// EntityHandler exposes raw CRUD over the registered entities, plus the
// admin dashboard counts. Admin only.
type EntityHandler struct {
	repo   EntityRepository
	logger *logger.Logger
}

func NewEntityHandler(repo EntityRepository, log *logger.Logger) *EntityHandler {
	return &EntityHandler{repo: repo, logger: log}
}

func (h *EntityHandler) lookup(c *gin.Context) (store.Entity, bool) {
	e, err := store.LookupEntity(c.Param("name"))
	if err != nil {
		utils.HandleError(c, err)
		return store.Entity{}, false
	}
	return e, true
}

// Names handles GET /entities.
func (h *EntityHandler) Names(c *gin.Context) {
	out := make(map[string][]string)
	for _, name := range store.EntityNames() {
		e, _ := store.LookupEntity(name)
		out[name] = e.Fields()
	}
	utils.Success(c, "Entities fetched successfully", out)
}

// List handles GET /entities/:name?field=value&sort=-field&limit=n.
func (h *EntityHandler) List(c *gin.Context) {
	e, ok := h.lookup(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	q := store.EntityQuery{Filters: map[string]string{}, Sort: c.Query("sort"), Limit: limit}
	for key, values := range c.Request.URL.Query() {
		if key == "sort" || key == "limit" || key == "access_token" || len(values) == 0 {
			continue
		}
		q.Filters[key] = values[0]
	}

	list, err := h.repo.ListEntities(c.Request.Context(), e, q)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, e.Name+" list fetched successfully", list)
}

func (h *EntityHandler) Get(c *gin.Context) {
	e, ok := h.lookup(c)
	if !ok {
		return
	}
	obj, err := h.repo.GetEntity(c.Request.Context(), e, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, e.Name+" fetched successfully", obj)
}

func (h *EntityHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	e, ok := h.lookup(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		utils.BadRequest(c, "Request body is required")
		return
	}

	obj, err := h.repo.CreateEntity(c.Request.Context(), e, body)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.logger.Audit(actor.ID, "create", e.Name, true, nil)
	utils.Created(c, e.Name+" created successfully", obj)
}

func (h *EntityHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	e, ok := h.lookup(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		utils.BadRequest(c, "Request body is required")
		return
	}

	id := c.Param("id")
	obj, err := h.repo.UpdateEntity(c.Request.Context(), e, id, body)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.logger.Audit(actor.ID, "update", e.Name, true, map[string]interface{}{"id": id})
	utils.Success(c, e.Name+" updated successfully", obj)
}

func (h *EntityHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	e, ok := h.lookup(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.repo.DeleteEntity(c.Request.Context(), e, id); err != nil {
		utils.HandleError(c, err)
		return
	}
	h.logger.Audit(actor.ID, "delete", e.Name, true, map[string]interface{}{"id": id})
	utils.Success(c, e.Name+" deleted successfully", nil)
}

// Stats handles GET /admin/stats.
func (h *EntityHandler) Stats(c *gin.Context) {
	st, err := h.repo.Stats(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Stats fetched successfully", st)
}
