package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"aclamission/internal/ledger"
	"aclamission/models"
)

// DirectoryStore holds the supporters, their pledges and the outgoings
// transactions are reconciled against.
type DirectoryStore interface {
	ListIndividuals(ctx context.Context, limit, offset int) ([]models.Individual, int64, error)
	CreateIndividual(ctx context.Context, ind *models.Individual) error
	ListPledges(ctx context.Context, limit, offset int) ([]models.Pledge, int64, error)
	GetPledge(ctx context.Context, id string) (*models.Pledge, error)
	CreatePledge(ctx context.Context, p *models.Pledge) error
	ListOutgoings(ctx context.Context, status models.OutgoingStatus, limit, offset int) ([]models.Outgoing, int64, error)
	CreateOutgoing(ctx context.Context, o *models.Outgoing) error
	UpdateOutgoingStatus(ctx context.Context, id string, next models.OutgoingStatus) (*models.Outgoing, error)
}

type DirectoryController struct {
	Store  DirectoryStore
	Events ledger.Publisher
}

func (h DirectoryController) changed(id string) {
	if h.Events != nil {
		h.Events.Publish(ledger.NewEvent(ledger.EventDirectoryChanged, id))
	}
}

func (h DirectoryController) ListIndividuals(c *gin.Context) {
	lim, off := limitOffset(c)
	items, total, err := h.Store.ListIndividuals(c.Request.Context(), lim, off)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, items, total, lim, off)
}

func (h DirectoryController) CreateIndividual(c *gin.Context) {
	var body models.Individual
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	body.ID = uuid.NewString()
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		badRequest(c, "name is required")
		return
	}
	if err := h.Store.CreateIndividual(c.Request.Context(), &body); err != nil {
		fail(c, err)
		return
	}
	h.changed(body.ID)
	c.JSON(http.StatusCreated, body)
}

// pledgeView adds the computed yearly total and the supporter's name.
type pledgeView struct {
	models.Pledge
	IndividualName string  `json:"individualName"`
	YearlyTotal    float64 `json:"yearlyTotal"`
}

func newPledgeView(p models.Pledge) pledgeView {
	v := pledgeView{Pledge: p, YearlyTotal: p.YearlyTotal().InexactFloat64()}
	if p.Individual != nil {
		v.IndividualName = p.Individual.Name
	}
	return v
}

func (h DirectoryController) ListPledges(c *gin.Context) {
	lim, off := limitOffset(c)
	rows, total, err := h.Store.ListPledges(c.Request.Context(), lim, off)
	if err != nil {
		fail(c, err)
		return
	}
	items := make([]pledgeView, 0, len(rows))
	for _, p := range rows {
		items = append(items, newPledgeView(p))
	}
	paginated(c, items, total, lim, off)
}

func (h DirectoryController) GetPledge(c *gin.Context) {
	p, err := h.Store.GetPledge(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPledgeView(*p))
}

func (h DirectoryController) CreatePledge(c *gin.Context) {
	var body models.Pledge
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	if body.Frequency == "" {
		body.Frequency = models.FrequencyMonthly
	}
	if !body.Frequency.Valid() {
		badRequest(c, "frequency must be monthly, quarterly, yearly or one_time")
		return
	}
	body.ID = uuid.NewString()
	body.Individual = nil
	body.FulfillmentStatus = 0
	if err := h.Store.CreatePledge(c.Request.Context(), &body); err != nil {
		fail(c, err)
		return
	}
	h.changed(body.ID)
	c.JSON(http.StatusCreated, newPledgeView(body))
}

func (h DirectoryController) ListOutgoings(c *gin.Context) {
	status := models.OutgoingStatus(strings.ToLower(c.Query("status")))
	if status != "" && !status.Valid() {
		badRequest(c, "status must be requested, approved or finalized")
		return
	}
	lim, off := limitOffset(c)
	items, total, err := h.Store.ListOutgoings(c.Request.Context(), status, lim, off)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, items, total, lim, off)
}

func (h DirectoryController) CreateOutgoing(c *gin.Context) {
	var body models.Outgoing
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	body.ID = uuid.NewString()
	body.PaidAmount = 0
	body.PaidStatus = models.PaidStatusUnpaid
	body.Status = models.OutgoingRequested
	if err := h.Store.CreateOutgoing(c.Request.Context(), &body); err != nil {
		fail(c, err)
		return
	}
	h.changed(body.ID)
	c.JSON(http.StatusCreated, body)
}

type statusPayload struct {
	Status models.OutgoingStatus `json:"status" binding:"required"`
}

func (h DirectoryController) UpdateOutgoingStatus(c *gin.Context) {
	var p statusPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !p.Status.Valid() {
		fail(c, fmt.Errorf("%w: unknown status %q", ledger.ErrValidation, p.Status))
		return
	}
	o, err := h.Store.UpdateOutgoingStatus(c.Request.Context(), c.Param("id"), p.Status)
	if err != nil {
		fail(c, err)
		return
	}
	h.changed(o.ID)
	c.JSON(http.StatusOK, o)
}
