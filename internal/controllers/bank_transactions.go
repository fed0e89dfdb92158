package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"aclamission/internal/ledger"
	"aclamission/models"
)

// TransactionStore is the direct row access the controller needs beyond the
// ledger services.
type TransactionStore interface {
	UpdateReceipt(ctx context.Context, id, receipt string) (*models.BankTransaction, error)
}

type BankTransactionController struct {
	Loader   *ledger.Loader
	Importer *ledger.Importer
	Deduper  *ledger.Deduper
	Linker   *ledger.Linker
	Store    TransactionStore
	Events   ledger.Publisher
}

func parseViewQuery(c *gin.Context) (ledger.ViewQuery, error) {
	q := ledger.ViewQuery{
		Reference:          c.Query("reference"),
		Narrative:          c.Query("narrative"),
		BeneficiaryAccount: c.Query("beneficiaryAccount"),
		BeneficiaryName:    c.Query("beneficiaryName"),
		ReceiptNumber:      c.Query("receiptNumber"),
		Desc:               strings.EqualFold(c.Query("order"), "desc"),
	}
	var err error
	if q.From, err = models.ParseStatementDate(c.Query("from")); err != nil {
		return q, fmt.Errorf("%w: from: %v", ledger.ErrValidation, err)
	}
	if q.To, err = models.ParseStatementDate(c.Query("to")); err != nil {
		return q, fmt.Errorf("%w: to: %v", ledger.ErrValidation, err)
	}
	if q.SortBy, err = ledger.ParseSortField(c.Query("sortBy")); err != nil {
		return q, err
	}
	if v := c.Query("page"); v != "" {
		if q.Page, err = strconv.Atoi(v); err != nil || q.Page < 1 {
			return q, fmt.Errorf("%w: page must be a positive integer", ledger.ErrValidation)
		}
	}
	if v := c.Query("pageSize"); v != "" {
		if q.PageSize, err = strconv.Atoi(v); err != nil || q.PageSize < 1 || q.PageSize > ledger.MaxPageSize {
			return q, fmt.Errorf("%w: pageSize must be between 1 and %d", ledger.ErrValidation, ledger.MaxPageSize)
		}
	}
	return q, nil
}

// List loads every transaction and returns one filtered, sorted page plus
// the totals over all rows.
func (h BankTransactionController) List(c *gin.Context) {
	q, err := parseViewQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.Loader.Load(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	page := ledger.ApplyView(res.Rows, q)
	c.JSON(http.StatusOK, gin.H{
		"items":      page.Items,
		"total":      page.Total,
		"page":       page.Page,
		"pageSize":   page.PageSize,
		"totalPages": page.TotalPages,
		"totals":     res.Totals,
	})
}

// Export streams the filtered and sorted view, unpaged, as CSV.
func (h BankTransactionController) Export(c *gin.Context) {
	q, err := parseViewQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.Loader.Load(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	rows := ledger.Filter(res.Rows, q)
	ledger.SortRows(rows, q.SortBy, q.Desc)

	name := fmt.Sprintf("bank-transactions-%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
	if err := ledger.WriteCSV(c.Writer, rows); err != nil {
		_ = c.Error(err)
	}
}

func (h BankTransactionController) Create(c *gin.Context) {
	var body models.BankTransaction
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := ledger.ValidateTransaction(body); err != nil {
		fail(c, err)
		return
	}
	if strings.TrimSpace(body.ID) == "" {
		body.ID = uuid.NewString()
	}
	res, err := h.Importer.Import(c.Request.Context(), []models.BankTransaction{body})
	if err != nil {
		fail(c, err)
		return
	}
	if res.Inserted == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "transaction " + body.ID + " already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "id": body.ID})
}

func (h BankTransactionController) BulkCreate(c *gin.Context) {
	var list []models.BankTransaction
	if err := c.ShouldBindJSON(&list); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(list) == 0 {
		badRequest(c, "payload must be a non-empty array")
		return
	}
	res, err := h.Importer.Import(c.Request.Context(), list)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ImportCSV accepts a bank statement export as the multipart field "file".
func (h BankTransactionController) ImportCSV(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	rows, rowErrs, err := ledger.ParseCSV(f)
	if err != nil {
		fail(c, err)
		return
	}
	res := &ledger.ImportResult{}
	if len(rows) > 0 {
		if res, err = h.Importer.Import(c.Request.Context(), rows); err != nil {
			fail(c, err)
			return
		}
	}
	res.Total += len(rowErrs)
	res.Skipped += len(rowErrs)
	res.Errors = append(rowErrs, res.Errors...)
	c.JSON(http.StatusOK, res)
}

type receiptPayload struct {
	ReceiptNumber string `json:"receiptNumber"`
}

func (h BankTransactionController) UpdateReceipt(c *gin.Context) {
	var p receiptPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := h.Store.UpdateReceipt(c.Request.Context(), c.Param("id"), p.ReceiptNumber)
	if err != nil {
		fail(c, err)
		return
	}
	if h.Events != nil {
		h.Events.Publish(ledger.NewEvent(ledger.EventTransactionsUpdated, t.ID))
	}
	c.JSON(http.StatusOK, t)
}

type linkPayload struct {
	Kind     string `json:"kind" binding:"required"`
	TargetID string `json:"targetId"`
}

// Link reconciles the transaction against a pledge or outgoing. An empty
// targetId, or "unlink", clears the link.
func (h BankTransactionController) Link(c *gin.Context) {
	var p linkPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	kind, err := ledger.ParseLinkKind(p.Kind)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.Linker.Link(c.Request.Context(), c.Param("id"), kind, p.TargetID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h BankTransactionController) FindDuplicates(c *gin.Context) {
	rep, err := h.Deduper.Find(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

type removePayload struct {
	IDs     []string `json:"ids"`
	Confirm bool     `json:"confirm"`
}

// RemoveDuplicates deletes the given ids in batches. Ids that are not
// current duplicates are listed as rejected. A failure part way through
// answers 500 with the partial result.
func (h BankTransactionController) RemoveDuplicates(c *gin.Context) {
	var p removePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.Deduper.Remove(c.Request.Context(), p.IDs, p.Confirm)
	if err != nil && res != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": res})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
