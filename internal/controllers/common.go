package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aclamission/internal/ledger"
	"aclamission/internal/logger"
)

// limitOffset reads the limit/offset query pair, 50 rows by default and at
// most 500.
func limitOffset(c *gin.Context) (int, int) {
	lim := 50
	off := 0
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 && n <= 500 {
		lim = n
	}
	if n, err := strconv.Atoi(c.Query("offset")); err == nil && n >= 0 {
		off = n
	}
	return lim, off
}

func paginated[T any](c *gin.Context, items []T, total int64, lim, off int) {
	hasNext := int64(off+lim) < total
	nextOffset := off + lim
	if !hasNext {
		nextOffset = off
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"pagination": gin.H{
			"total": total, "limit": lim, "offset": off, "hasNext": hasNext, "nextOffset": nextOffset,
		},
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, ledger.ErrInvalidKind),
		errors.Is(err, ledger.ErrNotConfirmed),
		errors.Is(err, ledger.ErrNoIDs):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail logs err once and writes it as {"error": ...}.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	log := logger.FromContext(c.Request.Context())
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Msg("request failed")
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
