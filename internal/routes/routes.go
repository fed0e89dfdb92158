package routes

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"aclamission/internal/config"
	"aclamission/internal/controllers"
	"aclamission/internal/ledger"
	"aclamission/internal/middleware"
)

// Store is everything the HTTP API reads and writes.
type Store interface {
	ledger.LoaderStore
	ledger.DedupStore
	ledger.LinkStore
	ledger.ImportStore
	controllers.TransactionStore
	controllers.DirectoryStore
	controllers.Pinger
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cc.AllowOrigins = nil
		cc.AllowAllOrigins = true
	}
	return cc
}

func Register(cfg config.Config, log zerolog.Logger, st Store, notifier *ledger.Notifier) *gin.Engine {
	bt := controllers.BankTransactionController{
		Loader:   ledger.NewLoader(st, cfg.FetchBatchSize, log.With().Str("service", "loader").Logger()),
		Importer: ledger.NewImporter(st, notifier, log.With().Str("service", "importer").Logger()),
		Deduper:  ledger.NewDeduper(st, cfg.FetchBatchSize, cfg.DeleteBatchSize, notifier, log.With().Str("service", "deduper").Logger()),
		Linker:   ledger.NewLinker(st, notifier, log.With().Str("service", "linker").Logger()),
		Store:    st,
		Events:   notifier,
	}
	dir := controllers.DirectoryController{Store: st, Events: notifier}
	ev := controllers.EventsController{Notifier: notifier}
	health := controllers.HealthController{DB: st}

	r := gin.New()
	r.Use(middleware.RequestLogger(log), middleware.Recovery(log))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.GET("/healthz", health.Check)

	api := r.Group("/api/v1")
	write := api.Group("", middleware.Auth(cfg.JWTSecret))

	api.GET("/bank-transactions", bt.List)
	api.GET("/bank-transactions/export", bt.Export)
	api.GET("/bank-transactions/duplicates", bt.FindDuplicates)
	write.POST("/bank-transactions", bt.Create)
	write.POST("/bank-transactions/bulk", bt.BulkCreate)
	write.POST("/bank-transactions/import", bt.ImportCSV)
	write.POST("/bank-transactions/duplicates/remove", bt.RemoveDuplicates)
	write.PATCH("/bank-transactions/:id/receipt", bt.UpdateReceipt)
	write.POST("/bank-transactions/:id/link", bt.Link)

	api.GET("/individuals", dir.ListIndividuals)
	write.POST("/individuals", dir.CreateIndividual)
	api.GET("/pledges", dir.ListPledges)
	api.GET("/pledges/:id", dir.GetPledge)
	write.POST("/pledges", dir.CreatePledge)
	api.GET("/outgoings", dir.ListOutgoings)
	write.POST("/outgoings", dir.CreateOutgoing)
	write.PATCH("/outgoings/:id/status", dir.UpdateOutgoingStatus)

	api.GET("/events", ev.Stream)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}
