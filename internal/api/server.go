// Package api exposes the game over HTTP: read-only views for participants
// and the two mutating operator actions, clear and advance.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"grid-market-sim/internal/api/middleware"
	"grid-market-sim/internal/game"
	"grid-market-sim/internal/history"
	"grid-market-sim/internal/model"
	"grid-market-sim/internal/ws"
)

type Server struct {
	game        *game.Game
	hub         *ws.Hub
	records     *history.MemorySink
	operatorKey string
}

func NewServer(g *game.Game, hub *ws.Hub, records *history.MemorySink, operatorKey string) *Server {
	return &Server{game: g, hub: hub, records: records, operatorKey: operatorKey}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleWS(c.Writer, c.Request)
	})

	api := router.Group("/api/v1")
	{
		api.GET("/state", s.getState)
		api.GET("/roles", s.getRoles)
		api.GET("/bids", s.getBids)
		api.GET("/results", s.getResults)
		api.GET("/history", s.getHistory)
		api.GET("/participants/:id/view", s.getView)

		api.POST("/join", s.postJoin)
		api.POST("/bids", s.postBid)

		operator := api.Group("/market", middleware.OperatorKey(s.operatorKey))
		{
			operator.POST("/clear", s.postClear)
			operator.POST("/advance", s.postAdvance)
		}
	}
	return router
}

// Watch forwards state transitions to websocket clients until ctx ends.
// Run it in its own goroutine next to the HTTP server.
func (s *Server) Watch(ctx context.Context) {
	for {
		if err := s.game.Wait(ctx); err != nil {
			return
		}
		s.hub.Publish("state", s.game.Snapshot())
	}
}

// ── Handlers ─────────────────────────────────────────

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.game.Snapshot())
}

func (s *Server) getRoles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": s.game.Roles()})
}

func (s *Server) getBids(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bids": s.game.Bids()})
}

func (s *Server) getResults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": s.game.Results()})
}

func (s *Server) getHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"records": s.records.Records()})
}

type joinRequest struct {
	Participant int `json:"participant" binding:"required"`
}

func (s *Server) postJoin(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	role, err := s.game.Join(req.Participant)
	if err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role})
}

type bidRequest struct {
	Participant int      `json:"participant" binding:"required"`
	Price       *float64 `json:"price" binding:"required"`
}

func (s *Server) postBid(c *gin.Context) {
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := s.game.SubmitBid(req.Participant, *req.Price); err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (s *Server) getView(c *gin.Context) {
	var uri struct {
		ID int `uri:"id" binding:"required"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, err.Error())
		return
	}
	view, err := s.game.View(uri.ID)
	if err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) postClear(c *gin.Context) {
	res, err := s.game.ClearMarket(c.Request.Context())
	if err != nil {
		writeGameError(c, err)
		return
	}
	s.hub.Publish("settlement", res)
	c.JSON(http.StatusOK, res)
}

func (s *Server) postAdvance(c *gin.Context) {
	if err := s.game.AdvanceRound(); err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.game.Snapshot())
}

// ── Error mapping ────────────────────────────────────

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{"code": "BAD_REQUEST", "message": msg},
	})
}

func writeGameError(c *gin.Context, err error) {
	code := "INTERNAL_ERROR"
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidBid):
		code, status = "INVALID_BID", http.StatusBadRequest
	case errors.Is(err, model.ErrAlreadySubmitted):
		code, status = "ALREADY_SUBMITTED", http.StatusConflict
	case errors.Is(err, model.ErrInfeasibleDispatch):
		code, status = "INFEASIBLE_DISPATCH", http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrAlreadyCleared):
		code, status = "ALREADY_CLEARED", http.StatusConflict
	case errors.Is(err, model.ErrInvalidTransition):
		code, status = "INVALID_TRANSITION", http.StatusConflict
	case errors.Is(err, model.ErrUnknownParticipant):
		code, status = "UNKNOWN_PARTICIPANT", http.StatusNotFound
	}
	c.JSON(status, gin.H{
		"error": gin.H{"code": code, "message": err.Error()},
	})
}
