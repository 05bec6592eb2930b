package httpservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ark-network/lottery/internal/core/application"
	interfaces "github.com/ark-network/lottery/internal/interface"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type service struct {
	config     Config
	appService application.Service
	server     *http.Server
}

func NewService(
	svcConfig Config, appService application.Service,
) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}

	server := &http.Server{
		Addr:              svcConfig.address(),
		Handler:           newRouter(svcConfig, appService),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &service{svcConfig, appService, server}, nil
}

func (s *service) Start() error {
	if err := s.appService.Start(); err != nil {
		return fmt.Errorf("failed to start app service: %s", err)
	}
	log.Info("started app service")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped unexpectedly")
		}
	}()
	log.Infof("started listening at %s", s.config.address())
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to gracefully stop http server")
	}
	log.Info("stopped http server")
	s.appService.Stop()
	log.Info("stopped app service")
}

func newRouter(config Config, appService application.Service) *gin.Engine {
	if !log.IsLevelEnabled(log.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	if len(config.CORSAllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		if config.CORSAllowedOrigins[0] == "*" {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = config.CORSAllowedOrigins
		}
		corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, callerHeader)
		corsConfig.MaxAge = 12 * time.Hour
		router.Use(cors.New(corsConfig))
	}

	h := newHandler(appService)

	v1 := router.Group("/v1")
	v1.GET("/info", h.getInfo)
	v1.GET("/round", h.getCurrentRound)
	v1.GET("/round/:number", h.getRound)
	v1.GET("/history", h.getHistory)
	v1.GET("/participants/:address", h.getParticipant)
	v1.GET("/balance/:address", h.getBalance)
	v1.GET("/events", h.streamEvents)
	v1.GET("/metrics", h.getMetrics)
	v1.POST("/faucet", h.faucet)

	round := v1.Group("/round", withCaller())
	round.POST("/start", h.startNextRound)
	round.POST("/deposit", h.deposit)
	round.POST("/select-winner", h.selectWinner)
	round.POST("/force-reset", h.forceResetRound)

	return router
}
