package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"

	"github.com/dauTT/astroport-dca/config"
	"github.com/dauTT/astroport-dca/dca"
	"github.com/dauTT/astroport-dca/storage"
)

type Server struct {
	cfg      *config.Config
	engine   *dca.Engine
	redis    *storage.RedisStorage
	sdClient *statsd.Client
	logger   *logrus.Logger
}

type requestValidator struct {
	validator *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// NewServer returns a new server.
func NewServer(
	cfg *config.Config,
	engine *dca.Engine,
	redis *storage.RedisStorage,
	sdClient *statsd.Client,
	logger *logrus.Logger,
) *Server {
	return &Server{
		cfg:      cfg,
		engine:   engine,
		redis:    redis,
		sdClient: sdClient,
		logger:   logger,
	}
}

func (s *Server) StartServer() error {
	e := echo.New()
	e.Logger.SetLevel(log.DEBUG)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(s.statsdMiddleware)
	e.Use(middleware.CORS())
	limiterStore := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{Rate: 5, Burst: 30, ExpiresIn: 5 * time.Minute},
	)
	e.Use(middleware.RateLimiter(limiterStore))

	e.Validator = &requestValidator{validator: validator.New()}

	e.GET("/ping", s.Ping)

	grp := e.Group("/orders")
	grp.POST("", s.CreateOrder)
	grp.GET("/:id", s.GetOrder)
	grp.PUT("/:id", s.ModifyOrder)
	grp.DELETE("/:id", s.CancelOrder)
	grp.POST("/:id/deposit", s.Deposit)
	grp.POST("/:id/withdraw", s.Withdraw)
	grp.POST("/:id/purchase", s.PerformPurchase)
	e.GET("/users/:address/orders", s.ListUserOrders)

	e.GET("/config", s.GetConfig)
	e.PUT("/config", s.UpdateConfig, s.adminAuthMiddleware)

	return e.Start(fmt.Sprintf(":%d", s.cfg.Server.Port))
}

func (s *Server) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "DCA server is running")
}
