package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dauTT/astroport-dca/dca"
	"github.com/dauTT/astroport-dca/internal/asset"
	"github.com/dauTT/astroport-dca/internal/types"
)

type createOrderRequest struct {
	Address string                  `json:"address" validate:"required"`
	Params  types.CreateOrderParams `json:"params" validate:"required"`
}

type fundRequest struct {
	Address string       `json:"address" validate:"required"`
	Bucket  types.Bucket `json:"bucket" validate:"required"`
	Asset   asset.Asset  `json:"asset" validate:"required"`
}

type modifyOrderRequest struct {
	Address string                  `json:"address" validate:"required"`
	Params  types.ModifyOrderParams `json:"params" validate:"required"`
}

type cancelOrderRequest struct {
	Address string `json:"address" validate:"required"`
}

type purchaseRequest struct {
	Executor string                `json:"executor" validate:"required"`
	Hops     []types.SwapOperation `json:"hops" validate:"required,min=1"`
}

// httpStatus maps engine rejections onto response codes. Unrecognized errors
// bubble up as 500s through echo's error handler.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, dca.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, dca.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, dca.ErrNotYetDue):
		return http.StatusConflict
	case errors.Is(err, dca.ErrAssetKindMismatch),
		errors.Is(err, dca.ErrAssetNotWhitelisted),
		errors.Is(err, dca.ErrZeroAmount),
		errors.Is(err, dca.ErrInsufficientBalance),
		errors.Is(err, dca.ErrInsufficientSourceBalance),
		errors.Is(err, dca.ErrInsufficientTipBalance),
		errors.Is(err, dca.ErrInsufficientAllowance),
		errors.Is(err, dca.ErrInvalidRoute),
		errors.Is(err, dca.ErrInvalidHops),
		errors.Is(err, dca.ErrInvalidSpread),
		errors.Is(err, dca.ErrInvalidInterval),
		errors.Is(err, dca.ErrInvalidBucket):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func engineError(err error) error {
	return echo.NewHTTPError(httpStatus(err), err.Error())
}

func orderID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	return id, nil
}

func (s *Server) CreateOrder(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "fail to parse request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := s.engine.CreateOrder(c.Request().Context(), req.Address, req.Params)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (s *Server) GetOrder(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	order, err := s.engine.GetOrder(c.Request().Context(), id)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (s *Server) ListUserOrders(c echo.Context) error {
	ids, err := s.engine.ListUserOrders(c.Request().Context(), c.Param("address"))
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, ids)
}

func (s *Server) Deposit(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req fundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "fail to parse request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := s.engine.Deposit(c.Request().Context(), req.Address, id, req.Bucket, req.Asset)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) Withdraw(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req fundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "fail to parse request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := s.engine.Withdraw(c.Request().Context(), req.Address, id, req.Bucket, req.Asset)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) ModifyOrder(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req modifyOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "fail to parse request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := s.engine.ModifyOrder(c.Request().Context(), req.Address, id, req.Params)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) CancelOrder(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req cancelOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "fail to parse request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := s.engine.CancelOrder(c.Request().Context(), req.Address, id)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) PerformPurchase(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req purchaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "fail to parse request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := s.engine.PerformPurchase(c.Request().Context(), req.Executor, id, req.Hops)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) GetConfig(c echo.Context) error {
	cfg, err := s.engine.GetConfig(c.Request().Context())
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (s *Server) UpdateConfig(c echo.Context) error {
	caller, _ := c.Get("caller_address").(string)
	var update types.ConfigUpdate
	if err := c.Bind(&update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "fail to parse request")
	}

	cfg, err := s.engine.UpdateConfig(c.Request().Context(), caller, update)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}
