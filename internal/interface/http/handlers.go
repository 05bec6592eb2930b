package httpservice

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ark-network/lottery/internal/core/application"
	"github.com/ark-network/lottery/internal/core/domain"
	"github.com/ark-network/lottery/internal/core/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

type handler struct {
	svc application.Service
}

func newHandler(svc application.Service) *handler {
	return &handler{svc}
}

func (h *handler) getInfo(c *gin.Context) {
	c.JSON(http.StatusOK, newInfoResponse(h.svc.GetInfo()))
}

func (h *handler) getCurrentRound(c *gin.Context) {
	c.JSON(http.StatusOK, newRoundInfoResponse(h.svc.GetRoundInfo()))
}

func (h *handler) getRound(c *gin.Context) {
	number, err := strconv.ParseUint(c.Param("number"), 10, 64)
	if err != nil || number == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round number"})
		return
	}

	round, err := h.svc.GetRound(c.Request.Context(), number)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newRoundResponse(*round))
}

func (h *handler) getHistory(c *gin.Context) {
	c.JSON(http.StatusOK, newHistoryResponse(h.svc.GetHistory()))
}

func (h *handler) getParticipant(c *gin.Context) {
	addr, ok := parseAddress(c, c.Param("address"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newParticipantResponse(h.svc.GetParticipant(addr)))
}

func (h *handler) getBalance(c *gin.Context) {
	addr, ok := parseAddress(c, c.Param("address"))
	if !ok {
		return
	}

	balance, err := h.svc.GetBalance(c.Request.Context(), addr)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{addr.Hex(), balance})
}

func (h *handler) faucet(c *gin.Context) {
	var req faucetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	addr, ok := parseAddress(c, req.Address)
	if !ok {
		return
	}

	if err := h.svc.Faucet(c.Request.Context(), addr, req.Amount); err != nil {
		h.fail(c, err)
		return
	}

	balance, err := h.svc.GetBalance(c.Request.Context(), addr)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{addr.Hex(), balance})
}

func (h *handler) startNextRound(c *gin.Context) {
	info, err := h.svc.StartNextRound(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newRoundInfoResponse(*info))
}

func (h *handler) deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := h.svc.Deposit(c.Request.Context(), callerFrom(c), req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newRoundInfoResponse(*info))
}

func (h *handler) selectWinner(c *gin.Context) {
	settlement, err := h.svc.SelectWinner(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSettlementResponse(*settlement))
}

func (h *handler) forceResetRound(c *gin.Context) {
	info, err := h.svc.ForceResetRound(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newRoundInfoResponse(*info))
}

func (h *handler) getMetrics(c *gin.Context) {
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)
	metrics.WriteJSONOnce(h.svc.GetMetrics(), c.Writer)
}

func (h *handler) fail(c *gin.Context, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Errorf("%s %s failed", c.Request.Method, c.FullPath())
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseAddress(c *gin.Context, str string) (common.Address, bool) {
	if !common.IsHexAddress(str) {
		c.JSON(http.StatusBadRequest, gin.H{"error": application.ErrInvalidAddress.Error()})
		return common.Address{}, false
	}
	return common.HexToAddress(str), true
}

var errorStatuses = []struct {
	status int
	errs   []error
}{
	{http.StatusServiceUnavailable, []error{application.ErrEngineHalted}},
	{http.StatusNotFound, []error{application.ErrRoundNotFound}},
	{http.StatusForbidden, []error{
		domain.ErrNotOwner,
		domain.ErrOwnerNotAllowed,
		domain.ErrOwnerCannotParticipate,
		domain.ErrCustodyNotAllowed,
		domain.ErrRepeatInitializer,
		domain.ErrRepeatFinalizer,
		application.ErrFaucetDisabled,
	}},
	{http.StatusConflict, []error{
		domain.ErrRoundNotCompleted,
		domain.ErrCooldownNotElapsed,
		domain.ErrRoundNotRunning,
		domain.ErrDuplicateParticipant,
		domain.ErrRoundFull,
		domain.ErrRoundNotElapsed,
		domain.ErrNoParticipants,
		domain.ErrParticipantsExist,
	}},
	{http.StatusBadRequest, []error{
		domain.ErrWrongStake,
		domain.ErrInvalidCaller,
		application.ErrInvalidAmount,
		application.ErrInvalidAddress,
		ports.ErrInsufficientFunds,
		ports.ErrInvalidTransfer,
	}},
}

func statusFromError(err error) int {
	for _, e := range errorStatuses {
		for _, target := range e.errs {
			if errors.Is(err, target) {
				return e.status
			}
		}
	}
	return http.StatusInternalServerError
}
