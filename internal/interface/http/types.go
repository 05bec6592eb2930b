package httpservice

import (
	"github.com/ark-network/lottery/internal/core/application"
	"github.com/ark-network/lottery/internal/core/domain"
	"github.com/ethereum/go-ethereum/common"
)

type depositRequest struct {
	Amount uint64 `json:"amount"`
}

type faucetRequest struct {
	Address string `json:"address" binding:"required"`
	Amount  uint64 `json:"amount"`
}

type infoResponse struct {
	Owner                    string `json:"owner"`
	Custody                  string `json:"custody"`
	EntryValue               uint64 `json:"entry_value"`
	MaxParticipants          int    `json:"max_participants"`
	RoundDuration            int64  `json:"round_duration"`
	Cooldown                 int64  `json:"cooldown"`
	OwnerFeePercent          string `json:"owner_fee_percent"`
	InitializerRewardPercent string `json:"initializer_reward_percent"`
	FinalizerRewardPercent   string `json:"finalizer_reward_percent"`
	FaucetEnabled            bool   `json:"faucet_enabled"`
}

func newInfoResponse(info application.Info) infoResponse {
	return infoResponse{
		Owner:                    info.Owner.Hex(),
		Custody:                  info.Custody.Hex(),
		EntryValue:               info.EntryValue,
		MaxParticipants:          info.MaxParticipants,
		RoundDuration:            int64(info.RoundDuration.Seconds()),
		Cooldown:                 int64(info.Cooldown.Seconds()),
		OwnerFeePercent:          info.Fees.OwnerFeePercent.String(),
		InitializerRewardPercent: info.Fees.InitializerRewardPercent.String(),
		FinalizerRewardPercent:   info.Fees.FinalizerRewardPercent.String(),
		FaucetEnabled:            info.FaucetEnabled,
	}
}

type roundInfoResponse struct {
	Id                      string   `json:"id,omitempty"`
	Number                  uint64   `json:"round_number"`
	Status                  string   `json:"status"`
	StatusCode              int      `json:"round_status"`
	Stage                   string   `json:"stage"`
	Initializer             string   `json:"initializer,omitempty"`
	StartingTimestamp       int64    `json:"start_time,omitempty"`
	PoolBalance             uint64   `json:"pool_balance"`
	ParticipantsCount       int      `json:"participants_count"`
	Participants            []string `json:"participants"`
	TimeLeftToClose         int64    `json:"time_left_to_close"`
	TimeLeftToAllowNewRound int64    `json:"time_left_to_allow_new_round"`
}

func newRoundInfoResponse(info application.RoundInfo) roundInfoResponse {
	return roundInfoResponse{
		Id:                      info.Id,
		Number:                  info.Number,
		Status:                  info.Status.String(),
		StatusCode:              int(info.Status),
		Stage:                   info.Stage.String(),
		Initializer:             hexOrEmpty(info.Initializer),
		StartingTimestamp:       info.StartingTimestamp,
		PoolBalance:             info.PoolBalance,
		ParticipantsCount:       len(info.Participants),
		Participants:            hexList(info.Participants),
		TimeLeftToClose:         int64(info.TimeLeftToClose.Seconds()),
		TimeLeftToAllowNewRound: int64(info.TimeLeftToAllowNewRound.Seconds()),
	}
}

type settlementResponse struct {
	Pool              uint64 `json:"pool"`
	Winner            string `json:"winner"`
	Prize             uint64 `json:"prize"`
	Owner             string `json:"owner"`
	OwnerFee          uint64 `json:"owner_fee"`
	Initializer       string `json:"initializer"`
	InitializerReward uint64 `json:"initializer_reward"`
	Finalizer         string `json:"finalizer"`
	FinalizerReward   uint64 `json:"finalizer_reward"`
}

func newSettlementResponse(s domain.Settlement) settlementResponse {
	return settlementResponse{
		Pool:              s.Pool,
		Winner:            s.Winner.Hex(),
		Prize:             s.Prize,
		Owner:             s.Owner.Hex(),
		OwnerFee:          s.OwnerFee,
		Initializer:       s.Initializer.Hex(),
		InitializerReward: s.InitializerReward,
		Finalizer:         s.Finalizer.Hex(),
		FinalizerReward:   s.FinalizerReward,
	}
}

type roundResponse struct {
	Id                string              `json:"id"`
	Number            uint64              `json:"round_number"`
	Stage             string              `json:"stage"`
	EntryValue        uint64              `json:"entry_value"`
	Initializer       string              `json:"initializer"`
	Finalizer         string              `json:"finalizer,omitempty"`
	ResetBy           string              `json:"reset_by,omitempty"`
	StartingTimestamp int64               `json:"start_time"`
	EndingTimestamp   int64               `json:"end_time,omitempty"`
	PoolBalance       uint64              `json:"pool_balance"`
	Participants      []string            `json:"participants"`
	Settlement        *settlementResponse `json:"settlement,omitempty"`
}

func newRoundResponse(r domain.Round) roundResponse {
	resp := roundResponse{
		Id:                r.Id,
		Number:            r.Number,
		Stage:             r.Stage.String(),
		EntryValue:        r.EntryValue,
		Initializer:       hexOrEmpty(r.Initializer),
		Finalizer:         hexOrEmpty(r.Finalizer),
		ResetBy:           hexOrEmpty(r.ResetBy),
		StartingTimestamp: r.StartingTimestamp,
		EndingTimestamp:   r.EndingTimestamp,
		PoolBalance:       r.PoolBalance,
		Participants:      hexList(r.Participants.List()),
	}
	if r.IsSettled() {
		settlement := newSettlementResponse(r.Settlement)
		resp.Settlement = &settlement
	}
	return resp
}

type historyResponse struct {
	RoundNumber         uint64 `json:"round_number"`
	LastInitializer     string `json:"last_round_initializer"`
	LastFinalizer       string `json:"last_round_finalizer"`
	LastWinner          string `json:"last_round_winner"`
	LastPrize           uint64 `json:"last_round_prize"`
	LastClosedTimestamp int64  `json:"last_round_closed_time"`
}

func newHistoryResponse(h domain.History) historyResponse {
	return historyResponse{
		RoundNumber:         h.RoundNumber,
		LastInitializer:     hexOrEmpty(h.LastInitializer),
		LastFinalizer:       hexOrEmpty(h.LastFinalizer),
		LastWinner:          hexOrEmpty(h.LastWinner),
		LastPrize:           h.LastPrize,
		LastClosedTimestamp: h.LastClosedTimestamp,
	}
}

type participantResponse struct {
	Address         string `json:"address"`
	Participating   bool   `json:"participating"`
	CanStartRound   bool   `json:"can_start_round"`
	CanDeposit      bool   `json:"can_deposit"`
	CanSelectWinner bool   `json:"can_select_winner"`
	CanForceReset   bool   `json:"can_force_reset"`
}

func newParticipantResponse(p application.ParticipantInfo) participantResponse {
	return participantResponse{
		Address:         p.Address.Hex(),
		Participating:   p.Participating,
		CanStartRound:   p.Eligibility.CanStartRound,
		CanDeposit:      p.Eligibility.CanDeposit,
		CanSelectWinner: p.Eligibility.CanSelectWinner,
		CanForceReset:   p.Eligibility.CanForceReset,
	}
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

type eventMessage struct {
	Type    string            `json:"type"`
	RoundId string            `json:"round_id"`
	Event   domain.RoundEvent `json:"event"`
}

func newEventMessage(e domain.RoundEvent) eventMessage {
	return eventMessage{
		Type:    e.GetType().String(),
		RoundId: e.GetRoundId(),
		Event:   e,
	}
}

func hexOrEmpty(addr common.Address) string {
	if addr == (common.Address{}) {
		return ""
	}
	return addr.Hex()
}

func hexList(addrs []common.Address) []string {
	list := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		list = append(list, addr.Hex())
	}
	return list
}
