package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
)

const callerHeader = "X-Lottery-Caller"

// flags
var (
	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "the url where to reach the lottery engine",
		Value: "http://localhost:7080",
	}
	callerFlag = &cli.StringFlag{
		Name:     "caller",
		Usage:    "address invoking the operation",
		Required: true,
	}
	addressFlag = &cli.StringFlag{
		Name:     "address",
		Usage:    "account address",
		Required: true,
	}
	amountFlag = &cli.Uint64Flag{
		Name:     "amount",
		Usage:    "amount in base units",
		Required: true,
	}
	numberFlag = &cli.Uint64Flag{
		Name:  "number",
		Usage: "number of a past round, current round if omitted",
	}
)

// commands
var (
	roundCmd = &cli.Command{
		Name:   "round",
		Usage:  "Get info about the current or a past round",
		Action: roundAction,
		Flags:  []cli.Flag{numberFlag},
	}
	startCmd = &cli.Command{
		Name:   "start",
		Usage:  "Start a new round",
		Action: startAction,
		Flags:  []cli.Flag{callerFlag},
	}
	depositCmd = &cli.Command{
		Name:   "deposit",
		Usage:  "Join the current round by paying the entry value",
		Action: depositAction,
		Flags:  []cli.Flag{callerFlag, amountFlag},
	}
	selectWinnerCmd = &cli.Command{
		Name:   "select-winner",
		Usage:  "Draw the winner of the current round and pay out the pool",
		Action: selectWinnerAction,
		Flags:  []cli.Flag{callerFlag},
	}
	forceResetCmd = &cli.Command{
		Name:   "force-reset",
		Usage:  "Abandon an elapsed round without participants (owner only)",
		Action: forceResetAction,
		Flags:  []cli.Flag{callerFlag},
	}
	balanceCmd = &cli.Command{
		Name:   "balance",
		Usage:  "Get the ledger balance of an account",
		Action: balanceAction,
		Flags:  []cli.Flag{addressFlag},
	}
	faucetCmd = &cli.Command{
		Name:   "faucet",
		Usage:  "Credit test funds to an account",
		Action: faucetAction,
		Flags:  []cli.Flag{addressFlag, amountFlag},
	}
)

func roundAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/round", ctx.String("url"))
	if number := ctx.Uint64("number"); number > 0 {
		url = fmt.Sprintf("%s/%d", url, number)
	}

	round, err := get[map[string]interface{}](url)
	if err != nil {
		return err
	}
	return printJSON(round)
}

func startAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/round/start", ctx.String("url"))
	round, err := post[map[string]interface{}](url, nil, ctx.String("caller"))
	if err != nil {
		return err
	}
	return printJSON(round)
}

func depositAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/round/deposit", ctx.String("url"))
	body := map[string]uint64{"amount": ctx.Uint64("amount")}
	round, err := post[map[string]interface{}](url, body, ctx.String("caller"))
	if err != nil {
		return err
	}
	return printJSON(round)
}

func selectWinnerAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/round/select-winner", ctx.String("url"))
	settlement, err := post[map[string]interface{}](url, nil, ctx.String("caller"))
	if err != nil {
		return err
	}
	return printJSON(settlement)
}

func forceResetAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/round/force-reset", ctx.String("url"))
	round, err := post[map[string]interface{}](url, nil, ctx.String("caller"))
	if err != nil {
		return err
	}
	return printJSON(round)
}

func balanceAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/balance/%s", ctx.String("url"), ctx.String("address"))
	balance, err := get[balanceResponse](url)
	if err != nil {
		return err
	}
	fmt.Println(balance.Balance)
	return nil
}

func faucetAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/faucet", ctx.String("url"))
	body := map[string]interface{}{
		"address": ctx.String("address"),
		"amount":  ctx.Uint64("amount"),
	}
	balance, err := post[balanceResponse](url, body, "")
	if err != nil {
		return err
	}
	fmt.Printf("balance of %s is now %d\n", balance.Address, balance.Balance)
	return nil
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

func post[T any](url string, body interface{}, caller string) (result T, err error) {
	buf := []byte("{}")
	if body != nil {
		if buf, err = json.Marshal(body); err != nil {
			return
		}
	}
	req, err := http.NewRequest("POST", url, bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Add("Content-Type", "application/json")
	if len(caller) > 0 {
		req.Header.Add(callerHeader, caller)
	}
	return do[T](req)
}

func get[T any](url string) (result T, err error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return
	}
	req.Header.Add("Content-Type", "application/json")
	return do[T](req)
}

func do[T any](req *http.Request) (result T, err error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	if resp.StatusCode != http.StatusOK {
		errResp := struct {
			Error string `json:"error"`
		}{}
		if json.Unmarshal(buf, &errResp) == nil && len(errResp.Error) > 0 {
			err = fmt.Errorf("request failed (%d): %s", resp.StatusCode, errResp.Error)
			return
		}
		err = fmt.Errorf("request failed (%d): %s", resp.StatusCode, string(buf))
		return
	}

	err = json.Unmarshal(buf, &result)
	return
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}
