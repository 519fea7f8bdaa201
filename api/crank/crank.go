// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package crank

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/api/utils"
	"github.com/lstlabs/settler/cranker"
	"github.com/lstlabs/settler/staking"
)

type operation func(req *http.Request) (any, error)

// Crank exposes every state-changing entry point of the engine. Each call is
// one step: it either commits entirely or leaves the ledger untouched.
type Crank struct {
	engine  *staking.Engine
	cranker *cranker.Cranker
	ops     map[string]operation
}

// New creates the handler set. cranker may be nil, in which case full passes
// are not offered.
func New(engine *staking.Engine, c *cranker.Cranker) *Crank {
	cr := &Crank{engine: engine, cranker: c}
	cr.ops = map[string]operation{
		"recognize_rewards":      cr.recognizeRewards,
		"rebalance_stake":        cr.rebalanceStake,
		"rebalance_unstake":      cr.rebalanceUnstake,
		"create_ticket":          cr.createTicket,
		"claim_ticket":           cr.claimTicket,
		"liquid_unstake":         cr.liquidUnstake,
		"add_liquidity":          cr.addLiquidity,
		"remove_liquidity":       cr.removeLiquidity,
		"merge_records":          cr.mergeRecords,
		"retrieve_deactivated":   cr.retrieveDeactivated,
		"deposit":                cr.deposit,
		"deposit_stake_account":  cr.depositStakeAccount,
		"withdraw_stake_account": cr.withdrawStakeAccount,
	}
	return cr
}

func decode[T any](req *http.Request) (*T, error) {
	var body T
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "body"))
	}
	return &body, nil
}

func (c *Crank) recognizeRewards(req *http.Request) (any, error) {
	body, err := decode[RecordRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.RecognizeRewards(body.Record)
}

func (c *Crank) retrieveDeactivated(req *http.Request) (any, error) {
	body, err := decode[RecordRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.RetrieveDeactivated(body.Record)
}

func (c *Crank) rebalanceStake(req *http.Request) (any, error) {
	body, err := decode[RebalanceRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.RebalanceStake(body.Index, body.Validator)
}

func (c *Crank) rebalanceUnstake(req *http.Request) (any, error) {
	body, err := decode[RebalanceRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.RebalanceUnstake(body.Index, body.Validator)
}

func (c *Crank) mergeRecords(req *http.Request) (any, error) {
	body, err := decode[MergeRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.MergeRecords(body.Dst, body.Src)
}

func (c *Crank) createTicket(req *http.Request) (any, error) {
	body, err := decode[TicketRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.CreateTicket(body.Owner, body.Tokens)
}

func (c *Crank) claimTicket(req *http.Request) (any, error) {
	body, err := decode[ClaimRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.ClaimTicket(body.Ticket, body.Beneficiary)
}

func (c *Crank) liquidUnstake(req *http.Request) (any, error) {
	body, err := decode[AmountRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.LiquidUnstake(body.Account, body.Amount)
}

func (c *Crank) addLiquidity(req *http.Request) (any, error) {
	body, err := decode[AmountRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.AddLiquidity(body.Account, body.Amount)
}

func (c *Crank) removeLiquidity(req *http.Request) (any, error) {
	body, err := decode[AmountRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.RemoveLiquidity(body.Account, body.Amount)
}

func (c *Crank) deposit(req *http.Request) (any, error) {
	body, err := decode[AmountRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.Deposit(body.Account, body.Amount)
}

func (c *Crank) depositStakeAccount(req *http.Request) (any, error) {
	body, err := decode[StakeAccountRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.DepositStakeAccount(body.Owner, body.Account, body.Index)
}

func (c *Crank) withdrawStakeAccount(req *http.Request) (any, error) {
	body, err := decode[WithdrawStakeRequest](req)
	if err != nil {
		return nil, err
	}
	return c.engine.WithdrawStakeAccount(body.Owner, body.Record, body.Tokens)
}

func (c *Crank) handleOperation(w http.ResponseWriter, req *http.Request) error {
	name := mux.Vars(req)["op"]
	op, ok := c.ops[name]
	if !ok {
		return utils.NotFound(errors.Errorf("unknown operation %q", name))
	}
	res, err := op(req)
	if err != nil {
		// decode failures are already http errors
		return utils.StepError(err)
	}
	return utils.WriteJSON(w, res)
}

func (c *Crank) handlePass(w http.ResponseWriter, _ *http.Request) error {
	if c.cranker == nil {
		return utils.HTTPError(errors.New("cranker not running"), http.StatusServiceUnavailable)
	}
	report, err := c.cranker.Crank()
	if err != nil {
		return utils.StepError(err)
	}
	return utils.WriteJSON(w, report)
}

func (c *Crank) handleListOperations(w http.ResponseWriter, _ *http.Request) error {
	names := make([]string, 0, len(c.ops))
	for name := range c.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return utils.WriteJSON(w, names)
}

func (c *Crank) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("crank_list_operations").
		HandlerFunc(utils.WrapHandlerFunc(c.handleListOperations))
	sub.Path("/pass").
		Methods(http.MethodPost).
		Name("crank_pass").
		HandlerFunc(utils.WrapHandlerFunc(c.handlePass))
	sub.Path("/{op}").
		Methods(http.MethodPost).
		Name("crank_operation").
		HandlerFunc(utils.WrapHandlerFunc(c.handleOperation))
}
