// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/api/utils"
	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/staking"
)

type Ledger struct {
	engine *staking.Engine
}

func New(engine *staking.Engine) *Ledger {
	return &Ledger{engine}
}

func (l *Ledger) handleGetLedger(w http.ResponseWriter, _ *http.Request) error {
	snap, err := l.engine.Snapshot()
	if err != nil {
		return utils.StepError(err)
	}
	return utils.WriteJSON(w, snap)
}

func (l *Ledger) handleGetParams(w http.ResponseWriter, _ *http.Request) error {
	p, err := l.engine.Params()
	if err != nil {
		return utils.StepError(err)
	}
	return utils.WriteJSON(w, p)
}

func (l *Ledger) handleGetValidators(w http.ResponseWriter, _ *http.Request) error {
	list, err := l.engine.Validators()
	if err != nil {
		return utils.StepError(err)
	}
	result := make([]*Validator, 0, len(list))
	for i, v := range list {
		result = append(result, convertValidator(uint32(i), v))
	}
	return utils.WriteJSON(w, result)
}

func (l *Ledger) handleGetStakeTarget(w http.ResponseWriter, _ *http.Request) error {
	target, err := l.engine.NextStakeTarget()
	if err != nil {
		return utils.StepError(err)
	}
	return utils.WriteJSON(w, target)
}

func (l *Ledger) handleGetUnstakeTarget(w http.ResponseWriter, _ *http.Request) error {
	target, err := l.engine.NextUnstakeTarget()
	if err != nil {
		return utils.StepError(err)
	}
	return utils.WriteJSON(w, target)
}

func (l *Ledger) handleGetRecords(w http.ResponseWriter, _ *http.Request) error {
	list, err := l.engine.Records()
	if err != nil {
		return utils.StepError(err)
	}
	result := make([]*Record, 0, len(list))
	for _, r := range list {
		result = append(result, convertRecord(r))
	}
	return utils.WriteJSON(w, result)
}

func (l *Ledger) handleGetRecord(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.ParseAddress("address", mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	r, err := l.engine.Record(addr)
	if err != nil {
		return utils.StepError(err)
	}
	return utils.WriteJSON(w, convertRecord(r))
}

func (l *Ledger) handleGetTicket(w http.ResponseWriter, req *http.Request) error {
	id, err := settler.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	t, err := l.engine.Ticket(id)
	if err != nil {
		return utils.StepError(err)
	}
	p, err := l.engine.Params()
	if err != nil {
		return utils.StepError(err)
	}
	return utils.WriteJSON(w, convertTicket(t, p.CooldownEpochs))
}

// Mount registers the read-only ledger routes under pathPrefix, which may be empty.
func (l *Ledger) Mount(root *mux.Router, pathPrefix string) {
	sub := root
	if pathPrefix != "" {
		sub = root.PathPrefix(pathPrefix).Subrouter()
	}

	sub.Path("/ledger").
		Methods(http.MethodGet).
		Name("ledger_get_ledger").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetLedger))
	sub.Path("/ledger/params").
		Methods(http.MethodGet).
		Name("ledger_get_params").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetParams))
	sub.Path("/validators").
		Methods(http.MethodGet).
		Name("ledger_get_validators").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetValidators))
	sub.Path("/targets/stake").
		Methods(http.MethodGet).
		Name("ledger_get_stake_target").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetStakeTarget))
	sub.Path("/targets/unstake").
		Methods(http.MethodGet).
		Name("ledger_get_unstake_target").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetUnstakeTarget))
	sub.Path("/records").
		Methods(http.MethodGet).
		Name("ledger_get_records").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetRecords))
	sub.Path("/records/{address}").
		Methods(http.MethodGet).
		Name("ledger_get_record").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetRecord))
	sub.Path("/tickets/{id}").
		Methods(http.MethodGet).
		Name("ledger_get_ticket").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetTicket))
}
