package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"autovault/internal/analytics"
	"autovault/internal/catalog"
	"autovault/internal/config"
	"autovault/internal/domain"
	"autovault/internal/normalize"
	"autovault/internal/session"
	"autovault/internal/txflow"
)

// api serves the view-model and the transaction lifecycle as JSON.
type api struct {
	loader  *session.Loader
	orch    *txflow.Orchestrator
	catalog *catalog.Service
	cfg     *config.Config
	logger  *log.Logger
}

func newAPI(loader *session.Loader, orch *txflow.Orchestrator, cat *catalog.Service, cfg *config.Config, logger *log.Logger) *api {
	return &api{loader: loader, orch: orch, catalog: cat, cfg: cfg, logger: logger}
}

func (a *api) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/portfolio", a.handlePortfolio)
		r.Get("/strategies", a.handleStrategies)
		r.Get("/vaults/{id}/history", a.handleHistory)
		r.Post("/refresh", a.handleRefresh)

		r.Route("/tx", func(r chi.Router) {
			r.Get("/", a.handleTxState)
			r.Post("/create", a.handleCreate)
			r.Post("/deposit", a.handleDeposit)
			r.Post("/withdraw", a.handleWithdraw)
			r.Post("/set-active", a.handleSetActive)
			r.Post("/reset", a.handleReset)
		})
	})

	return r
}

// vaultDTO renders a vault with gateway-format amount strings.
type vaultDTO struct {
	ID               string `json:"id"`
	Owner            string `json:"owner"`
	Name             string `json:"name"`
	Strategy         string `json:"strategy"`
	Balance          string `json:"balance"`
	TotalDeposits    string `json:"totalDeposits"`
	TotalWithdrawals string `json:"totalWithdrawals"`
	IsActive         bool   `json:"isActive"`
	LastExecution    int64  `json:"lastExecution"`
	CreatedAt        int64  `json:"createdAt"`
}

type performanceDTO struct {
	CurrentBalance string  `json:"currentBalance"`
	TotalDeposits  string  `json:"totalDeposits"`
	PnL            string  `json:"pnl"`
	PnLPercent     float64 `json:"pnlPercent"`
}

type portfolioDTO struct {
	LoggedIn         bool                          `json:"loggedIn"`
	Address          string                        `json:"address,omitempty"`
	WalletKind       string                        `json:"walletKind"`
	Vaults           []vaultDTO                    `json:"vaults"`
	Performance      map[string]performanceDTO     `json:"performance"`
	Risk             map[string]domain.RiskProfile `json:"risk"`
	AvailableBalance string                        `json:"availableBalance"`
	Loading          bool                          `json:"loading"`
	Error            string                        `json:"error,omitempty"`
}

func (a *api) handlePortfolio(w http.ResponseWriter, _ *http.Request) {
	snap := a.loader.Snapshot()

	dto := portfolioDTO{
		LoggedIn:         snap.Identity.LoggedIn,
		Address:          snap.Identity.Address,
		WalletKind:       string(snap.Identity.Kind),
		Vaults:           make([]vaultDTO, 0, len(snap.Vaults)),
		Performance:      make(map[string]performanceDTO, len(snap.Performance)),
		Risk:             snap.Risk,
		AvailableBalance: normalize.FormatAmount(snap.AvailableBalance),
		Loading:          snap.Loading,
		Error:            snap.Err,
	}
	for _, v := range snap.Vaults {
		dto.Vaults = append(dto.Vaults, vaultDTO{
			ID:               v.ID,
			Owner:            v.Owner,
			Name:             v.Name,
			Strategy:         v.Strategy,
			Balance:          normalize.FormatAmount(v.Balance),
			TotalDeposits:    normalize.FormatAmount(v.TotalDeposits),
			TotalWithdrawals: normalize.FormatAmount(v.TotalWithdrawals),
			IsActive:         v.IsActive,
			LastExecution:    v.LastExecution,
			CreatedAt:        v.CreatedAt,
		})
	}
	for id, p := range snap.Performance {
		dto.Performance[id] = performanceDTO{
			CurrentBalance: normalize.FormatAmount(p.CurrentBalance),
			TotalDeposits:  normalize.FormatAmount(p.TotalDeposits),
			PnL:            normalize.FormatAmount(p.PnL),
			PnLPercent:     p.PnLPercent,
		}
	}

	writeJSON(w, http.StatusOK, dto)
}

func (a *api) handleStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := a.catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "strategy catalog unavailable")
		return
	}

	opts := catalog.FilterOptions{ActiveOnly: r.URL.Query().Get("all") == ""}
	if c := r.URL.Query().Get("category"); c != "" {
		category, err := domain.ParseCategory(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		opts.Category = category
	}
	strategies = catalog.Filter(strategies, opts)

	switch r.URL.Query().Get("sort") {
	case "tvl":
		strategies = catalog.Sort(strategies, catalog.SortByTVL)
	case "participants":
		strategies = catalog.Sort(strategies, catalog.SortByParticipants)
	default:
		strategies = catalog.Sort(strategies, catalog.SortByAPY)
	}

	type strategyDTO struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Description  string `json:"description"`
		Category     string `json:"category"`
		RiskLevel    int    `json:"riskLevel"`
		Risk         string `json:"risk"`
		ExpectedAPY  string `json:"expectedAPY"`
		TVL          string `json:"tvl"`
		MinDeposit   string `json:"minDeposit"`
		Participants int    `json:"participants"`
		Featured     bool   `json:"featured"`
		Verified     bool   `json:"verified"`
		IsActive     bool   `json:"isActive"`
	}
	dtos := make([]strategyDTO, 0, len(strategies))
	for _, s := range strategies {
		dtos = append(dtos, strategyDTO{
			ID:           s.ID,
			Name:         s.Name,
			Description:  s.Description,
			Category:     string(s.Category),
			RiskLevel:    int(s.RiskLevel),
			Risk:         s.RiskLevel.String(),
			ExpectedAPY:  normalize.FormatAmount(s.ExpectedAPY),
			TVL:          normalize.FormatAmount(s.TVL),
			MinDeposit:   normalize.FormatAmount(s.MinDeposit),
			Participants: s.Participants,
			Featured:     s.Featured,
			Verified:     s.Verified,
			IsActive:     s.IsActive,
		})
	}

	writeJSON(w, http.StatusOK, dtos)
}

func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "id")

	snap := a.loader.Snapshot()
	for _, v := range snap.Vaults {
		if v.ID != vaultID {
			continue
		}

		points := analytics.BuildHistory(v, a.cfg.HistoryBuckets, a.cfg.HistorySeed)
		type pointDTO struct {
			Timestamp int64  `json:"timestamp"`
			Value     string `json:"value"`
		}
		dtos := make([]pointDTO, len(points))
		for i, p := range points {
			dtos[i] = pointDTO{Timestamp: p.Timestamp, Value: normalize.FormatAmount(p.Value)}
		}

		// The series is a synthetic interpolation, not historical truth;
		// the client must label it as approximate.
		writeJSON(w, http.StatusOK, map[string]any{
			"approximate": true,
			"points":      dtos,
		})
		return
	}

	writeError(w, http.StatusNotFound, "vault not found")
}

func (a *api) handleRefresh(w http.ResponseWriter, r *http.Request) {
	a.loader.Refetch(r.Context())
	w.WriteHeader(http.StatusAccepted)
}

type txStateDTO struct {
	Phase        string          `json:"phase"`
	Action       string          `json:"action,omitempty"`
	ActionID     string          `json:"actionId,omitempty"`
	SubmissionID string          `json:"submissionId,omitempty"`
	Failure      *txflow.Failure `json:"failure,omitempty"`
}

func stateDTO(s txflow.State) txStateDTO {
	return txStateDTO{
		Phase:        s.Phase.String(),
		Action:       string(s.Action),
		ActionID:     s.ActionID,
		SubmissionID: s.SubmissionID,
		Failure:      s.Failure,
	}
}

func (a *api) handleTxState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, stateDTO(a.orch.Current()))
}

func (a *api) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string `json:"name"`
		StrategyID string `json:"strategyId"`
		Amount     string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	amount, err := normalize.ParseAmount(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed amount")
		return
	}

	strategies, err := a.catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "strategy catalog unavailable")
		return
	}
	var strategy *domain.Strategy
	for i := range strategies {
		if strategies[i].ID == body.StrategyID {
			strategy = &strategies[i]
			break
		}
	}
	if strategy == nil {
		writeError(w, http.StatusNotFound, "unknown strategy")
		return
	}

	snap := a.loader.Snapshot()
	a.respondDispatch(w, a.orch.DispatchCreateVault(r.Context(), txflow.CreateVault{
		Name:       body.Name,
		StrategyID: body.StrategyID,
		Amount:     amount,
	}, *strategy, snap.AvailableBalance))
}

func (a *api) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VaultID string `json:"vaultId"`
		Amount  string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	amount, err := normalize.ParseAmount(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed amount")
		return
	}

	snap := a.loader.Snapshot()
	a.respondDispatch(w, a.orch.DispatchDeposit(r.Context(), txflow.Deposit{
		VaultID: body.VaultID,
		Amount:  amount,
	}, snap.AvailableBalance))
}

func (a *api) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VaultID string `json:"vaultId"`
		Amount  string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	amount, err := normalize.ParseAmount(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed amount")
		return
	}

	snap := a.loader.Snapshot()
	for _, v := range snap.Vaults {
		if v.ID == body.VaultID {
			a.respondDispatch(w, a.orch.DispatchWithdraw(r.Context(), txflow.Withdraw{
				VaultID: body.VaultID,
				Amount:  amount,
			}, v))
			return
		}
	}
	writeError(w, http.StatusNotFound, "vault not found")
}

func (a *api) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VaultID string `json:"vaultId"`
		Active  bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	a.respondDispatch(w, a.orch.DispatchSetActive(r.Context(), txflow.SetActive{
		VaultID: body.VaultID,
		Active:  body.Active,
	}))
}

func (a *api) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := a.orch.Reset(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stateDTO(a.orch.Current()))
}

// respondDispatch maps a dispatch result onto HTTP: busy machines conflict,
// build-phase violations are unprocessable, and an accepted dispatch
// returns the machine state for the client to observe.
func (a *api) respondDispatch(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, stateDTO(a.orch.Current()))
	case errors.Is(err, txflow.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		var failure *txflow.Failure
		if errors.As(err, &failure) {
			writeJSON(w, http.StatusUnprocessableEntity, stateDTO(a.orch.Current()))
			return
		}
		a.logger.Printf("dispatch failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already gone; nothing to do but note it.
		log.Printf("[api] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
