package sizing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// evaluation is the per-call state threaded through the gates. Gates may
// fill in values later gates depend on (odds, Kelly fraction, unit cost).
type evaluation struct {
	cfg    Config
	signal domain.Signal
	acct   domain.AccountState
	pf     domain.PortfolioState
	limits domain.Limits
	pred   *domain.Prediction

	fullKelly float64
	unitCost  decimal.Decimal
}

// gate is one ordered check. check returns nil to pass.
type gate struct {
	name  domain.Gate
	check func(ev *evaluation) *domain.Rejection
}

func defaultGates() []gate {
	return []gate{
		{domain.GateBalanceFloor, checkBalanceFloor},
		{domain.GateDailyCap, checkDailyCap},
		{domain.GateMaxPositions, checkMaxPositions},
		{domain.GateMinEdge, checkMinEdge},
		{domain.GateKelly, checkKelly},
		{domain.GateCostPerContract, checkCostPerContract},
		{domain.GateContracts, checkContracts},
	}
}

func reject(code domain.RejectCode, format string, args ...any) *domain.Rejection {
	return &domain.Rejection{Code: code, Reason: fmt.Sprintf(format, args...)}
}

func checkBalanceFloor(ev *evaluation) *domain.Rejection {
	bal := ev.acct.Balance
	if !domain.IsFinite(bal) {
		return reject(domain.CodeInvalidBalance, "balance %v is not a number", bal)
	}
	if bal < ev.cfg.BalanceFloor {
		return reject(domain.CodeBalanceBelowFloor, "balance $%.2f below floor $%.2f", bal, ev.cfg.BalanceFloor)
	}
	return nil
}

// checkDailyCap estimates the candidate at MinContracts contracts; the real
// size is clipped to the remaining budget in checkContracts.
func checkDailyCap(ev *evaluation) *domain.Rejection {
	deployed := ev.acct.DeployedToday
	estimate := 0.0
	if domain.IsFinite(ev.signal.MarketPrice) {
		unit := domain.ContractCost(ev.signal.Side, ev.signal.MarketPrice).InexactFloat64()
		estimate = math.Max(unit, 0) * float64(ev.cfg.MinContracts)
	}
	if !domain.IsFinite(deployed) || deployed+estimate > ev.limits.DailyCap {
		return reject(domain.CodeDailyCapExceeded, "daily cap reached ($%.2f + $%.2f / $%.2f)",
			deployed, estimate, ev.limits.DailyCap)
	}
	return nil
}

func checkMaxPositions(ev *evaluation) *domain.Rejection {
	open := max(ev.acct.OpenPositions, len(ev.pf.Positions))
	if open >= ev.cfg.MaxOpenPositions {
		return reject(domain.CodeMaxPositions, "max positions reached (%d/%d)", open, ev.cfg.MaxOpenPositions)
	}
	return nil
}

// checkMinEdge compares the edge magnitude; a negative edge of any size is
// stopped by checkKelly. Degenerate prices and raw probabilities are left to
// checkKelly too, where they are reported as undefined odds or an invalid
// probability.
func checkMinEdge(ev *evaluation) *domain.Rejection {
	if !validPrice(ev.signal.MarketPrice) || !validProbability(ev.signal.RawProbability) {
		return nil
	}
	edge := ev.pred.Edge
	if !domain.IsFinite(edge) {
		return reject(domain.CodeEdgeNotFinite, "edge is not a number")
	}
	if math.Abs(edge) < ev.cfg.MinEdge {
		return reject(domain.CodeEdgeBelowMinimum, "edge %.1f%% below minimum %.1f%%", edge*100, ev.cfg.MinEdge*100)
	}
	return nil
}

func checkKelly(ev *evaluation) *domain.Rejection {
	m := ev.signal.MarketPrice
	if !validPrice(m) {
		return reject(domain.CodeInvalidMarketPrice, "market price %v: %v", m, domain.ErrUndefinedOdds)
	}
	if !ev.signal.Side.Valid() {
		return reject(domain.CodeInvalidSide, "side %q is not yes or no", ev.signal.Side)
	}
	b, err := domain.PayoutOdds(ev.signal.Side, m)
	if err != nil {
		return reject(domain.CodeInvalidMarketPrice, "market price %v: %v", m, err)
	}
	// A calibration table clamps anything past its last breakpoint, so the
	// raw value has to be checked before the calibrated one.
	if raw := ev.signal.RawProbability; !validProbability(raw) {
		return reject(domain.CodeInvalidProbability, "raw probability %v outside [0,1]", raw)
	}
	p := ev.pred.OurProbability
	if !validProbability(p) {
		return reject(domain.CodeInvalidProbability, "calibrated probability %v outside [0,1]", p)
	}
	f := domain.KellyFraction(b, p)
	if f <= 0 {
		return reject(domain.CodeNonPositiveKelly, "negative Kelly, no edge (f*=%.4f)", f)
	}
	ev.fullKelly = f
	ev.pred.KellyFraction = f * ev.limits.Kelly
	return nil
}

func checkCostPerContract(ev *evaluation) *domain.Rejection {
	cost := domain.ContractCost(ev.signal.Side, ev.signal.MarketPrice)
	if !cost.IsPositive() {
		return reject(domain.CodeZeroCostContract, "cost per contract $%s rounds to zero", cost.StringFixed(2))
	}
	ev.unitCost = cost
	ev.pred.CostPerContract = cost
	return nil
}

func checkContracts(ev *evaluation) *domain.Rejection {
	bal := ev.acct.Balance
	remaining := ev.limits.DailyCap - ev.acct.DeployedToday

	stake := ev.pred.KellyFraction * bal
	stake = math.Min(stake, ev.limits.MaxTrade)
	stake = math.Min(stake, remaining)
	if stake <= 0 {
		return reject(domain.CodeBelowMinContracts, "no stake left (kelly $%.2f, remaining $%.2f)",
			ev.pred.KellyFraction*bal, remaining)
	}

	contracts := contractsFor(stake, ev.unitCost)
	contracts = min(contracts, contractsFor(ev.limits.MaxTrade, ev.unitCost))

	if contracts < int64(ev.cfg.MinContracts) {
		return reject(domain.CodeBelowMinContracts, "stake $%.2f buys %d contracts at $%s, need %d",
			stake, contracts, ev.unitCost.StringFixed(2), ev.cfg.MinContracts)
	}

	ev.pred.RecommendedContracts = int(contracts)
	ev.pred.RecommendedCost = ev.unitCost.Mul(decimal.NewFromInt(contracts))
	return nil
}

// MaxContracts bounds a single recommendation so huge balances cannot
// overflow the contract count.
const MaxContracts int64 = 1_000_000_000

func contractsFor(stake float64, unit decimal.Decimal) int64 {
	n := decimal.NewFromFloat(stake).Div(unit).Floor()
	if n.GreaterThan(decimal.NewFromInt(MaxContracts)) {
		return MaxContracts
	}
	return n.IntPart()
}

func validProbability(p float64) bool {
	return domain.IsFinite(p) && p >= 0 && p <= 1
}

func validPrice(m float64) bool {
	return !math.IsNaN(m) && m > 0 && m < 1
}
