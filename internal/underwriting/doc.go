// Package underwriting implements the deterministic deal underwriting engine.
//
// The engine projects a real-estate acquisition month by month over the hold
// period, rolls the months into annual summaries, values the exit, and solves
// the deal-level return measures.
//
// # Core Components
//
// A run walks five stages:
//
//  1. Validation: range, cross-field, and NaN/Inf checks on every assumption
//  2. Monthly projection: rent growth, vacancy, bad debt, renovation and
//     lease-up loss, expense ratios, and loan amortization in one pass
//  3. Annual aggregation: yearly summaries with DSCR and cash-on-cash
//  4. Exit valuation: forward twelve-month NOI capitalized at the exit cap
//     rate, net of sale costs and loan payoff
//  5. Metrics: Newton-Raphson IRR over the full cash-flow vector, equity
//     multiple, and break-even occupancy
//
// # Architecture
//
//   - types.go: deal input model, schedule rows, results
//   - validate.go: input and output validation
//   - schedule.go: the monthly projector
//   - annual.go: annual aggregation
//   - exit.go: sale valuation
//   - finance.go: PMT, NPV, and the IRR solver
//   - sensitivity.go: perturbed re-runs for comparison tables
//   - calculator.go: orchestration, logging, timeouts
//
// # Usage Example
//
//	calculator := underwriting.NewCalculator(slog.Default())
//
//	input := underwriting.DefaultDealInput()
//	input.Name = "maple-court"
//
//	result, err := calculator.Run(ctx, input)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("IRR %.2f%%  equity multiple %.2fx\n",
//	    result.Metrics.IRR*100, result.Metrics.EquityMultiple)
//
// All computation is deterministic: identical input produces identical
// output. The engine performs no I/O beyond structured logging.
package underwriting
