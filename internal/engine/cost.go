package engine

// Rate is the price of one model in USD per million tokens.
type Rate struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// RateTable maps model ids to rates. Unknown models cost zero, so a run
// mixing known and unknown models still sums cleanly.
type RateTable map[string]Rate

// CallCost computes the cost of a single recorded call.
func (t RateTable) CallCost(call RecordedCall) float64 {
	rate, ok := t[call.Model]
	if !ok {
		return 0
	}
	return float64(call.Usage.Prompt)*rate.InputPerMillion/1e6 +
		float64(call.Usage.Completion)*rate.OutputPerMillion/1e6
}

// Cost sums the cost of every entry in the ledger. Retried attempts count
// exactly as recorded, no more and no less.
func (t RateTable) Cost(ledger []RecordedCall) float64 {
	var total float64
	for _, call := range ledger {
		total += t.CallCost(call)
	}
	return total
}

// RunCost sums the cost of every model call recorded on the run.
func (t RateTable) RunCost(run *Run) float64 {
	return t.Cost(run.Ledger())
}

// DefaultRateTable returns built-in rates for common models (February 2026
// list prices). Callers with other models should supply their own table.
func DefaultRateTable() RateTable {
	return RateTable{
		"claude-opus-4-6":   {InputPerMillion: 15.0, OutputPerMillion: 75.0},
		"claude-sonnet-4-5": {InputPerMillion: 3.0, OutputPerMillion: 15.0},
		"gpt-5.2":           {InputPerMillion: 2.50, OutputPerMillion: 10.0},
		"gpt-5.2-mini":      {InputPerMillion: 0.75, OutputPerMillion: 3.0},
	}
}
