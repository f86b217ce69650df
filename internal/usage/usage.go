// Package usage tallies token consumption for one job and converts it into a
// cost estimate using a per-1000-token rate table.
package usage

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultModel is the model whose rate is built in.
const DefaultModel = "gpt-3.5-turbo"

// Account is a running tally of tokens. It is owned by a single job and is
// not safe for concurrent use.
type Account struct {
	InputTokens  int
	OutputTokens int
	Calls        int
}

// Add records one successful call.
func (a *Account) Add(input, output int) {
	if input > 0 {
		a.InputTokens += input
	}
	if output > 0 {
		a.OutputTokens += output
	}
	a.Calls++
}

// Merge adds the totals of other into a.
func (a *Account) Merge(other Account) {
	a.InputTokens += other.InputTokens
	a.OutputTokens += other.OutputTokens
	a.Calls += other.Calls
}

// Total is the sum of input and output tokens.
func (a Account) Total() int { return a.InputTokens + a.OutputTokens }

// Rate is the price in USD per 1000 tokens.
type Rate struct {
	InputPer1K  float64 `mapstructure:"input" json:"input" yaml:"input"`
	OutputPer1K float64 `mapstructure:"output" json:"output" yaml:"output"`
}

// RateTable maps a model identifier to its rate.
type RateTable map[string]Rate

// DefaultRates returns the built-in rate table.
func DefaultRates() RateTable {
	return RateTable{
		DefaultModel: {InputPer1K: 0.0015, OutputPer1K: 0.002},
	}
}

// With returns a copy of t overlaid with extra.
func (t RateTable) With(extra RateTable) RateTable {
	out := make(RateTable, len(t)+len(extra))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range extra {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Lookup finds the rate for model. Provider prefixes such as
// "openai/gpt-3.5-turbo" fall back to the bare model name.
func (t RateTable) Lookup(model string) (Rate, bool) {
	model = strings.ToLower(strings.TrimSpace(model))
	if r, ok := t[model]; ok {
		return r, true
	}
	if i := strings.LastIndex(model, "/"); i >= 0 {
		r, ok := t[model[i+1:]]
		return r, ok
	}
	return Rate{}, false
}

// Cost estimates the USD cost of a for model. Unknown models cost zero.
func (t RateTable) Cost(model string, a Account) float64 {
	r, ok := t.Lookup(model)
	if !ok {
		return 0
	}
	return float64(a.InputTokens)/1000*r.InputPer1K + float64(a.OutputTokens)/1000*r.OutputPer1K
}

// Models lists the priced models in sorted order.
func (t RateTable) Models() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Report is the cost summary handed back to the caller.
type Report struct {
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Calls        int     `json:"calls"`
	CostUSD      float64 `json:"cost_usd"`
	Priced       bool    `json:"priced"`
}

// NewReport builds the report for a under model.
func (t RateTable) NewReport(model string, a Account) Report {
	_, priced := t.Lookup(model)
	return Report{
		Model:        model,
		InputTokens:  a.InputTokens,
		OutputTokens: a.OutputTokens,
		Calls:        a.Calls,
		CostUSD:      t.Cost(model, a),
		Priced:       priced,
	}
}

func (r Report) String() string {
	return fmt.Sprintf("%d input tokens, %d output tokens, $%.4f", r.InputTokens, r.OutputTokens, r.CostUSD)
}
