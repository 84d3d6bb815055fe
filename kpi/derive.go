package kpi

// ResultsInput is what the results-entry form collects. Besides the KPI
// values it may carry the raw counters the derived KPIs are computed from.
type ResultsInput struct {
	Values Values

	Transactions float64 // sales tickets in the month
	Items        float64 // pieces sold
	Visitors     float64 // store traffic
}

// DeriveResults fills ticketMedio, pa and conversao from the raw counters
// when the form left them blank. Explicit values always win.
func DeriveResults(in ResultsInput) Values {
	out := in.Values.Clone()
	if in.Transactions > 0 {
		if out.Get(TicketMedio) == 0 && out.Get(Faturamento) > 0 {
			out[TicketMedio] = out.Get(Faturamento) / in.Transactions
		}
		if out.Get(PA) == 0 && in.Items > 0 {
			out[PA] = in.Items / in.Transactions
		}
		if out.Get(Conversao) == 0 && in.Visitors > 0 {
			out[Conversao] = in.Transactions / in.Visitors * 100
		}
	}
	return out
}
