package sim

// Utilization returns ρ = λ·E[S] for a single-server queue.
func Utilization(arrival, service ClockSpec) float64 {
	return arrival.Rate * service.Mean()
}

// MG1QueueLength returns the Pollaczek–Khinchine mean number waiting for an
// M/G/1 queue with Poisson(arrival.Rate) arrivals:
//
//	Lq = λ²·E[S²] / (2(1 − ρ))
//
// ok is false when the queue is unstable (ρ >= 1).
func MG1QueueLength(arrival, service ClockSpec) (lq float64, ok bool) {
	rho := Utilization(arrival, service)
	if rho >= 1 {
		return 0, false
	}
	lambda := arrival.Rate
	return lambda * lambda * service.SecondMoment() / (2 * (1 - rho)), true
}
