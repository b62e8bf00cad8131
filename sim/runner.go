package sim

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/queuesim/queuesim/sim/trace"
)

// RunOptions carries the run-wide settings shared by every model.
type RunOptions struct {
	Run     RunConfig
	Trace   *trace.SimulationTrace // nil disables tracing
	Metrics MetricsCollector       // nil means NoopMetrics
}

func (o RunOptions) metrics() MetricsCollector {
	if o.Metrics == nil {
		return NoopMetrics{}
	}
	return o.Metrics
}

// trialLoop runs trials and feeds each trial's value to a cross-trial
// estimator. With stopEarly the loop ends as soon as that estimator is done.
type trialLoop struct {
	model   string
	opts    RunOptions
	sources *TrialSources
	summary *BatchMeans
	report  *Report
}

func newTrialLoop(model, strategy, statistic string, opts RunOptions, summary EstimatorConfig) *trialLoop {
	return &trialLoop{
		model:   model,
		opts:    opts,
		sources: NewTrialSources(NewSimulationKey(opts.Run.Seed), opts.Run.TrialSeeding),
		summary: NewBatchMeans(summary),
		report:  newReport(model, strategy, statistic, opts.Run.Seed),
	}
}

func (l *trialLoop) run(stopEarly bool, trial func(n int, bank *ClockBank) (TrialResult, error), clocks []ClockSpec) (*Report, error) {
	m := l.opts.metrics()
	labels := map[string]string{"model": l.model, "strategy": l.report.Strategy}
	for n := 0; n < l.opts.Run.Trials; n++ {
		bank, err := NewClockBank(l.sources.ForTrial(n), clocks...)
		if err != nil {
			return nil, err
		}
		started := time.Now()
		res, err := trial(n, bank)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", n, err)
		}
		res.Trial = n
		res.Draws = bank.Draws()
		l.report.Trials = append(l.report.Trials, res)
		l.report.Events += res.Steps

		m.RecordDuration(MetricTrialDuration, time.Since(started), labels)
		m.IncrementCounter(MetricTrialsTotal, labels)
		m.RecordValue(MetricTrialValue, res.Value, labels)
		logrus.Infof("trial %d: %s=%.6f steps=%d", n, l.report.Statistic, res.Value, res.Steps)

		if l.summary.Observe(res.Value) && stopEarly {
			logrus.Infof("precision reached after %d trials", n+1)
			break
		}
	}
	l.report.Summary = l.summary.Estimate()
	m.RecordValue(MetricHalfWidth, l.report.Summary.HalfWidth, labels)
	m.RecordValue(MetricEvents, float64(l.report.Events), labels)
	if l.opts.Trace != nil {
		l.report.Trace = trace.Summarize(l.opts.Trace)
	}
	return l.report, nil
}

// RunQueue runs cfg.Estimator-driven single-server queue trials. Each trial
// starts from an empty queue and a fresh estimator and steps until the
// estimator stops; the trial value is its global batch mean.
func RunQueue(cfg QueueConfig, opts RunOptions) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Run.Validate(); err != nil {
		return nil, err
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = QueueStrategyTick
	}
	l := newTrialLoop(ModelQueue, strategy, "waiting", opts,
		TrialEstimatorConfig(cfg.Estimator.Precision, cfg.Estimator.Z))
	if lq, ok := MG1QueueLength(cfg.Arrival, cfg.Service); ok {
		l.report.Reference = &lq
	} else {
		logrus.Warnf("utilization %.4f >= 1: the queue is unstable, set max_batches to bound the run",
			Utilization(cfg.Arrival, cfg.Service))
	}

	est := NewBatchMeans(cfg.Estimator)
	m := opts.metrics()
	return l.run(false, func(n int, bank *ClockBank) (TrialResult, error) {
		model, err := NewQueueModel(strategy, bank)
		if err != nil {
			return TrialResult{}, err
		}
		if opts.Trace.Enabled() {
			setServeHook(model, func(r ServiceRecord) {
				opts.Trace.RecordEvent(trace.EventRecord{Trial: n, Time: r.Start, Outcome: trace.OutcomeServed})
			})
		}
		est.Reset()
		for !est.Observe(float64(model.Advance())) {
		}
		e := est.Estimate()
		stats := model.Stats()
		m.RecordValue(MetricBatches, float64(e.Batches), map[string]string{"model": ModelQueue, "trial": strconv.Itoa(n)})
		logrus.Debugf("trial %d: %d arrivals, %d served, busy %.4f", n, stats.Arrivals, stats.Served, stats.BusyTime)
		return TrialResult{Value: e.Mean, Steps: stats.Steps, Estimate: &e}, nil
	}, cfg.Clocks())
}

func setServeHook(m QueueModel, fn func(ServiceRecord)) {
	switch q := m.(type) {
	case *TickQueue:
		q.OnServe = fn
	case *EventOrderedQueue:
		q.OnServe = fn
	}
}

// RunStation runs station trials to cfg.Horizon. The configured statistic
// feeds the summary estimator; all three statistics are summarized.
func RunStation(cfg StationConfig, opts RunOptions) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Run.Validate(); err != nil {
		return nil, err
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StationStrategyPerClass
	}
	statistic := cfg.Statistic
	if statistic == "" {
		statistic = StatisticDissatisfaction
	}

	l := newTrialLoop(ModelStation, strategy, statistic, opts, cfg.Estimator)
	perStat := map[string]*BatchMeans{}
	for _, name := range []string{StatisticMoney, StatisticTimeEmpty, StatisticDissatisfaction} {
		perStat[name] = NewBatchMeans(TrialEstimatorConfig(cfg.Estimator.Precision, cfg.Estimator.Z))
	}

	report, err := l.run(cfg.StopOnPrecision, func(n int, bank *ClockBank) (TrialResult, error) {
		out, err := RunStationTrial(cfg, bank, opts.Trace, n)
		if err != nil {
			return TrialResult{}, err
		}
		for name, bm := range perStat {
			bm.Observe(out.Statistic(name))
		}
		return TrialResult{Value: out.Statistic(statistic), Steps: out.Events, Station: &out}, nil
	}, StationClocks(cfg))
	if err != nil {
		return nil, err
	}
	report.Station = &StationSummary{
		Money:           perStat[StatisticMoney].Estimate(),
		TimeEmpty:       perStat[StatisticTimeEmpty].Estimate(),
		Dissatisfaction: perStat[StatisticDissatisfaction].Estimate(),
	}
	return report, nil
}

// RunEpidemic runs contact-process trials; the trial value is the time
// until the whole population is infected.
func RunEpidemic(cfg EpidemicConfig, opts RunOptions) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Run.Validate(); err != nil {
		return nil, err
	}
	l := newTrialLoop(ModelEpidemic, "contact", "time_to_full", opts, cfg.Estimator)
	return l.run(cfg.StopOnPrecision, func(n int, bank *ClockBank) (TrialResult, error) {
		out := RunEpidemicTrial(cfg, bank, opts.Trace, n)
		return TrialResult{Value: out.TimeToFull, Steps: out.Contacts, Epidemic: &out}, nil
	}, cfg.Clocks())
}
