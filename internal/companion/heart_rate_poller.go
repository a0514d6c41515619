package companion

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/lift-companion/internal/hrtrend"
	"github.com/lowaak/smart-trainer/lift-companion/internal/safego"
)

// LatestHeartRate reports the current heart rate, 0 when there is none
type LatestHeartRate interface {
	Latest() int
}

// HeartRatePoller feeds the estimator from the heart-rate source once per
// interval and publishes the result to the model
type HeartRatePoller struct {
	source    LatestHeartRate
	estimator *hrtrend.Estimator
	model     *UIModel
	interval  time.Duration
	logger    logrus.FieldLogger

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func NewHeartRatePoller(source LatestHeartRate, estimator *hrtrend.Estimator, model *UIModel, interval time.Duration, logger logrus.FieldLogger) *HeartRatePoller {
	if source == nil {
		panic("HeartRatePoller: source cannot be nil")
	}
	if estimator == nil {
		panic("HeartRatePoller: estimator cannot be nil")
	}
	if model == nil {
		panic("HeartRatePoller: model cannot be nil")
	}
	if logger == nil {
		panic("HeartRatePoller: logger cannot be nil")
	}
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &HeartRatePoller{
		source:    source,
		estimator: estimator,
		model:     model,
		interval:  interval,
		logger:    logger.WithField("component", "HeartRatePoller"),
		ctx:       ctx,
		cancel:    cancel,
	}

	p.wg.Add(1)
	safego.Go(p.logger, func() { p.run() })
	return p
}

func (p *HeartRatePoller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll registers one sample. A missing reading is not registered, the
// estimator keeps its last output.
func (p *HeartRatePoller) poll() {
	bpm := p.source.Latest()
	if bpm > 0 {
		p.estimator.Register(bpm)
	}
	hr := HeartRate{BPM: bpm, Reading: p.estimator.Snapshot()}
	if hr.Reading.Rate != nil {
		p.logger.Debugf("%d bpm, %+.3f bpm/s, %s", bpm, *hr.Reading.Rate, hr.Reading.Trend)
	}
	p.model.SetHeartRate(hr)
}

// Shutdown stops polling. Safe to call multiple times.
func (p *HeartRatePoller) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}
