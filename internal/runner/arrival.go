package runner

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// arrivalController gates the admission of each slot.
type arrivalController interface {
	Admit(ctx context.Context, slot int) error
}

func newArrivalController(opt Options) arrivalController {
	switch opt.ArrivalModel {
	case ArrivalModelPoisson:
		var sampler func() float64
		if opt.PoissonSampler != nil {
			sampler = opt.PoissonSampler
		} else {
			seeded := rand.New(rand.NewSource(opt.RandomSeed))
			sampler = seeded.ExpFloat64
		}
		return &poissonArrival{rate: float64(opt.Rate), sample: sampler, sleep: opt.Sleep}
	case ArrivalModelUniform:
		return &uniformArrival{limiter: opt.LimiterFactory(opt.Rate)}
	default:
		return &batchArrival{size: opt.Rate, sleep: opt.Sleep}
	}
}

// batchArrival admits slots in groups of size and pauses one second before
// each new group. The final group is not followed by a pause.
type batchArrival struct {
	size  int
	sleep func(ctx context.Context, d time.Duration) error
}

func (b *batchArrival) Admit(ctx context.Context, slot int) error {
	if slot > 0 && b.size > 0 && slot%b.size == 0 {
		return b.sleep(ctx, time.Second)
	}
	return ctx.Err()
}

// uniformArrival delegates pacing to a rate.Limiter (uniform spacing).
type uniformArrival struct {
	limiter *rate.Limiter
}

func (u *uniformArrival) Admit(ctx context.Context, _ int) error {
	if u == nil || u.limiter == nil {
		return ctx.Err()
	}
	return u.limiter.Wait(ctx)
}

// poissonArrival samples exponential inter-arrival times to approximate a Poisson process.
type poissonArrival struct {
	rate   float64
	sample func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

func (p *poissonArrival) Admit(ctx context.Context, slot int) error {
	if slot == 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, p.nextDelay())
}

func (p *poissonArrival) nextDelay() time.Duration {
	if p.rate <= 0 || p.sample == nil {
		return 0
	}

	value := p.sample()
	delay := float64(time.Second) * value / p.rate
	if delay > math.MaxInt64 {
		delay = math.MaxInt64
	}
	return time.Duration(delay)
}
