package scheduler

import (
	"math/rand/v2"
	"time"

	"github.com/handiism/stimulus/internal/model"
)

// MaxRate is the largest group or image rate New accepts. It keeps rate sums
// and loads within int range.
const MaxRate = 1_000_000

// counter holds the derived selection state of a group or image.
//
// Under deterministic rates weight is a validity sentinel (1 or 0) and load
// is the remaining quota. Under probabilistic rates weight is the selection
// mass and load is unused.
type counter struct {
	weight int
	load   int
}

type imageSlot struct {
	image *model.Image
	counter
}

type groupSlot struct {
	group *model.Group
	counter
	images []imageSlot

	// last indexes the most recently selected image in sequential order.
	last int

	// shown marks images drawn since the group was last entered.
	shown []bool
}

// Scheduler produces the exhibition sequence for one run.
//
// Groups and images are held in an arena indexed in configured order; the
// cursors lastGroup, held and groupSlot.last are indices into it.
type Scheduler struct {
	cfg  *model.Configuration
	rng  *rand.Rand
	seed uint64

	groups    []groupSlot
	lastGroup int
	held      int

	produced int
	err      error

	reduce    func(*counter)
	valid     func(counter) bool
	repeat    func(*counter)
	nextGroup func() (int, error)
	nextImage func(g int) (int, error)
	step      func() (int, int, error)
}

// Option customises a Scheduler.
type Option func(*options)

type options struct {
	seed   uint64
	seeded bool
	rng    *rand.Rand
}

// WithSeed makes the random choices reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithRand supplies the random source directly. It takes precedence over
// WithSeed; Seed then reports 0.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rng = r
	}
}

// NewSource returns the generator used for a given seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// New validates cfg and binds its selection policy.
//
// The returned error wraps ErrConfiguration. cfg is never modified.
func New(cfg *model.Configuration, opts ...Option) (*Scheduler, error) {
	if cfg == nil {
		return nil, configErrorf("nil configuration")
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scheduler{
		cfg:       cfg,
		groups:    make([]groupSlot, len(cfg.Groups)),
		lastGroup: len(cfg.Groups) - 1,
		held:      -1,
	}
	switch {
	case o.rng != nil:
		s.rng = o.rng
	case o.seeded:
		s.seed = o.seed
		s.rng = NewSource(o.seed)
	default:
		s.seed = uint64(time.Now().UnixNano())
		s.rng = NewSource(s.seed)
	}

	for i, g := range cfg.Groups {
		slot := groupSlot{
			group:  g,
			images: make([]imageSlot, len(g.Images)),
			last:   len(g.Images) - 1,
			shown:  make([]bool, len(g.Images)),
		}
		for j, img := range g.Images {
			slot.images[j] = imageSlot{image: img}
		}
		s.groups[i] = slot
	}

	switch cfg.RateBehaviour {
	case model.RateDeterministic:
		if err := s.initDeterministic(); err != nil {
			return nil, err
		}
		s.reduce = reduceLoad
		s.valid = hasLoad
	case model.RateProbabilistic:
		s.initProbabilistic()
		s.reduce = keepLoad
		s.valid = hasWeight
	default:
		return nil, configErrorf("unknown rate behaviour %d", int(cfg.RateBehaviour))
	}

	if cfg.AllowImageRepeat {
		s.repeat = allowRepeat
	} else {
		s.repeat = forbidRepeat
	}

	switch cfg.IntergroupOrder {
	case model.OrderRandom:
		s.nextGroup = s.randomGroup
	case model.OrderSequential:
		s.nextGroup = s.sequentialGroup
	default:
		return nil, configErrorf("unknown intergroup order %d", int(cfg.IntergroupOrder))
	}

	switch cfg.IntragroupOrder {
	case model.OrderRandom:
		s.nextImage = s.randomImage
	case model.OrderSequential:
		s.nextImage = s.sequentialImage
	default:
		return nil, configErrorf("unknown intragroup order %d", int(cfg.IntragroupOrder))
	}

	switch cfg.IntergroupBehaviour {
	case model.SelectOnEachShow:
		s.step = s.selectOnEachShow
	case model.SelectOnDepletionOfCurrent:
		s.step = s.selectOnDepletionOfCurrent
	case model.SelectOnceAllImagesShown:
		s.step = s.selectOnceAllImagesShown
	default:
		return nil, configErrorf("unknown intergroup behaviour %d", int(cfg.IntergroupBehaviour))
	}

	return s, nil
}

// Seed returns the seed of the random source, so a run can be repeated.
func (s *Scheduler) Seed() uint64 {
	return s.seed
}

// Configuration returns the configuration the scheduler was built from.
func (s *Scheduler) Configuration() *model.Configuration {
	return s.cfg
}

// validate checks the structural rules that do not depend on the rate
// behaviour.
func validate(cfg *model.Configuration) error {
	if cfg.AmountOfExhibitions < 1 {
		return configErrorf("amount of exhibitions must be at least 1, got %d", cfg.AmountOfExhibitions)
	}
	if len(cfg.Groups) == 0 {
		return configErrorf("no groups configured")
	}

	names := make(map[string]struct{}, len(cfg.Groups))
	groupIDs := make(map[int]struct{}, len(cfg.Groups))
	imageIDs := make(map[int]struct{})
	rateSum := 0

	for i, g := range cfg.Groups {
		if g == nil {
			return configErrorf("group %d is nil", i)
		}
		if g.Name == "" {
			return configErrorf("group %d has no name", i)
		}
		if _, dup := names[g.Name]; dup {
			return configErrorf("duplicate group name %q", g.Name)
		}
		names[g.Name] = struct{}{}
		if _, dup := groupIDs[g.ID]; dup {
			return configErrorf("duplicate group id %d", g.ID)
		}
		groupIDs[g.ID] = struct{}{}
		if g.Rate < 0 {
			return configErrorf("group %q has negative rate %d", g.Name, g.Rate)
		}
		if g.Rate > MaxRate {
			return configErrorf("group %q rate %d exceeds %d", g.Name, g.Rate, MaxRate)
		}
		if len(g.Images) == 0 {
			return configErrorf("group %q has no images", g.Name)
		}
		for j, img := range g.Images {
			if img == nil {
				return configErrorf("group %q: image %d is nil", g.Name, j)
			}
			if img.Rate < 0 {
				return configErrorf("group %q: image %d has negative rate %d", g.Name, img.ID, img.Rate)
			}
			if img.Rate > MaxRate {
				return configErrorf("group %q: image %d rate %d exceeds %d", g.Name, img.ID, img.Rate, MaxRate)
			}
			if _, dup := imageIDs[img.ID]; dup {
				return configErrorf("duplicate image id %d", img.ID)
			}
			imageIDs[img.ID] = struct{}{}
		}
		if g.Rate > 0 && g.RateSum() == 0 {
			return configErrorf("group %q has a positive rate but all image rates are 0", g.Name)
		}
		rateSum += g.Rate
	}

	if rateSum == 0 {
		return configErrorf("all group rates are 0")
	}
	return nil
}

// initDeterministic splits the exhibitions into group loads, then each group
// load into image loads. Both splits must be exact.
func (s *Scheduler) initDeterministic() error {
	total := 0
	for _, g := range s.cfg.Groups {
		total += g.Rate
	}
	amount := s.cfg.AmountOfExhibitions
	if amount%total != 0 {
		return configErrorf("%d exhibitions cannot be split over a total group rate of %d", amount, total)
	}
	groupsUnity := amount / total

	for i := range s.groups {
		g := &s.groups[i]
		g.load = g.group.Rate * groupsUnity
		g.weight = 1
		for j := range g.images {
			g.images[j].weight = 1
		}
		if g.load == 0 {
			continue
		}
		imageTotal := g.group.RateSum()
		if g.load%imageTotal != 0 {
			return configErrorf("group %q: load %d cannot be split over an image rate total of %d",
				g.group.Name, g.load, imageTotal)
		}
		groupUnity := g.load / imageTotal
		for j := range g.images {
			g.images[j].load = g.images[j].image.Rate * groupUnity
		}
	}
	return nil
}

func (s *Scheduler) initProbabilistic() {
	for i := range s.groups {
		g := &s.groups[i]
		g.weight = g.group.Rate
		for j := range g.images {
			g.images[j].weight = g.images[j].image.Rate
		}
	}
}

func reduceLoad(c *counter) { c.load-- }

func keepLoad(*counter) {}

func hasLoad(c counter) bool { return c.load > 0 }

func hasWeight(c counter) bool { return c.weight > 0 }

func allowRepeat(*counter) {}

func forbidRepeat(c *counter) {
	c.load = 0
	c.weight = 0
}
