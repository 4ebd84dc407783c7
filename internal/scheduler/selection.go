package scheduler

import "github.com/handiism/stimulus/internal/model"

func (s *Scheduler) imageValid(g, i int) bool {
	return s.valid(s.groups[g].images[i].counter)
}

// groupValid reports whether group g can still supply an image: its own
// counter must be valid and at least one of its images must be.
func (s *Scheduler) groupValid(g int) bool {
	slot := &s.groups[g]
	if !s.valid(slot.counter) {
		return false
	}
	for i := range slot.images {
		if s.valid(slot.images[i].counter) {
			return true
		}
	}
	return false
}

// weightedPick draws one of the n candidates accepted by ok, with
// probability proportional to weight.
func (s *Scheduler) weightedPick(n int, weight func(int) int, ok func(int) bool) (int, bool) {
	total := 0
	for i := 0; i < n; i++ {
		if ok(i) {
			total += weight(i)
		}
	}
	if total <= 0 {
		return -1, false
	}
	r := s.rng.IntN(total)
	for i := 0; i < n; i++ {
		if !ok(i) {
			continue
		}
		r -= weight(i)
		if r < 0 {
			return i, true
		}
	}
	return -1, false
}

// scanAfter returns the first index accepted by ok, walking n entries in
// configured order starting right after last and wrapping around. last
// itself is the final candidate.
func scanAfter(last, n int, ok func(int) bool) (int, bool) {
	for k := 1; k <= n; k++ {
		i := (last + k) % n
		if ok(i) {
			return i, true
		}
	}
	return -1, false
}

// consume applies the bookkeeping of one exhibition drawn from group g:
// rate reduce on the image, repeat policy on the image, rate reduce on the
// group.
func (s *Scheduler) consume(g, i int) {
	slot := &s.groups[g]
	img := &slot.images[i]
	s.reduce(&img.counter)
	s.repeat(&img.counter)
	s.reduce(&slot.counter)
	slot.shown[i] = true
}

func (s *Scheduler) randomGroup() (int, error) {
	g, ok := s.weightedPick(len(s.groups),
		func(i int) int { return s.groups[i].weight },
		s.groupValid)
	if !ok {
		return -1, exhaustionErrorf("no valid group left at slot %d", s.produced+1)
	}
	return g, nil
}

func (s *Scheduler) sequentialGroup() (int, error) {
	g, ok := scanAfter(s.lastGroup, len(s.groups), s.groupValid)
	if !ok {
		return -1, exhaustionErrorf("no valid group left at slot %d", s.produced+1)
	}
	s.lastGroup = g
	return g, nil
}

func (s *Scheduler) randomImage(g int) (int, error) {
	slot := &s.groups[g]
	i, ok := s.weightedPick(len(slot.images),
		func(i int) int { return slot.images[i].weight },
		func(i int) bool { return s.imageValid(g, i) })
	if !ok {
		return -1, exhaustionErrorf("group %q has no valid image at slot %d", slot.group.Name, s.produced+1)
	}
	s.consume(g, i)
	return i, nil
}

func (s *Scheduler) sequentialImage(g int) (int, error) {
	slot := &s.groups[g]
	i, ok := scanAfter(slot.last, len(slot.images), func(i int) bool { return s.imageValid(g, i) })
	if !ok {
		return -1, exhaustionErrorf("group %q has no valid image at slot %d", slot.group.Name, s.produced+1)
	}
	slot.last = i
	s.consume(g, i)
	return i, nil
}

// enter makes g the held group and starts a new round of it.
func (s *Scheduler) enter(g int) {
	s.held = g
	shown := s.groups[g].shown
	for i := range shown {
		shown[i] = false
	}
}

func (s *Scheduler) switchGroup() error {
	g, err := s.nextGroup()
	if err != nil {
		return err
	}
	s.enter(g)
	return nil
}

func (s *Scheduler) selectOnEachShow() (int, int, error) {
	g, err := s.nextGroup()
	if err != nil {
		return -1, -1, err
	}
	i, err := s.nextImage(g)
	return g, i, err
}

func (s *Scheduler) selectOnDepletionOfCurrent() (int, int, error) {
	if s.held < 0 || !s.groupValid(s.held) {
		if err := s.switchGroup(); err != nil {
			return -1, -1, err
		}
	}
	i, err := s.nextImage(s.held)
	return s.held, i, err
}

func (s *Scheduler) selectOnceAllImagesShown() (int, int, error) {
	if s.held < 0 || s.roundComplete(s.held) {
		if err := s.switchGroup(); err != nil {
			return -1, -1, err
		}
	}
	i, err := s.nextImage(s.held)
	return s.held, i, err
}

// roundComplete reports whether the held group has shown all its images.
//
// With sequential intragroup order the cursor decides: the round ends once
// it sits on the last configured image or past the last valid one. While it
// sits on the last valid image the group keeps wrapping. With random order
// every currently valid image must have been drawn since the group was
// entered.
func (s *Scheduler) roundComplete(g int) bool {
	if !s.groupValid(g) {
		return true
	}
	slot := &s.groups[g]
	if s.cfg.IntragroupOrder == model.OrderSequential {
		if slot.last == len(slot.images)-1 {
			return true
		}
		lastValid := -1
		for i := range slot.images {
			if s.imageValid(g, i) {
				lastValid = i
			}
		}
		return slot.last > lastValid
	}
	for i := range slot.images {
		if s.imageValid(g, i) && !slot.shown[i] {
			return false
		}
	}
	return true
}
